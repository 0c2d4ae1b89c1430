package session

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const (
	CookieName     = "session"
	DefaultTimeout = 30 * time.Minute
)

var ErrBadCookie = errors.New("invalid session cookie")

type Manager struct {
	store   Store
	secret  []byte
	timeout time.Duration
	now     func() time.Time
}

type Option func(*Manager)

func WithClock(now func() time.Time) Option {
	return func(m *Manager) { m.now = now }
}

func WithTimeout(d time.Duration) Option {
	return func(m *Manager) {
		if d > 0 {
			m.timeout = d
		}
	}
}

func NewManager(store Store, secret []byte, opts ...Option) *Manager {
	m := &Manager{
		store:   store,
		secret:  secret,
		timeout: DefaultTimeout,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

func (m *Manager) Timeout() time.Duration { return m.timeout }

// Create starts an authenticated session. The admin flag is a snapshot and is
// not re-read from the user record until the next login.
func (m *Manager) Create(ctx context.Context, userID uint, isAdmin bool) (*Session, error) {
	id, err := newID()
	if err != nil {
		return nil, fmt.Errorf("session id: %w", err)
	}

	now := m.now()
	s := &Session{
		ID:        id,
		UserID:    userID,
		IsAdmin:   isAdmin,
		CreatedAt: now,
		ExpiresAt: now.Add(m.timeout),
	}
	if err := m.store.Save(ctx, s); err != nil {
		return nil, err
	}
	return s, nil
}

// Lookup returns a live session and slides its expiry forward.
func (m *Manager) Lookup(ctx context.Context, id string) (*Session, error) {
	if id == "" {
		return nil, ErrNoSession
	}

	s, err := m.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	now := m.now()
	if s.Expired(now) {
		_ = m.store.Delete(ctx, id)
		return nil, ErrNoSession
	}

	s.ExpiresAt = now.Add(m.timeout)
	if err := m.store.Save(ctx, s); err != nil {
		return nil, err
	}
	return s, nil
}

func (m *Manager) Invalidate(ctx context.Context, id string) error {
	if id == "" {
		return nil
	}
	return m.store.Delete(ctx, id)
}

// Encode wraps the session id in a signed cookie value.
func (m *Manager) Encode(s *Session) (string, error) {
	claims := jwt.RegisteredClaims{
		ID:       s.ID,
		IssuedAt: jwt.NewNumericDate(s.CreatedAt),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
}

// Decode verifies a cookie value and returns the session id inside it.
func (m *Manager) Decode(value string) (string, error) {
	var claims jwt.RegisteredClaims
	tkn, err := jwt.ParseWithClaims(value, &claims, func(t *jwt.Token) (any, error) {
		return m.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil || !tkn.Valid || claims.ID == "" {
		return "", ErrBadCookie
	}
	return claims.ID, nil
}

// Resolve decodes a cookie value and looks the session up.
func (m *Manager) Resolve(ctx context.Context, value string) (*Session, error) {
	id, err := m.Decode(value)
	if err != nil {
		return nil, ErrNoSession
	}
	return m.Lookup(ctx, id)
}

func newID() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
