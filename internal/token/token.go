package token

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/Skotchmaster/bookshelf/internal/logging"
	"github.com/Skotchmaster/bookshelf/internal/models"
	"github.com/Skotchmaster/bookshelf/internal/repo"
)

const CookieName = "token"

var ErrInvalidDays = errors.New("token validity must be at least one day")

type Store interface {
	CreateToken(ctx context.Context, t *models.Token) error
	FindTokenByValue(ctx context.Context, value string) (*models.Token, error)
	InvalidateToken(ctx context.Context, value string) (bool, error)
	DeleteTokensExpiredBefore(ctx context.Context, t time.Time) (int64, error)
}

// Manager issues opaque cookie tokens. A token carries no user identity.
type Manager struct {
	store Store
	now   func() time.Time
}

func NewManager(store Store, now func() time.Time) *Manager {
	if now == nil {
		now = time.Now
	}
	return &Manager{store: store, now: now}
}

func (m *Manager) CreateToken(ctx context.Context, validDays int) (string, error) {
	if validDays < 1 {
		return "", ErrInvalidDays
	}

	now := m.now().UTC()
	t := &models.Token{
		Value:     uuid.NewString(),
		CreatedAt: now,
		ExpiresAt: now.Add(time.Duration(validDays) * 24 * time.Hour),
		Valid:     true,
	}
	if err := m.store.CreateToken(ctx, t); err != nil {
		return "", fmt.Errorf("create token: %w", err)
	}
	return t.Value, nil
}

// IsValidToken never fails: lookup errors are logged and read as invalid.
func (m *Manager) IsValidToken(ctx context.Context, value string) bool {
	if value == "" {
		return false
	}

	t, err := m.store.FindTokenByValue(ctx, value)
	if err != nil {
		if !errors.Is(err, repo.ErrNotFound) {
			logging.FromContext(ctx).Error("token_lookup_failed", "error", err)
		}
		return false
	}
	return t.Usable(m.now())
}

func (m *Manager) InvalidateToken(ctx context.Context, value string) (bool, error) {
	if value == "" {
		return false, nil
	}
	found, err := m.store.InvalidateToken(ctx, value)
	if err != nil {
		return false, fmt.Errorf("invalidate token: %w", err)
	}
	return found, nil
}

func (m *Manager) CleanupExpiredTokens(ctx context.Context) (int64, error) {
	n, err := m.store.DeleteTokensExpiredBefore(ctx, m.now())
	if err != nil {
		return 0, fmt.Errorf("cleanup tokens: %w", err)
	}
	return n, nil
}
