package session

import (
	"context"
	"errors"
	"time"
)

// ErrNoSession covers missing, expired and invalidated sessions alike.
var ErrNoSession = errors.New("no session")

type Session struct {
	ID        string    `json:"id"`
	UserID    uint      `json:"user_id"`
	IsAdmin   bool      `json:"is_admin"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

func (s *Session) Expired(now time.Time) bool {
	return !now.Before(s.ExpiresAt)
}

type Store interface {
	Get(ctx context.Context, id string) (*Session, error)
	Save(ctx context.Context, s *Session) error
	Delete(ctx context.Context, id string) error
}
