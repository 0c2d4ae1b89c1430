package token

import (
	"context"
	"time"

	"github.com/Skotchmaster/bookshelf/internal/logging"
)

type Sweeper struct {
	Tokens   *Manager
	Interval time.Duration
}

// Run deletes expired tokens every Interval until ctx is done.
func (s *Sweeper) Run(ctx context.Context) {
	l := logging.FromContext(ctx).With("job", "token_sweeper")

	interval := s.Interval
	if interval <= 0 {
		interval = time.Hour
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	s.sweep(ctx)
	for {
		select {
		case <-ctx.Done():
			l.Info("sweeper_stopped")
			return
		case <-ticker.C:
			s.sweep(ctx)
		}
	}
}

func (s *Sweeper) sweep(ctx context.Context) {
	l := logging.FromContext(ctx).With("job", "token_sweeper")

	n, err := s.Tokens.CleanupExpiredTokens(ctx)
	if err != nil {
		l.Error("sweep_failed", "error", err)
		return
	}
	if n > 0 {
		l.Info("expired_tokens_deleted", "count", n)
	}
}
