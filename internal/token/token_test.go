package token

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Skotchmaster/bookshelf/internal/models"
	"github.com/Skotchmaster/bookshelf/internal/repo"
	"github.com/Skotchmaster/bookshelf/pkg/db"
)

type clock struct{ t time.Time }

func (c *clock) now() time.Time { return c.t }

func newTestManager(t *testing.T) (*Manager, *repo.GormRepo, *clock) {
	t.Helper()

	gdb, err := db.Open(context.Background(), db.DriverSQLite, ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close(gdb) })

	r := repo.New(gdb)
	require.NoError(t, r.Migrate())

	c := &clock{t: time.Date(2026, 5, 10, 8, 0, 0, 0, time.UTC)}
	return NewManager(r, c.now), r, c
}

func TestCreateToken_ValidImmediately(t *testing.T) {
	m, r, c := newTestManager(t)
	ctx := context.Background()

	value, err := m.CreateToken(ctx, 7)
	require.NoError(t, err)
	assert.NotEmpty(t, value)
	assert.True(t, m.IsValidToken(ctx, value))

	stored, err := r.FindTokenByValue(ctx, value)
	require.NoError(t, err)
	assert.True(t, stored.Valid)
	assert.True(t, stored.ExpiresAt.Equal(c.t.Add(7*24*time.Hour)))
}

func TestCreateToken_UniqueValues(t *testing.T) {
	m, _, _ := newTestManager(t)
	ctx := context.Background()

	seen := map[string]bool{}
	for i := 0; i < 20; i++ {
		v, err := m.CreateToken(ctx, 1)
		require.NoError(t, err)
		require.False(t, seen[v])
		seen[v] = true
	}
}

func TestCreateToken_RejectsNonPositiveDays(t *testing.T) {
	m, _, _ := newTestManager(t)
	_, err := m.CreateToken(context.Background(), 0)
	assert.ErrorIs(t, err, ErrInvalidDays)
}

func TestInvalidateToken(t *testing.T) {
	m, _, _ := newTestManager(t)
	ctx := context.Background()

	value, err := m.CreateToken(ctx, 7)
	require.NoError(t, err)

	found, err := m.InvalidateToken(ctx, value)
	require.NoError(t, err)
	assert.True(t, found)
	assert.False(t, m.IsValidToken(ctx, value))

	found, err = m.InvalidateToken(ctx, "unknown")
	require.NoError(t, err)
	assert.False(t, found)

	found, err = m.InvalidateToken(ctx, "")
	require.NoError(t, err)
	assert.False(t, found)
}

func TestIsValidToken_ExpiredEvenIfValidFlag(t *testing.T) {
	m, r, c := newTestManager(t)
	ctx := context.Background()

	require.NoError(t, r.CreateToken(ctx, &models.Token{
		Value:     "old",
		CreatedAt: c.t.Add(-8 * 24 * time.Hour),
		ExpiresAt: c.t.Add(-time.Second),
		Valid:     true,
	}))
	assert.False(t, m.IsValidToken(ctx, "old"))

	value, err := m.CreateToken(ctx, 1)
	require.NoError(t, err)
	c.t = c.t.Add(24 * time.Hour)
	assert.False(t, m.IsValidToken(ctx, value), "expiry instant is exclusive")
}

func TestIsValidToken_UnknownOrEmpty(t *testing.T) {
	m, _, _ := newTestManager(t)
	ctx := context.Background()
	assert.False(t, m.IsValidToken(ctx, ""))
	assert.False(t, m.IsValidToken(ctx, "missing"))
}

type failingStore struct{ Store }

func (failingStore) FindTokenByValue(context.Context, string) (*models.Token, error) {
	return nil, errors.New("db down")
}

func TestIsValidToken_StoreErrorReadsFalse(t *testing.T) {
	m := NewManager(failingStore{}, nil)
	assert.False(t, m.IsValidToken(context.Background(), "x"))
}

func TestCleanupExpiredTokens(t *testing.T) {
	m, r, c := newTestManager(t)
	ctx := context.Background()

	live, err := m.CreateToken(ctx, 3)
	require.NoError(t, err)
	require.NoError(t, r.CreateToken(ctx, &models.Token{
		Value: "expired", CreatedAt: c.t.Add(-48 * time.Hour), ExpiresAt: c.t.Add(-time.Hour), Valid: false,
	}))

	n, err := m.CleanupExpiredTokens(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)

	_, err = r.FindTokenByValue(ctx, "expired")
	assert.ErrorIs(t, err, repo.ErrNotFound)
	assert.True(t, m.IsValidToken(ctx, live))
}

func TestSweeper_RunsUntilCancelled(t *testing.T) {
	m, r, c := newTestManager(t)
	require.NoError(t, r.CreateToken(context.Background(), &models.Token{
		Value: "stale", CreatedAt: c.t.Add(-48 * time.Hour), ExpiresAt: c.t.Add(-time.Hour), Valid: true,
	}))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		(&Sweeper{Tokens: m, Interval: 10 * time.Millisecond}).Run(ctx)
		close(done)
	}()

	require.Eventually(t, func() bool {
		_, err := r.FindTokenByValue(context.Background(), "stale")
		return errors.Is(err, repo.ErrNotFound)
	}, time.Second, 10*time.Millisecond)

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("sweeper did not stop")
	}
}
