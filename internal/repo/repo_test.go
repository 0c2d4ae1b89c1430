package repo

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/Skotchmaster/bookshelf/internal/models"
	"github.com/Skotchmaster/bookshelf/pkg/db"
)

func newTestRepo(t *testing.T) *GormRepo {
	t.Helper()

	gdb, err := db.Open(context.Background(), db.DriverSQLite, ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close(gdb) })

	r := New(gdb)
	require.NoError(t, r.Migrate())
	return r
}

func TestUsers_CreateFindDelete(t *testing.T) {
	r := newTestRepo(t)
	ctx := context.Background()

	u := &models.User{Name: "Ann", Email: "ann@example.com", PasswordHash: "x"}
	require.NoError(t, r.CreateUser(ctx, u))
	require.NotZero(t, u.ID)
	assert.False(t, u.IsAdmin)

	byEmail, err := r.FindUserByEmail(ctx, "ann@example.com")
	require.NoError(t, err)
	assert.Equal(t, u.ID, byEmail.ID)

	byID, err := r.FindUserByID(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, "Ann", byID.Name)

	exists, err := r.UserExists(ctx, u.ID)
	require.NoError(t, err)
	assert.True(t, exists)

	require.NoError(t, r.DeleteUser(ctx, u.ID))
	_, err = r.FindUserByID(ctx, u.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, r.DeleteUser(ctx, u.ID), ErrNotFound)
}

func TestUsers_DuplicateEmail(t *testing.T) {
	r := newTestRepo(t)
	ctx := context.Background()

	require.NoError(t, r.CreateUser(ctx, &models.User{Name: "A", Email: "a@b.com", PasswordHash: "x"}))
	err := r.CreateUser(ctx, &models.User{Name: "B", Email: "a@b.com", PasswordHash: "y"})
	assert.ErrorIs(t, err, ErrDuplicate)
}

func TestUsers_List(t *testing.T) {
	r := newTestRepo(t)
	ctx := context.Background()

	for _, e := range []string{"x@a.io", "y@a.io"} {
		require.NoError(t, r.CreateUser(ctx, &models.User{Name: e, Email: e, PasswordHash: "h"}))
	}
	users, err := r.ListUsers(ctx)
	require.NoError(t, err)
	require.Len(t, users, 2)
	assert.Equal(t, "x@a.io", users[0].Email)
}

func TestTokens_Lifecycle(t *testing.T) {
	r := newTestRepo(t)
	ctx := context.Background()
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

	live := &models.Token{Value: "live", CreatedAt: now, ExpiresAt: now.Add(time.Hour), Valid: true}
	dead := &models.Token{Value: "dead", CreatedAt: now.Add(-48 * time.Hour), ExpiresAt: now.Add(-time.Hour), Valid: true}
	require.NoError(t, r.CreateToken(ctx, live))
	require.NoError(t, r.CreateToken(ctx, dead))

	found, err := r.InvalidateToken(ctx, "live")
	require.NoError(t, err)
	assert.True(t, found)

	// second invalidation is a no-op but still finds the row
	found, err = r.InvalidateToken(ctx, "live")
	require.NoError(t, err)
	assert.True(t, found)

	found, err = r.InvalidateToken(ctx, "missing")
	require.NoError(t, err)
	assert.False(t, found)

	tok, err := r.FindTokenByValue(ctx, "live")
	require.NoError(t, err)
	assert.False(t, tok.Valid)

	n, err := r.DeleteTokensExpiredBefore(ctx, now)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)

	_, err = r.FindTokenByValue(ctx, "dead")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestBooks_CRUDAndSearch(t *testing.T) {
	r := newTestRepo(t)
	ctx := context.Background()

	b := &models.Book{Title: "Dune", Author: "Frank Herbert", Description: "Spice"}
	require.NoError(t, r.CreateBook(ctx, b))
	require.NoError(t, r.CreateBook(ctx, &models.Book{Title: "Emma", Author: "Jane Austen", Description: "Novel"}))

	err := r.CreateBook(ctx, &models.Book{Title: "Dune", Author: "x", Description: "y"})
	assert.ErrorIs(t, err, ErrDuplicate)

	got, err := r.FindBookByTitle(ctx, "Dune")
	require.NoError(t, err)
	assert.Equal(t, b.ID, got.ID)

	updated, err := r.UpdateBook(ctx, b.ID, "Dune Messiah", "Frank Herbert", "Sequel")
	require.NoError(t, err)
	assert.Equal(t, "Dune Messiah", updated.Title)

	total, books, err := r.SearchBooks(ctx, "herbert", 0, 10)
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)
	require.Len(t, books, 1)
	assert.Equal(t, "Dune Messiah", books[0].Title)

	_, err = r.UpdateBook(ctx, 999, "a", "b", "c")
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, r.DeleteBook(ctx, b.ID))
	assert.ErrorIs(t, r.DeleteBook(ctx, b.ID), ErrNotFound)

	all, err := r.ListBooks(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestTranslate(t *testing.T) {
	assert.NoError(t, translate(nil))
	assert.ErrorIs(t, translate(gorm.ErrRecordNotFound), ErrNotFound)
	assert.ErrorIs(t, translate(gorm.ErrDuplicatedKey), ErrDuplicate)
	assert.ErrorIs(t, translate(&pq.Error{Code: "23505"}), ErrDuplicate)
	assert.ErrorIs(t, translate(errors.New("UNIQUE constraint failed: users.email")), ErrDuplicate)

	other := errors.New("boom")
	assert.Same(t, other, translate(other))
}
