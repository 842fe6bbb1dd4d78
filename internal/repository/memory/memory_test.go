package memory

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/splax/bookmarkapi/internal/domain"
	"github.com/splax/bookmarkapi/internal/repository"
)

func seedUser(t *testing.T, s *Store, id, email string) {
	t.Helper()
	require.NoError(t, s.CreateUser(context.Background(), &domain.User{ID: id, Email: email, PasswordHash: "h"}))
}

func TestUsersAreUniqueByNormalisedEmail(t *testing.T) {
	s := New()
	seedUser(t, s, "u1", "a@x.io")

	err := s.CreateUser(context.Background(), &domain.User{ID: "u2", Email: " A@X.IO"})
	assert.ErrorIs(t, err, repository.ErrConflict)

	u, err := s.GetUserByEmail(context.Background(), "A@x.io")
	require.NoError(t, err)
	assert.Equal(t, "u1", u.ID)

	_, err = s.GetUserByID(context.Background(), "missing")
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestConcurrentSignupSingleWinner(t *testing.T) {
	s := New()
	var wins atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			err := s.CreateUser(context.Background(), &domain.User{ID: fmt.Sprintf("u%d", i), Email: "race@x.io"})
			if err == nil {
				wins.Add(1)
			}
		}(i)
	}
	wg.Wait()
	assert.Equal(t, int32(1), wins.Load())
}

func TestReturnedValuesAreCopies(t *testing.T) {
	s := New()
	seedUser(t, s, "u1", "a@x.io")

	u, _ := s.GetUserByID(context.Background(), "u1")
	u.Email = "mutated@x.io"

	again, _ := s.GetUserByID(context.Background(), "u1")
	assert.Equal(t, "a@x.io", again.Email)
}

func TestBookmarkLifecycleIsOwnerScoped(t *testing.T) {
	ctx := context.Background()
	s := New()
	seedUser(t, s, "u1", "a@x.io")
	seedUser(t, s, "u2", "b@x.io")

	now := time.Now()
	require.NoError(t, s.CreateBookmark(ctx, &domain.Bookmark{ID: "b1", OwnerID: "u1", Title: "one", CreatedAt: now}))
	require.NoError(t, s.CreateBookmark(ctx, &domain.Bookmark{ID: "b2", OwnerID: "u1", Title: "two", CreatedAt: now}))
	require.NoError(t, s.CreateBookmark(ctx, &domain.Bookmark{ID: "b3", OwnerID: "u2", Title: "three", CreatedAt: now.Add(time.Second)}))

	list, err := s.ListBookmarksByOwner(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "b2", list[0].ID, "same timestamp falls back to insertion order, newest first")

	err = s.UpdateBookmark(ctx, &domain.Bookmark{ID: "b3", OwnerID: "u1", Title: "stolen"})
	assert.ErrorIs(t, err, repository.ErrNotFound)
	assert.ErrorIs(t, s.DeleteBookmark(ctx, "b3", "u1"), repository.ErrNotFound)

	require.NoError(t, s.UpdateBookmark(ctx, &domain.Bookmark{ID: "b1", OwnerID: "u1", Title: "uno"}))
	b, err := s.GetBookmarkByID(ctx, "b1")
	require.NoError(t, err)
	assert.Equal(t, "uno", b.Title)
	assert.Equal(t, "u1", b.OwnerID)

	require.NoError(t, s.DeleteBookmark(ctx, "b1", "u1"))
	_, err = s.GetBookmarkByID(ctx, "b1")
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestCreateBookmarkRequiresOwner(t *testing.T) {
	err := New().CreateBookmark(context.Background(), &domain.Bookmark{ID: "b1", OwnerID: "ghost"})
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestListEmptyIsNonNil(t *testing.T) {
	list, err := New().ListBookmarksByOwner(context.Background(), "nobody")
	require.NoError(t, err)
	assert.NotNil(t, list)
}
