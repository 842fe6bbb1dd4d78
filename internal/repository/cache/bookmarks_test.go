package cache

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	redis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/splax/bookmarkapi/internal/domain"
	"github.com/splax/bookmarkapi/internal/repository/memory"
)

type countingRepo struct {
	*memory.Store
	lists int
	// afterList runs once the store has been read and before the result is
	// handed back to the cache.
	afterList func()
}

func (c *countingRepo) ListBookmarksByOwner(ctx context.Context, ownerID string) ([]domain.Bookmark, error) {
	c.lists++
	list, err := c.Store.ListBookmarksByOwner(ctx, ownerID)
	if c.afterList != nil {
		c.afterList()
	}
	return list, err
}

func newTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis.Run failed: %v", err)
	}
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() {
		_ = client.Close()
		mr.Close()
	})
	return mr, client
}

func newCached(t *testing.T) (*Bookmarks, *countingRepo, *miniredis.Miniredis) {
	t.Helper()
	mr, client := newTestRedis(t)
	store := memory.New()
	require.NoError(t, store.CreateUser(context.Background(), &domain.User{ID: "u1", Email: "a@x.io"}))
	repo := &countingRepo{Store: store}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewBookmarks(repo, client, time.Minute, logger), repo, mr
}

func currentListKey(t *testing.T, c *Bookmarks, ownerID string) string {
	t.Helper()
	gen, err := c.generation(context.Background(), ownerID)
	require.NoError(t, err)
	return c.listKey(ownerID, gen)
}

func TestListIsServedFromCache(t *testing.T) {
	ctx := context.Background()
	c, repo, mr := newCached(t)
	require.NoError(t, c.CreateBookmark(ctx, &domain.Bookmark{ID: "b1", OwnerID: "u1", Title: "one", CreatedAt: time.Now()}))

	first, err := c.ListBookmarksByOwner(ctx, "u1")
	require.NoError(t, err)
	second, err := c.ListBookmarksByOwner(ctx, "u1")
	require.NoError(t, err)

	assert.Equal(t, 1, repo.lists)
	require.Len(t, second, 1)
	assert.Equal(t, first[0].ID, second[0].ID)
	key := currentListKey(t, c, "u1")
	assert.True(t, mr.Exists(key))
	assert.Equal(t, time.Minute, mr.TTL(key))
}

func TestWritesInvalidateOwnerList(t *testing.T) {
	ctx := context.Background()
	c, repo, mr := newCached(t)
	require.NoError(t, c.CreateBookmark(ctx, &domain.Bookmark{ID: "b1", OwnerID: "u1", Title: "one", CreatedAt: time.Now()}))

	_, err := c.ListBookmarksByOwner(ctx, "u1")
	require.NoError(t, err)
	before := currentListKey(t, c, "u1")
	require.True(t, mr.Exists(before))

	require.NoError(t, c.UpdateBookmark(ctx, &domain.Bookmark{ID: "b1", OwnerID: "u1", Title: "uno"}))
	after := currentListKey(t, c, "u1")
	assert.NotEqual(t, before, after)
	assert.False(t, mr.Exists(after))

	list, err := c.ListBookmarksByOwner(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, "uno", list[0].Title)
	assert.Equal(t, 2, repo.lists)

	require.NoError(t, c.DeleteBookmark(ctx, "b1", "u1"))
	list, err = c.ListBookmarksByOwner(ctx, "u1")
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestFailedWriteKeepsCache(t *testing.T) {
	ctx := context.Background()
	c, _, mr := newCached(t)

	_, err := c.ListBookmarksByOwner(ctx, "u1")
	require.NoError(t, err)
	key := currentListKey(t, c, "u1")

	err = c.DeleteBookmark(ctx, "missing", "u1")
	assert.Error(t, err)
	assert.Equal(t, key, currentListKey(t, c, "u1"))
	assert.True(t, mr.Exists(key))
}

func TestWriteDuringFillIsNotMaskedByCache(t *testing.T) {
	ctx := context.Background()
	c, repo, _ := newCached(t)

	repo.afterList = func() {
		repo.afterList = nil
		require.NoError(t, c.CreateBookmark(ctx, &domain.Bookmark{ID: "b1", OwnerID: "u1", Title: "one", CreatedAt: time.Now()}))
	}

	stale, err := c.ListBookmarksByOwner(ctx, "u1")
	require.NoError(t, err)
	assert.Empty(t, stale)

	list, err := c.ListBookmarksByOwner(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "b1", list[0].ID)
	assert.Equal(t, 2, repo.lists)
}

func TestRedisOutageFallsBackToStore(t *testing.T) {
	ctx := context.Background()
	c, repo, mr := newCached(t)
	require.NoError(t, c.CreateBookmark(ctx, &domain.Bookmark{ID: "b1", OwnerID: "u1", Title: "one", CreatedAt: time.Now()}))

	mr.Close()

	list, err := c.ListBookmarksByOwner(ctx, "u1")
	require.NoError(t, err)
	assert.Len(t, list, 1)
	assert.Equal(t, 1, repo.lists)
}

func TestMalformedCacheEntryIsIgnored(t *testing.T) {
	ctx := context.Background()
	c, repo, mr := newCached(t)
	require.NoError(t, mr.Set(currentListKey(t, c, "u1"), "{not json"))

	list, err := c.ListBookmarksByOwner(ctx, "u1")
	require.NoError(t, err)
	assert.Empty(t, list)
	assert.Equal(t, 1, repo.lists)
}

func TestDial(t *testing.T) {
	mr, _ := newTestRedis(t)
	addr := mr.Addr()

	client, err := Dial(context.Background(), addr, "", 0)
	require.NoError(t, err)
	_ = client.Close()

	mr.Close()
	_, err = Dial(context.Background(), addr, "", 0)
	assert.Error(t, err)
}
