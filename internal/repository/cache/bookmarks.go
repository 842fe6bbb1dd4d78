// Package cache decorates repositories with a redis read-through cache.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strconv"
	"time"

	redis "github.com/redis/go-redis/v9"

	"github.com/splax/bookmarkapi/internal/domain"
	"github.com/splax/bookmarkapi/internal/repository"
)

const defaultPrefix = "bookmarkapi:bookmarks:owner:"

// Bookmarks caches per-owner bookmark lists in redis and invalidates them on
// every write. Single-bookmark reads always hit the backing store so that
// ownership checks see current data. Redis failures are logged and fall back
// to the store.
//
// Each owner has a generation counter that is part of the list key. Writes
// bump the counter, so a list filled from a store read that raced a write
// lands under a retired generation and is never served.
type Bookmarks struct {
	next    repository.BookmarkRepository
	client  redis.UniversalClient
	logger  *slog.Logger
	ttl     time.Duration
	prefix  string
	timeout time.Duration
}

var _ repository.BookmarkRepository = (*Bookmarks)(nil)

// Dial connects to redis and verifies the connection.
func Dial(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{Addr: addr, Password: password, DB: db})
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, err
	}
	return client, nil
}

// NewBookmarks wraps next with a cache stored in client.
func NewBookmarks(next repository.BookmarkRepository, client redis.UniversalClient, ttl time.Duration, logger *slog.Logger) *Bookmarks {
	if logger == nil {
		logger = slog.Default()
	}
	return &Bookmarks{
		next:    next,
		client:  client,
		logger:  logger,
		ttl:     ttl,
		prefix:  defaultPrefix,
		timeout: 250 * time.Millisecond,
	}
}

func (c *Bookmarks) genKey(ownerID string) string {
	return c.prefix + "gen:" + ownerID
}

func (c *Bookmarks) listKey(ownerID string, gen int64) string {
	return c.prefix + ownerID + ":" + strconv.FormatInt(gen, 10)
}

// generation returns the owner's current list generation. A missing counter
// is generation zero.
func (c *Bookmarks) generation(ctx context.Context, ownerID string) (int64, error) {
	rctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	gen, err := c.client.Get(rctx, c.genKey(ownerID)).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	return gen, err
}

// CreateBookmark stores b and drops the owner's cached list.
func (c *Bookmarks) CreateBookmark(ctx context.Context, b *domain.Bookmark) error {
	if err := c.next.CreateBookmark(ctx, b); err != nil {
		return err
	}
	c.invalidate(ctx, b.OwnerID)
	return nil
}

// GetBookmarkByID is not cached.
func (c *Bookmarks) GetBookmarkByID(ctx context.Context, id string) (*domain.Bookmark, error) {
	return c.next.GetBookmarkByID(ctx, id)
}

// ListBookmarksByOwner serves the owner's list from redis when present.
func (c *Bookmarks) ListBookmarksByOwner(ctx context.Context, ownerID string) ([]domain.Bookmark, error) {
	gen, err := c.generation(ctx, ownerID)
	if err != nil {
		c.logRedisError("gen", err)
		return c.next.ListBookmarksByOwner(ctx, ownerID)
	}
	key := c.listKey(ownerID, gen)

	rctx, cancel := context.WithTimeout(ctx, c.timeout)
	payload, err := c.client.Get(rctx, key).Bytes()
	cancel()
	switch {
	case err == nil:
		var cached []domain.Bookmark
		if jsonErr := json.Unmarshal(payload, &cached); jsonErr == nil {
			return cached, nil
		}
		c.logRedisError("decode", errors.New("malformed cached list"))
	case !errors.Is(err, redis.Nil):
		c.logRedisError("get", err)
	}

	list, err := c.next.ListBookmarksByOwner(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	if encoded, err := json.Marshal(list); err == nil {
		rctx, cancel := context.WithTimeout(ctx, c.timeout)
		if err := c.client.Set(rctx, key, encoded, c.ttl).Err(); err != nil {
			c.logRedisError("set", err)
		}
		cancel()
	}
	return list, nil
}

// UpdateBookmark writes through and drops the owner's cached list.
func (c *Bookmarks) UpdateBookmark(ctx context.Context, b *domain.Bookmark) error {
	if err := c.next.UpdateBookmark(ctx, b); err != nil {
		return err
	}
	c.invalidate(ctx, b.OwnerID)
	return nil
}

// DeleteBookmark deletes through and drops the owner's cached list.
func (c *Bookmarks) DeleteBookmark(ctx context.Context, id, ownerID string) error {
	if err := c.next.DeleteBookmark(ctx, id, ownerID); err != nil {
		return err
	}
	c.invalidate(ctx, ownerID)
	return nil
}

// invalidate retires the owner's current list by bumping the generation.
// The retired entry expires on its own TTL.
func (c *Bookmarks) invalidate(ctx context.Context, ownerID string) {
	rctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	if err := c.client.Incr(rctx, c.genKey(ownerID)).Err(); err != nil {
		c.logRedisError("incr", err)
	}
}

func (c *Bookmarks) logRedisError(op string, err error) {
	c.logger.Error("redis bookmark cache error", "op", op, "error", err)
}
