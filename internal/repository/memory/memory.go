// Package memory provides process-local implementations of the repository
// interfaces, used by STORE_DRIVER=memory and by tests.
package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/splax/bookmarkapi/internal/domain"
	"github.com/splax/bookmarkapi/internal/repository"
)

type storedBookmark struct {
	bookmark domain.Bookmark
	seq      uint64
}

// Store keeps users and bookmarks in maps guarded by a single mutex.
type Store struct {
	mu        sync.RWMutex
	users     map[string]domain.User
	emails    map[string]string
	bookmarks map[string]storedBookmark
	seq       uint64
}

// New returns an empty Store.
func New() *Store {
	return &Store{
		users:     make(map[string]domain.User),
		emails:    make(map[string]string),
		bookmarks: make(map[string]storedBookmark),
	}
}

var (
	_ repository.UserRepository     = (*Store)(nil)
	_ repository.BookmarkRepository = (*Store)(nil)
)

// Ping always succeeds.
func (s *Store) Ping(context.Context) error { return nil }

// CreateUser inserts a user, returning repository.ErrConflict when the
// normalised email is taken.
func (s *Store) CreateUser(_ context.Context, user *domain.User) error {
	key := domain.NormalizeEmail(user.Email)

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, taken := s.emails[key]; taken {
		return repository.ErrConflict
	}
	if _, taken := s.users[user.ID]; taken {
		return repository.ErrConflict
	}
	s.users[user.ID] = *user
	s.emails[key] = user.ID
	return nil
}

// GetUserByEmail fetches a user by email.
func (s *Store) GetUserByEmail(_ context.Context, email string) (*domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.emails[domain.NormalizeEmail(email)]
	if !ok {
		return nil, repository.ErrNotFound
	}
	u := s.users[id]
	return &u, nil
}

// GetUserByID retrieves a user by identifier.
func (s *Store) GetUserByID(_ context.Context, id string) (*domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &u, nil
}

// CreateBookmark inserts a bookmark for an existing owner.
func (s *Store) CreateBookmark(_ context.Context, b *domain.Bookmark) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[b.OwnerID]; !ok {
		return repository.ErrNotFound
	}
	if _, taken := s.bookmarks[b.ID]; taken {
		return repository.ErrConflict
	}
	s.seq++
	s.bookmarks[b.ID] = storedBookmark{bookmark: *b, seq: s.seq}
	return nil
}

// GetBookmarkByID fetches a bookmark regardless of owner.
func (s *Store) GetBookmarkByID(_ context.Context, id string) (*domain.Bookmark, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sb, ok := s.bookmarks[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	b := sb.bookmark
	return &b, nil
}

// ListBookmarksByOwner returns the owner's bookmarks, newest first.
func (s *Store) ListBookmarksByOwner(_ context.Context, ownerID string) ([]domain.Bookmark, error) {
	s.mu.RLock()
	owned := make([]storedBookmark, 0)
	for _, sb := range s.bookmarks {
		if sb.bookmark.OwnerID == ownerID {
			owned = append(owned, sb)
		}
	}
	s.mu.RUnlock()

	sort.Slice(owned, func(i, j int) bool {
		a, b := owned[i], owned[j]
		if !a.bookmark.CreatedAt.Equal(b.bookmark.CreatedAt) {
			return a.bookmark.CreatedAt.After(b.bookmark.CreatedAt)
		}
		return a.seq > b.seq
	})
	out := make([]domain.Bookmark, 0, len(owned))
	for _, sb := range owned {
		out = append(out, sb.bookmark)
	}
	return out, nil
}

// UpdateBookmark overwrites the mutable fields of an owned bookmark.
func (s *Store) UpdateBookmark(_ context.Context, b *domain.Bookmark) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	sb, ok := s.bookmarks[b.ID]
	if !ok || sb.bookmark.OwnerID != b.OwnerID {
		return repository.ErrNotFound
	}
	sb.bookmark.Title = b.Title
	sb.bookmark.Description = b.Description
	sb.bookmark.Link = b.Link
	sb.bookmark.UpdatedAt = b.UpdatedAt
	s.bookmarks[b.ID] = sb
	return nil
}

// DeleteBookmark removes an owned bookmark.
func (s *Store) DeleteBookmark(_ context.Context, id, ownerID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	sb, ok := s.bookmarks[id]
	if !ok || sb.bookmark.OwnerID != ownerID {
		return repository.ErrNotFound
	}
	delete(s.bookmarks, id)
	return nil
}
