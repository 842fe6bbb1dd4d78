package repository

import (
	"context"

	"github.com/splax/bookmarkapi/internal/domain"
)

// UserRepository persists users. Emails are stored normalised and are
// unique; CreateUser returns ErrConflict on a duplicate.
type UserRepository interface {
	CreateUser(ctx context.Context, user *domain.User) error
	GetUserByEmail(ctx context.Context, email string) (*domain.User, error)
	GetUserByID(ctx context.Context, id string) (*domain.User, error)
}

// BookmarkRepository persists bookmarks. Update and delete are scoped to
// the owner and return ErrNotFound when no owned row matched.
type BookmarkRepository interface {
	CreateBookmark(ctx context.Context, bookmark *domain.Bookmark) error
	GetBookmarkByID(ctx context.Context, id string) (*domain.Bookmark, error)
	ListBookmarksByOwner(ctx context.Context, ownerID string) ([]domain.Bookmark, error)
	UpdateBookmark(ctx context.Context, bookmark *domain.Bookmark) error
	DeleteBookmark(ctx context.Context, id, ownerID string) error
}
