package bookmark

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/splax/bookmarkapi/internal/domain"
	"github.com/splax/bookmarkapi/internal/repository"
)

// Field limits enforced on create and update, counted in characters.
const (
	// MaxTitleLength bounds a bookmark title.
	MaxTitleLength = 255
	// MaxDescriptionLength bounds a bookmark description.
	MaxDescriptionLength = 2000
	// MaxLinkLength bounds a bookmark link.
	MaxLinkLength = 2048
)

var (
	// ErrNotFound is returned for unknown or malformed bookmark ids.
	ErrNotFound = errors.New("bookmark: not found")
	// ErrForbidden is returned when the bookmark belongs to another user.
	ErrForbidden = errors.New("bookmark: access denied")
	// ErrInvalidInput wraps field-level validation failures.
	ErrInvalidInput = errors.New("bookmark: invalid input")
)

// CreateInput holds the client-supplied fields of a new bookmark.
type CreateInput struct {
	Title       string
	Description string
	Link        string
}

// Service implements bookmark CRUD gated on ownership.
type Service struct {
	repo   repository.BookmarkRepository
	logger *slog.Logger
	now    func() time.Time
}

// New constructs a Service.
func New(repo repository.BookmarkRepository, logger *slog.Logger) Service {
	if logger == nil {
		logger = slog.Default()
	}
	return Service{repo: repo, logger: logger, now: func() time.Time { return time.Now().UTC() }}
}

// Create stores a bookmark owned by ownerID.
func (s Service) Create(ctx context.Context, ownerID string, in CreateInput) (*domain.Bookmark, error) {
	b := &domain.Bookmark{
		ID:          uuid.NewString(),
		OwnerID:     ownerID,
		Title:       strings.TrimSpace(in.Title),
		Description: strings.TrimSpace(in.Description),
		Link:        strings.TrimSpace(in.Link),
	}
	if err := validate(b); err != nil {
		return nil, err
	}
	now := s.now()
	b.CreatedAt, b.UpdatedAt = now, now
	if err := s.repo.CreateBookmark(ctx, b); err != nil {
		return nil, fmt.Errorf("create bookmark: %w", err)
	}
	s.logger.Info("bookmark created", "bookmark_id", b.ID, "user_id", ownerID)
	return b, nil
}

// List returns the caller's bookmarks, newest first.
func (s Service) List(ctx context.Context, ownerID string) ([]domain.Bookmark, error) {
	list, err := s.repo.ListBookmarksByOwner(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("list bookmarks: %w", err)
	}
	return list, nil
}

// Authorize loads bookmarkID and checks that userID owns it. Existence is
// checked before ownership.
func (s Service) Authorize(ctx context.Context, userID, bookmarkID string) (*domain.Bookmark, error) {
	if _, err := uuid.Parse(bookmarkID); err != nil {
		return nil, ErrNotFound
	}
	b, err := s.repo.GetBookmarkByID(ctx, bookmarkID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("load bookmark: %w", err)
	}
	if b.OwnerID != userID {
		return nil, ErrForbidden
	}
	return b, nil
}

// Update applies patch to an owned bookmark and returns the result.
func (s Service) Update(ctx context.Context, b *domain.Bookmark, patch domain.BookmarkPatch) (*domain.Bookmark, error) {
	if patch.Empty() {
		return b, nil
	}
	updated := *b
	changed := updated.Apply(trimPatch(patch))
	if err := validate(&updated); err != nil {
		return nil, err
	}
	if !changed {
		return b, nil
	}
	updated.UpdatedAt = s.now()
	if err := s.repo.UpdateBookmark(ctx, &updated); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("update bookmark: %w", err)
	}
	s.logger.Info("bookmark updated", "bookmark_id", updated.ID, "user_id", updated.OwnerID)
	return &updated, nil
}

// Delete removes an owned bookmark.
func (s Service) Delete(ctx context.Context, b *domain.Bookmark) error {
	if err := s.repo.DeleteBookmark(ctx, b.ID, b.OwnerID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrNotFound
		}
		return fmt.Errorf("delete bookmark: %w", err)
	}
	s.logger.Info("bookmark deleted", "bookmark_id", b.ID, "user_id", b.OwnerID)
	return nil
}

func trimPatch(p domain.BookmarkPatch) domain.BookmarkPatch {
	trim := func(v *string) *string {
		if v == nil {
			return nil
		}
		t := strings.TrimSpace(*v)
		return &t
	}
	return domain.BookmarkPatch{Title: trim(p.Title), Description: trim(p.Description), Link: trim(p.Link)}
}

func validate(b *domain.Bookmark) error {
	switch {
	case b.Title == "":
		return fmt.Errorf("%w: title is required", ErrInvalidInput)
	case utf8.RuneCountInString(b.Title) > MaxTitleLength:
		return fmt.Errorf("%w: title must be at most %d characters", ErrInvalidInput, MaxTitleLength)
	case utf8.RuneCountInString(b.Description) > MaxDescriptionLength:
		return fmt.Errorf("%w: description must be at most %d characters", ErrInvalidInput, MaxDescriptionLength)
	case len(b.Link) > MaxLinkLength:
		return fmt.Errorf("%w: link must be at most %d bytes", ErrInvalidInput, MaxLinkLength)
	}
	return validateLink(b.Link)
}

func validateLink(raw string) error {
	if raw == "" {
		return fmt.Errorf("%w: link is required", ErrInvalidInput)
	}
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		return fmt.Errorf("%w: link must be an absolute http or https URL", ErrInvalidInput)
	}
	return nil
}
