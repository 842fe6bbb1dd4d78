package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/splax/bookmarkapi/internal/domain"
	"github.com/splax/bookmarkapi/internal/repository"
)

// DBTX is satisfied by *pgxpool.Pool, *pgx.Conn and pgx.Tx.
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Repository implements persistence interfaces on PostgreSQL.
type Repository struct {
	db DBTX
}

// New constructs a Repository.
func New(db DBTX) *Repository {
	return &Repository{db: db}
}

// ensure Repository satisfies interfaces.
var (
	_ repository.UserRepository     = (*Repository)(nil)
	_ repository.BookmarkRepository = (*Repository)(nil)
)

const (
	pgUniqueViolation     = "23505"
	pgInvalidTextRepr     = "22P02"
	pgForeignKeyViolation = "23503"
)

const (
	userInsert = `INSERT INTO users (id, email, password_hash, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5)`
	userColumns      = `id, email, password_hash, created_at, updated_at`
	userSelectByMail = `SELECT ` + userColumns + ` FROM users WHERE LOWER(email) = LOWER($1)`
	userSelectByID   = `SELECT ` + userColumns + ` FROM users WHERE id = $1`

	bookmarkColumns = `id, owner_id, title, description, link, created_at, updated_at`
	bookmarkInsert  = `INSERT INTO bookmarks (` + bookmarkColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`
	bookmarkSelectByID    = `SELECT ` + bookmarkColumns + ` FROM bookmarks WHERE id = $1`
	bookmarkSelectByOwner = `SELECT ` + bookmarkColumns + ` FROM bookmarks
		WHERE owner_id = $1 ORDER BY created_at DESC, id DESC`
	bookmarkUpdate = `UPDATE bookmarks
		SET title = $3, description = $4, link = $5, updated_at = $6
		WHERE id = $1 AND owner_id = $2`
	bookmarkDelete = `DELETE FROM bookmarks WHERE id = $1 AND owner_id = $2`
)

// CreateUser inserts a user.
func (r *Repository) CreateUser(ctx context.Context, user *domain.User) error {
	_, err := r.db.Exec(ctx, userInsert, user.ID, user.Email, user.PasswordHash, user.CreatedAt, user.UpdatedAt)
	if err != nil {
		if pgCode(err) == pgUniqueViolation {
			return repository.ErrConflict
		}
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

// GetUserByEmail fetches a user by email.
func (r *Repository) GetUserByEmail(ctx context.Context, email string) (*domain.User, error) {
	return scanUser(r.db.QueryRow(ctx, userSelectByMail, email))
}

// GetUserByID retrieves a user by identifier.
func (r *Repository) GetUserByID(ctx context.Context, id string) (*domain.User, error) {
	return scanUser(r.db.QueryRow(ctx, userSelectByID, id))
}

func scanUser(row pgx.Row) (*domain.User, error) {
	var u domain.User
	if err := row.Scan(&u.ID, &u.Email, &u.PasswordHash, &u.CreatedAt, &u.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) || pgCode(err) == pgInvalidTextRepr {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return &u, nil
}

// CreateBookmark inserts a bookmark.
func (r *Repository) CreateBookmark(ctx context.Context, b *domain.Bookmark) error {
	_, err := r.db.Exec(ctx, bookmarkInsert, b.ID, b.OwnerID, b.Title, b.Description, b.Link, b.CreatedAt, b.UpdatedAt)
	if err != nil {
		switch pgCode(err) {
		case pgUniqueViolation:
			return repository.ErrConflict
		case pgForeignKeyViolation:
			return repository.ErrNotFound
		}
		return fmt.Errorf("insert bookmark: %w", err)
	}
	return nil
}

// GetBookmarkByID fetches a bookmark regardless of owner.
func (r *Repository) GetBookmarkByID(ctx context.Context, id string) (*domain.Bookmark, error) {
	var b domain.Bookmark
	err := r.db.QueryRow(ctx, bookmarkSelectByID, id).
		Scan(&b.ID, &b.OwnerID, &b.Title, &b.Description, &b.Link, &b.CreatedAt, &b.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) || pgCode(err) == pgInvalidTextRepr {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return &b, nil
}

// ListBookmarksByOwner returns the owner's bookmarks, newest first.
func (r *Repository) ListBookmarksByOwner(ctx context.Context, ownerID string) ([]domain.Bookmark, error) {
	rows, err := r.db.Query(ctx, bookmarkSelectByOwner, ownerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	bookmarks := make([]domain.Bookmark, 0)
	for rows.Next() {
		var b domain.Bookmark
		if err := rows.Scan(&b.ID, &b.OwnerID, &b.Title, &b.Description, &b.Link, &b.CreatedAt, &b.UpdatedAt); err != nil {
			return nil, err
		}
		bookmarks = append(bookmarks, b)
	}
	return bookmarks, rows.Err()
}

// UpdateBookmark persists title, description and link of an owned bookmark.
func (r *Repository) UpdateBookmark(ctx context.Context, b *domain.Bookmark) error {
	tag, err := r.db.Exec(ctx, bookmarkUpdate, b.ID, b.OwnerID, b.Title, b.Description, b.Link, b.UpdatedAt)
	if err != nil {
		if pgCode(err) == pgInvalidTextRepr {
			return repository.ErrNotFound
		}
		return fmt.Errorf("update bookmark: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrNotFound
	}
	return nil
}

// DeleteBookmark removes an owned bookmark.
func (r *Repository) DeleteBookmark(ctx context.Context, id, ownerID string) error {
	tag, err := r.db.Exec(ctx, bookmarkDelete, id, ownerID)
	if err != nil {
		if pgCode(err) == pgInvalidTextRepr {
			return repository.ErrNotFound
		}
		return fmt.Errorf("delete bookmark: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func pgCode(err error) string {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code
	}
	return ""
}
