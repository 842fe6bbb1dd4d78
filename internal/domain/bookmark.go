package domain

import "time"

// Bookmark is a saved link owned by exactly one user.
type Bookmark struct {
	ID          string    `json:"id"`
	OwnerID     string    `json:"owner_id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Link        string    `json:"link"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// BookmarkPatch carries a partial update; nil fields are left untouched.
type BookmarkPatch struct {
	Title       *string
	Description *string
	Link        *string
}

// Empty reports whether the patch changes nothing.
func (p BookmarkPatch) Empty() bool {
	return p.Title == nil && p.Description == nil && p.Link == nil
}

// Apply copies the set fields of p onto b and reports whether anything
// changed.
func (b *Bookmark) Apply(p BookmarkPatch) bool {
	changed := false
	if p.Title != nil && *p.Title != b.Title {
		b.Title = *p.Title
		changed = true
	}
	if p.Description != nil && *p.Description != b.Description {
		b.Description = *p.Description
		changed = true
	}
	if p.Link != nil && *p.Link != b.Link {
		b.Link = *p.Link
		changed = true
	}
	return changed
}
