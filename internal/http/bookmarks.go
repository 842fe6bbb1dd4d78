package httpx

import (
	"net/http"

	"github.com/splax/bookmarkapi/internal/domain"
	"github.com/splax/bookmarkapi/internal/service/bookmark"
)

type createBookmarkRequest struct {
	Title       string `json:"title" validate:"required,max=255"`
	Description string `json:"description" validate:"max=2000"`
	Link        string `json:"link" validate:"required,http_url,max=2048"`
}

type editBookmarkRequest struct {
	Title       *string `json:"title" validate:"omitempty,max=255"`
	Description *string `json:"description" validate:"omitempty,max=2000"`
	Link        *string `json:"link" validate:"omitempty,http_url,max=2048"`
}

func (r *Router) handleCreateBookmark(w http.ResponseWriter, req *http.Request, user *domain.User) {
	var payload createBookmarkRequest
	if err := decodeJSON(w, req, &payload); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := r.validateRequest(payload); err != nil {
		r.writeServiceError(w, req, err)
		return
	}
	b, err := r.bookmarks.Create(req.Context(), user.ID, bookmark.CreateInput{
		Title:       payload.Title,
		Description: payload.Description,
		Link:        payload.Link,
	})
	if err != nil {
		r.writeServiceError(w, req, err)
		return
	}
	writeJSON(w, http.StatusCreated, b)
}

func (r *Router) handleListBookmarks(w http.ResponseWriter, req *http.Request, user *domain.User) {
	list, err := r.bookmarks.List(req.Context(), user.ID)
	if err != nil {
		r.writeServiceError(w, req, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (r *Router) handleGetBookmark(w http.ResponseWriter, _ *http.Request, _ *domain.User, b *domain.Bookmark) {
	writeJSON(w, http.StatusOK, b)
}

func (r *Router) handleEditBookmark(w http.ResponseWriter, req *http.Request, _ *domain.User, b *domain.Bookmark) {
	var payload editBookmarkRequest
	if err := decodeJSON(w, req, &payload); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := r.validateRequest(payload); err != nil {
		r.writeServiceError(w, req, err)
		return
	}
	updated, err := r.bookmarks.Update(req.Context(), b, domain.BookmarkPatch{
		Title:       payload.Title,
		Description: payload.Description,
		Link:        payload.Link,
	})
	if err != nil {
		r.writeServiceError(w, req, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func (r *Router) handleDeleteBookmark(w http.ResponseWriter, req *http.Request, _ *domain.User, b *domain.Bookmark) {
	if err := r.bookmarks.Delete(req.Context(), b); err != nil {
		r.writeServiceError(w, req, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
