package httpx

import (
	"errors"
	"net/http"

	"github.com/splax/bookmarkapi/internal/domain"
	"github.com/splax/bookmarkapi/internal/service/bookmark"
)

// ownedHandler receives the caller and a bookmark the caller owns.
type ownedHandler func(w http.ResponseWriter, req *http.Request, user *domain.User, b *domain.Bookmark)

// requireOwnership loads the {id} bookmark and rejects callers who do not
// own it. Unknown ids are 404, foreign ones 403.
func (r *Router) requireOwnership(next ownedHandler) authedHandler {
	return func(w http.ResponseWriter, req *http.Request, user *domain.User) {
		id := req.PathValue("id")
		b, err := r.bookmarks.Authorize(req.Context(), user.ID, id)
		if err != nil {
			if errors.Is(err, bookmark.ErrForbidden) {
				r.logger.Warn("bookmark access denied", "user_id", user.ID, "bookmark_id", id)
			}
			r.writeServiceError(w, req, err)
			return
		}
		next(w, req, user, b)
	}
}
