package httpx

import (
	"errors"
	"net/http"
	"strings"

	"github.com/splax/bookmarkapi/internal/service/auth"
	"github.com/splax/bookmarkapi/internal/service/bookmark"
)

// writeServiceError maps service errors to HTTP responses. Unknown errors
// are logged and reported as 500 without detail.
func (r *Router) writeServiceError(w http.ResponseWriter, req *http.Request, err error) {
	var verr *ValidationError
	switch {
	case errors.As(err, &verr):
		writeJSON(w, http.StatusBadRequest, map[string]any{
			"error":  "validation failed",
			"fields": verr.Fields,
		})
	case errors.Is(err, auth.ErrInvalidInput), errors.Is(err, bookmark.ErrInvalidInput):
		writeError(w, http.StatusBadRequest, publicMessage(err))
	case errors.Is(err, auth.ErrDuplicateEmail):
		writeError(w, http.StatusConflict, "email already registered")
	case errors.Is(err, auth.ErrInvalidCredentials):
		writeError(w, http.StatusUnauthorized, "invalid credentials")
	case errors.Is(err, auth.ErrUnauthenticated):
		writeUnauthorized(w, "authentication required")
	case errors.Is(err, bookmark.ErrForbidden):
		writeError(w, http.StatusForbidden, "access to resource denied")
	case errors.Is(err, bookmark.ErrNotFound):
		writeError(w, http.StatusNotFound, "bookmark not found")
	default:
		r.logger.Error("request failed", "error", err, "method", req.Method, "path", req.URL.Path)
		writeError(w, http.StatusInternalServerError, "internal server error")
	}
}

// publicMessage strips the package prefix of a sentinel-wrapped error, so
// "bookmark: invalid input: title is required" becomes "invalid input: title is required".
func publicMessage(err error) string {
	msg := err.Error()
	for _, prefix := range []string{"auth: ", "bookmark: "} {
		if rest, ok := strings.CutPrefix(msg, prefix); ok {
			return rest
		}
	}
	return msg
}

func writeUnauthorized(w http.ResponseWriter, msg string) {
	w.Header().Set("WWW-Authenticate", `Bearer realm="bookmarkapi"`)
	writeError(w, http.StatusUnauthorized, msg)
}
