package httpx

import (
	"errors"
	"net/http"
	"strings"

	"github.com/splax/bookmarkapi/internal/domain"
	"github.com/splax/bookmarkapi/internal/service/auth"
	jwtpkg "github.com/splax/bookmarkapi/pkg/jwt"
)

// authedHandler receives the user resolved from the bearer token.
type authedHandler func(w http.ResponseWriter, req *http.Request, user *domain.User)

// requireAuth ensures the request has a valid bearer token before invoking the handler.
func (r *Router) requireAuth(next authedHandler) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		token, err := bearerToken(req.Header.Get("Authorization"))
		if err != nil {
			r.logger.Warn("authorization header invalid", "error", err, "path", req.URL.Path)
			r.metrics.recordAuthFailure("header")
			writeUnauthorized(w, "authentication required")
			return
		}
		user, err := r.auth.Authorize(req.Context(), token)
		if err != nil {
			if !errors.Is(err, auth.ErrUnauthenticated) {
				r.writeServiceError(w, req, err)
				return
			}
			reason := authFailureReason(err)
			r.logger.Warn("token validation failed", "reason", reason, "path", req.URL.Path)
			r.metrics.recordAuthFailure(reason)
			writeUnauthorized(w, "authentication required")
			return
		}
		if rec, ok := w.(*responseRecorder); ok {
			rec.userID = user.ID
		}
		next(w, req, user)
	}
}

func authFailureReason(err error) string {
	switch {
	case errors.Is(err, jwtpkg.ErrExpiredToken):
		return "expired"
	case errors.Is(err, jwtpkg.ErrInvalidToken):
		return "invalid"
	default:
		return "unknown_subject"
	}
}

func bearerToken(header string) (string, error) {
	if strings.TrimSpace(header) == "" {
		return "", errors.New("missing authorization header")
	}
	parts := strings.Fields(header)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", errors.New("invalid authorization header format")
	}
	token := strings.TrimSpace(parts[1])
	if token == "" {
		return "", errors.New("empty bearer token")
	}
	return token, nil
}
