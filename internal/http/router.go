package httpx

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/splax/bookmarkapi/internal/domain"
	"github.com/splax/bookmarkapi/internal/service/auth"
	"github.com/splax/bookmarkapi/internal/service/bookmark"
)

const healthCheckTimeout = 2 * time.Second

// Router wires HTTP endpoints to services.
type Router struct {
	mux       *http.ServeMux
	logger    *slog.Logger
	auth      auth.Service
	bookmarks bookmark.Service
	validate  *validator.Validate
	metrics   *metrics
	dbHealth  func(context.Context) error
}

// NewRouter assembles routes with dependencies. Metrics are registered on
// registry, which is also served at /metrics; nil uses a private registry.
func NewRouter(logger *slog.Logger, authSvc auth.Service, bookmarkSvc bookmark.Service, dbHealth func(context.Context) error, registry *prometheus.Registry) *Router {
	if logger == nil {
		logger = slog.Default()
	}
	r := &Router{
		mux:       http.NewServeMux(),
		logger:    logger,
		auth:      authSvc,
		bookmarks: bookmarkSvc,
		validate:  newValidator(),
		metrics:   newMetrics(registry),
		dbHealth:  dbHealth,
	}
	r.register()
	return r
}

// ServeHTTP delegates to underlying mux.
func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	r.mux.ServeHTTP(w, req)
}

func (r *Router) register() {
	r.mux.HandleFunc("GET /healthz", r.audit(r.handleHealthz))
	r.mux.Handle("GET /metrics", promhttp.HandlerFor(r.metrics.registry, promhttp.HandlerOpts{Registry: r.metrics.registry}))

	r.mux.HandleFunc("POST /auth/signup", r.audit(r.handleSignup))
	r.mux.HandleFunc("POST /auth/login", r.audit(r.handleLogin))
	r.mux.HandleFunc("GET /auth/profile", r.audit(r.requireAuth(r.handleProfile)))

	r.mux.HandleFunc("POST /bookmarks", r.audit(r.requireAuth(r.handleCreateBookmark)))
	r.mux.HandleFunc("GET /bookmarks", r.audit(r.requireAuth(r.handleListBookmarks)))
	r.mux.HandleFunc("GET /bookmarks/{id}", r.audit(r.requireAuth(r.requireOwnership(r.handleGetBookmark))))
	r.mux.HandleFunc("PATCH /bookmarks/{id}", r.audit(r.requireAuth(r.requireOwnership(r.handleEditBookmark))))
	r.mux.HandleFunc("DELETE /bookmarks/{id}", r.audit(r.requireAuth(r.requireOwnership(r.handleDeleteBookmark))))
}

type credentialsRequest struct {
	Email    string `json:"email" validate:"required,email,max=254"`
	Password string `json:"password" validate:"required,max=72"`
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
}

func (r *Router) decodeCredentials(w http.ResponseWriter, req *http.Request) (credentialsRequest, bool) {
	var payload credentialsRequest
	if err := decodeJSON(w, req, &payload); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return payload, false
	}
	if err := r.validateRequest(payload); err != nil {
		r.writeServiceError(w, req, err)
		return payload, false
	}
	return payload, true
}

func (r *Router) handleSignup(w http.ResponseWriter, req *http.Request) {
	payload, ok := r.decodeCredentials(w, req)
	if !ok {
		return
	}
	user, err := r.auth.Signup(req.Context(), payload.Email, payload.Password)
	if err != nil {
		r.writeServiceError(w, req, err)
		return
	}
	writeJSON(w, http.StatusCreated, user.Public())
}

func (r *Router) handleLogin(w http.ResponseWriter, req *http.Request) {
	payload, ok := r.decodeCredentials(w, req)
	if !ok {
		return
	}
	token, err := r.auth.Login(req.Context(), payload.Email, payload.Password)
	if err != nil {
		r.writeServiceError(w, req, err)
		return
	}
	writeJSON(w, http.StatusOK, tokenResponse{AccessToken: token})
}

func (r *Router) handleProfile(w http.ResponseWriter, _ *http.Request, user *domain.User) {
	writeJSON(w, http.StatusOK, r.auth.Profile(user))
}

type componentHealth struct {
	Status string `json:"status"`
}

type healthResponse struct {
	Status     string                     `json:"status"`
	Components map[string]componentHealth `json:"components"`
	Timestamp  string                     `json:"timestamp"`
}

func (r *Router) handleHealthz(w http.ResponseWriter, req *http.Request) {
	resp := healthResponse{
		Status:     "ok",
		Components: map[string]componentHealth{},
		Timestamp:  time.Now().UTC().Format(time.RFC3339Nano),
	}
	if r.dbHealth != nil {
		ctx, cancel := context.WithTimeout(req.Context(), healthCheckTimeout)
		err := r.dbHealth(ctx)
		cancel()
		resp.Components["store"] = componentHealth{Status: "up"}
		if err != nil {
			r.logger.Warn("store health check failed", "error", err)
			resp.Status = "degraded"
			resp.Components["store"] = componentHealth{Status: "down"}
		}
	}
	code := http.StatusOK
	if resp.Status != "ok" {
		code = http.StatusServiceUnavailable
	}
	writeJSON(w, code, resp)
}
