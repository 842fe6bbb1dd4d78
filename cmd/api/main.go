package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/splax/bookmarkapi/internal/app/migrate"
	httpx "github.com/splax/bookmarkapi/internal/http"
	"github.com/splax/bookmarkapi/internal/repository"
	"github.com/splax/bookmarkapi/internal/repository/cache"
	"github.com/splax/bookmarkapi/internal/repository/memory"
	"github.com/splax/bookmarkapi/internal/repository/postgres"
	"github.com/splax/bookmarkapi/internal/service/auth"
	"github.com/splax/bookmarkapi/internal/service/bookmark"
	"github.com/splax/bookmarkapi/pkg/config"
	"github.com/splax/bookmarkapi/pkg/crypto"
	jwtpkg "github.com/splax/bookmarkapi/pkg/jwt"
	"github.com/splax/bookmarkapi/pkg/logger"
)

// stores groups the repositories selected by STORE_DRIVER.
type stores struct {
	users     repository.UserRepository
	bookmarks repository.BookmarkRepository
	health    func(context.Context) error
	close     func()
}

func main() {
	cfg, err := config.LoadAPIConfig()
	if err != nil {
		logger.New("api", slog.LevelInfo).Error("invalid configuration", "error", err)
		os.Exit(1)
	}
	log := logger.New("api", cfg.SlogLevel())

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	st, err := openStores(ctx, cfg, log)
	if err != nil {
		log.Error("failed to open store", "driver", cfg.StoreDriver, "error", err)
		os.Exit(1)
	}
	defer st.close()

	if cfg.CacheEnabled() {
		rdb, err := cache.Dial(ctx, cfg.CacheRedisAddr, cfg.CacheRedisPassword, cfg.CacheRedisDB)
		if err != nil {
			log.Warn("bookmark cache unavailable", "addr", cfg.CacheRedisAddr, "error", err)
		} else {
			defer rdb.Close()
			st.bookmarks = cache.NewBookmarks(st.bookmarks, rdb, cfg.CacheTTL, log)
			log.Info("bookmark cache enabled", "addr", cfg.CacheRedisAddr, "ttl", cfg.CacheTTL)
		}
	}

	hasher, err := crypto.NewHasher(cfg.BcryptCost)
	if err != nil {
		log.Error("failed to configure password hasher", "error", err)
		os.Exit(1)
	}
	issuer, err := jwtpkg.NewIssuer(cfg.JWTSecret, cfg.AccessTokenTTL, jwtpkg.WithIssuer(cfg.JWTIssuer))
	if err != nil {
		log.Error("failed to configure token issuer", "error", err)
		os.Exit(1)
	}
	if !cfg.IsProduction() && cfg.JWTSecret == config.DefaultJWTSecret {
		log.Warn("using default JWT secret; set JWT_SECRET before deploying")
	}
	log.Debug("token issuer configured", "issuer", issuer)

	authSvc, err := auth.New(st.users, hasher, issuer, log)
	if err != nil {
		log.Error("failed to configure auth service", "error", err)
		os.Exit(1)
	}
	bookmarkSvc := bookmark.New(st.bookmarks, log)

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	router := httpx.NewRouter(log, authSvc, bookmarkSvc, st.health, registry)

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errorCh := make(chan error, 1)
	go func() {
		log.Info("api server starting", "addr", cfg.Addr, "env", cfg.Environment, "store", cfg.StoreDriver)
		errorCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Error("graceful shutdown failed", "error", err)
		}
		log.Info("api server stopped")
	case err := <-errorCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server error", "error", err)
			os.Exit(1)
		}
	}
}

func openStores(ctx context.Context, cfg config.APIConfig, log *slog.Logger) (stores, error) {
	switch cfg.StoreDriver {
	case config.StoreDriverMemory:
		log.Warn("using in-memory store; data is lost on restart")
		store := memory.New()
		return stores{users: store, bookmarks: store, health: store.Ping, close: func() {}}, nil
	case config.StoreDriverPostgres:
		pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
		if err != nil {
			return stores{}, fmt.Errorf("connect to database: %w", err)
		}
		runner, err := migrate.New(pool, cfg.DatabaseURL, log)
		if err != nil {
			pool.Close()
			return stores{}, fmt.Errorf("configure migrations: %w", err)
		}
		if err := runner.Ping(ctx); err != nil {
			pool.Close()
			return stores{}, fmt.Errorf("database ping: %w", err)
		}
		if err := runner.Ensure(ctx); err != nil {
			pool.Close()
			return stores{}, fmt.Errorf("apply migrations: %w", err)
		}
		repo := postgres.New(pool)
		return stores{users: repo, bookmarks: repo, health: pool.Ping, close: pool.Close}, nil
	default:
		return stores{}, fmt.Errorf("unsupported store driver %q", cfg.StoreDriver)
	}
}
