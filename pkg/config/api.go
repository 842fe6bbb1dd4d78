package config

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"golang.org/x/crypto/bcrypt"

	"github.com/splax/bookmarkapi/pkg/logger"
)

// DefaultJWTSecret is only acceptable outside production.
const DefaultJWTSecret = "supersecuresecret"

const (
	StoreDriverPostgres = "postgres"
	StoreDriverMemory   = "memory"
)

// APIConfig holds runtime configuration for the API service.
type APIConfig struct {
	Environment        string        `env:"APP_ENV" envDefault:"development"`
	Addr               string        `env:"API_ADDR" envDefault:":4000"`
	StoreDriver        string        `env:"STORE_DRIVER" envDefault:"postgres"`
	DatabaseURL        string        `env:"DATABASE_URL" envDefault:"postgres://bookmarks:bookmarks@db:5432/bookmarks?sslmode=disable"`
	JWTSecret          string        `env:"JWT_SECRET" envDefault:"supersecuresecret"`
	JWTIssuer          string        `env:"JWT_ISSUER" envDefault:"bookmarkapi"`
	AccessTokenTTL     time.Duration `env:"ACCESS_TOKEN_TTL" envDefault:"15m"`
	BcryptCost         int           `env:"BCRYPT_COST" envDefault:"10"`
	LogLevel           string        `env:"LOG_LEVEL" envDefault:"info"`
	CacheRedisAddr     string        `env:"CACHE_REDIS_ADDR"`
	CacheRedisPassword string        `env:"CACHE_REDIS_PASSWORD"`
	CacheRedisDB       int           `env:"CACHE_REDIS_DB" envDefault:"0"`
	CacheTTL           time.Duration `env:"CACHE_TTL" envDefault:"5m"`
	ShutdownTimeout    time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"10s"`
}

// LoadAPIConfig loads .env files, then constructs an APIConfig from
// environment variables and validates it.
func LoadAPIConfig() (APIConfig, error) {
	if err := LoadEnvFiles(); err != nil {
		return APIConfig{}, fmt.Errorf("config: load env file: %w", err)
	}
	return ParseAPIConfig(nil)
}

// ParseAPIConfig builds an APIConfig from environ, or from the process
// environment when environ is nil.
func ParseAPIConfig(environ map[string]string) (APIConfig, error) {
	cfg, err := env.ParseAsWithOptions[APIConfig](env.Options{Environment: environ})
	if err != nil {
		return APIConfig{}, fmt.Errorf("config: parse environment: %w", err)
	}
	cfg.StoreDriver = strings.ToLower(strings.TrimSpace(cfg.StoreDriver))
	if err := cfg.Validate(); err != nil {
		return APIConfig{}, err
	}
	return cfg, nil
}

// IsProduction reports whether APP_ENV selects production.
func (c APIConfig) IsProduction() bool {
	name := strings.ToLower(c.Environment)
	return name == "production" || name == "prod"
}

// SlogLevel returns the parsed LOG_LEVEL. Validate guarantees it parses.
func (c APIConfig) SlogLevel() slog.Level {
	level, _ := logger.ParseLevel(c.LogLevel)
	return level
}

// CacheEnabled reports whether a redis address was configured.
func (c APIConfig) CacheEnabled() bool {
	return strings.TrimSpace(c.CacheRedisAddr) != ""
}

// Validate checks cross-field constraints.
func (c APIConfig) Validate() error {
	var errs []error
	if strings.TrimSpace(c.JWTSecret) == "" {
		errs = append(errs, errors.New("JWT_SECRET is required"))
	}
	if c.IsProduction() && c.JWTSecret == DefaultJWTSecret {
		errs = append(errs, errors.New("JWT_SECRET must be changed from the default in production"))
	}
	if c.AccessTokenTTL <= 0 {
		errs = append(errs, fmt.Errorf("ACCESS_TOKEN_TTL must be positive, got %s", c.AccessTokenTTL))
	}
	if c.BcryptCost < bcrypt.MinCost || c.BcryptCost > bcrypt.MaxCost {
		errs = append(errs, fmt.Errorf("BCRYPT_COST must be within [%d, %d], got %d", bcrypt.MinCost, bcrypt.MaxCost, c.BcryptCost))
	}
	switch c.StoreDriver {
	case StoreDriverPostgres:
		if strings.TrimSpace(c.DatabaseURL) == "" {
			errs = append(errs, errors.New("DATABASE_URL is required for the postgres store"))
		}
	case StoreDriverMemory:
	default:
		errs = append(errs, fmt.Errorf("STORE_DRIVER must be %q or %q, got %q", StoreDriverPostgres, StoreDriverMemory, c.StoreDriver))
	}
	if _, err := logger.ParseLevel(c.LogLevel); err != nil {
		errs = append(errs, fmt.Errorf("LOG_LEVEL: %w", err))
	}
	if c.CacheEnabled() && c.CacheTTL <= 0 {
		errs = append(errs, fmt.Errorf("CACHE_TTL must be positive, got %s", c.CacheTTL))
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	return nil
}
