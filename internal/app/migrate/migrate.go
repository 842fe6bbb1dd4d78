package migrate

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"

	"github.com/splax/bookmarkapi/internal/db/migrations"
)

const (
	runTimeout  = time.Minute
	pingTimeout = 5 * time.Second
)

// Pool is the part of pgxpool.Pool the runner needs.
type Pool interface {
	Ping(ctx context.Context) error
	Close()
}

// migrator is the subset of *goose.Provider used by Runner.
type migrator interface {
	Up(ctx context.Context) ([]*goose.MigrationResult, error)
	Down(ctx context.Context) (*goose.MigrationResult, error)
	DownTo(ctx context.Context, version int64) ([]*goose.MigrationResult, error)
	Status(ctx context.Context) ([]*goose.MigrationStatus, error)
}

// test seams
var (
	openDB = func(dsn string) (*sql.DB, error) {
		return sql.Open("pgx", dsn)
	}
	newMigrator = func(db *sql.DB) (migrator, error) {
		return goose.NewProvider(goose.DialectPostgres, db, migrations.FS)
	}
)

// Runner applies the schema migrations embedded in the binary.
type Runner struct {
	pool Pool
	dsn  string
	log  *slog.Logger
}

// New returns a Runner for the database at dsn. pool is only used for
// liveness checks and is closed by Close.
func New(pool Pool, dsn string, log *slog.Logger) (Runner, error) {
	switch {
	case pool == nil:
		return Runner{}, errors.New("migrate: pool is required")
	case dsn == "":
		return Runner{}, errors.New("migrate: database dsn is required")
	}
	if log == nil {
		log = slog.Default()
	}
	return Runner{pool: pool, dsn: dsn, log: log}, nil
}

// Ensure brings the schema up to the newest embedded version.
func (r Runner) Ensure(ctx context.Context) error {
	return r.run(ctx, func(ctx context.Context, m migrator) error {
		results, err := m.Up(ctx)
		r.logResults(results)
		if err != nil {
			return fmt.Errorf("apply migrations: %w", err)
		}
		r.log.Info("database schema up to date", "applied", len(results))
		return nil
	})
}

// Status reports every known migration and whether it has been applied.
func (r Runner) Status(ctx context.Context) ([]*goose.MigrationStatus, error) {
	var statuses []*goose.MigrationStatus
	err := r.run(ctx, func(ctx context.Context, m migrator) error {
		var err error
		statuses, err = m.Status(ctx)
		if err != nil {
			return fmt.Errorf("read migration status: %w", err)
		}
		return nil
	})
	return statuses, err
}

// Down reverts the latest migration, or every migration above target when
// target is positive.
func (r Runner) Down(ctx context.Context, target int64) error {
	return r.run(ctx, func(ctx context.Context, m migrator) error {
		if target > 0 {
			results, err := m.DownTo(ctx, target)
			r.logResults(results)
			if err != nil {
				return fmt.Errorf("roll back to version %d: %w", target, err)
			}
			return nil
		}
		result, err := m.Down(ctx)
		if result != nil {
			r.logResults([]*goose.MigrationResult{result})
		}
		if err != nil {
			return fmt.Errorf("roll back latest migration: %w", err)
		}
		return nil
	})
}

// Ping checks the pool with a short deadline.
func (r Runner) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	if err := r.pool.Ping(ctx); err != nil {
		return fmt.Errorf("ping database: %w", err)
	}
	return nil
}

// Close closes the pool.
func (r Runner) Close() {
	r.pool.Close()
}

func (r Runner) logResults(results []*goose.MigrationResult) {
	for _, res := range results {
		if res == nil || res.Source == nil {
			continue
		}
		attrs := []any{
			"version", res.Source.Version,
			"direction", res.Direction,
			"duration_ms", res.Duration.Milliseconds(),
		}
		if res.Error != nil {
			r.log.Error("migration failed", append(attrs, "error", res.Error)...)
			continue
		}
		r.log.Info("migration applied", attrs...)
	}
}

// run opens a dedicated database/sql handle for goose, which does not speak
// pgxpool, and closes it afterwards.
func (r Runner) run(ctx context.Context, fn func(context.Context, migrator) error) error {
	db, err := openDB(r.dsn)
	if err != nil {
		return fmt.Errorf("open sql connection: %w", err)
	}
	defer db.Close()

	pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
	err = db.PingContext(pingCtx)
	cancel()
	if err != nil {
		return fmt.Errorf("ping sql connection: %w", err)
	}

	m, err := newMigrator(db)
	if err != nil {
		return fmt.Errorf("load migrations: %w", err)
	}

	runCtx, cancel := context.WithTimeout(ctx, runTimeout)
	defer cancel()
	return fn(runCtx, m)
}
