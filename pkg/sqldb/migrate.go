package sqldb

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"sync"

	"github.com/pressly/goose/v3"
)

// MigrationsTable stores the applied goose migration versions.
const MigrationsTable = "mqueue_schema_migrations"

//go:embed migrations
var migrations embed.FS

// goose keeps its dialect, base FS and logger in package globals.
var migrateMu sync.Mutex

// Migrate creates or upgrades the message table for the given dialect using
// the migrations embedded in this package. Dialects without a goose
// counterpart (ansi, oracle) return ErrMigrationsUnsupported; their schema is
// expected to be provisioned out of band.
func Migrate(ctx context.Context, db *sql.DB, d Dialect, log logger) error {
	spec, ok := dialects[d]
	if !ok {
		return errors.Join(ErrFailedToApplyMigrations, ErrUnknownDialect)
	}
	if spec.goose == "" {
		return errors.Join(ErrMigrationsUnsupported, fmt.Errorf("dialect %q", d))
	}

	migrateMu.Lock()
	defer migrateMu.Unlock()

	goose.SetBaseFS(migrations)
	goose.SetLogger(newSlogAdapter(log))
	goose.SetTableName(MigrationsTable)

	if err := goose.SetDialect(spec.goose); err != nil {
		return errors.Join(ErrFailedToApplyMigrations, err)
	}

	if err := goose.UpContext(ctx, db, "migrations/"+string(d)); err != nil {
		return errors.Join(ErrFailedToApplyMigrations, err)
	}

	return nil
}

// logger is the part of *slog.Logger migrations report through.
type logger interface {
	InfoContext(ctx context.Context, msg string, args ...any)
	ErrorContext(ctx context.Context, msg string, args ...any)
}

// migrateSlogAdapter bridges goose's Printf-style logging to structured logging.
type migrateSlogAdapter struct {
	log logger
}

func newSlogAdapter(log logger) goose.Logger {
	return &migrateSlogAdapter{
		log: log,
	}
}

func (a *migrateSlogAdapter) Fatalf(format string, v ...any) {
	a.log.ErrorContext(context.Background(), fmt.Sprintf(format, v...))
}

func (a *migrateSlogAdapter) Printf(format string, v ...any) {
	a.log.InfoContext(context.Background(), fmt.Sprintf(format, v...))
}
