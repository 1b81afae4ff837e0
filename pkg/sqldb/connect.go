package sqldb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"slices"

	// Registered database/sql drivers for the built-in dialects.
	_ "github.com/jackc/pgx/v5/stdlib"
	_ "github.com/microsoft/go-mssqldb"
	_ "modernc.org/sqlite"
)

// Open opens a connection pool for cfg and verifies it with a single ping.
// Open does not retry: a failed attempt is returned to the caller, who owns
// the retry policy.
func Open(ctx context.Context, cfg Config) (*sql.DB, error) {
	driverName, dsn, err := cfg.DataSource()
	if err != nil {
		return nil, err
	}
	if !slices.Contains(sql.Drivers(), driverName) {
		return nil, errors.Join(ErrDriverNotRegistered, fmt.Errorf("driver %q", driverName))
	}

	db, err := sql.Open(driverName, dsn)
	if err != nil {
		return nil, errors.Join(ErrFailedToOpenConnection, err)
	}
	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	// Ping catches authentication and permission issues sql.Open defers.
	if err := db.PingContext(ctx); err != nil {
		return nil, errors.Join(ErrFailedToOpenConnection, err, db.Close())
	}

	return db, nil
}
