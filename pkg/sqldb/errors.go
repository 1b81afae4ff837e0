package sqldb

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"io"
	"net"
	"strings"

	"github.com/go-sql-driver/mysql"
	"github.com/jackc/pgx/v5/pgconn"
)

var (
	ErrUnknownDialect          = errors.New("unknown database adapter")
	ErrDriverRequired          = errors.New("database driver not configured, set db/driver")
	ErrDSNRequired             = errors.New("data source name not configured, set db/dsn")
	ErrDatabaseRequired        = errors.New("database name not configured, set db/database")
	ErrHostRequired            = errors.New("database host not configured, set db/host")
	ErrDriverNotRegistered     = errors.New("database driver is not registered")
	ErrFailedToOpenConnection  = errors.New("failed to open db connection")
	ErrHealthcheckFailed       = errors.New("healthcheck failed, connection is not available")
	ErrFailedToApplyMigrations = errors.New("failed to apply migrations")
	ErrMigrationsUnsupported   = errors.New("migrations are not available for this dialect")
)

// IsConfigError reports whether err was caused by missing or invalid
// connection parameters rather than by the database itself.
func IsConfigError(err error) bool {
	return errors.Is(err, ErrUnknownDialect) ||
		errors.Is(err, ErrDriverRequired) ||
		errors.Is(err, ErrDSNRequired) ||
		errors.Is(err, ErrDatabaseRequired) ||
		errors.Is(err, ErrHostRequired) ||
		errors.Is(err, ErrDriverNotRegistered)
}

// IsNoRows detects sql.ErrNoRows for consistent "not found" handling across queries.
func IsNoRows(err error) bool {
	if err == nil {
		return false
	}
	return errors.Is(err, sql.ErrNoRows)
}

// IsConnectionError reports whether err means the statement never completed
// on a healthy connection: broken or closed connections, network failures,
// cancelled contexts and PostgreSQL connection exceptions (SQLSTATE class 08).
// Everything else is a statement error.
func IsConnectionError(err error) bool {
	if err == nil {
		return false
	}

	switch {
	case errors.Is(err, driver.ErrBadConn),
		errors.Is(err, sql.ErrConnDone),
		errors.Is(err, mysql.ErrInvalidConn),
		errors.Is(err, io.ErrUnexpectedEOF),
		errors.Is(err, context.Canceled),
		errors.Is(err, context.DeadlineExceeded),
		errors.Is(err, ErrFailedToOpenConnection):
		return true
	}

	// database/sql does not export the error returned after DB.Close
	if strings.Contains(err.Error(), "sql: database is closed") {
		return true
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && len(pgErr.Code) == 5 && pgErr.Code[:2] == "08" {
		return true
	}

	return false
}
