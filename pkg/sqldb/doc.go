// Package sqldb builds database/sql connection pools for the SQL dialects the
// message queue supports and exposes the small set of helpers the queue needs
// around them: health checks, embedded schema migrations and error
// classification.
//
// Every dialect-dependent choice (driver name, DSN format, goose dialect) is
// read once from a fixed table keyed by the dialect tag. Nothing in this
// package inspects a live database to discover what it is talking to.
//
// # Dialects
//
//	ansi    caller supplies db/driver and db/dsn
//	mysql   github.com/go-sql-driver/mysql
//	pgsql   github.com/jackc/pgx/v5/stdlib
//	sqlsrv  github.com/microsoft/go-mssqldb
//	oracle  github.com/sijms/go-ora/v2
//	sqlite  modernc.org/sqlite
//
// # Usage
//
//	cfg := sqldb.Config{Adapter: "pgsql", Host: "db", Username: "app", Password: "secret", Database: "queue"}
//
//	db, err := sqldb.Open(ctx, cfg)
//	if err != nil {
//	    return err
//	}
//	defer db.Close()
//
//	if err := sqldb.Migrate(ctx, db, sqldb.PostgreSQL, slog.Default()); err != nil {
//	    return err
//	}
//
// # Error Handling
//
// Configuration problems are reported through sentinel errors such as
// ErrDatabaseRequired or ErrUnknownDialect (see IsConfigError). Failures to
// reach the database wrap ErrFailedToOpenConnection. IsConnectionError
// separates connectivity failures from statement failures for errors returned
// by queries on an open pool.
package sqldb
