package sqldb

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"strconv"
	"strings"

	"github.com/go-sql-driver/mysql"
	go_ora "github.com/sijms/go-ora/v2"
)

// Dialect identifies the SQL syntax variant of the backing database.
type Dialect string

const (
	ANSI       Dialect = "ansi"
	MySQL      Dialect = "mysql"
	PostgreSQL Dialect = "pgsql"
	SQLServer  Dialect = "sqlsrv"
	Oracle     Dialect = "oracle"
	SQLite     Dialect = "sqlite"
)

func (d Dialect) String() string {
	return string(d)
}

type dialectSpec struct {
	driver string
	goose  string
	dsn    func(Config) (string, error)
}

// dialects is the fixed table every dialect-dependent decision is read from.
var dialects = map[Dialect]dialectSpec{
	ANSI:       {},
	MySQL:      {driver: "mysql", goose: "mysql", dsn: mysqlDSN},
	PostgreSQL: {driver: "pgx", goose: "postgres", dsn: postgresDSN},
	SQLServer:  {driver: "sqlserver", goose: "mssql", dsn: sqlserverDSN},
	Oracle:     {driver: "oracle", dsn: oracleDSN},
	SQLite:     {driver: "sqlite", goose: "sqlite3", dsn: sqliteDSN},
}

// ParseDialect maps a configuration tag to a Dialect. An empty tag selects ANSI.
func ParseDialect(tag string) (Dialect, error) {
	tag = strings.ToLower(strings.TrimSpace(tag))
	if tag == "" {
		return ANSI, nil
	}
	d := Dialect(tag)
	if _, ok := dialects[d]; !ok {
		return "", errors.Join(ErrUnknownDialect, fmt.Errorf("adapter %q", tag))
	}
	return d, nil
}

// Dialects lists the supported dialect tags.
func Dialects() []Dialect {
	return []Dialect{ANSI, MySQL, PostgreSQL, SQLServer, Oracle, SQLite}
}

func mysqlDSN(c Config) (string, error) {
	if c.Database == "" {
		return "", ErrDatabaseRequired
	}

	mc := mysql.NewConfig()
	mc.User = c.Username
	mc.Passwd = c.Password
	mc.DBName = c.Database
	if c.Socket != "" {
		mc.Net = "unix"
		mc.Addr = c.Socket
	} else {
		mc.Net = "tcp"
		mc.Addr = hostPort(c.Host, c.Port, 3306)
	}
	return mc.FormatDSN(), nil
}

func postgresDSN(c Config) (string, error) {
	if c.Database == "" {
		return "", ErrDatabaseRequired
	}

	u := url.URL{Scheme: "postgres", Path: "/" + c.Database}
	if c.Username != "" {
		u.User = url.UserPassword(c.Username, c.Password)
	}
	if c.Socket != "" {
		// pgx reads the socket directory from the host parameter
		u.RawQuery = url.Values{"host": {c.Socket}}.Encode()
	} else {
		u.Host = hostPort(c.Host, c.Port, 5432)
	}
	return u.String(), nil
}

func sqlserverDSN(c Config) (string, error) {
	if c.Database == "" {
		return "", ErrDatabaseRequired
	}

	u := url.URL{
		Scheme:   "sqlserver",
		Host:     hostPort(c.Host, c.Port, 1433),
		RawQuery: url.Values{"database": {c.Database}}.Encode(),
	}
	if c.Username != "" {
		u.User = url.UserPassword(c.Username, c.Password)
	}
	return u.String(), nil
}

func oracleDSN(c Config) (string, error) {
	if c.Host == "" {
		return "", ErrHostRequired
	}
	if c.Database == "" {
		return "", ErrDatabaseRequired
	}

	port := c.Port
	if port == 0 {
		port = 1521
	}
	return go_ora.BuildUrl(c.Host, port, c.Database, c.Username, c.Password, nil), nil
}

func sqliteDSN(c Config) (string, error) {
	if c.Database == "" {
		return "", ErrDatabaseRequired
	}
	return c.Database, nil
}

func hostPort(host string, port, defaultPort int) string {
	if host == "" {
		host = "localhost"
	}
	if port == 0 {
		port = defaultPort
	}
	return net.JoinHostPort(host, strconv.Itoa(port))
}
