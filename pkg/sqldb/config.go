package sqldb

import "time"

// Config describes how to reach the database. Field names mirror the
// slash-keyed options (db/adapter, db/host, ...) accepted by the queue service.
type Config struct {
	Adapter  string `env:"DB_ADAPTER" envDefault:"ansi"` // Adapter is the dialect tag: ansi, mysql, pgsql, sqlsrv, oracle or sqlite.
	Driver   string `env:"DB_DRIVER"`                    // Driver overrides the database/sql driver name. Required for ansi.
	DSN      string `env:"DB_DSN"`                       // DSN overrides the generated data source name. Required for ansi.
	Host     string `env:"DB_HOST"`                      // Host is the database server host name.
	Port     int    `env:"DB_PORT"`                      // Port is the database server port, zero selects the dialect default.
	Username string `env:"DB_USERNAME"`                  // Username used for authentication.
	Password string `env:"DB_PASSWORD"`                  // Password used for authentication.
	Socket   string `env:"DB_SOCKET"`                    // Socket is a unix socket path (mysql) or socket directory (pgsql).
	Database string `env:"DB_DATABASE"`                  // Database is the schema name, Oracle service name or SQLite file path.

	MaxOpenConns    int           `env:"DB_MAXOPENCONNS" envDefault:"0"`    // MaxOpenConns limits open connections, zero means unlimited.
	MaxIdleConns    int           `env:"DB_MAXIDLECONNS" envDefault:"2"`    // MaxIdleConns limits idle connections kept in the pool.
	ConnMaxLifetime time.Duration `env:"DB_CONNMAXLIFETIME" envDefault:"0"` // ConnMaxLifetime limits connection reuse, zero means forever.
}

// Dialect returns the parsed dialect tag of the configuration.
func (c Config) Dialect() (Dialect, error) {
	return ParseDialect(c.Adapter)
}

// DataSource resolves the database/sql driver name and data source name for
// the configured dialect. Missing parameters are reported as configuration
// errors; DataSource never contacts the database.
func (c Config) DataSource() (driver string, dsn string, err error) {
	d, err := c.Dialect()
	if err != nil {
		return "", "", err
	}
	spec := dialects[d]

	driver = spec.driver
	if c.Driver != "" {
		driver = c.Driver
	}
	if driver == "" {
		return "", "", ErrDriverRequired
	}

	if c.DSN != "" {
		return driver, c.DSN, nil
	}
	if spec.dsn == nil {
		return "", "", ErrDSNRequired
	}

	dsn, err = spec.dsn(c)
	if err != nil {
		return "", "", err
	}
	return driver, dsn, nil
}
