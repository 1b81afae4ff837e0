package mqueue

import (
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cast"
	"gopkg.in/yaml.v3"

	"github.com/dmitrymomot/dbqueue/pkg/sqldb"
)

// DefaultReleaseTime is the lease applied when Reserve is called without one.
const DefaultReleaseTime = 60

// Config holds the queue service configuration. With config.Load and
// config.WithPrefix("MQUEUE_") it reads MQUEUE_DB_ADAPTER, MQUEUE_RELEASETIME,
// MQUEUE_SQL_RESERVE and so on.
type Config struct {
	DB          sqldb.Config
	ReleaseTime int `env:"RELEASETIME" envDefault:"60"` // ReleaseTime is the default lease in seconds.
	SQL         Statements
}

// DefaultConfig returns the configuration used for keys that are not set.
func DefaultConfig() Config {
	return Config{
		DB: sqldb.Config{
			Adapter:      string(sqldb.ANSI),
			MaxIdleConns: 2,
		},
		ReleaseTime: DefaultReleaseTime,
	}
}

// Release returns the default lease duration.
func (c Config) Release() time.Duration {
	return time.Duration(c.ReleaseTime) * time.Second
}

// Validate reports configuration errors that can be detected without a database.
func (c Config) Validate() error {
	if c.ReleaseTime <= 0 {
		return errors.Join(ErrConfig, ErrInvalidReleaseTime)
	}
	if _, err := c.DB.Dialect(); err != nil {
		return errors.Join(ErrConfig, err)
	}
	return nil
}

// ConfigFromMap reads the slash-keyed options, either flat
// ("db/adapter": "mysql") or nested ({"db": {"adapter": "mysql"}}):
//
//	db/adapter, db/driver, db/dsn, db/host, db/port, db/username, db/password,
//	db/socket, db/database, db/maxopenconns, db/maxidleconns, db/connmaxlifetime,
//	releasetime, sql/insert, sql/reserve, sql/get, sql/delete
//
// Missing keys keep the values of DefaultConfig. db/connmaxlifetime takes a
// duration string such as "5m" or a bare number of seconds.
func ConfigFromMap(m map[string]any) (Config, error) {
	cfg := DefaultConfig()
	r := mapReader{m: m}

	r.str("db/adapter", &cfg.DB.Adapter)
	r.str("db/driver", &cfg.DB.Driver)
	r.str("db/dsn", &cfg.DB.DSN)
	r.str("db/host", &cfg.DB.Host)
	r.int("db/port", &cfg.DB.Port)
	r.str("db/username", &cfg.DB.Username)
	r.str("db/password", &cfg.DB.Password)
	r.str("db/socket", &cfg.DB.Socket)
	r.str("db/database", &cfg.DB.Database)
	r.int("db/maxopenconns", &cfg.DB.MaxOpenConns)
	r.int("db/maxidleconns", &cfg.DB.MaxIdleConns)
	r.duration("db/connmaxlifetime", &cfg.DB.ConnMaxLifetime)
	r.int("releasetime", &cfg.ReleaseTime)
	r.str("sql/insert", &cfg.SQL.Insert)
	r.str("sql/reserve", &cfg.SQL.Reserve)
	r.str("sql/get", &cfg.SQL.Get)
	r.str("sql/delete", &cfg.SQL.Delete)

	if len(r.errs) > 0 {
		return Config{}, errors.Join(append([]error{ErrConfig}, r.errs...)...)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// ConfigFromYAML decodes a YAML document into the option map read by ConfigFromMap.
//
//	db:
//	  adapter: pgsql
//	  host: localhost
//	  database: queue
//	releasetime: 120
func ConfigFromYAML(r io.Reader) (Config, error) {
	m := map[string]any{}
	if err := yaml.NewDecoder(r).Decode(&m); err != nil && !errors.Is(err, io.EOF) {
		return Config{}, errors.Join(ErrConfig, fmt.Errorf("decode yaml: %w", err))
	}
	return ConfigFromMap(m)
}

type mapReader struct {
	m    map[string]any
	errs []error
}

// lookup resolves a slash path. A flat key wins over the nested form.
func (r *mapReader) lookup(path string) (any, bool) {
	if v, ok := r.m[path]; ok {
		return v, true
	}

	var cur any = r.m
	for _, part := range strings.Split(path, "/") {
		node, err := cast.ToStringMapE(cur)
		if err != nil {
			return nil, false
		}
		v, ok := node[part]
		if !ok {
			return nil, false
		}
		cur = v
	}
	return cur, true
}

func (r *mapReader) str(path string, dst *string) {
	v, ok := r.lookup(path)
	if !ok || v == nil {
		return
	}
	s, err := cast.ToStringE(v)
	if err != nil {
		r.errs = append(r.errs, fmt.Errorf("%s: %w", path, err))
		return
	}
	*dst = s
}

func (r *mapReader) int(path string, dst *int) {
	v, ok := r.lookup(path)
	if !ok || v == nil {
		return
	}
	n, err := cast.ToIntE(v)
	if err != nil {
		r.errs = append(r.errs, fmt.Errorf("%s: %w", path, err))
		return
	}
	*dst = n
}

func (r *mapReader) duration(path string, dst *time.Duration) {
	v, ok := r.lookup(path)
	if !ok || v == nil {
		return
	}
	d, err := toDuration(v)
	if err != nil {
		r.errs = append(r.errs, fmt.Errorf("%s: %w", path, err))
		return
	}
	*dst = d
}

// toDuration reads a bare number as seconds, like releasetime, and anything
// else as a Go duration string ("5m", "90s").
func toDuration(v any) (time.Duration, error) {
	switch n := v.(type) {
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64, float32, float64:
		f, err := cast.ToFloat64E(n)
		if err != nil {
			return 0, err
		}
		return time.Duration(f * float64(time.Second)), nil
	case string:
		if f, err := strconv.ParseFloat(strings.TrimSpace(n), 64); err == nil {
			return time.Duration(f * float64(time.Second)), nil
		}
	}
	return cast.ToDurationE(v)
}
