package mqueue

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/dmitrymomot/dbqueue/pkg/logger"
	"github.com/dmitrymomot/dbqueue/pkg/sqldb"
)

// Service hands out one Queue per name, all sharing a single connection pool.
type Service struct {
	db      *sql.DB
	ownsDB  bool
	dialect sqldb.Dialect
	sql     Statements
	release time.Duration
	opts    *options

	mu     sync.RWMutex
	queues map[string]*Queue
}

// New opens the connection described by cfg.DB and returns a service over it.
// Missing parameters yield ErrConfig, an unreachable database ErrConnection.
// The connection is attempted once.
func New(ctx context.Context, cfg Config, opts ...Option) (*Service, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	db, err := sqldb.Open(ctx, cfg.DB)
	if err != nil {
		if sqldb.IsConfigError(err) {
			return nil, errors.Join(ErrConfig, err)
		}
		return nil, errors.Join(ErrConnection, err)
	}

	s, err := newService(db, cfg, opts)
	if err != nil {
		return nil, errors.Join(err, db.Close())
	}
	s.ownsDB = true

	return s, nil
}

// NewWithDB returns a service over an existing pool. cfg.DB.Adapter selects
// the dialect; the remaining connection fields are ignored. Close does not
// close db.
func NewWithDB(db *sql.DB, cfg Config, opts ...Option) (*Service, error) {
	if db == nil {
		return nil, errors.Join(ErrConfig, ErrDBNil)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return newService(db, cfg, opts)
}

func newService(db *sql.DB, cfg Config, opts []Option) (*Service, error) {
	o := &options{
		logger: slog.Default(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(o)
	}

	m, err := newMetrics(o.registerer)
	if err != nil {
		return nil, errors.Join(ErrConfig, err)
	}
	o.metrics = m

	d, err := cfg.DB.Dialect()
	if err != nil {
		return nil, errors.Join(ErrConfig, err)
	}
	// fail on an unknown dialect now rather than on the first Queue call
	if _, err := resolveStatements(d, cfg.SQL); err != nil {
		return nil, err
	}

	o.logger = o.logger.With(logger.Component("mqueue"), logger.Dialect(d.String()))

	return &Service{
		db:      db,
		dialect: d,
		sql:     cfg.SQL,
		release: cfg.Release(),
		opts:    o,
		queues:  make(map[string]*Queue),
	}, nil
}

// Queue returns the queue for name, creating it on first use. Concurrent
// first calls for the same name all receive the same instance.
func (s *Service) Queue(name string) (*Queue, error) {
	if name == "" {
		return nil, errors.Join(ErrConfig, ErrInvalidQueueName)
	}

	s.mu.RLock()
	q, ok := s.queues[name]
	s.mu.RUnlock()
	if ok {
		return q, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	// another caller may have created it between the two locks
	if q, ok := s.queues[name]; ok {
		return q, nil
	}

	q, err := newQueue(s.db, name, s.dialect, s.sql, s.release, s.opts)
	if err != nil {
		return nil, err
	}
	s.queues[name] = q

	s.opts.logger.Debug("queue created", logger.Queue(name))

	return q, nil
}

// Dialect returns the dialect the service's statements were resolved for.
func (s *Service) Dialect() sqldb.Dialect {
	return s.dialect
}

// DB returns the shared connection pool.
func (s *Service) DB() *sql.DB {
	return s.db
}

// Healthcheck pings the shared connection.
func (s *Service) Healthcheck(ctx context.Context) error {
	if err := sqldb.Healthcheck(s.db)(ctx); err != nil {
		return errors.Join(ErrConnection, err)
	}
	return nil
}

// Migrate creates the message table with the embedded migrations.
func (s *Service) Migrate(ctx context.Context) error {
	if err := sqldb.Migrate(ctx, s.db, s.dialect, s.opts.logger); err != nil {
		if errors.Is(err, sqldb.ErrMigrationsUnsupported) {
			return errors.Join(ErrConfig, err)
		}
		if sqldb.IsConnectionError(err) {
			return errors.Join(ErrConnection, err)
		}
		return errors.Join(ErrStatement, err)
	}
	return nil
}

// Close closes the connection pool if the service opened it.
func (s *Service) Close() error {
	if !s.ownsDB {
		return nil
	}
	if err := s.db.Close(); err != nil {
		return errors.Join(ErrConnection, err)
	}
	return nil
}
