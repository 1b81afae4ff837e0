package mqueue

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/dmitrymomot/dbqueue/pkg/logger"
	"github.com/dmitrymomot/dbqueue/pkg/sqldb"
)

// DBTX is the subset of *sql.DB a Queue executes statements through.
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Queue is one named pool of messages. It holds no lock over message state:
// the database decides which concurrent Reserve wins a row.
type Queue struct {
	db       DBTX
	name     string
	stmts    Statements
	identity identityMode
	release  time.Duration
	now      func() time.Time
	logger   *slog.Logger
	metrics  *metrics
}

// newQueue resolves the statement set for d once; no method of Queue
// branches on the dialect afterwards.
func newQueue(db DBTX, name string, d sqldb.Dialect, overrides Statements, release time.Duration, o *options) (*Queue, error) {
	set, err := resolveStatements(d, overrides)
	if err != nil {
		return nil, err
	}

	return &Queue{
		db:       db,
		name:     name,
		stmts:    set.Statements,
		identity: set.identity,
		release:  release,
		now:      o.now,
		logger:   o.logger.With(logger.Queue(name)),
		metrics:  o.metrics,
	}, nil
}

// Name returns the queue name.
func (q *Queue) Name() string {
	return q.name
}

// ReleaseTime returns the lease used when Reserve is called without one.
func (q *Queue) ReleaseTime() time.Duration {
	return q.release
}

// Enqueue stores a new available message and returns its generated id.
func (q *Queue) Enqueue(ctx context.Context, payload string) (int64, error) {
	now := q.now().Unix()

	// lease_until 0 marks a message that was never reserved
	id, err := q.insert(ctx, q.name, int64(0), payload, now)
	if err != nil {
		q.metrics.incError(q.name, "enqueue")
		return 0, q.statementError("enqueue", err)
	}

	q.metrics.incEnqueued(q.name)
	q.logger.DebugContext(ctx, "message enqueued", logger.MessageID(id))

	return id, nil
}

func (q *Queue) insert(ctx context.Context, args ...any) (int64, error) {
	var id int64

	switch q.identity {
	case identityReturning:
		if err := q.db.QueryRowContext(ctx, q.stmts.Insert, args...).Scan(&id); err != nil {
			return 0, err
		}
	case identityOutParam:
		args = append(args, sql.Out{Dest: &id})
		if _, err := q.db.ExecContext(ctx, q.stmts.Insert, args...); err != nil {
			return 0, err
		}
	default:
		res, err := q.db.ExecContext(ctx, q.stmts.Insert, args...)
		if err != nil {
			return 0, err
		}
		if id, err = res.LastInsertId(); err != nil {
			return 0, err
		}
	}

	return id, nil
}

// Reserve claims one available message for consumerID for the given lease.
// A lease of zero or less uses the queue's release time, and leases shorter
// than a second are extended to one. The stored lease end is rounded up to
// the next whole second, so no other consumer can reserve the message before
// the full lease has passed.
//
// A nil message with a nil error means nothing was available.
//
// The claim is a single UPDATE limited to one row whose lease has lapsed; the
// database's row lock guarantees two reservations never take the same row.
// The UPDATE does not report which row it changed, so the claimed message is
// read back by (queue, consumerID, lease end). Two reservations by the same
// consumer within the same second and with the same lease cannot be told
// apart this way: Reserve then returns one of them and the other stays
// leased until it expires.
func (q *Queue) Reserve(ctx context.Context, consumerID string, lease time.Duration) (*Message, error) {
	if consumerID == "" {
		return nil, errors.Join(ErrConfig, ErrInvalidConsumer)
	}
	if lease <= 0 {
		lease = q.release
	}

	if lease < time.Second {
		lease = time.Second
	}
	current := q.now()
	now := current.Unix()

	// lease ends are stored in whole seconds, rounded up past the exact end
	end := current.Add(lease)
	until := end.Unix()
	if end.Nanosecond() > 0 {
		until++
	}

	res, err := q.db.ExecContext(ctx, q.stmts.Reserve, consumerID, until, q.name, now)
	if err != nil {
		q.metrics.incError(q.name, "reserve")
		return nil, q.statementError("reserve", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		q.metrics.incError(q.name, "reserve")
		return nil, q.statementError("reserve", err)
	}
	if n == 0 {
		q.metrics.incEmpty(q.name)
		return nil, nil
	}

	msg, err := q.Fetch(ctx, consumerID, time.Unix(until, 0))
	if errors.Is(err, ErrNotFound) {
		// acknowledged by someone else between the UPDATE and the read
		q.logger.WarnContext(ctx, "reserved message vanished before fetch",
			logger.Consumer(consumerID))
		q.metrics.incEmpty(q.name)
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	q.metrics.incReserved(q.name)
	q.logger.DebugContext(ctx, "message reserved",
		logger.MessageID(msg.ID),
		logger.Consumer(consumerID),
		logger.Lease(lease))

	return msg, nil
}

// Fetch returns the message consumerID reserved until leaseUntil.
// ErrNotFound is returned when there is none.
func (q *Queue) Fetch(ctx context.Context, consumerID string, leaseUntil time.Time) (*Message, error) {
	if consumerID == "" {
		return nil, errors.Join(ErrConfig, ErrInvalidConsumer)
	}

	var (
		msg        Message
		owner      sql.NullString
		lease, enq int64
	)
	err := q.db.QueryRowContext(ctx, q.stmts.Get, q.name, consumerID, leaseUntil.Unix()).
		Scan(&msg.ID, &msg.Queue, &owner, &lease, &msg.Payload, &enq)
	if sqldb.IsNoRows(err) {
		return nil, ErrNotFound
	}
	if err != nil {
		q.metrics.incError(q.name, "fetch")
		return nil, q.statementError("fetch", err)
	}

	msg.Owner = owner.String
	msg.LeaseUntil = fromUnix(lease)
	msg.EnqueuedAt = fromUnix(enq)

	return &msg, nil
}

// Acknowledge permanently removes the message. Acknowledging an id that does
// not exist, or no longer exists, succeeds.
func (q *Queue) Acknowledge(ctx context.Context, id int64) error {
	res, err := q.db.ExecContext(ctx, q.stmts.Delete, id, q.name)
	if err != nil {
		q.metrics.incError(q.name, "acknowledge")
		return q.statementError("acknowledge", err)
	}

	q.metrics.incAcked(q.name)
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		q.logger.DebugContext(ctx, "acknowledged message was already gone", logger.MessageID(id))
	}

	return nil
}

// statementError classifies a driver error as ErrConnection or ErrStatement.
func (q *Queue) statementError(op string, err error) error {
	kind := ErrStatement
	if sqldb.IsConnectionError(err) {
		kind = ErrConnection
	}
	return errors.Join(kind, fmt.Errorf("%s on queue %q: %w", op, q.name, err))
}
