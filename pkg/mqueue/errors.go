package mqueue

import "errors"

// Error kinds. Errors returned by Service and Queue match exactly one of
// these with errors.Is. Driver errors stay attached for logging but callers
// should branch on the kind only.
var (
	// ErrConfig is returned for missing or invalid configuration.
	ErrConfig = errors.New("mqueue: invalid configuration")

	// ErrConnection is returned when the database cannot be reached or the
	// connection was lost while a statement was executing.
	ErrConnection = errors.New("mqueue: database connection failed")

	// ErrStatement is returned when a statement is malformed or rejected by the database.
	ErrStatement = errors.New("mqueue: statement failed")

	// ErrNotFound is returned by Fetch when no message matches.
	ErrNotFound = errors.New("mqueue: message not found")
)

var (
	// Refinements of ErrConfig, always joined with it.

	// ErrInvalidQueueName is returned for an empty queue name.
	ErrInvalidQueueName = errors.New("queue name cannot be empty")

	// ErrInvalidConsumer is returned when reserving or fetching without a consumer id.
	ErrInvalidConsumer = errors.New("consumer id cannot be empty")

	// ErrInvalidReleaseTime is returned for a non-positive default lease.
	ErrInvalidReleaseTime = errors.New("release time must be positive")

	// ErrDBNil is returned when a nil connection pool is provided.
	ErrDBNil = errors.New("database cannot be nil")

	// Worker misuse, returned on their own.

	// ErrNilQueue is returned when a worker is created without a queue.
	ErrNilQueue = errors.New("queue cannot be nil")

	// ErrNilHandler is returned when a worker is created without a handler.
	ErrNilHandler = errors.New("handler cannot be nil")

	// ErrWorkerStarted is returned by Start on a running worker.
	ErrWorkerStarted = errors.New("worker already started")

	// ErrWorkerNotStarted is returned by Stop on an idle worker.
	ErrWorkerNotStarted = errors.New("worker not started")
)
