package mqueue

import (
	"log/slog"
	"time"
)

// WorkerOption is a functional option for configuring a worker
type WorkerOption func(*workerOptions)

type workerOptions struct {
	consumerID    string
	pullInterval  time.Duration
	lease         time.Duration
	maxConcurrent int
	logger        *slog.Logger
}

// WithConsumerID sets the owner recorded on reserved messages.
// Defaults to a random UUID per worker.
func WithConsumerID(id string) WorkerOption {
	return func(o *workerOptions) {
		if id != "" {
			o.consumerID = id
		}
	}
}

// WithPullInterval sets how often the worker tries to reserve a message
func WithPullInterval(d time.Duration) WorkerOption {
	return func(o *workerOptions) {
		if d > 0 {
			o.pullInterval = d
		}
	}
}

// WithLease sets the reservation lease. Defaults to the queue's release time.
func WithLease(d time.Duration) WorkerOption {
	return func(o *workerOptions) {
		if d > 0 {
			o.lease = d
		}
	}
}

// WithMaxConcurrent sets the maximum number of messages handled at once
func WithMaxConcurrent(n int) WorkerOption {
	return func(o *workerOptions) {
		if n > 0 {
			o.maxConcurrent = n
		}
	}
}

// WithWorkerLogger sets the logger for the worker
func WithWorkerLogger(logger *slog.Logger) WorkerOption {
	return func(o *workerOptions) {
		if logger != nil {
			o.logger = logger
		}
	}
}
