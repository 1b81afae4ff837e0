package mqueue

import (
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Option configures a Service.
type Option func(*options)

type options struct {
	logger     *slog.Logger
	now        func() time.Time
	registerer prometheus.Registerer
	metrics    *metrics
}

// WithLogger sets the logger for the service and its queues.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithClock replaces time.Now as the source of "now" for lease computation.
// The database clock is never consulted.
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		if now != nil {
			o.now = now
		}
	}
}

// WithMetrics registers queue counters with reg.
func WithMetrics(reg prometheus.Registerer) Option {
	return func(o *options) {
		o.registerer = reg
	}
}
