package mqueue

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
)

const metricsNamespace = "mqueue"

// metrics is nil when the service was built without WithMetrics; every
// method is a no-op on a nil receiver.
type metrics struct {
	enqueued *prometheus.CounterVec
	reserved *prometheus.CounterVec
	empty    *prometheus.CounterVec
	acked    *prometheus.CounterVec
	errors   *prometheus.CounterVec
}

func newMetrics(reg prometheus.Registerer) (*metrics, error) {
	if reg == nil {
		return nil, nil
	}

	m := &metrics{
		enqueued: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "messages_enqueued_total",
			Help:      "Total number of messages added to a queue",
		}, []string{"queue"}),
		reserved: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "messages_reserved_total",
			Help:      "Total number of successful reservations",
		}, []string{"queue"}),
		empty: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "reserve_empty_total",
			Help:      "Total number of reservations that found no available message",
		}, []string{"queue"}),
		acked: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "messages_acknowledged_total",
			Help:      "Total number of acknowledge calls",
		}, []string{"queue"}),
		errors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "errors_total",
			Help:      "Total number of failed queue operations",
		}, []string{"queue", "op"}),
	}

	var err error
	m.enqueued, err = register(reg, m.enqueued)
	if err != nil {
		return nil, err
	}
	m.reserved, err = register(reg, m.reserved)
	if err != nil {
		return nil, err
	}
	m.empty, err = register(reg, m.empty)
	if err != nil {
		return nil, err
	}
	m.acked, err = register(reg, m.acked)
	if err != nil {
		return nil, err
	}
	m.errors, err = register(reg, m.errors)
	if err != nil {
		return nil, err
	}
	return m, nil
}

// register reuses an identical collector that is already registered, so two
// services may share one registry.
func register(reg prometheus.Registerer, c *prometheus.CounterVec) (*prometheus.CounterVec, error) {
	if err := reg.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(*prometheus.CounterVec); ok {
				return existing, nil
			}
		}
		return nil, err
	}
	return c, nil
}

func (m *metrics) incEnqueued(queue string) {
	if m != nil {
		m.enqueued.WithLabelValues(queue).Inc()
	}
}

func (m *metrics) incReserved(queue string) {
	if m != nil {
		m.reserved.WithLabelValues(queue).Inc()
	}
}

func (m *metrics) incEmpty(queue string) {
	if m != nil {
		m.empty.WithLabelValues(queue).Inc()
	}
}

func (m *metrics) incAcked(queue string) {
	if m != nil {
		m.acked.WithLabelValues(queue).Inc()
	}
}

func (m *metrics) incError(queue, op string) {
	if m != nil {
		m.errors.WithLabelValues(queue, op).Inc()
	}
}
