package mqueue

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/dmitrymomot/dbqueue/pkg/logger"
)

// Reserver is the part of Queue a Worker consumes from.
type Reserver interface {
	Name() string
	ReleaseTime() time.Duration
	Reserve(ctx context.Context, consumerID string, lease time.Duration) (*Message, error)
	Acknowledge(ctx context.Context, id int64) error
}

// Worker polls one queue, hands reserved messages to a Handler and
// acknowledges those it handled. A failed message is left reserved and comes
// back once its lease lapses, which makes delivery at-least-once.
type Worker struct {
	queue      Reserver
	handler    Handler
	consumerID string
	sem        chan struct{}
	wg         sync.WaitGroup
	mu         sync.Mutex
	stopMu     sync.Mutex // Protects stopping state and WaitGroup operations

	pullInterval time.Duration
	lease        time.Duration
	logger       *slog.Logger

	ctx      context.Context
	cancel   context.CancelFunc
	stopping atomic.Bool
}

// NewWorker creates a worker for q.
func NewWorker(q Reserver, h Handler, opts ...WorkerOption) (*Worker, error) {
	if q == nil {
		return nil, ErrNilQueue
	}
	if h == nil {
		return nil, ErrNilHandler
	}

	options := &workerOptions{
		consumerID:    uuid.NewString(),
		pullInterval:  time.Second,
		lease:         q.ReleaseTime(),
		maxConcurrent: 1,
		logger:        slog.Default(),
	}
	for _, opt := range opts {
		opt(options)
	}

	return &Worker{
		queue:        q,
		handler:      h,
		consumerID:   options.consumerID,
		sem:          make(chan struct{}, options.maxConcurrent),
		pullInterval: options.pullInterval,
		lease:        options.lease,
		logger: options.logger.With(
			logger.Component("worker"),
			logger.Queue(q.Name()),
			logger.Consumer(options.consumerID)),
	}, nil
}

// ConsumerID returns the owner the worker reserves messages as.
func (w *Worker) ConsumerID() string {
	return w.consumerID
}

// Start begins processing messages in the background
func (w *Worker) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.cancel != nil {
		w.mu.Unlock()
		return ErrWorkerStarted
	}
	w.ctx, w.cancel = context.WithCancel(ctx)
	w.mu.Unlock()

	w.stopping.Store(false)

	go w.run()

	w.logger.Info("worker started",
		slog.Int("max_concurrent", cap(w.sem)),
		logger.Lease(w.lease))

	return nil
}

// Stop cancels polling and waits for in-flight messages to finish.
func (w *Worker) Stop() error {
	w.mu.Lock()
	if w.cancel == nil {
		w.mu.Unlock()
		return ErrWorkerNotStarted
	}

	// Use stopMu to synchronize with run() goroutine
	w.stopMu.Lock()
	w.stopping.Store(true)
	w.stopMu.Unlock()

	cancel := w.cancel
	w.cancel = nil
	w.mu.Unlock()

	cancel()

	w.logger.Info("worker stopping, waiting for active messages")
	w.wg.Wait()
	w.logger.Info("worker stopped")

	return nil
}

// Run starts the worker and returns a function suitable for errgroup
func (w *Worker) Run(ctx context.Context) func() error {
	return func() error {
		if err := w.Start(ctx); err != nil {
			return err
		}

		<-ctx.Done()

		return w.Stop()
	}
}

func (w *Worker) run() {
	ticker := time.NewTicker(w.pullInterval)
	defer ticker.Stop()

	for {
		select {
		case <-w.ctx.Done():
			return
		case <-ticker.C:
			select {
			case w.sem <- struct{}{}:
				// don't add to the WaitGroup once Stop() has begun
				w.stopMu.Lock()
				if w.stopping.Load() {
					w.stopMu.Unlock()
					<-w.sem
					return
				}
				w.wg.Add(1)
				w.stopMu.Unlock()

				go func() {
					defer w.wg.Done()
					defer func() { <-w.sem }()

					if err := w.reserveAndHandle(); err != nil {
						w.logger.Error("failed to process message", logger.Error(err))
					}
				}()
			default:
				w.logger.Debug("all worker slots busy, skipping tick")
			}
		}
	}
}

func (w *Worker) reserveAndHandle() error {
	msg, err := w.queue.Reserve(w.ctx, w.consumerID, w.lease)
	if err != nil {
		return fmt.Errorf("failed to reserve message: %w", err)
	}
	if msg == nil {
		return nil
	}

	return w.handle(msg)
}

func (w *Worker) handle(msg *Message) (retErr error) {
	start := time.Now()

	defer func() {
		if r := recover(); r != nil {
			retErr = fmt.Errorf("panic in handler: %v", r)
			w.logger.Error("handler panicked",
				logger.MessageID(msg.ID),
				slog.Any("panic", r))
		}
	}()

	// the handler may run for the whole lease, not past it, and finishes on shutdown
	ctx, cancel := context.WithTimeout(context.WithoutCancel(w.ctx), w.lease)
	defer cancel()
	ctx = WithMessage(ctx, msg)

	if err := w.handler.Handle(ctx, msg); err != nil {
		w.logger.Error("message handling failed, left for redelivery",
			logger.MessageID(msg.ID),
			logger.Duration(time.Since(start)),
			logger.Error(err))
		return nil
	}

	// acknowledge even when the worker is stopping
	if err := w.queue.Acknowledge(context.WithoutCancel(w.ctx), msg.ID); err != nil {
		return fmt.Errorf("failed to acknowledge message %d: %w", msg.ID, err)
	}

	w.logger.Info("message handled",
		logger.MessageID(msg.ID),
		logger.Duration(time.Since(start)))

	return nil
}
