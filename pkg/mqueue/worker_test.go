package mqueue_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	"github.com/dmitrymomot/dbqueue/pkg/mqueue"
)

// MockReserver is a mock implementation of Reserver
type MockReserver struct {
	mock.Mock
}

func (m *MockReserver) Name() string {
	return m.Called().String(0)
}

func (m *MockReserver) ReleaseTime() time.Duration {
	return m.Called().Get(0).(time.Duration)
}

func (m *MockReserver) Reserve(ctx context.Context, consumerID string, lease time.Duration) (*mqueue.Message, error) {
	args := m.Called(ctx, consumerID, lease)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*mqueue.Message), args.Error(1)
}

func (m *MockReserver) Acknowledge(ctx context.Context, id int64) error {
	return m.Called(ctx, id).Error(0)
}

func newMockReserver() *MockReserver {
	r := new(MockReserver)
	r.On("Name").Return("default")
	r.On("ReleaseTime").Return(30 * time.Second).Maybe()
	return r
}

func noopHandler() mqueue.Handler {
	return mqueue.HandlerFunc(func(context.Context, *mqueue.Message) error { return nil })
}

type emailPayload struct {
	To      string `json:"to"`
	Subject string `json:"subject"`
}

func TestWorker_NewWorker(t *testing.T) {
	t.Parallel()

	t.Run("defaults", func(t *testing.T) {
		t.Parallel()

		r := newMockReserver()
		w, err := mqueue.NewWorker(r, noopHandler())
		require.NoError(t, err)
		assert.NotEmpty(t, w.ConsumerID(), "a random consumer id is generated")

		other, err := mqueue.NewWorker(r, noopHandler())
		require.NoError(t, err)
		assert.NotEqual(t, w.ConsumerID(), other.ConsumerID())
	})

	t.Run("with options", func(t *testing.T) {
		t.Parallel()

		w, err := mqueue.NewWorker(newMockReserver(), noopHandler(),
			mqueue.WithConsumerID("workerA"),
			mqueue.WithPullInterval(10*time.Millisecond),
			mqueue.WithLease(5*time.Second),
			mqueue.WithMaxConcurrent(4),
			mqueue.WithWorkerLogger(discardLogger()),
		)
		require.NoError(t, err)
		assert.Equal(t, "workerA", w.ConsumerID())
	})

	t.Run("nil queue", func(t *testing.T) {
		t.Parallel()

		w, err := mqueue.NewWorker(nil, noopHandler())
		assert.ErrorIs(t, err, mqueue.ErrNilQueue)
		assert.Nil(t, w)
	})

	t.Run("nil handler", func(t *testing.T) {
		t.Parallel()

		w, err := mqueue.NewWorker(newMockReserver(), nil)
		assert.ErrorIs(t, err, mqueue.ErrNilHandler)
		assert.Nil(t, w)
	})
}

func TestWorker_StartStop(t *testing.T) {
	t.Parallel()

	r := newMockReserver()
	r.On("Reserve", mock.Anything, "workerA", 5*time.Second).Return(nil, nil).Maybe()

	w, err := mqueue.NewWorker(r, noopHandler(),
		mqueue.WithConsumerID("workerA"),
		mqueue.WithLease(5*time.Second),
		mqueue.WithPullInterval(5*time.Millisecond),
		mqueue.WithWorkerLogger(discardLogger()),
	)
	require.NoError(t, err)

	assert.ErrorIs(t, w.Stop(), mqueue.ErrWorkerNotStarted)

	require.NoError(t, w.Start(context.Background()))
	assert.ErrorIs(t, w.Start(context.Background()), mqueue.ErrWorkerStarted)

	time.Sleep(30 * time.Millisecond)
	require.NoError(t, w.Stop())
	assert.ErrorIs(t, w.Stop(), mqueue.ErrWorkerNotStarted)

	r.AssertExpectations(t)
}

func TestWorker_AcknowledgesHandledMessages(t *testing.T) {
	t.Parallel()

	msg := &mqueue.Message{ID: 7, Queue: "default", Owner: "workerA", Payload: "job-1"}

	r := newMockReserver()
	r.On("Reserve", mock.Anything, "workerA", 30*time.Second).Return(msg, nil).Once()
	r.On("Reserve", mock.Anything, "workerA", 30*time.Second).Return(nil, nil).Maybe()

	acked := make(chan int64, 1)
	r.On("Acknowledge", mock.Anything, int64(7)).Return(nil).Run(func(args mock.Arguments) {
		acked <- args.Get(1).(int64)
	}).Once()

	var got atomic.Value
	h := mqueue.HandlerFunc(func(ctx context.Context, m *mqueue.Message) error {
		got.Store(m.Payload)
		return nil
	})

	w, err := mqueue.NewWorker(r, h,
		mqueue.WithConsumerID("workerA"),
		mqueue.WithPullInterval(5*time.Millisecond),
		mqueue.WithWorkerLogger(discardLogger()),
	)
	require.NoError(t, err)
	require.NoError(t, w.Start(context.Background()))
	defer w.Stop()

	select {
	case id := <-acked:
		assert.Equal(t, int64(7), id)
	case <-time.After(2 * time.Second):
		t.Fatal("message was not acknowledged")
	}
	assert.Equal(t, "job-1", got.Load())
}

func TestWorker_FailedMessageIsNotAcknowledged(t *testing.T) {
	t.Parallel()

	msg := &mqueue.Message{ID: 9, Queue: "default", Owner: "workerA", Payload: "job-1"}

	r := newMockReserver()
	r.On("Reserve", mock.Anything, "workerA", 30*time.Second).Return(msg, nil).Once()
	r.On("Reserve", mock.Anything, "workerA", 30*time.Second).Return(nil, nil).Maybe()

	handled := make(chan struct{})
	var once sync.Once
	h := mqueue.HandlerFunc(func(ctx context.Context, m *mqueue.Message) error {
		once.Do(func() { close(handled) })
		return errors.New("smtp unavailable")
	})

	w, err := mqueue.NewWorker(r, h,
		mqueue.WithConsumerID("workerA"),
		mqueue.WithPullInterval(5*time.Millisecond),
		mqueue.WithWorkerLogger(discardLogger()),
	)
	require.NoError(t, err)
	require.NoError(t, w.Start(context.Background()))

	select {
	case <-handled:
	case <-time.After(2 * time.Second):
		t.Fatal("handler was not called")
	}
	require.NoError(t, w.Stop())

	r.AssertNotCalled(t, "Acknowledge", mock.Anything, mock.Anything)
}

func TestWorker_RecoversFromPanic(t *testing.T) {
	t.Parallel()

	r := newMockReserver()
	r.On("Reserve", mock.Anything, "workerA", 30*time.Second).
		Return(&mqueue.Message{ID: 1, Payload: "boom"}, nil).Once()
	r.On("Reserve", mock.Anything, "workerA", 30*time.Second).
		Return(&mqueue.Message{ID: 2, Payload: "fine"}, nil).Once()
	r.On("Reserve", mock.Anything, "workerA", 30*time.Second).Return(nil, nil).Maybe()

	acked := make(chan int64, 1)
	r.On("Acknowledge", mock.Anything, int64(2)).Return(nil).Run(func(args mock.Arguments) {
		acked <- args.Get(1).(int64)
	}).Once()

	h := mqueue.HandlerFunc(func(ctx context.Context, m *mqueue.Message) error {
		if m.Payload == "boom" {
			panic("handler exploded")
		}
		return nil
	})

	w, err := mqueue.NewWorker(r, h,
		mqueue.WithConsumerID("workerA"),
		mqueue.WithPullInterval(5*time.Millisecond),
		mqueue.WithWorkerLogger(discardLogger()),
	)
	require.NoError(t, err)
	require.NoError(t, w.Start(context.Background()))
	defer w.Stop()

	select {
	case id := <-acked:
		assert.Equal(t, int64(2), id, "the worker keeps going after a panic")
	case <-time.After(2 * time.Second):
		t.Fatal("second message was not acknowledged")
	}
	r.AssertNotCalled(t, "Acknowledge", mock.Anything, int64(1))
}

func TestWorker_ReserveErrorKeepsPolling(t *testing.T) {
	t.Parallel()

	r := newMockReserver()
	r.On("Reserve", mock.Anything, "workerA", 30*time.Second).Return(nil, mqueue.ErrConnection).Once()
	r.On("Reserve", mock.Anything, "workerA", 30*time.Second).
		Return(&mqueue.Message{ID: 3, Payload: "job"}, nil).Once()
	r.On("Reserve", mock.Anything, "workerA", 30*time.Second).Return(nil, nil).Maybe()

	acked := make(chan int64, 1)
	r.On("Acknowledge", mock.Anything, int64(3)).Return(nil).Run(func(args mock.Arguments) {
		acked <- args.Get(1).(int64)
	}).Once()

	w, err := mqueue.NewWorker(r, noopHandler(),
		mqueue.WithConsumerID("workerA"),
		mqueue.WithPullInterval(5*time.Millisecond),
		mqueue.WithWorkerLogger(discardLogger()),
	)
	require.NoError(t, err)
	require.NoError(t, w.Start(context.Background()))
	defer w.Stop()

	select {
	case id := <-acked:
		assert.Equal(t, int64(3), id)
	case <-time.After(2 * time.Second):
		t.Fatal("worker stopped polling after a reserve error")
	}
}

func TestWorker_HandlerContextOutlivesStop(t *testing.T) {
	t.Parallel()

	r := newMockReserver()
	r.On("Reserve", mock.Anything, "workerA", 30*time.Second).
		Return(&mqueue.Message{ID: 4, Payload: "slow"}, nil).Once()
	r.On("Reserve", mock.Anything, "workerA", 30*time.Second).Return(nil, nil).Maybe()
	r.On("Acknowledge", mock.Anything, int64(4)).Return(nil).Once()

	started := make(chan struct{})
	var cancelled atomic.Bool
	h := mqueue.HandlerFunc(func(ctx context.Context, m *mqueue.Message) error {
		close(started)
		time.Sleep(50 * time.Millisecond)
		cancelled.Store(ctx.Err() != nil)
		return nil
	})

	w, err := mqueue.NewWorker(r, h,
		mqueue.WithConsumerID("workerA"),
		mqueue.WithPullInterval(5*time.Millisecond),
		mqueue.WithWorkerLogger(discardLogger()),
	)
	require.NoError(t, err)
	require.NoError(t, w.Start(context.Background()))

	<-started
	require.NoError(t, w.Stop(), "stop waits for the in-flight message")

	assert.False(t, cancelled.Load(), "the handler context is not cancelled by Stop")
	r.AssertExpectations(t)
}

func TestWorker_Run(t *testing.T) {
	t.Parallel()

	r := newMockReserver()
	r.On("Reserve", mock.Anything, mock.Anything, 30*time.Second).Return(nil, nil).Maybe()

	w, err := mqueue.NewWorker(r, noopHandler(),
		mqueue.WithPullInterval(5*time.Millisecond),
		mqueue.WithWorkerLogger(discardLogger()),
	)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	g, gctx := errgroup.WithContext(ctx)
	g.Go(w.Run(gctx))

	time.Sleep(20 * time.Millisecond)
	cancel()

	assert.NoError(t, g.Wait())
}

func TestWorker_Redelivery(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	svc, clock := newTestService(t)
	q := mustQueue(t, svc, "emails")

	id, err := mqueue.EnqueueJSON(ctx, q, emailPayload{To: "a@b.c", Subject: "hello"})
	require.NoError(t, err)

	var (
		calls     atomic.Int32
		delivered = make(chan emailPayload, 4)
	)
	h := mqueue.NewJSONHandler(func(ctx context.Context, p emailPayload) error {
		if calls.Add(1) == 1 {
			return errors.New("smtp unavailable")
		}
		delivered <- p
		return nil
	})

	w, err := mqueue.NewWorker(q, h,
		mqueue.WithConsumerID("workerA"),
		mqueue.WithLease(2*time.Second),
		mqueue.WithPullInterval(5*time.Millisecond),
		mqueue.WithWorkerLogger(discardLogger()),
	)
	require.NoError(t, err)
	require.NoError(t, w.Start(ctx))
	defer w.Stop()

	require.Eventually(t, func() bool { return calls.Load() == 1 }, 2*time.Second, 5*time.Millisecond)

	// the failed message stays leased while the clock stands still
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, int32(1), calls.Load())

	clock.Advance(3 * time.Second)

	select {
	case p := <-delivered:
		assert.Equal(t, "a@b.c", p.To)
		assert.Equal(t, "hello", p.Subject)
	case <-time.After(2 * time.Second):
		t.Fatal("message was not redelivered after its lease lapsed")
	}

	require.NoError(t, w.Stop())

	_, err = q.Fetch(ctx, "workerA", clock.Now().Add(2*time.Second))
	assert.ErrorIs(t, err, mqueue.ErrNotFound, "message %d was acknowledged", id)

	clock.Advance(time.Minute)
	msg, err := q.Reserve(ctx, "workerB", time.Second)
	require.NoError(t, err)
	assert.Nil(t, msg)
}

func TestNewJSONHandler_InvalidPayload(t *testing.T) {
	t.Parallel()

	called := false
	h := mqueue.NewJSONHandler(func(ctx context.Context, p emailPayload) error {
		called = true
		return nil
	})

	err := h.Handle(context.Background(), &mqueue.Message{ID: 1, Payload: "not json"})
	assert.Error(t, err)
	assert.False(t, called)
}

func TestEnqueueJSON_Unmarshalable(t *testing.T) {
	t.Parallel()

	svc, _ := newTestService(t)
	q := mustQueue(t, svc, "default")

	_, err := mqueue.EnqueueJSON(context.Background(), q, make(chan int))
	assert.Error(t, err)
}
