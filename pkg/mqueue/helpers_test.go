package mqueue_test

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/dbqueue/pkg/mqueue"
	"github.com/dmitrymomot/dbqueue/pkg/sqldb"
)

// testClock is a manually advanced clock shared by a service and a test.
type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func newTestClock() *testClock {
	return &testClock{now: time.Date(2026, 10, 14, 12, 0, 0, 0, time.UTC)}
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func sqliteConfig(t *testing.T) mqueue.Config {
	t.Helper()

	cfg := mqueue.DefaultConfig()
	cfg.DB = sqldb.Config{
		Adapter:      "sqlite",
		Database:     filepath.Join(t.TempDir(), "queue.db"),
		MaxOpenConns: 1,
	}
	return cfg
}

// newTestService returns a migrated service over a fresh SQLite file.
func newTestService(t *testing.T, opts ...mqueue.Option) (*mqueue.Service, *testClock) {
	t.Helper()
	return newTestServiceWithConfig(t, sqliteConfig(t), opts...)
}

func newTestServiceWithConfig(t *testing.T, cfg mqueue.Config, opts ...mqueue.Option) (*mqueue.Service, *testClock) {
	t.Helper()

	clock := newTestClock()
	opts = append([]mqueue.Option{
		mqueue.WithClock(clock.Now),
		mqueue.WithLogger(discardLogger()),
	}, opts...)

	svc, err := mqueue.New(context.Background(), cfg, opts...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = svc.Close() })

	require.NoError(t, svc.Migrate(context.Background()))
	return svc, clock
}

func mustQueue(t *testing.T, svc *mqueue.Service, name string) *mqueue.Queue {
	t.Helper()
	q, err := svc.Queue(name)
	require.NoError(t, err)
	return q
}
