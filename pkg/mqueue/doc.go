// Package mqueue provides a multi-consumer work queue stored in a single SQL
// table. Any number of processes share the table; each message is handed to
// at most one consumer at a time through a time-bounded lease.
//
// The package is organised around three components:
//
//   - Service  owns the connection pool and hands out one Queue per name
//   - Queue    enqueues, reserves, fetches and acknowledges messages
//   - Worker   polls a Queue and dispatches reserved messages to a Handler
//
// # Delivery
//
// Reserve claims the oldest message of a queue whose lease has lapsed and
// records the consumer id with a new lease end. A consumer that finishes
// calls Acknowledge to delete the message. A consumer that crashes or fails
// simply lets the lease run out, after which any consumer may reserve the
// message again. Delivery is at-least-once; handlers must tolerate repeats.
//
// Messages are never reordered on purpose, but a redelivered message keeps
// its original id, so it is reserved before newer ones once its lease ends.
//
// Lease ends are computed from the process clock (see WithClock), not the
// database clock, and are stored with second precision. Consumers sharing a
// table should keep their clocks in sync.
//
// # Dialects
//
// The SQL for each operation is chosen once per dialect: mysql, pgsql,
// sqlsrv, oracle, sqlite and a generic ansi dialect which requires an
// explicit driver and data source name. Every statement can be overridden
// through Config.SQL.
//
// # Usage
//
//	cfg, err := mqueue.ConfigFromMap(map[string]any{
//		"db/adapter":  "pgsql",
//		"db/host":     "localhost",
//		"db/database": "jobs",
//		"db/username": "queue",
//		"releasetime": 120,
//	})
//	if err != nil {
//		return err
//	}
//
//	svc, err := mqueue.New(ctx, cfg, mqueue.WithLogger(log))
//	if err != nil {
//		return err
//	}
//	defer svc.Close()
//
//	emails, err := svc.Queue("emails")
//	if err != nil {
//		return err
//	}
//	if _, err := emails.Enqueue(ctx, `{"to":"user@example.com"}`); err != nil {
//		return err
//	}
//
//	w, err := mqueue.NewWorker(emails, mqueue.NewJSONHandler(sendEmail))
//	if err != nil {
//		return err
//	}
//	g.Go(w.Run(ctx))
//
// # Errors
//
// Every error returned by Service and Queue matches exactly one of ErrConfig,
// ErrConnection, ErrStatement or ErrNotFound with errors.Is. Reserve on an
// empty queue returns a nil message and a nil error.
package mqueue
