package mqueue

import (
	"context"
	"encoding/json"
	"fmt"
)

type (
	// Handler processes one reserved message. A nil error acknowledges it.
	Handler interface {
		Handle(ctx context.Context, msg *Message) error
	}

	// HandlerFunc adapts a function to Handler.
	HandlerFunc func(ctx context.Context, msg *Message) error

	// JSONHandlerFunc receives the payload decoded into T.
	JSONHandlerFunc[T any] func(ctx context.Context, payload T) error
)

func (f HandlerFunc) Handle(ctx context.Context, msg *Message) error {
	return f(ctx, msg)
}

// NewJSONHandler returns a Handler decoding JSON payloads into T.
// A payload that does not decode is a handler failure.
func NewJSONHandler[T any](handler JSONHandlerFunc[T]) Handler {
	return &jsonHandler[T]{handler: handler}
}

type jsonHandler[T any] struct {
	handler JSONHandlerFunc[T]
}

func (h *jsonHandler[T]) Handle(ctx context.Context, msg *Message) error {
	var t T
	if err := msg.Decode(&t); err != nil {
		return fmt.Errorf("decode payload of message %d: %w", msg.ID, err)
	}
	return h.handler(ctx, t)
}

// EnqueueJSON marshals v and enqueues it.
func EnqueueJSON(ctx context.Context, q *Queue, v any) (int64, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return 0, fmt.Errorf("failed to marshal payload of type %T: %w", v, err)
	}
	return q.Enqueue(ctx, string(b))
}
