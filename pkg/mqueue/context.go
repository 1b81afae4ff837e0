package mqueue

import (
	"context"
	"log/slog"

	"github.com/dmitrymomot/dbqueue/pkg/logger"
)

type messageCtxKey struct{}

// WithMessage returns a copy of ctx carrying msg. Worker attaches the
// message it hands to a Handler this way.
func WithMessage(ctx context.Context, msg *Message) context.Context {
	return context.WithValue(ctx, messageCtxKey{}, msg)
}

// MessageFromContext returns the message attached by WithMessage.
func MessageFromContext(ctx context.Context) (*Message, bool) {
	msg, ok := ctx.Value(messageCtxKey{}).(*Message)
	return msg, ok && msg != nil
}

// LogExtractors returns extractors for logger.WithContextExtractors that add
// the queue, id and owner of the message being handled to every record
// logged with the handler's context.
//
//	log := logger.New(logger.WithContextExtractors(mqueue.LogExtractors()...))
func LogExtractors() []logger.ContextExtractor {
	return []logger.ContextExtractor{
		messageAttr(func(m *Message) slog.Attr { return logger.Queue(m.Queue) }),
		messageAttr(func(m *Message) slog.Attr { return logger.MessageID(m.ID) }),
		messageAttr(func(m *Message) slog.Attr { return logger.Consumer(m.Owner) }),
	}
}

func messageAttr(attr func(*Message) slog.Attr) logger.ContextExtractor {
	return func(ctx context.Context) (slog.Attr, bool) {
		msg, ok := MessageFromContext(ctx)
		if !ok {
			return slog.Attr{}, false
		}
		a := attr(msg)
		return a, !a.Equal(slog.Attr{})
	}
}
