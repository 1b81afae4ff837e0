// Package logger provides a context-aware wrapper around Go's slog package
// adding functional options for configuration, helper attribute constructors,
// and transparent injection of values stored in context.Context.
//
// New creates a *slog.Logger configured by Option functions:
//
//   - Select an output format (text or json)
//   - Set the minimum log level
//   - Supply default slog.Attr values applied to every record
//   - Register ContextExtractor callbacks that inject attributes pulled from a
//     context value every time Handle is invoked.
//
// NewFromConfig builds the same logger from an env-loadable Config.
//
// # Architecture
//
// New picks slog.NewTextHandler or slog.NewJSONHandler based on the configured
// Format. When extractors are registered it wraps the handler in a
// ContextHandler which runs them before delegating to the underlying handler.
// WithEnvironment applies the level and format preset of development, staging
// or production.
//
// Helper constructors such as Queue, MessageID, Consumer and Error live in
// attr.go and keep attribute naming consistent across the queue packages.
//
// # Usage
//
//	log := logger.New(
//	    logger.WithDevelopment("mailer"),
//	    logger.WithContextValue("trace_id", ctxKeyTraceID),
//	)
//	logger.SetAsDefault(log)
//
//	log.InfoContext(ctx, "message handled",
//	    logger.Queue("emails"),
//	    logger.MessageID(msg.ID),
//	    logger.Duration(time.Since(start)),
//	)
//
// # Error Handling
//
// Error and Errors produce attributes only when the supplied error value is
// non-nil, so
//
//	log.Info("operation finished", logger.Error(err))
//
// needs no nil check.
package logger
