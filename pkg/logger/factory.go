package logger

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
)

// Format represents logger output format.
type Format string

const (
	FormatJSON Format = "json"
	FormatText Format = "text"
)

// Environment names accepted by WithEnvironment.
const (
	Development = "development"
	Staging     = "staging"
	Production  = "production"
)

// Config is the env-loadable logger configuration, see NewFromConfig.
type Config struct {
	Level       string `env:"LOG_LEVEL" envDefault:"info"`
	Format      Format `env:"LOG_FORMAT" envDefault:"json"`
	Environment string `env:"APP_ENV" envDefault:"development"`
	Service     string `env:"APP_NAME" envDefault:"mqueue"`
}

type preset struct {
	level  slog.Level
	format Format
}

var presets = map[string]preset{
	Development: {level: slog.LevelDebug, format: FormatText},
	Staging:     {level: slog.LevelInfo, format: FormatJSON},
	Production:  {level: slog.LevelInfo, format: FormatJSON},
}

// environment aliases seen in deployment manifests
var aliases = map[string]string{
	"dev":   Development,
	"stage": Staging,
	"prod":  Production,
}

// Option configures logger creation.
type Option func(*options)

type options struct {
	level          slog.Level
	format         Format
	output         io.Writer
	attrs          []slog.Attr
	handlerOptions *slog.HandlerOptions
	extractors     []ContextExtractor
}

func WithLevel(l slog.Level) Option {
	return func(o *options) { o.level = l }
}

// WithFormat sets the output format and panics on anything but json or text,
// so a misconfigured process fails at startup.
func WithFormat(f Format) Option {
	if f != FormatJSON && f != FormatText {
		panic(fmt.Errorf("invalid log format %q: must be %q or %q", f, FormatJSON, FormatText))
	}
	return func(o *options) { o.format = f }
}

func WithTextFormatter() Option { return WithFormat(FormatText) }

func WithJSONFormatter() Option { return WithFormat(FormatJSON) }

// WithOutput sets the destination. A nil writer is ignored.
func WithOutput(w io.Writer) Option {
	return func(o *options) {
		if w != nil {
			o.output = w
		}
	}
}

// WithHandlerOptions replaces the slog handler options, level included.
func WithHandlerOptions(opts *slog.HandlerOptions) Option {
	return func(o *options) {
		if opts != nil {
			o.handlerOptions = opts
		}
	}
}

// WithAttr adds static attributes to every record.
func WithAttr(attrs ...slog.Attr) Option {
	return func(o *options) {
		o.attrs = append(o.attrs, attrs...)
	}
}

// WithContextExtractors registers extractors run on every record.
func WithContextExtractors(extractors ...ContextExtractor) Option {
	return func(o *options) {
		for _, ex := range extractors {
			if ex != nil {
				o.extractors = append(o.extractors, ex)
			}
		}
	}
}

// WithContextValue logs ctx.Value(key) under name whenever it is set.
func WithContextValue(name string, key any) Option {
	return WithContextExtractors(ContextValue(name, key))
}

// WithEnvironment applies the level and format preset of env and tags every
// record with the service and environment names. Unknown environments fall
// back to development.
func WithEnvironment(env, service string) Option {
	return func(o *options) {
		if a, ok := aliases[env]; ok {
			env = a
		}
		p, ok := presets[env]
		if !ok {
			env, p = Development, presets[Development]
		}

		o.level = p.level
		o.format = p.format
		if service != "" {
			o.attrs = append(o.attrs, slog.String("service", service))
		}
		o.attrs = append(o.attrs, slog.String("env", env))
	}
}

func WithDevelopment(service string) Option { return WithEnvironment(Development, service) }

func WithStaging(service string) Option { return WithEnvironment(Staging, service) }

func WithProduction(service string) Option { return WithEnvironment(Production, service) }

func SetAsDefault(l *slog.Logger) {
	slog.SetDefault(l)
}

// New creates a logger writing JSON at info level to stdout unless options
// say otherwise. The handler is wrapped in a ContextHandler when extractors
// are registered.
func New(opts ...Option) *slog.Logger {
	o := &options{
		level:  slog.LevelInfo,
		format: FormatJSON,
		output: os.Stdout,
	}
	for _, opt := range opts {
		opt(o)
	}

	ho := o.handlerOptions
	if ho == nil {
		ho = &slog.HandlerOptions{Level: o.level}
	}

	var h slog.Handler
	if o.format == FormatText {
		h = slog.NewTextHandler(o.output, ho)
	} else {
		h = slog.NewJSONHandler(o.output, ho)
	}
	if len(o.attrs) > 0 {
		h = h.WithAttrs(o.attrs)
	}
	if len(o.extractors) > 0 {
		h = NewContextHandler(h, o.extractors...)
	}

	return slog.New(h)
}

// NewFromConfig builds a logger from Config. The environment preset is
// applied first so explicit Level and Format take precedence.
func NewFromConfig(cfg Config, opts ...Option) (*slog.Logger, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.ToUpper(cfg.Level))); err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", cfg.Level, err)
	}
	if cfg.Format != FormatJSON && cfg.Format != FormatText {
		return nil, fmt.Errorf("invalid log format %q: must be %q or %q", cfg.Format, FormatJSON, FormatText)
	}

	all := append([]Option{
		WithEnvironment(cfg.Environment, cfg.Service),
		WithLevel(level),
		WithFormat(cfg.Format),
	}, opts...)
	return New(all...), nil
}
