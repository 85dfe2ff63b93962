package scope

import (
	"log/slog"

	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

// DefaultTTL is the number of extra passes a digest makes before giving up.
const DefaultTTL = 10

type config struct {
	scheduler Scheduler
	ttl       int
	logger    *slog.Logger
	onError   func(error)
	tracer    trace.Tracer
}

func defaultConfig() *config {
	return &config{
		ttl:    DefaultTTL,
		tracer: noop.NewTracerProvider().Tracer(""),
	}
}

// Option configures a Scope.
type Option func(*config)

// WithScheduler sets where EvalAsync and ApplyAsync schedule their digests.
//
// Default: the shared loop returned by DefaultLoop.
func WithScheduler(s Scheduler) Option {
	return func(c *config) {
		c.scheduler = s
	}
}

// WithTTL sets how many times a digest may re-scan dirty watches.
//
// Default: 10 (DefaultTTL). Values below 1 are ignored.
func WithTTL(ttl int) Option {
	return func(c *config) {
		if ttl > 0 {
			c.ttl = ttl
		}
	}
}

// WithLogger sets the logger used by the default error handler and for
// digest debug logs.
//
// Default: slog.Default()
func WithLogger(logger *slog.Logger) Option {
	return func(c *config) {
		c.logger = logger
	}
}

// WithErrorHandler replaces the default error handler, which logs.
// It receives every *WatchError, and the errors of digests that ran on
// the scheduler.
func WithErrorHandler(fn func(error)) Option {
	return func(c *config) {
		c.onError = fn
	}
}

// WithTracer sets the tracer digests open their spans with.
func WithTracer(tracer trace.Tracer) Option {
	return func(c *config) {
		if tracer != nil {
			c.tracer = tracer
		}
	}
}

type watchConfig struct {
	deep bool
}

// WatchOption configures a single watch.
type WatchOption func(*watchConfig)

// CompareByValue makes the watch compare values structurally instead of by
// identity, so in-place mutations of maps, slices and pointed-to structs are
// detected. The last value is kept as a deep copy.
func CompareByValue() WatchOption {
	return func(c *watchConfig) {
		c.deep = true
	}
}
