package receiver

import (
	"log/slog"

	"github.com/c360/syncmedia/metric"
	"github.com/c360/syncmedia/pkg/buffer"
)

// Option configures a Receiver.
type Option func(*options)

type options struct {
	logger        *slog.Logger
	trace         TraceFunc
	metricsReg    *metric.MetricsRegistry
	metricsPrefix string
	bufferOpts    []buffer.Option
}

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(opts *options) {
		if logger != nil {
			opts.logger = logger
		}
	}
}

// WithTrace installs a trace hook.
func WithTrace(fn TraceFunc) Option {
	return func(opts *options) {
		opts.trace = fn
	}
}

// WithTraceLogging traces every event to logger at debug level.
func WithTraceLogging(logger *slog.Logger) Option {
	return WithTrace(LogTrace(logger))
}

// WithMetrics enables receiver and buffer metrics labelled with prefix.
func WithMetrics(registry *metric.MetricsRegistry, prefix string) Option {
	return func(opts *options) {
		if registry != nil && prefix != "" {
			opts.metricsReg = registry
			opts.metricsPrefix = prefix
		}
	}
}

// WithInitialCapacity sets the initial buffer capacity.
func WithInitialCapacity(n int) Option {
	return func(opts *options) {
		opts.bufferOpts = append(opts.bufferOpts, buffer.WithInitialCapacity(n))
	}
}
