package buffer

import (
	"github.com/c360/syncmedia/metric"
)

// Option configures an Accumulator.
type Option func(*options)

type options struct {
	initialCapacity int

	// metricsReg is optional; when set the statistics are mirrored to Prometheus
	metricsReg    *metric.MetricsRegistry
	metricsPrefix string
}

// WithInitialCapacity sets the initial store size. Values <= 0 are ignored.
func WithInitialCapacity(n int) Option {
	return func(opts *options) {
		if n > 0 {
			opts.initialCapacity = n
		}
	}
}

// WithMetrics enables Prometheus metrics labelled with prefix.
// A nil registry or empty prefix leaves metrics disabled.
func WithMetrics(registry *metric.MetricsRegistry, prefix string) Option {
	return func(opts *options) {
		if registry != nil && prefix != "" {
			opts.metricsReg = registry
			opts.metricsPrefix = prefix
		}
	}
}

func applyOptions(list ...Option) *options {
	opts := &options{initialCapacity: DefaultCapacity}
	for _, opt := range list {
		if opt != nil {
			opt(opts)
		}
	}
	return opts
}
