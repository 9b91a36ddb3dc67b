package buffer

import (
	"github.com/c360/syncmedia/metric"
	"github.com/prometheus/client_golang/prometheus"
)

// bufferMetrics mirrors Statistics into Prometheus.
type bufferMetrics struct {
	appendedBytes prometheus.Counter
	drainedBytes  prometheus.Counter
	resets        prometheus.Counter
	size          prometheus.Gauge
}

func newBufferMetrics(registry *metric.MetricsRegistry, prefix string) (*bufferMetrics, error) {
	labels := prometheus.Labels{"link": prefix}
	m := &bufferMetrics{
		appendedBytes: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace:   "syncmedia",
			Subsystem:   "buffer",
			Name:        "appended_bytes_total",
			ConstLabels: labels,
			Help:        "Total bytes appended by the producer",
		}),
		drainedBytes: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace:   "syncmedia",
			Subsystem:   "buffer",
			Name:        "drained_bytes_total",
			ConstLabels: labels,
			Help:        "Total bytes drained as frames",
		}),
		resets: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace:   "syncmedia",
			Subsystem:   "buffer",
			Name:        "resets_total",
			ConstLabels: labels,
			Help:        "Explicit buffer resets",
		}),
		size: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace:   "syncmedia",
			Subsystem:   "buffer",
			Name:        "size_bytes",
			ConstLabels: labels,
			Help:        "Bytes currently waiting to be framed",
		}),
	}

	if err := registry.RegisterCounter(prefix, "buffer_appended_bytes", m.appendedBytes); err != nil {
		return nil, err
	}
	if err := registry.RegisterCounter(prefix, "buffer_drained_bytes", m.drainedBytes); err != nil {
		return nil, err
	}
	if err := registry.RegisterCounter(prefix, "buffer_resets", m.resets); err != nil {
		return nil, err
	}
	if err := registry.RegisterGauge(prefix, "buffer_size", m.size); err != nil {
		return nil, err
	}
	return m, nil
}

func (m *bufferMetrics) recordAppend(n, size int) {
	m.appendedBytes.Add(float64(n))
	m.size.Set(float64(size))
}

func (m *bufferMetrics) recordDrain(n, size int) {
	m.drainedBytes.Add(float64(n))
	m.size.Set(float64(size))
}

func (m *bufferMetrics) recordReset() {
	m.resets.Inc()
	m.size.Set(0)
}
