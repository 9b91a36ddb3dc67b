package receiver

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/c360/syncmedia/metric"
)

// receiverMetrics holds Prometheus metrics for the receive path.
type receiverMetrics struct {
	frames       prometheus.Counter
	timeouts     prometheus.Counter
	faults       prometheus.Counter
	decodeErrors prometheus.Counter
	waitDuration prometheus.Histogram
}

func newReceiverMetrics(registry *metric.MetricsRegistry, prefix string) (*receiverMetrics, error) {
	labels := prometheus.Labels{"link": prefix}
	m := &receiverMetrics{
		frames: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace:   "syncmedia",
			Subsystem:   "receiver",
			Name:        "frames_total",
			ConstLabels: labels,
			Help:        "Frames delivered to the consumer",
		}),
		timeouts: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace:   "syncmedia",
			Subsystem:   "receiver",
			Name:        "timeouts_total",
			ConstLabels: labels,
			Help:        "Receive calls that ended without a frame",
		}),
		faults: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace:   "syncmedia",
			Subsystem:   "receiver",
			Name:        "faults_total",
			ConstLabels: labels,
			Help:        "Transport faults reported by the producer",
		}),
		decodeErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace:   "syncmedia",
			Subsystem:   "receiver",
			Name:        "decode_errors_total",
			ConstLabels: labels,
			Help:        "Frames that could not be decoded into the requested kind",
		}),
		waitDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace:   "syncmedia",
			Subsystem:   "receiver",
			Name:        "receive_duration_seconds",
			ConstLabels: labels,
			Help:        "Time spent inside Receive",
			Buckets:     []float64{.0005, .001, .005, .01, .05, .1, .5, 1, 5, 30},
		}),
	}

	if err := registry.RegisterCounter(prefix, "receiver_frames", m.frames); err != nil {
		return nil, err
	}
	if err := registry.RegisterCounter(prefix, "receiver_timeouts", m.timeouts); err != nil {
		return nil, err
	}
	if err := registry.RegisterCounter(prefix, "receiver_faults", m.faults); err != nil {
		return nil, err
	}
	if err := registry.RegisterCounter(prefix, "receiver_decode_errors", m.decodeErrors); err != nil {
		return nil, err
	}
	if err := registry.RegisterHistogram(prefix, "receiver_receive_duration", m.waitDuration); err != nil {
		return nil, err
	}
	return m, nil
}

func (m *receiverMetrics) observe(start time.Time) {
	if m != nil {
		m.waitDuration.Observe(time.Since(start).Seconds())
	}
}

func (m *receiverMetrics) frame() {
	if m != nil {
		m.frames.Inc()
	}
}

func (m *receiverMetrics) timeout() {
	if m != nil {
		m.timeouts.Inc()
	}
}

func (m *receiverMetrics) fault() {
	if m != nil {
		m.faults.Inc()
	}
}

func (m *receiverMetrics) decodeError() {
	if m != nil {
		m.decodeErrors.Inc()
	}
}
