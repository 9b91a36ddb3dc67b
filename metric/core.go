package metric

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Link status values recorded by RecordLinkStatus.
const (
	LinkStopped = iota
	LinkStarting
	LinkRunning
	LinkFaulted
)

// Metrics contains the link-level metrics shared by inputs and the relay.
type Metrics struct {
	LinkStatus      *prometheus.GaugeVec
	BytesReceived   *prometheus.CounterVec
	ReadErrors      *prometheus.CounterVec
	FramesRelayed   *prometheus.CounterVec
	PublishErrors   *prometheus.CounterVec
	PublishDuration *prometheus.HistogramVec
	ErrorsTotal     *prometheus.CounterVec
	HealthStatus    *prometheus.GaugeVec

	NATSConnected  prometheus.Gauge
	NATSRTT        prometheus.Gauge
	NATSReconnects prometheus.Counter
}

// NewMetrics creates the link-level metrics.
func NewMetrics() *Metrics {
	return &Metrics{
		LinkStatus: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "syncmedia",
			Subsystem: "link",
			Name:      "status",
			Help:      "Link status (0=stopped, 1=starting, 2=running, 3=faulted)",
		}, []string{"link"}),

		BytesReceived: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "syncmedia",
			Subsystem: "input",
			Name:      "bytes_total",
			Help:      "Bytes read from the transport",
		}, []string{"link", "transport"}),

		ReadErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "syncmedia",
			Subsystem: "input",
			Name:      "read_errors_total",
			Help:      "Transport read errors",
		}, []string{"link", "transport"}),

		FramesRelayed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "syncmedia",
			Subsystem: "relay",
			Name:      "frames_total",
			Help:      "Frames published by the relay",
		}, []string{"link", "encoding"}),

		PublishErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "syncmedia",
			Subsystem: "relay",
			Name:      "publish_errors_total",
			Help:      "Frames dropped after publish retries were exhausted",
		}, []string{"link"}),

		PublishDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "syncmedia",
			Subsystem: "relay",
			Name:      "publish_duration_seconds",
			Help:      "Time to publish one frame including retries",
			Buckets:   prometheus.DefBuckets,
		}, []string{"link"}),

		ErrorsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "syncmedia",
			Subsystem: "errors",
			Name:      "total",
			Help:      "Errors by link and class",
		}, []string{"link", "class"}),

		HealthStatus: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "syncmedia",
			Subsystem: "health",
			Name:      "status",
			Help:      "Health check status (0=unhealthy, 1=healthy)",
		}, []string{"component"}),

		NATSConnected: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "syncmedia",
			Subsystem: "nats",
			Name:      "connected",
			Help:      "NATS connection status (0=disconnected, 1=connected)",
		}),

		NATSRTT: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "syncmedia",
			Subsystem: "nats",
			Name:      "rtt_milliseconds",
			Help:      "NATS round-trip time in milliseconds",
		}),

		NATSReconnects: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "syncmedia",
			Subsystem: "nats",
			Name:      "reconnects_total",
			Help:      "Total number of NATS reconnections",
		}),
	}
}

func (c *Metrics) collectors() []prometheus.Collector {
	return []prometheus.Collector{
		c.LinkStatus, c.BytesReceived, c.ReadErrors, c.FramesRelayed,
		c.PublishErrors, c.PublishDuration, c.ErrorsTotal, c.HealthStatus,
		c.NATSConnected, c.NATSRTT, c.NATSReconnects,
	}
}

// RecordLinkStatus sets the link status gauge.
func (c *Metrics) RecordLinkStatus(link string, status int) {
	c.LinkStatus.WithLabelValues(link).Set(float64(status))
}

// RecordBytesReceived adds n transport bytes.
func (c *Metrics) RecordBytesReceived(link, transport string, n int) {
	c.BytesReceived.WithLabelValues(link, transport).Add(float64(n))
}

// RecordReadError counts a transport read error.
func (c *Metrics) RecordReadError(link, transport string) {
	c.ReadErrors.WithLabelValues(link, transport).Inc()
}

// RecordFrameRelayed counts a published frame.
func (c *Metrics) RecordFrameRelayed(link, encoding string) {
	c.FramesRelayed.WithLabelValues(link, encoding).Inc()
}

// RecordPublishError counts a frame that could not be published.
func (c *Metrics) RecordPublishError(link string) {
	c.PublishErrors.WithLabelValues(link).Inc()
}

// RecordPublishDuration observes a publish attempt.
func (c *Metrics) RecordPublishDuration(link string, d time.Duration) {
	c.PublishDuration.WithLabelValues(link).Observe(d.Seconds())
}

// RecordError counts an error by class (transient, invalid, fatal).
func (c *Metrics) RecordError(link, class string) {
	c.ErrorsTotal.WithLabelValues(link, class).Inc()
}

// RecordHealthStatus updates health check status
func (c *Metrics) RecordHealthStatus(component string, healthy bool) {
	c.HealthStatus.WithLabelValues(component).Set(boolGauge(healthy))
}

// RecordNATSStatus updates NATS connection status
func (c *Metrics) RecordNATSStatus(connected bool) {
	c.NATSConnected.Set(boolGauge(connected))
}

// RecordNATSRTT updates NATS round-trip time
func (c *Metrics) RecordNATSRTT(rtt time.Duration) {
	c.NATSRTT.Set(float64(rtt.Milliseconds()))
}

// RecordNATSReconnect increments reconnection counter
func (c *Metrics) RecordNATSReconnect() {
	c.NATSReconnects.Inc()
}

func boolGauge(v bool) float64 {
	if v {
		return 1
	}
	return 0
}
