package input

import (
	"context"
	stderrors "errors"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/c360/syncmedia/errors"
	"github.com/c360/syncmedia/health"
	"github.com/c360/syncmedia/metric"
	"github.com/c360/syncmedia/receiver"
)

// Input is a transport feeding a receiver.
type Input interface {
	Start(ctx context.Context) error
	Stop(timeout time.Duration) error
	Health() health.Status
}

// Sender is implemented by inputs that can also write to the device.
type Sender interface {
	Send(ctx context.Context, data []byte) error
}

// Deps holds runtime dependencies shared by all inputs.
type Deps struct {
	Link            string                  // link name used in logs and metric labels
	Sink            receiver.Sink           // where read bytes go
	MetricsRegistry *metric.MetricsRegistry // optional
	Logger          *slog.Logger            // optional
}

// Stats is a snapshot of Feeder counters.
type Stats struct {
	Chunks       int64     `json:"chunks"`
	Bytes        int64     `json:"bytes"`
	Errors       int64     `json:"errors"`
	LastActivity time.Time `json:"last_activity"`
}

// Feeder forwards chunks to a Sink and keeps per-input counters.
type Feeder struct {
	link      string
	transport string
	sink      receiver.Sink
	core      *metric.Metrics
	logger    *slog.Logger
	startTime time.Time

	chunks       atomic.Int64
	bytes        atomic.Int64
	errors       atomic.Int64
	lastActivity atomic.Int64 // unix nanoseconds
	lastErr      atomic.Value // string
}

// NewFeeder creates a feeder for transport ("tcp", "udp", "websocket").
// deps.Sink must be set.
func NewFeeder(transport string, deps Deps) (*Feeder, error) {
	if deps.Sink == nil {
		return nil, errors.WrapInvalid(errors.ErrMissingConfig, transport+"-input", "NewFeeder", "sink check")
	}
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	f := &Feeder{
		link:      deps.Link,
		transport: transport,
		sink:      deps.Sink,
		core:      deps.MetricsRegistry.CoreMetrics(),
		logger:    logger.With("component", transport+"-input", "link", deps.Link),
		startTime: time.Now(),
	}
	f.lastErr.Store("")
	return f, nil
}

// Logger returns the feeder's logger.
func (f *Feeder) Logger() *slog.Logger {
	return f.logger
}

// Status records the link status gauge.
func (f *Feeder) Status(status int) {
	if f.core != nil {
		f.core.RecordLinkStatus(f.link, status)
	}
}

// Feed appends data to the sink. The sink copies, so data may be reused.
func (f *Feeder) Feed(data []byte) error {
	if len(data) == 0 {
		return nil
	}
	if err := f.sink.Append(data, 0, len(data)); err != nil {
		return errors.Wrap(err, f.transport+"-input", "Feed", "append to receiver")
	}

	f.chunks.Add(1)
	f.bytes.Add(int64(len(data)))
	f.lastActivity.Store(time.Now().UnixNano())
	if f.core != nil {
		f.core.RecordBytesReceived(f.link, f.transport, len(data))
	}
	return nil
}

// Fault records a read error and reports it to the sink as a transport fault.
func (f *Feeder) Fault(err error, method string) {
	if err == nil {
		return
	}
	f.errors.Add(1)
	f.lastErr.Store(err.Error())
	if f.core != nil {
		f.core.RecordReadError(f.link, f.transport)
		f.core.RecordError(f.link, errors.ErrorFatal.String())
		f.core.RecordLinkStatus(f.link, metric.LinkFaulted)
	}
	f.logger.Error("Read failed", "error", err)
	f.sink.ReportError(errors.WrapFatal(err, f.transport+"-input", method, "read"))
}

// Stats returns a snapshot of the counters.
func (f *Feeder) Stats() Stats {
	s := Stats{
		Chunks: f.chunks.Load(),
		Bytes:  f.bytes.Load(),
		Errors: f.errors.Load(),
	}
	if ns := f.lastActivity.Load(); ns > 0 {
		s.LastActivity = time.Unix(0, ns)
	}
	return s
}

// Health builds a status for the input.
func (f *Feeder) Health(running bool) health.Status {
	name := f.transport + "-input"
	lastErr, _ := f.lastErr.Load().(string)

	var s health.Status
	switch {
	case running:
		s = health.NewHealthy(name, "reading")
	case lastErr != "":
		s = health.NewUnhealthy(name, health.Sanitize(lastErr))
	default:
		s = health.NewUnhealthy(name, "stopped")
	}

	stats := f.Stats()
	return s.WithMetrics(&health.Metrics{
		Uptime:        time.Since(f.startTime),
		ErrorCount:    int(stats.Errors),
		BytesReceived: stats.Bytes,
		LastActivity:  stats.LastActivity,
	})
}

// IsTimeout reports whether err is a network deadline expiry.
func IsTimeout(err error) bool {
	var t interface{ Timeout() bool }
	return stderrors.As(err, &t) && t.Timeout()
}
