package relay

import (
	"context"
	stderrors "errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/c360/syncmedia/errors"
	"github.com/c360/syncmedia/health"
	"github.com/c360/syncmedia/metric"
	"github.com/c360/syncmedia/pkg/retry"
	"github.com/c360/syncmedia/receiver"
)

// Source is the consumer side of a receiver.
type Source interface {
	Receive(ctx context.Context, req *receiver.Request) (bool, error)
	ResetBuffer()
	Buffered() int
}

// Publisher publishes encoded envelopes. natsclient.Client implements it.
type Publisher interface {
	Publish(ctx context.Context, subject string, data []byte) error
}

// StreamPublisher publishes through JetStream. natsclient.Client implements it.
type StreamPublisher interface {
	EnsureStream(ctx context.Context, name string, subjects ...string) error
	PublishToStream(ctx context.Context, subject string, data []byte) error
}

// Deps holds runtime dependencies for a Relay.
type Deps struct {
	Link            string
	Source          Source
	Publisher       Publisher
	MetricsRegistry *metric.MetricsRegistry // optional
	Logger          *slog.Logger            // optional
}

// Stats is a snapshot of relay counters.
type Stats struct {
	Frames        int64     `json:"frames"`
	Timeouts      int64     `json:"timeouts"`
	Dropped       int64     `json:"dropped"`
	PublishErrors int64     `json:"publish_errors"`
	LastFrame     time.Time `json:"last_frame"`
}

// Relay publishes every frame a Source delivers.
type Relay struct {
	cfg       Config
	link      string
	session   string
	source    Source
	publish   func(ctx context.Context, subject string, data []byte) error
	stream    StreamPublisher
	core      *metric.Metrics
	logger    *slog.Logger
	startTime time.Time

	mu      sync.Mutex
	cancel  context.CancelFunc
	done    chan struct{}
	running atomic.Bool

	seq           atomic.Uint64
	frames        atomic.Int64
	timeouts      atomic.Int64
	dropped       atomic.Int64
	publishErrors atomic.Int64
	lastFrame     atomic.Int64 // unix nanoseconds
	publishFailed atomic.Bool // last publish exhausted its retries

	faultMu sync.RWMutex
	fault   error // error that stopped the loop
}

// New creates a Relay. A new session ID is assigned on every call.
func New(cfg Config, deps Deps) (*Relay, error) {
	if deps.Source == nil || deps.Publisher == nil {
		return nil, errors.WrapInvalid(errors.ErrMissingConfig, "relay", "New", "dependency check")
	}
	cfg.applyDefaults(deps.Link)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	r := &Relay{
		cfg:       cfg,
		link:      deps.Link,
		session:   uuid.NewString(),
		source:    deps.Source,
		publish:   deps.Publisher.Publish,
		core:      deps.MetricsRegistry.CoreMetrics(),
		startTime: time.Now(),
	}
	r.logger = logger.With("component", "relay", "link", deps.Link, "session", r.session)

	if cfg.Stream != "" {
		sp, ok := deps.Publisher.(StreamPublisher)
		if !ok {
			return nil, errors.WrapInvalid(fmt.Errorf("%w: publisher does not support streams", errors.ErrInvalidConfig),
				"relay", "New", "stream publisher check")
		}
		r.stream = sp
		r.publish = sp.PublishToStream
	}
	return r, nil
}

// Session returns the session ID stamped on every envelope.
func (r *Relay) Session() string {
	return r.session
}

// Subject returns the publish subject.
func (r *Relay) Subject() string {
	return r.cfg.Subject
}

// Start launches the consumer loop.
func (r *Relay) Start(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.running.Load() {
		return errors.WrapInvalid(errors.ErrAlreadyStarted, "relay", "Start", "state check")
	}

	if r.stream != nil {
		if err := r.stream.EnsureStream(ctx, r.cfg.Stream, r.cfg.Subject); err != nil {
			return errors.WrapTransient(err, "relay", "Start", "ensure stream "+r.cfg.Stream)
		}
	}

	if r.cancel != nil {
		r.cancel()
	}
	loopCtx, cancel := context.WithCancel(ctx)
	r.cancel = cancel
	r.done = make(chan struct{})
	r.setFault(nil)
	r.running.Store(true)

	go func(done chan struct{}) {
		defer close(done)
		defer r.running.Store(false)
		r.loop(loopCtx)
	}(r.done)

	r.logger.Info("Relay started", "subject", r.cfg.Subject, "encoding", r.cfg.Encoding, "stream", r.cfg.Stream)
	return nil
}

// Stop cancels the loop and waits for it to exit.
func (r *Relay) Stop(timeout time.Duration) error {
	r.mu.Lock()
	cancel, done := r.cancel, r.done
	r.cancel = nil
	r.mu.Unlock()

	if cancel == nil {
		return nil
	}
	cancel()

	select {
	case <-done:
		r.logger.Info("Relay stopped", "frames", r.frames.Load())
		return nil
	case <-time.After(timeout):
		return errors.WrapTransient(fmt.Errorf("stop timeout after %v", timeout), "relay", "Stop", "graceful shutdown")
	}
}

// Done is closed when the loop exits, either on Stop or on a fault.
func (r *Relay) Done() <-chan struct{} {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.done
}

// Err returns the error that stopped the loop, if any.
func (r *Relay) Err() error {
	r.faultMu.RLock()
	defer r.faultMu.RUnlock()
	return r.fault
}

func (r *Relay) setFault(err error) {
	r.faultMu.Lock()
	r.fault = err
	r.faultMu.Unlock()
}

func (r *Relay) loop(ctx context.Context) {
	for {
		req := r.cfg.Framing.request()
		ok, err := r.source.Receive(ctx, req)
		if ctx.Err() != nil {
			return
		}
		if err != nil {
			if r.handleReceiveError(err) {
				continue
			}
			return
		}
		if !ok || empty(req.Reply) {
			r.timeouts.Add(1)
			continue
		}
		r.relay(ctx, req.Reply)
	}
}

// handleReceiveError reports whether the loop may continue.
func (r *Relay) handleReceiveError(err error) bool {
	if r.core != nil {
		r.core.RecordError(r.link, errors.Classify(err).String())
	}

	if stderrors.Is(err, errors.ErrDecode) {
		r.dropped.Add(1)
		r.logger.Warn("Dropping undecodable frame", "error", err, "buffered", r.source.Buffered())
		r.source.ResetBuffer()
		return true
	}

	r.setFault(err)
	if r.core != nil {
		r.core.RecordLinkStatus(r.link, metric.LinkFaulted)
	}
	r.logger.Error("Relay stopped by receive error", "error", err)
	return false
}

// empty reports an all_data reply taken from an empty buffer.
func empty(reply receiver.Reply) bool {
	switch reply.Kind {
	case receiver.Text:
		return reply.Text == ""
	case receiver.Scalar:
		return false
	default:
		return len(reply.Bytes) == 0
	}
}

func (r *Relay) relay(ctx context.Context, reply receiver.Reply) {
	env := Envelope{
		Session:   r.session,
		Link:      r.link,
		Seq:       r.seq.Add(1),
		Timestamp: time.Now().UTC(),
		Kind:      reply.Kind.String(),
		Payload:   reply.Payload(),
	}
	switch reply.Kind {
	case receiver.Text:
		env.Text = reply.Text
	case receiver.Scalar:
		v := reply.Int64()
		env.Scalar = &v
	}

	data, err := r.cfg.Encoding.Encode(env)
	if err != nil {
		r.dropped.Add(1)
		r.logger.Error("Failed to encode envelope", "seq", env.Seq, "error", err)
		return
	}

	start := time.Now()
	err = retry.Do(ctx, r.cfg.Retry, func() error {
		return r.publish(ctx, r.cfg.Subject, data)
	})
	if r.core != nil {
		r.core.RecordPublishDuration(r.link, time.Since(start))
	}
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		r.publishFailed.Store(true)
		r.publishErrors.Add(1)
		if r.core != nil {
			r.core.RecordPublishError(r.link)
		}
		r.logger.Error("Failed to publish frame", "seq", env.Seq, "subject", r.cfg.Subject, "error", err)
		return
	}

	r.publishFailed.Store(false)
	r.frames.Add(1)
	r.lastFrame.Store(time.Now().UnixNano())
	if r.core != nil {
		r.core.RecordFrameRelayed(r.link, string(r.cfg.Encoding))
	}
}

// Stats returns a snapshot of the counters.
func (r *Relay) Stats() Stats {
	s := Stats{
		Frames:        r.frames.Load(),
		Timeouts:      r.timeouts.Load(),
		Dropped:       r.dropped.Load(),
		PublishErrors: r.publishErrors.Load(),
	}
	if ns := r.lastFrame.Load(); ns > 0 {
		s.LastFrame = time.Unix(0, ns)
	}
	return s
}

// Health reports the relay state. A stopped loop is unhealthy. A running loop
// whose last publish failed is degraded.
func (r *Relay) Health() health.Status {
	var s health.Status
	switch {
	case r.Err() != nil:
		s = health.FromError("relay", r.Err())
	case !r.running.Load():
		s = health.NewUnhealthy("relay", "stopped")
	case r.publishFailed.Load():
		s = health.NewDegraded("relay", "publish failing")
	default:
		s = health.NewHealthy("relay", "relaying to "+r.cfg.Subject)
	}

	stats := r.Stats()
	return s.WithMetrics(&health.Metrics{
		Uptime:        time.Since(r.startTime),
		ErrorCount:    int(stats.PublishErrors + stats.Dropped),
		FramesRelayed: stats.Frames,
		BufferedBytes: int64(r.source.Buffered()),
		LastActivity:  stats.LastFrame,
	})
}
