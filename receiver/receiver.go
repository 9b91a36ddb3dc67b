package receiver

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/c360/syncmedia/errors"
	"github.com/c360/syncmedia/pkg/buffer"
	"github.com/c360/syncmedia/pkg/event"
)

// Sink is the producer side of a Receiver. Transports call it from their read
// loop.
type Sink interface {
	// Append copies data[index:index+count] into the receive buffer and wakes
	// the consumer.
	Append(data []byte, index, count int) error
	// ResetBuffer discards buffered bytes and any pending fault.
	ResetBuffer()
	// ReportError records a transport fault and wakes the consumer.
	ReportError(err error)
}

// Receiver frames bytes pushed by one producer for one consumer.
type Receiver struct {
	// mu guards acc. It is never held while waiting.
	mu  sync.Mutex
	acc *buffer.Accumulator

	coord   *event.Coordinator
	logger  *slog.Logger
	trace   TraceFunc
	metrics *receiverMetrics
}

var _ Sink = (*Receiver)(nil)

// New creates a Receiver.
func New(opts ...Option) (*Receiver, error) {
	o := &options{}
	for _, opt := range opts {
		if opt != nil {
			opt(o)
		}
	}
	if o.logger == nil {
		o.logger = slog.Default()
	}

	var metrics *receiverMetrics
	bufferOpts := o.bufferOpts
	if o.metricsReg != nil {
		var err error
		metrics, err = newReceiverMetrics(o.metricsReg, o.metricsPrefix)
		if err != nil {
			return nil, errors.WrapTransient(err, "Receiver", "New", "metrics registration")
		}
		bufferOpts = append(bufferOpts, buffer.WithMetrics(o.metricsReg, o.metricsPrefix))
	}

	acc, err := buffer.NewAccumulator(bufferOpts...)
	if err != nil {
		return nil, errors.Wrap(err, "Receiver", "New", "buffer creation")
	}

	return &Receiver{
		acc:     acc,
		coord:   event.NewCoordinator(),
		logger:  o.logger.With("component", "receiver"),
		trace:   o.trace,
		metrics: metrics,
	}, nil
}

func closedError(method string) error {
	return errors.WrapFatal(errors.ErrAlreadyStopped, "Receiver", method, "closed check")
}

// Append implements Sink.
func (r *Receiver) Append(data []byte, index, count int) error {
	if r.coord.Closed() {
		return closedError("Append")
	}

	r.mu.Lock()
	err := r.acc.Append(data, index, count)
	r.mu.Unlock()
	if err != nil {
		return errors.Wrap(err, "Receiver", "Append", "buffer append")
	}
	if count == 0 {
		return nil
	}

	if r.trace != nil {
		chunk := make([]byte, count)
		copy(chunk, data[index:index+count])
		r.trace(TraceEvent{Time: time.Now(), Type: TraceReceived, Data: chunk})
	}
	r.coord.Signal()
	return nil
}

// ResetBuffer implements Sink. It also clears a pending fault.
func (r *Receiver) ResetBuffer() {
	r.mu.Lock()
	r.acc.Reset()
	r.mu.Unlock()
	r.coord.Clear()
}

// ReportError implements Sink. The fault is returned by every Receive until
// ClearError or ResetBuffer.
func (r *Receiver) ReportError(err error) {
	if err == nil {
		return
	}
	fault := errors.TransportFault(err, "Receiver", "ReportError")
	r.logger.Warn("Transport fault reported", "error", err)
	r.metrics.fault()
	if r.trace != nil {
		r.trace(TraceEvent{Time: time.Now(), Type: TraceError, Err: fault})
	}
	r.coord.Fail(fault)
}

// ClearError drops a pending transport fault while keeping buffered bytes.
func (r *Receiver) ClearError() {
	r.coord.Clear()
}

// Err returns the pending transport fault, if any.
func (r *Receiver) Err() error {
	return r.coord.Err()
}

// Receive waits for a frame described by req. It returns true when a frame
// was delivered into req.Reply, and false with a nil error on timeout.
func (r *Receiver) Receive(ctx context.Context, req *Request) (bool, error) {
	if err := req.validate(); err != nil {
		return false, err
	}
	if r.coord.Closed() {
		return false, closedError("Receive")
	}

	start := time.Now()
	defer r.metrics.observe(start)

	var deadline time.Time
	if req.WaitTime > 0 {
		deadline = start.Add(req.WaitTime)
	}

	out, err := r.detect(ctx, req, deadline)
	if err != nil {
		return false, err
	}
	if !out.found {
		r.metrics.timeout()
		return false, nil
	}
	return r.deliver(req, out.end)
}

// deliver decodes and drains the first end bytes.
func (r *Receiver) deliver(req *Request, end int) (bool, error) {
	r.mu.Lock()
	if end > r.acc.Size() {
		// The producer reset the buffer after detection.
		end = r.acc.Size()
	}
	if end == 0 {
		r.mu.Unlock()
		req.Reply = emptyReply(req)
		return true, nil
	}

	reply, err := assemble(r.acc.Window()[:end], req)
	if err != nil {
		// The frame stays buffered; rescan it from the start next time.
		r.acc.SetLastScan(0)
		r.mu.Unlock()
		r.metrics.decodeError()
		return false, err
	}
	frame := r.acc.Drain(end)
	r.mu.Unlock()

	req.Reply = reply
	r.metrics.frame()
	if r.trace != nil {
		r.trace(TraceEvent{Time: time.Now(), Type: TraceFrame, Data: frame})
	}
	return true, nil
}

// Received returns a copy of the bytes not yet consumed.
func (r *Receiver) Received() []byte {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.acc.Bytes()
}

// Buffered returns the number of bytes not yet consumed.
func (r *Receiver) Buffered() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.acc.Size()
}

// ResetScan forgets how far previous scans progressed. Use it when switching
// terminators while bytes are still buffered.
func (r *Receiver) ResetScan() {
	r.mu.Lock()
	r.acc.SetLastScan(0)
	r.mu.Unlock()
}

// Stats returns a snapshot of buffer statistics.
func (r *Receiver) Stats() buffer.StatsSummary {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.acc.Stats().Summary()
}

// Close releases a blocked Receive. Later calls fail with ErrAlreadyStopped.
func (r *Receiver) Close() {
	r.coord.Close()
}
