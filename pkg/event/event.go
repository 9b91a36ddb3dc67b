package event

import (
	"context"
	"sync"
	"time"
)

// AutoReset is an event that clears itself when a waiter observes it.
type AutoReset struct {
	ch chan struct{}
}

// NewAutoReset creates an unset event.
func NewAutoReset() *AutoReset {
	return &AutoReset{ch: make(chan struct{}, 1)}
}

// Set marks the event. Repeated calls before a Wait collapse into one.
func (e *AutoReset) Set() {
	select {
	case e.ch <- struct{}{}:
	default:
	}
}

// Reset drops a pending notification, if any.
func (e *AutoReset) Reset() {
	select {
	case <-e.ch:
	default:
	}
}

// Wait blocks until the event is set, the timeout elapses or ctx is done.
// It reports whether a notification was consumed.
func (e *AutoReset) Wait(ctx context.Context, timeout time.Duration) bool {
	return wait(ctx, e.ch, nil, timeout)
}

func wait(ctx context.Context, ch <-chan struct{}, done <-chan struct{}, timeout time.Duration) bool {
	if timeout == 0 {
		select {
		case <-ch:
			return true
		default:
			return false
		}
	}

	var expired <-chan time.Time
	if timeout > 0 {
		timer := time.NewTimer(timeout)
		defer timer.Stop()
		expired = timer.C
	}

	select {
	case <-ch:
		return true
	case <-expired:
		return false
	case <-ctx.Done():
		return false
	case <-done:
		return false
	}
}

// FaultSlot stores the most recent producer error. It does not clear on read.
type FaultSlot struct {
	mu  sync.Mutex
	err error
}

// Report stores err, replacing any earlier fault. A nil err is ignored.
func (f *FaultSlot) Report(err error) {
	if err == nil {
		return
	}
	f.mu.Lock()
	f.err = err
	f.mu.Unlock()
}

// Err returns the pending fault without clearing it.
func (f *FaultSlot) Err() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.err
}

// Clear removes the pending fault.
func (f *FaultSlot) Clear() {
	f.mu.Lock()
	f.err = nil
	f.mu.Unlock()
}

// Coordinator pairs a data-arrival event with a fault slot.
type Coordinator struct {
	event *AutoReset
	fault FaultSlot

	closeOnce sync.Once
	done      chan struct{}
}

// NewCoordinator creates an open coordinator with no pending signal or fault.
func NewCoordinator() *Coordinator {
	return &Coordinator{
		event: NewAutoReset(),
		done:  make(chan struct{}),
	}
}

// Signal wakes the waiting consumer, or the next one to wait.
func (c *Coordinator) Signal() {
	c.event.Set()
}

// Fail records err and wakes the consumer so it can observe the fault.
func (c *Coordinator) Fail(err error) {
	if err == nil {
		return
	}
	c.fault.Report(err)
	c.event.Set()
}

// Wait blocks per the package timeout convention. It returns true when a
// signal was consumed. Callers distinguish faults, cancellation and close by
// inspecting Err, ctx.Err and Closed afterwards.
func (c *Coordinator) Wait(ctx context.Context, timeout time.Duration) bool {
	return wait(ctx, c.event.ch, c.done, timeout)
}

// Err returns the pending fault, if any.
func (c *Coordinator) Err() error {
	return c.fault.Err()
}

// Clear drops the pending fault and any stale signal.
func (c *Coordinator) Clear() {
	c.fault.Clear()
	c.event.Reset()
}

// Close releases current and future waiters. Safe to call more than once.
func (c *Coordinator) Close() {
	c.closeOnce.Do(func() {
		close(c.done)
	})
}

// Closed reports whether Close has been called.
func (c *Coordinator) Closed() bool {
	select {
	case <-c.done:
		return true
	default:
		return false
	}
}

// Done returns a channel closed by Close.
func (c *Coordinator) Done() <-chan struct{} {
	return c.done
}
