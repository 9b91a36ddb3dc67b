package testutil

import (
	"context"
	"sync"
	"testing"
	"time"
)

// RecordingSink records what a transport delivers. It satisfies receiver.Sink.
type RecordingSink struct {
	mu     sync.Mutex
	data   []byte
	chunks int
	resets int
	errs   []error

	AppendErr error // returned by Append when set
}

// NewRecordingSink creates an empty sink.
func NewRecordingSink() *RecordingSink {
	return &RecordingSink{}
}

// Append copies data[index:index+count].
func (s *RecordingSink) Append(data []byte, index, count int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.AppendErr != nil {
		return s.AppendErr
	}
	s.data = append(s.data, data[index:index+count]...)
	s.chunks++
	return nil
}

// ResetBuffer discards recorded bytes and faults.
func (s *RecordingSink) ResetBuffer() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.data = nil
	s.errs = nil
	s.resets++
}

// ReportError records a fault.
func (s *RecordingSink) ReportError(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.errs = append(s.errs, err)
}

// Bytes returns a copy of everything appended.
func (s *RecordingSink) Bytes() []byte {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]byte, len(s.data))
	copy(out, s.data)
	return out
}

// Chunks returns the number of Append calls that succeeded.
func (s *RecordingSink) Chunks() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.chunks
}

// Resets returns the number of ResetBuffer calls.
func (s *RecordingSink) Resets() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.resets
}

// Errors returns the reported faults.
func (s *RecordingSink) Errors() []error {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]error, len(s.errs))
	copy(out, s.errs)
	return out
}

// WaitForBytes waits until the sink holds at least n bytes and returns them.
func WaitForBytes(t *testing.T, s *RecordingSink, n int, timeout time.Duration) []byte {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	ticker := time.NewTicker(5 * time.Millisecond)
	defer ticker.Stop()

	for {
		if data := s.Bytes(); len(data) >= n {
			return data
		}
		select {
		case <-ctx.Done():
			t.Fatalf("timeout waiting for %d bytes (got %d)", n, len(s.Bytes()))
			return nil
		case <-ticker.C:
		}
	}
}

// WaitForError waits until the sink has a reported fault and returns it.
func WaitForError(t *testing.T, s *RecordingSink, timeout time.Duration) error {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	ticker := time.NewTicker(5 * time.Millisecond)
	defer ticker.Stop()

	for {
		if errs := s.Errors(); len(errs) > 0 {
			return errs[0]
		}
		select {
		case <-ctx.Done():
			t.Fatalf("timeout waiting for a reported fault")
			return nil
		case <-ticker.C:
		}
	}
}
