package testutil

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"
)

// MockPublisher is an in-memory publisher matching natsclient.Client.Publish.
// Thread-safe for concurrent use from multiple goroutines.
type MockPublisher struct {
	mu       sync.RWMutex
	messages map[string][][]byte
	failures []error
	calls    int
	closed   bool
}

// NewMockPublisher creates a new mock publisher.
func NewMockPublisher() *MockPublisher {
	return &MockPublisher{
		messages: make(map[string][][]byte),
	}
}

// FailNext makes the next len(errs) Publish calls return errs in order.
func (p *MockPublisher) FailNext(errs ...error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.failures = append(p.failures, errs...)
}

// Publish stores a copy of data under subject.
func (p *MockPublisher) Publish(ctx context.Context, subject string, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	p.calls++
	if p.closed {
		return fmt.Errorf("publisher is closed")
	}
	if len(p.failures) > 0 {
		err := p.failures[0]
		p.failures = p.failures[1:]
		return err
	}

	msg := make([]byte, len(data))
	copy(msg, data)
	p.messages[subject] = append(p.messages[subject], msg)
	return nil
}

// Calls returns the number of Publish calls, failed ones included.
func (p *MockPublisher) Calls() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.calls
}

// GetMessages returns all messages for a subject.
func (p *MockPublisher) GetMessages(subject string) [][]byte {
	p.mu.RLock()
	defer p.mu.RUnlock()

	result := make([][]byte, len(p.messages[subject]))
	copy(result, p.messages[subject])
	return result
}

// GetMessageCount returns the number of messages for a subject.
func (p *MockPublisher) GetMessageCount(subject string) int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.messages[subject])
}

// Clear removes all stored messages.
func (p *MockPublisher) Clear() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.messages = make(map[string][][]byte)
}

// Close makes later Publish calls fail.
func (p *MockPublisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed = true
	return nil
}

// IsClosed reports whether Close was called.
func (p *MockPublisher) IsClosed() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.closed
}

// WaitForMessage waits for a message on a subject and returns the latest one.
func WaitForMessage(t *testing.T, pub *MockPublisher, subject string, timeout time.Duration) []byte {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	ticker := time.NewTicker(10 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			t.Fatalf("timeout waiting for message on subject %s", subject)
			return nil
		case <-ticker.C:
			if messages := pub.GetMessages(subject); len(messages) > 0 {
				return messages[len(messages)-1]
			}
		}
	}
}

// WaitForMessageCount waits for at least count messages on a subject.
func WaitForMessageCount(t *testing.T, pub *MockPublisher, subject string, count int, timeout time.Duration) {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	ticker := time.NewTicker(10 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			t.Fatalf("timeout waiting for %d messages on subject %s (got %d)", count, subject, pub.GetMessageCount(subject))
			return
		case <-ticker.C:
			if pub.GetMessageCount(subject) >= count {
				return
			}
		}
	}
}

// AssertNoMessages checks that nothing was published on a subject.
func AssertNoMessages(t *testing.T, pub *MockPublisher, subject string) {
	t.Helper()

	if n := pub.GetMessageCount(subject); n > 0 {
		t.Fatalf("expected no messages on subject %s, got %d", subject, n)
	}
}
