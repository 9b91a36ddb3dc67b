package errors

import (
	"context"
	"errors"
	"fmt"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrorClass_String(t *testing.T) {
	tests := []struct {
		class    ErrorClass
		expected string
	}{
		{ErrorTransient, "transient"},
		{ErrorInvalid, "invalid"},
		{ErrorFatal, "fatal"},
		{ErrorClass(999), "unknown"},
	}

	for _, test := range tests {
		t.Run(test.expected, func(t *testing.T) {
			assert.Equal(t, test.expected, test.class.String())
		})
	}
}

func TestIsTransient(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected bool
	}{
		{"nil error", nil, false},
		{"connection timeout", ErrConnectionTimeout, true},
		{"connection lost", ErrConnectionLost, true},
		{"context deadline exceeded", context.DeadlineExceeded, true},
		{"context canceled", context.Canceled, true},
		{"usage", ErrUsage, false},
		{"transport fault", ErrTransportFault, false},
		{"timeout in message", fmt.Errorf("i/o timeout"), true},
		{"classified transient", &ClassifiedError{Class: ErrorTransient, Err: fmt.Errorf("x")}, true},
		{"classified fatal", &ClassifiedError{Class: ErrorFatal, Err: fmt.Errorf("timeout")}, false},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			assert.Equal(t, test.expected, IsTransient(test.err))
		})
	}
}

func TestIsFatal(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected bool
	}{
		{"nil error", nil, false},
		{"transport fault", ErrTransportFault, true},
		{"invalid config", ErrInvalidConfig, true},
		{"closed conn message", fmt.Errorf("read tcp: use of closed network connection"), true},
		{"decode", ErrDecode, false},
		{"classified fatal", &ClassifiedError{Class: ErrorFatal, Err: fmt.Errorf("x")}, true},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			assert.Equal(t, test.expected, IsFatal(test.err))
		})
	}
}

func TestIsInvalid(t *testing.T) {
	assert.True(t, IsInvalid(ErrUsage))
	assert.True(t, IsInvalid(ErrDecode))
	assert.True(t, IsInvalid(fmt.Errorf("wrapped: %w", ErrBufferRange)))
	assert.False(t, IsInvalid(ErrConnectionLost))
	assert.False(t, IsInvalid(nil))
}

func TestClassify(t *testing.T) {
	assert.Equal(t, ErrorFatal, Classify(ErrTransportFault))
	assert.Equal(t, ErrorInvalid, Classify(ErrDecode))
	assert.Equal(t, ErrorTransient, Classify(ErrConnectionTimeout))
	assert.Equal(t, ErrorTransient, Classify(errors.New("something odd")))
}

func TestWrap(t *testing.T) {
	base := errors.New("boom")

	err := Wrap(base, "Receiver", "Receive", "frame detection")
	require.Error(t, err)
	assert.Equal(t, "Receiver.Receive: frame detection failed: boom", err.Error())
	assert.ErrorIs(t, err, base)

	assert.NoError(t, Wrap(nil, "a", "b", "c"))
	assert.NoError(t, WrapTransient(nil, "a", "b", "c"))
	assert.NoError(t, WrapInvalid(nil, "a", "b", "c"))
	assert.NoError(t, WrapFatal(nil, "a", "b", "c"))
}

func TestWrapClassification(t *testing.T) {
	base := errors.New("boom")

	var ce *ClassifiedError
	require.ErrorAs(t, WrapFatal(base, "c", "m", "a"), &ce)
	assert.Equal(t, ErrorFatal, ce.Class)
	assert.Equal(t, "c", ce.Component)
	assert.Equal(t, "m", ce.Operation)

	assert.True(t, IsTransient(WrapTransient(base, "c", "m", "a")))
	assert.True(t, IsInvalid(WrapInvalid(base, "c", "m", "a")))
}

func TestUsage(t *testing.T) {
	err := Usage("Receiver", "Receive", "count %d is negative", -1)
	assert.ErrorIs(t, err, ErrUsage)
	assert.True(t, IsInvalid(err))
	assert.Contains(t, err.Error(), "count -1 is negative")
}

func TestTransportFault(t *testing.T) {
	err := TransportFault(io.ErrUnexpectedEOF, "tcp-input", "readLoop")
	assert.ErrorIs(t, err, ErrTransportFault)
	assert.ErrorIs(t, err, io.ErrUnexpectedEOF)
	assert.True(t, IsFatal(err))

	assert.Same(t, err, TransportFault(err, "other", "op"), "already a fault, must not double wrap")
	assert.NoError(t, TransportFault(nil, "c", "m"))
}

func TestRetryConfig_ShouldRetry(t *testing.T) {
	rc := DefaultRetryConfig()

	assert.True(t, rc.ShouldRetry(ErrConnectionTimeout, 0))
	assert.False(t, rc.ShouldRetry(ErrConnectionTimeout, rc.MaxRetries))
	assert.False(t, rc.ShouldRetry(ErrUsage, 0))
	assert.False(t, rc.ShouldRetry(nil, 0))

	rc.RetryableErrors = []error{ErrConnectionLost}
	assert.False(t, rc.ShouldRetry(ErrConnectionTimeout, 0))
	assert.True(t, rc.ShouldRetry(ErrConnectionLost, 0))
}

func TestRetryConfig_ToRetryConfig(t *testing.T) {
	rc := RetryConfig{MaxRetries: 2, InitialDelay: time.Millisecond, MaxDelay: time.Second, BackoffFactor: 3}
	cfg := rc.ToRetryConfig()

	assert.Equal(t, 3, cfg.MaxAttempts)
	assert.Equal(t, time.Millisecond, cfg.InitialDelay)
	assert.Equal(t, 3.0, cfg.Multiplier)
	require.NotNil(t, cfg.Retryable)
	assert.False(t, cfg.Retryable(ErrTransportFault))
	assert.False(t, cfg.Retryable(ErrUsage))
	assert.True(t, cfg.Retryable(ErrConnectionLost))
}
