package testutil

import "errors"

// MockError is a generic error for testing error paths.
type MockError struct {
	Message string
	Code    string
}

func (e *MockError) Error() string {
	return e.Message
}

// NewMockError creates a new mock error.
func NewMockError(message, code string) error {
	return &MockError{
		Message: message,
		Code:    code,
	}
}

// Common test errors
var (
	ErrMockFailed     = errors.New("mock operation failed")
	ErrMockTimeout    = errors.New("mock operation timed out")
	ErrMockConnection = errors.New("mock connection error")
)

// timeoutError satisfies net.Error style Timeout checks.
type timeoutError struct{}

func (timeoutError) Error() string   { return "i/o timeout" }
func (timeoutError) Timeout() bool   { return true }
func (timeoutError) Temporary() bool { return true }

// ErrMockDeadline reports Timeout() == true like a socket read deadline.
var ErrMockDeadline error = timeoutError{}
