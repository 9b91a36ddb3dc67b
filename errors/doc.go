// Package errors classifies failures on the receive path.
//
// # Classes
//
//   - Transient: timeouts, lost connections, cancelled contexts. Retry is reasonable.
//   - Invalid: malformed receive requests, undecodable frames, bad configuration input.
//   - Fatal: transport faults and corrupted state. Stop and surface to the operator.
//
// # Receive path errors
//
// A blocking receive distinguishes four outcomes. A timeout is not an error at
// all: Receive returns false with a nil error. The remaining three are errors:
//
//	ok, err := r.Receive(ctx, req)
//	switch {
//	case errors.Is(err, errors.ErrUsage):          // caller bug, fix the request
//	case errors.Is(err, errors.ErrTransportFault): // producer reported a fault
//	case errors.Is(err, errors.ErrDecode):         // frame could not be decoded
//	case !ok:                                      // timed out, try again
//	}
//
// # Wrapping
//
// All wrapping follows "component.method: action failed: %w":
//
//	errors.WrapTransient(err, "tcp-input", "Start", "dial")
//	errors.WrapInvalid(err, "Config", "Validate", "eop parsing")
//	errors.WrapFatal(err, "udp-input", "readLoop", "socket read")
//
// ClassifiedError implements Unwrap, so errors.Is and errors.As see through
// every layer.
package errors
