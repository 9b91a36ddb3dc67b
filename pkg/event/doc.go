// Package event provides the wake-up primitives shared by a byte producer and
// a blocked consumer.
//
// AutoReset is a single-slot notification: Set remembers at most one pending
// signal and Wait consumes it. A signal raised before the consumer starts
// waiting is never lost. FaultSlot holds the last error reported by the
// producer until it is explicitly cleared. Coordinator bundles both and adds a
// close state so that waiters can be released during shutdown.
//
// Wait timeouts follow one convention everywhere:
//
//	timeout < 0   block until signalled, closed or the context is done
//	timeout == 0  poll the current state without blocking
//	timeout > 0   block for at most timeout
package event
