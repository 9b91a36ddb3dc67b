// Package buffer holds the byte accumulator that sits between a transport's
// delivery path and a blocking receive call.
//
// # Overview
//
// An Accumulator is an append-at-the-tail, drain-from-the-front byte store.
// Valid bytes always occupy Window()[0:Size()]; spare capacity exists only so
// that appends amortize, and grows by doubling.
//
//	acc, err := buffer.NewAccumulator(buffer.WithInitialCapacity(512))
//	if err != nil {
//		return err
//	}
//	_ = acc.Append(chunk, 0, len(chunk))
//	frame := acc.Drain(12) // copy of the first 12 bytes, remainder shifted down
//
// # Locking
//
// The Accumulator is not safe for concurrent use on its own. The receive path
// needs one exclusion zone that covers appends, scans and drains together, so
// the owner (receiver.Receiver) holds a single mutex around every call.
//
// # Scan position
//
// LastScan records how far a previous terminator scan progressed, letting the
// next scan skip bytes it has already examined. It returns to 0 whenever bytes
// are drained or the buffer is reset.
//
// # Observability
//
// Statistics are always collected. Prometheus metrics are optional:
//
//	acc, _ := buffer.NewAccumulator(buffer.WithMetrics(registry, "meter_link"))
package buffer
