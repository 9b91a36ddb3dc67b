package receiver

import (
	"log/slog"
	"strings"
	"time"
)

// TraceType identifies what a trace event describes.
type TraceType int

const (
	// TraceReceived is emitted for every appended chunk.
	TraceReceived TraceType = iota + 1
	// TraceFrame is emitted for every delivered frame.
	TraceFrame
	// TraceError is emitted when the producer reports a fault.
	TraceError
)

// String returns the trace type name.
func (t TraceType) String() string {
	switch t {
	case TraceReceived:
		return "Received"
	case TraceFrame:
		return "Frame"
	case TraceError:
		return "Error"
	default:
		return "Unknown"
	}
}

// TraceEvent is one traced occurrence. Data is a private copy.
type TraceEvent struct {
	Time time.Time
	Type TraceType
	Data []byte
	Err  error
}

// TraceFunc receives trace events. It is called synchronously from Append,
// ReportError and Receive, so it must not block or call back into the
// Receiver.
type TraceFunc func(TraceEvent)

// DataString renders Data as ASCII or as space separated upper-case hex.
// Error events render the error text.
func (e TraceEvent) DataString(ascii bool) string {
	if e.Err != nil {
		return e.Err.Error()
	}
	if ascii {
		return strings.Map(func(r rune) rune {
			if r < 0x20 || r > 0x7E {
				return '.'
			}
			return r
		}, string(e.Data))
	}
	return hexString(e.Data)
}

// String formats the event as time, type and hex data separated by tabs.
func (e TraceEvent) String() string {
	return e.Time.Format("15:04:05") + "\t" + e.Type.String() + "\t" + e.DataString(false)
}

const hexDigits = "0123456789ABCDEF"

func hexString(data []byte) string {
	if len(data) == 0 {
		return ""
	}
	var b strings.Builder
	b.Grow(len(data) * 3)
	for i, v := range data {
		if i > 0 {
			b.WriteByte(' ')
		}
		b.WriteByte(hexDigits[v>>4])
		b.WriteByte(hexDigits[v&0x0F])
	}
	return b.String()
}

// LogTrace returns a TraceFunc that writes events to logger at debug level.
func LogTrace(logger *slog.Logger) TraceFunc {
	if logger == nil {
		logger = slog.Default()
	}
	return func(e TraceEvent) {
		if e.Type == TraceError {
			logger.Debug("trace", "type", e.Type.String(), "error", e.Err)
			return
		}
		logger.Debug("trace", "type", e.Type.String(), "len", len(e.Data), "hex", e.DataString(false))
	}
}
