package receiver

import (
	"encoding/binary"
	"fmt"
	"strings"
	"time"

	"golang.org/x/text/encoding/charmap"

	"github.com/c360/syncmedia/errors"
)

// ResultKind selects how a frame is decoded into a Reply.
type ResultKind int

const (
	// RawBytes returns the frame unchanged.
	RawBytes ResultKind = iota + 1
	// Scalar decodes the first Width bytes as a big-endian integer.
	Scalar
	// Text decodes the frame as ISO-8859-1.
	Text
)

// String returns the config name of the kind.
func (k ResultKind) String() string {
	switch k {
	case RawBytes:
		return "bytes"
	case Scalar:
		return "scalar"
	case Text:
		return "text"
	default:
		return "unknown"
	}
}

// ParseResultKind maps a config name to a ResultKind. Empty means RawBytes.
func ParseResultKind(s string) (ResultKind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "bytes", "raw":
		return RawBytes, nil
	case "scalar", "int", "integer":
		return Scalar, nil
	case "text", "string":
		return Text, nil
	default:
		return 0, fmt.Errorf("%w: unknown result kind %q", errors.ErrInvalidConfig, s)
	}
}

// Request describes one Receive call.
type Request struct {
	// EOP lists candidate terminators in priority order. The first candidate
	// that occurs anywhere in the scanned range wins.
	EOP [][]byte

	// Count is the minimum number of bytes a frame must contain. Without a
	// terminator the frame is exactly Count bytes.
	Count int

	// WaitTime bounds the wait: negative waits forever, zero polls.
	WaitTime time.Duration

	// AllData returns whatever is buffered when the wait time runs out.
	AllData bool

	// Kind defaults to RawBytes.
	Kind ResultKind

	// Width is the scalar size in bytes: 1, 2, 4 or 8.
	Width int

	// Reply accumulates results across calls. Leave it zero for a new reply.
	Reply Reply
}

func (req *Request) kind() ResultKind {
	if req.Kind == 0 {
		return RawBytes
	}
	return req.Kind
}

func (req *Request) validate() error {
	if req == nil {
		return errors.Usage("Receiver", "Receive", "nil request")
	}
	if req.Count < 0 {
		return errors.Usage("Receiver", "Receive", "negative count %d", req.Count)
	}
	if len(req.EOP) == 0 && req.Count == 0 {
		return errors.Usage("Receiver", "Receive", "either eop or count must be set")
	}
	for i, c := range req.EOP {
		if len(c) == 0 {
			return errors.Usage("Receiver", "Receive", "eop candidate %d is empty", i)
		}
	}

	kind := req.kind()
	switch kind {
	case RawBytes, Text:
	case Scalar:
		switch req.Width {
		case 1, 2, 4, 8:
		default:
			return errors.Usage("Receiver", "Receive", "scalar width %d not one of 1, 2, 4, 8", req.Width)
		}
	default:
		return errors.Usage("Receiver", "Receive", "unknown result kind %d", int(req.Kind))
	}

	if !req.Reply.IsZero() {
		if req.Reply.Kind != kind {
			return errors.Usage("Receiver", "Receive", "cannot extend %s reply with %s", req.Reply.Kind, kind)
		}
		if kind == Scalar {
			return errors.Usage("Receiver", "Receive", "scalar reply cannot be extended")
		}
	}
	return nil
}

// shortest returns the length of the shortest candidate, or 0 without any.
func (req *Request) shortest() int {
	n := 0
	for _, c := range req.EOP {
		if n == 0 || len(c) < n {
			n = len(c)
		}
	}
	return n
}

// Reply is the decoded result of one or more Receive calls.
type Reply struct {
	Kind   ResultKind
	Bytes  []byte
	Text   string
	Scalar uint64
	Width  int
}

// IsZero reports whether no result has been stored yet.
func (r Reply) IsZero() bool {
	return r.Kind == 0
}

// Int64 returns Scalar sign-extended from Width bytes.
func (r Reply) Int64() int64 {
	switch r.Width {
	case 1:
		return int64(int8(r.Scalar))
	case 2:
		return int64(int16(r.Scalar))
	case 4:
		return int64(int32(r.Scalar))
	default:
		return int64(r.Scalar)
	}
}

// Payload returns the reply as wire bytes regardless of kind. Text is encoded
// back to ISO-8859-1 and scalars to Width big-endian bytes.
func (r Reply) Payload() []byte {
	switch r.Kind {
	case Text:
		if b, err := charmap.ISO8859_1.NewEncoder().Bytes([]byte(r.Text)); err == nil {
			return b
		}
		return []byte(r.Text)
	case Scalar:
		out := make([]byte, 8)
		binary.BigEndian.PutUint64(out, r.Scalar)
		return out[8-r.Width:]
	default:
		return r.Bytes
	}
}
