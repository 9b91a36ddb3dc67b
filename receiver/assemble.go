package receiver

import (
	"fmt"

	"golang.org/x/text/encoding/charmap"

	"github.com/c360/syncmedia/errors"
)

// assemble decodes frame into req's kind and merges it with req.Reply.
// The request has already been validated.
func assemble(frame []byte, req *Request) (Reply, error) {
	kind := req.kind()
	prior := req.Reply

	switch kind {
	case Scalar:
		if len(frame) < req.Width {
			return Reply{}, errors.WrapInvalid(
				fmt.Errorf("%w: %d byte frame for %d byte scalar", errors.ErrDecode, len(frame), req.Width),
				"Receiver", "assemble", "scalar decode")
		}
		var v uint64
		for _, b := range frame[:req.Width] {
			v = v<<8 | uint64(b)
		}
		return Reply{Kind: Scalar, Scalar: v, Width: req.Width}, nil

	case Text:
		decoded, err := charmap.ISO8859_1.NewDecoder().Bytes(frame)
		if err != nil {
			return Reply{}, errors.WrapInvalid(
				fmt.Errorf("%w: %w", errors.ErrDecode, err),
				"Receiver", "assemble", "text decode")
		}
		return Reply{Kind: Text, Text: prior.Text + string(decoded)}, nil

	default:
		out := make([]byte, 0, len(prior.Bytes)+len(frame))
		out = append(out, prior.Bytes...)
		out = append(out, frame...)
		return Reply{Kind: RawBytes, Bytes: out}, nil
	}
}

// emptyReply is the result of a zero-length frame: the prior reply, or an
// empty one of the requested kind.
func emptyReply(req *Request) Reply {
	if !req.Reply.IsZero() {
		return req.Reply
	}
	r := Reply{Kind: req.kind()}
	switch r.Kind {
	case RawBytes:
		r.Bytes = []byte{}
	case Scalar:
		r.Width = req.Width
	}
	return r
}
