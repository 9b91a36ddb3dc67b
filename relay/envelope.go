package relay

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/c360/syncmedia/errors"
)

// Encoding selects the envelope wire format.
type Encoding string

// Supported encodings.
const (
	EncodingJSON    Encoding = "json"
	EncodingMsgpack Encoding = "msgpack"
)

// ParseEncoding parses an encoding name. Empty means JSON.
func ParseEncoding(s string) (Encoding, error) {
	switch Encoding(s) {
	case "", EncodingJSON:
		return EncodingJSON, nil
	case EncodingMsgpack:
		return EncodingMsgpack, nil
	default:
		return "", errors.WrapInvalid(fmt.Errorf("unknown encoding %q", s), "relay", "ParseEncoding", "encoding lookup")
	}
}

// Envelope is the published form of one frame.
type Envelope struct {
	Session   string    `json:"session"   msgpack:"session"`
	Link      string    `json:"link"      msgpack:"link"`
	Seq       uint64    `json:"seq"       msgpack:"seq"`
	Timestamp time.Time `json:"timestamp" msgpack:"ts"`
	Kind      string    `json:"kind"      msgpack:"kind"`
	Payload   []byte    `json:"payload"   msgpack:"payload"`
	Text      string    `json:"text,omitempty"   msgpack:"text,omitempty"`
	Scalar    *int64    `json:"scalar,omitempty" msgpack:"scalar,omitempty"`
}

// Encode marshals env.
func (e Encoding) Encode(env Envelope) ([]byte, error) {
	var (
		data []byte
		err  error
	)
	switch e {
	case EncodingMsgpack:
		data, err = msgpack.Marshal(&env)
	default:
		data, err = json.Marshal(env)
	}
	if err != nil {
		return nil, errors.WrapInvalid(err, "relay", "Encode", string(e)+" marshal")
	}
	return data, nil
}

// Decode unmarshals data produced by Encode.
func (e Encoding) Decode(data []byte) (Envelope, error) {
	var (
		env Envelope
		err error
	)
	switch e {
	case EncodingMsgpack:
		err = msgpack.Unmarshal(data, &env)
	default:
		err = json.Unmarshal(data, &env)
	}
	if err != nil {
		return Envelope{}, errors.WrapInvalid(err, "relay", "Decode", string(e)+" unmarshal")
	}
	return env, nil
}
