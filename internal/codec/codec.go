// Package codec provides symmetric byte<->value encoders for the Gibberlink
// wire format: JSON, MessagePack, and CBOR, plus an optional compression
// wrapper. All three round-trip the JSON value model (null, bool, integer,
// float, string, array, object); MessagePack and CBOR additionally preserve
// raw byte strings.
package codec

import "github.com/tphakala/gibberlink-gateway/internal/xerrors"

// Value is the decoded representation of a payload: a nil, bool, float64,
// int64, string, []byte, []Value, or map[string]Value, matching what the
// JSON codec naturally produces so all three codecs interoperate.
type Value = any

// Codec converts between a Value and its wire-format bytes.
type Codec interface {
	// Name is the stable canonical identifier used in negotiation and
	// in Message.metadata.codec ("msgpack", "cbor", "json", or a
	// compression-suffixed name such as "jsonzstd").
	Name() string

	// Encode serializes value to bytes.
	Encode(value Value) ([]byte, error)

	// Decode parses bytes back into a Value.
	Decode(data []byte) (Value, error)
}

// ByName returns the built-in codec registered under name, or false if
// name does not match one of "json", "msgpack", "cbor".
func ByName(name string) (Codec, bool) {
	switch name {
	case "json":
		return JSON{}, true
	case "msgpack":
		return MsgPack{}, true
	case "cbor":
		return CBOR{}, true
	default:
		return nil, false
	}
}

func wrapEncodeErr(codecName string, err error) error {
	return xerrors.New(err).Component("codec").Category(xerrors.CategoryCodec).
		Context("codec", codecName).Context("op", "encode").Build()
}

func wrapDecodeErr(codecName string, err error) error {
	return xerrors.New(err).Component("codec").Category(xerrors.CategoryCodec).
		Context("codec", codecName).Context("op", "decode").Build()
}
