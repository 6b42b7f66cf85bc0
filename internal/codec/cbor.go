package codec

import (
	"reflect"

	"github.com/fxamacker/cbor/v2"
)

// CBOR implements Codec using the Concise Binary Object Representation,
// preserving raw byte strings distinctly from text strings.
type CBOR struct{}

// Name returns the canonical codec identifier.
func (CBOR) Name() string { return "cbor" }

// Encode serializes value as CBOR bytes.
func (c CBOR) Encode(value Value) ([]byte, error) {
	data, err := cbor.Marshal(value)
	if err != nil {
		return nil, wrapEncodeErr(c.Name(), err)
	}
	return data, nil
}

// cborDecMode forces string-keyed maps (map[string]any) instead of the
// library's default map[any]any, so the result matches the JSON/MessagePack
// value model.
var cborDecMode, _ = cbor.DecOptions{
	DefaultMapType: reflect.TypeOf(map[string]any{}),
}.DecMode()

// Decode parses CBOR bytes into a Value.
func (c CBOR) Decode(data []byte) (Value, error) {
	mode := cborDecMode
	var value any
	if err := mode.Unmarshal(data, &value); err != nil {
		return nil, wrapDecodeErr(c.Name(), err)
	}
	return value, nil
}
