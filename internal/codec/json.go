package codec

import "encoding/json"

// JSON implements Codec using the standard library encoding/json.
type JSON struct{}

// Name returns the canonical codec identifier.
func (JSON) Name() string { return "json" }

// Encode serializes value as JSON bytes.
func (c JSON) Encode(value Value) ([]byte, error) {
	data, err := json.Marshal(value)
	if err != nil {
		return nil, wrapEncodeErr(c.Name(), err)
	}
	return data, nil
}

// Decode parses JSON bytes into a Value using Go's standard decoding rules
// (objects become map[string]any, arrays []any, numbers float64).
func (c JSON) Decode(data []byte) (Value, error) {
	var value any
	if err := json.Unmarshal(data, &value); err != nil {
		return nil, wrapDecodeErr(c.Name(), err)
	}
	return value, nil
}
