package codec

import "github.com/vmihailenco/msgpack/v5"

// MsgPack implements Codec using MessagePack, preserving raw byte strings
// (`[]byte`) distinctly from text strings.
type MsgPack struct{}

// Name returns the canonical codec identifier.
func (MsgPack) Name() string { return "msgpack" }

// Encode serializes value as MessagePack bytes.
func (c MsgPack) Encode(value Value) ([]byte, error) {
	data, err := msgpack.Marshal(value)
	if err != nil {
		return nil, wrapEncodeErr(c.Name(), err)
	}
	return data, nil
}

// Decode parses MessagePack bytes into a Value.
func (c MsgPack) Decode(data []byte) (Value, error) {
	var value any
	if err := msgpack.Unmarshal(data, &value); err != nil {
		return nil, wrapDecodeErr(c.Name(), err)
	}
	return normalizeMsgpackMaps(value), nil
}

// normalizeMsgpackMaps recursively converts map[string]any produced by
// msgpack (it already decodes into that shape) while leaving []byte values
// untouched, so the output matches the JSON codec's value model.
func normalizeMsgpackMaps(value any) any {
	switch v := value.(type) {
	case map[string]any:
		for key, inner := range v {
			v[key] = normalizeMsgpackMaps(inner)
		}
		return v
	case []any:
		for i, inner := range v {
			v[i] = normalizeMsgpackMaps(inner)
		}
		return v
	default:
		return v
	}
}
