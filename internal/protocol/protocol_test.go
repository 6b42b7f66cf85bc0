package protocol

import (
	"reflect"
	"testing"

	"github.com/tphakala/gibberlink-gateway/internal/codec"
	"github.com/tphakala/gibberlink-gateway/internal/fec"
	"github.com/tphakala/gibberlink-gateway/internal/framer"
)

func TestEncodeDecodeRoundTripSingleFrame(t *testing.T) {
	p := NewProcessor(codec.JSON{}, fec.NoOp{}, framer.DefaultOptions())
	msgID := [4]byte{1, 2, 3, 4}
	value := map[string]any{"hello": "world"}

	frames, err := p.Encode(msgID, value)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	if len(frames) != 1 {
		t.Fatalf("expected a single frame, got %d", len(frames))
	}

	decoded, ok, err := p.Decode(frames[0])
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if !ok {
		t.Fatalf("expected Decode to complete on a single frame")
	}
	if decoded.MsgID != msgID {
		t.Fatalf("MsgID = %v, want %v", decoded.MsgID, msgID)
	}
	if !reflect.DeepEqual(decoded.Value, map[string]any{"hello": "world"}) {
		t.Fatalf("Value = %#v, want %#v", decoded.Value, value)
	}
}

func TestDecodeChunkedMessageCompletesOnLastChunk(t *testing.T) {
	opts := framer.Options{MaxFrameSize: 40, EnableChunking: true}
	p := NewProcessor(codec.JSON{}, fec.NoOp{}, opts)
	msgID := [4]byte{9, 9, 9, 9}
	value := map[string]any{"text": "this payload is long enough to require chunking across multiple wire frames"}

	frames, err := p.Encode(msgID, value)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	if len(frames) < 2 {
		t.Fatalf("expected a chunked message, got %d frame(s)", len(frames))
	}

	var lastDecoded Decoded
	var completed bool
	for i, frame := range frames {
		decoded, ok, err := p.Decode(frame)
		if err != nil {
			t.Fatalf("Decode chunk %d: %v", i, err)
		}
		if ok {
			completed = true
			lastDecoded = decoded
		}
	}
	if !completed {
		t.Fatalf("expected the final chunk to complete reassembly")
	}
	if lastDecoded.MsgID != msgID {
		t.Fatalf("MsgID = %v, want %v", lastDecoded.MsgID, msgID)
	}
}

func TestDecodeRejectsChunkedMessageWithBitFlipInInteriorChunk(t *testing.T) {
	opts := framer.Options{MaxFrameSize: 40, EnableChunking: true}
	p := NewProcessor(codec.JSON{}, fec.NoOp{}, opts)
	msgID := [4]byte{7, 7, 7, 7}
	value := map[string]any{"text": "this payload is long enough to require chunking across multiple wire frames"}

	frames, err := p.Encode(msgID, value)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	if len(frames) < 2 {
		t.Fatalf("expected a chunked message, got %d frame(s)", len(frames))
	}

	// Flip a bit inside the first chunk's payload region (after the fixed
	// header+msgId, before the trailing chunk header+CRC), leaving framer's
	// own per-chunk parse (magic/version/length) intact so the corruption
	// is only caught by the reassembled-message CRC check.
	corruptIdx := len(frames[0]) - 6
	frames[0][corruptIdx] ^= 0xFF

	var lastErr error
	var completed bool
	for _, frame := range frames {
		_, ok, err := p.Decode(frame)
		if err != nil {
			lastErr = err
		}
		if ok {
			completed = true
		}
	}
	if completed {
		t.Fatalf("expected reassembly to fail CRC verification, not complete")
	}
	if lastErr == nil {
		t.Fatalf("expected an error from the reassembled CRC mismatch")
	}
}

func TestDecodeFailsOnCorruptFrame(t *testing.T) {
	p := NewProcessor(codec.JSON{}, fec.NoOp{}, framer.DefaultOptions())
	if _, _, err := p.Decode([]byte{0x00, 0x01, 0x02}); err == nil {
		t.Fatalf("expected an error for a malformed frame")
	}
}

func TestNewProcessorDefaultsNilFECToNoOp(t *testing.T) {
	p := NewProcessor(codec.JSON{}, nil, framer.DefaultOptions())
	if _, ok := p.FEC.(fec.NoOp); !ok {
		t.Fatalf("expected nil FEC to default to fec.NoOp, got %T", p.FEC)
	}
}
