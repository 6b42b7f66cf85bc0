package framer

import (
	"bytes"
	"testing"
)

func msgID(b byte) [msgIDSize]byte {
	var id [msgIDSize]byte
	for i := range id {
		id[i] = b
	}
	return id
}

func TestEncodeDecodeSingleFrameRoundTrip(t *testing.T) {
	id := msgID(0xAB)
	payload := []byte("hello gibberlink")

	frames, err := Encode(id, payload, DefaultOptions())
	if err != nil {
		t.Fatalf("Encode returned error: %v", err)
	}
	if len(frames) != 1 {
		t.Fatalf("expected 1 frame, got %d", len(frames))
	}

	frame, err := Decode(frames[0])
	if err != nil {
		t.Fatalf("Decode returned error: %v", err)
	}
	if frame.Chunked {
		t.Fatalf("expected non-chunked frame")
	}
	if !bytes.Equal(frame.Payload, payload) {
		t.Fatalf("Payload = %q, want %q", frame.Payload, payload)
	}
	if frame.MsgID != id {
		t.Fatalf("MsgID = %v, want %v", frame.MsgID, id)
	}
}

func TestEncodeEmptyPayloadProducesSingleZeroLengthFrame(t *testing.T) {
	id := msgID(0x01)
	frames, err := Encode(id, nil, DefaultOptions())
	if err != nil {
		t.Fatalf("Encode returned error: %v", err)
	}
	if len(frames) != 1 {
		t.Fatalf("expected 1 frame for empty payload, got %d", len(frames))
	}

	frame, err := Decode(frames[0])
	if err != nil {
		t.Fatalf("Decode returned error: %v", err)
	}
	if len(frame.Payload) != 0 {
		t.Fatalf("expected empty payload, got %d bytes", len(frame.Payload))
	}
}

func TestEncodeChunksOversizePayload(t *testing.T) {
	id := msgID(0x02)
	payload := bytes.Repeat([]byte{0x42}, 5000)
	opts := Options{MaxFrameSize: 200, EnableChunking: true}

	frames, err := Encode(id, payload, opts)
	if err != nil {
		t.Fatalf("Encode returned error: %v", err)
	}
	if len(frames) < 2 {
		t.Fatalf("expected multiple chunks, got %d", len(frames))
	}

	reassembled := make([]byte, 0, len(payload))
	for i, raw := range frames {
		frame, err := Decode(raw)
		if err != nil {
			t.Fatalf("Decode chunk %d returned error: %v", i, err)
		}
		if !frame.Chunked {
			t.Fatalf("expected chunk %d to be marked chunked", i)
		}
		if int(frame.ChunkIndex) != i {
			t.Fatalf("chunk %d has ChunkIndex %d", i, frame.ChunkIndex)
		}
		if int(frame.TotalChunks) != len(frames) {
			t.Fatalf("chunk %d has TotalChunks %d, want %d", i, frame.TotalChunks, len(frames))
		}
		reassembled = append(reassembled, frame.Payload...)
	}

	if !bytes.Equal(reassembled, payload) {
		t.Fatalf("reassembled payload does not match original")
	}
}

func TestEncodeChunkingDisabledRejectsOversizePayload(t *testing.T) {
	id := msgID(0x03)
	payload := bytes.Repeat([]byte{0x01}, 5000)
	opts := Options{MaxFrameSize: 200, EnableChunking: false}

	if _, err := Encode(id, payload, opts); err == nil {
		t.Fatalf("expected error when chunking disabled and payload exceeds max frame size")
	}
}

func TestDecodeRejectsBadMagic(t *testing.T) {
	id := msgID(0x04)
	frames, err := Encode(id, []byte("x"), DefaultOptions())
	if err != nil {
		t.Fatalf("Encode returned error: %v", err)
	}
	corrupted := append([]byte(nil), frames[0]...)
	corrupted[0] ^= 0xFF

	if _, err := Decode(corrupted); err == nil {
		t.Fatalf("expected error for corrupted magic")
	}
}

func TestDecodeRejectsCRCMismatch(t *testing.T) {
	id := msgID(0x05)
	frames, err := Encode(id, []byte("payload data"), DefaultOptions())
	if err != nil {
		t.Fatalf("Encode returned error: %v", err)
	}
	corrupted := append([]byte(nil), frames[0]...)
	corrupted[len(corrupted)-1] ^= 0xFF

	if _, err := Decode(corrupted); err == nil {
		t.Fatalf("expected error for CRC mismatch")
	}
}

func TestDecodeRejectsTruncatedFrame(t *testing.T) {
	id := msgID(0x06)
	frames, err := Encode(id, []byte("payload data"), DefaultOptions())
	if err != nil {
		t.Fatalf("Encode returned error: %v", err)
	}
	truncated := frames[0][:len(frames[0])-6]

	if _, err := Decode(truncated); err == nil {
		t.Fatalf("expected error for truncated frame")
	}
}

func TestChunkedFrameCRCIsNotIndividuallyVerifiable(t *testing.T) {
	id := msgID(0x07)
	payload := bytes.Repeat([]byte{0x09}, 5000)
	opts := Options{MaxFrameSize: 200, EnableChunking: true}

	frames, err := Encode(id, payload, opts)
	if err != nil {
		t.Fatalf("Encode returned error: %v", err)
	}

	frame, err := Decode(frames[0])
	if err != nil {
		t.Fatalf("Decode of first chunk should not fail even though its slice alone cannot satisfy the full-message CRC: %v", err)
	}
	if frame.CRC32 == 0 {
		t.Fatalf("expected a non-zero CRC carried on the chunk for later reassembler verification")
	}
}

func TestPayloadAtExactMTUBoundaryIsSingleFrame(t *testing.T) {
	id := msgID(0x08)
	opts := Options{MaxFrameSize: 200, EnableChunking: true}
	maxPayload := opts.MaxFrameSize - fixedHeaderSize - msgIDSize - crcSize
	payload := bytes.Repeat([]byte{0x0A}, maxPayload)

	frames, err := Encode(id, payload, opts)
	if err != nil {
		t.Fatalf("Encode returned error: %v", err)
	}
	if len(frames) != 1 {
		t.Fatalf("expected exactly 1 frame at MTU boundary, got %d", len(frames))
	}
}
