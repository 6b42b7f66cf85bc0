// Package framer implements the Gibberlink v1 wire frame: a fixed header of
// magic/version/length/msgId, a payload, an optional chunk header, and a
// trailing CRC-32, with chunking for payloads larger than a single frame's
// MTU budget.
package framer

import (
	"encoding/binary"
	"fmt"

	"github.com/tphakala/gibberlink-gateway/internal/crc32x"
	"github.com/tphakala/gibberlink-gateway/internal/xerrors"
)

const (
	// Magic identifies a Gibberlink frame: ASCII "GLIN".
	Magic uint32 = 0x474C494E

	// Version is the only wire version this package emits or accepts.
	Version uint8 = 1

	// fixedHeaderSize is magic(4) + version(1) + length(4).
	fixedHeaderSize = 4 + 1 + 4
	// msgIDSize is the width of the embedded message identifier.
	msgIDSize = 4
	// chunkHeaderSize is chunkIndex(1) + totalChunks(1), present only on
	// chunked frames.
	chunkHeaderSize = 1 + 1
	// crcSize is the trailing CRC-32.
	crcSize = 4

	// DefaultMaxFrameSize is the MTU budget used when Options.MaxFrameSize
	// is zero.
	DefaultMaxFrameSize = 1500
)

// Options configures Frame's single-vs-chunked decision.
type Options struct {
	MaxFrameSize   int
	EnableChunking bool
}

// DefaultOptions returns the spec defaults (1500-byte MTU, chunking on).
func DefaultOptions() Options {
	return Options{MaxFrameSize: DefaultMaxFrameSize, EnableChunking: true}
}

// Frame is a single parsed wire frame (one chunk of a possibly multi-chunk
// message).
type Frame struct {
	MsgID       [msgIDSize]byte
	Payload     []byte
	Chunked     bool
	ChunkIndex  uint8
	TotalChunks uint8
	CRC32       uint32
}

func newFramingErr(reason string) error {
	return xerrors.New(fmt.Errorf("framer: %s", reason)).
		Component("framer").Category(xerrors.CategoryFraming).Build()
}

// Encode splits payload into one or more wire frames under msgId, per
// Options. A single frame is emitted when the whole message fits within
// opts.MaxFrameSize; otherwise the payload is chunked.
func Encode(msgID [msgIDSize]byte, payload []byte, opts Options) ([][]byte, error) {
	if opts.MaxFrameSize <= 0 {
		opts.MaxFrameSize = DefaultMaxFrameSize
	}

	fullCRC := messageCRC(msgID, payload)

	singleFrameSize := fixedHeaderSize + msgIDSize + len(payload) + crcSize
	if singleFrameSize <= opts.MaxFrameSize {
		return [][]byte{buildFrame(msgID, payload, false, 0, 0, fullCRC)}, nil
	}

	if !opts.EnableChunking {
		return nil, newFramingErr(fmt.Sprintf("payload of %d bytes exceeds max frame size %d and chunking is disabled", len(payload), opts.MaxFrameSize))
	}

	chunkSize := opts.MaxFrameSize - fixedHeaderSize - msgIDSize - chunkHeaderSize - crcSize
	if chunkSize <= 0 {
		return nil, newFramingErr(fmt.Sprintf("max frame size %d too small to carry any chunk payload", opts.MaxFrameSize))
	}

	totalChunks := (len(payload) + chunkSize - 1) / chunkSize
	if totalChunks == 0 {
		totalChunks = 1
	}
	if totalChunks > 255 {
		return nil, newFramingErr(fmt.Sprintf("payload of %d bytes requires %d chunks, exceeding the 255 chunk limit", len(payload), totalChunks))
	}

	frames := make([][]byte, 0, totalChunks)
	for i := 0; i < totalChunks; i++ {
		start := i * chunkSize
		end := start + chunkSize
		if end > len(payload) {
			end = len(payload)
		}
		frames = append(frames, buildFrame(msgID, payload[start:end], true, uint8(i), uint8(totalChunks), fullCRC))
	}
	return frames, nil
}

// messageCRC computes the CRC-32 over msgId‖payload for the *whole*
// message. Every chunk of a multi-chunk message carries this same value
// per spec.md §3, since an individual chunk's slice cannot satisfy it.
func messageCRC(msgID [msgIDSize]byte, payload []byte) uint32 {
	crcInput := make([]byte, 0, msgIDSize+len(payload))
	crcInput = append(crcInput, msgID[:]...)
	crcInput = append(crcInput, payload...)
	return crc32x.Calculate(crcInput)
}

// buildFrame serializes a single wire frame. sum is the CRC over the full
// message (msgId‖fullPayload), not just this chunk's slice.
func buildFrame(msgID [msgIDSize]byte, payload []byte, chunked bool, chunkIndex, totalChunks uint8, sum uint32) []byte {
	size := fixedHeaderSize + msgIDSize + len(payload) + crcSize
	if chunked {
		size += chunkHeaderSize
	}

	buf := make([]byte, size)
	offset := 0
	binary.BigEndian.PutUint32(buf[offset:], Magic)
	offset += 4
	buf[offset] = Version
	offset++
	binary.BigEndian.PutUint32(buf[offset:], uint32(len(payload)))
	offset += 4
	copy(buf[offset:], msgID[:])
	offset += msgIDSize
	copy(buf[offset:], payload)
	offset += len(payload)
	if chunked {
		buf[offset] = chunkIndex
		offset++
		buf[offset] = totalChunks
		offset++
	}
	binary.BigEndian.PutUint32(buf[offset:], sum)

	return buf
}

// Decode parses a single wire frame from data, verifying magic, version,
// and, for an unchunked frame, CRC. A chunk's CRC field covers the whole
// reassembled message, so it is not checked here. It returns (nil, err) when the frame is invalid — truncated,
// wrong magic/version, or CRC mismatch — per spec.md §4.3's "reject"
// behavior; callers should drop the frame silently on error, not retry.
func Decode(data []byte) (*Frame, error) {
	if len(data) < fixedHeaderSize+msgIDSize+crcSize {
		return nil, newFramingErr("frame shorter than minimum header+trailer size")
	}

	offset := 0
	magic := binary.BigEndian.Uint32(data[offset:])
	offset += 4
	if magic != Magic {
		return nil, newFramingErr("bad magic")
	}

	version := data[offset]
	offset++
	if version != Version {
		return nil, newFramingErr("unsupported version")
	}

	length := binary.BigEndian.Uint32(data[offset:])
	offset += 4

	var msgID [msgIDSize]byte
	copy(msgID[:], data[offset:offset+msgIDSize])
	offset += msgIDSize

	if uint32(len(data)-offset) < length {
		return nil, newFramingErr("frame truncated before declared payload length")
	}
	payload := data[offset : offset+int(length)]
	offset += int(length)

	remaining := len(data) - offset
	var chunked bool
	var chunkIndex, totalChunks uint8
	switch remaining {
	case crcSize:
		chunked = false
	case chunkHeaderSize + crcSize:
		chunked = true
		chunkIndex = data[offset]
		totalChunks = data[offset+1]
		offset += chunkHeaderSize
	default:
		return nil, newFramingErr("unexpected trailing byte count after payload")
	}

	actualCRC := binary.BigEndian.Uint32(data[offset:])

	// A chunked frame's CRC covers the *whole* message, which this single
	// chunk's slice cannot satisfy — only the reassembler, once it has
	// every chunk, can verify it. Single frames verify immediately.
	if !chunked {
		if actualCRC != messageCRC(msgID, payload) {
			return nil, newFramingErr("crc mismatch")
		}
	}

	payloadCopy := make([]byte, len(payload))
	copy(payloadCopy, payload)

	return &Frame{
		MsgID:       msgID,
		Payload:     payloadCopy,
		Chunked:     chunked,
		ChunkIndex:  chunkIndex,
		TotalChunks: totalChunks,
		CRC32:       actualCRC,
	}, nil
}
