// Package protocol composes the codec, FEC, framer, and reassembler layers
// into the single encode/decode pipeline described in spec.md §4.9.
package protocol

import (
	"github.com/tphakala/gibberlink-gateway/internal/codec"
	"github.com/tphakala/gibberlink-gateway/internal/fec"
	"github.com/tphakala/gibberlink-gateway/internal/framer"
	"github.com/tphakala/gibberlink-gateway/internal/reassembler"
	"github.com/tphakala/gibberlink-gateway/internal/xerrors"
)

// Processor wires one codec and one FEC codec into an encode/decode
// pipeline shared by a session. It owns the reassembler instance that
// accumulates chunked frames across Decode calls.
type Processor struct {
	Codec codec.Codec
	FEC   fec.Codec
	Opts  framer.Options

	reassembler *reassembler.Reassembler
}

// NewProcessor constructs a Processor. If fecCodec is nil, fec.NoOp{} is used.
func NewProcessor(c codec.Codec, fecCodec fec.Codec, opts framer.Options) *Processor {
	if fecCodec == nil {
		fecCodec = fec.NoOp{}
	}
	return &Processor{
		Codec:       c,
		FEC:         fecCodec,
		Opts:        opts,
		reassembler: reassembler.New(),
	}
}

// Encode runs value through codec.Encode -> fec.Encode -> framer.Encode,
// returning the wire frames ready for transport.
func (p *Processor) Encode(msgID [4]byte, value codec.Value) ([][]byte, error) {
	data, err := p.Codec.Encode(value)
	if err != nil {
		return nil, err
	}
	protected := p.FEC.Encode(data)
	frames, err := framer.Encode(msgID, protected, p.Opts)
	if err != nil {
		return nil, err
	}
	return frames, nil
}

// Decoded is the result of a completed Decode: the message id and its
// decoded value.
type Decoded struct {
	MsgID [4]byte
	Value codec.Value
}

// Decode deframes frame, feeding chunked frames into the reassembler, and
// once a message is complete runs fec.Decode -> codec.Decode. It returns
// ok=false when frame is only a partial chunk awaiting the rest of its
// message, or when deframe/FEC/codec all fail.
func (p *Processor) Decode(frame []byte) (Decoded, bool, error) {
	f, err := framer.Decode(frame)
	if err != nil {
		return Decoded{}, false, err
	}

	var assembled []byte
	if f.Chunked {
		data, complete := p.reassembler.AddChunk(f.MsgID, f.ChunkIndex, f.TotalChunks, f.Payload)
		if !complete {
			// MsgID is still reported so callers tracking a still-assembling
			// message (e.g. for per-message latency) don't need to re-parse
			// the frame header themselves.
			return Decoded{MsgID: f.MsgID}, false, nil
		}
		if !reassembler.VerifyReassembled(f.MsgID, data, f.CRC32) {
			return Decoded{}, false, xerrors.New(errReassembledCRCMismatch).
				Component("protocol").
				Category(xerrors.CategoryFraming).
				Build()
		}
		assembled = data
	} else {
		assembled = f.Payload
	}

	protected, ok := p.FEC.Decode(assembled)
	if !ok {
		return Decoded{}, false, xerrors.New(errFECFailed).
			Category(xerrors.CategoryFEC).
			Build()
	}

	value, err := p.Codec.Decode(protected)
	if err != nil {
		return Decoded{}, false, err
	}

	return Decoded{MsgID: f.MsgID, Value: value}, true, nil
}

var errFECFailed = decodeError("fec decode reported an unrecoverable packet")
var errReassembledCRCMismatch = decodeError("reassembled message failed CRC verification")

type decodeError string

func (e decodeError) Error() string { return string(e) }
