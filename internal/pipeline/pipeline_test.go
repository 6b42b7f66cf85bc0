package pipeline

import (
	"context"
	"testing"
	"time"

	"github.com/tphakala/gibberlink-gateway/internal/audiodecoder"
	"github.com/tphakala/gibberlink-gateway/internal/codec"
	"github.com/tphakala/gibberlink-gateway/internal/englishizer"
	"github.com/tphakala/gibberlink-gateway/internal/fec"
	"github.com/tphakala/gibberlink-gateway/internal/framer"
	"github.com/tphakala/gibberlink-gateway/internal/protocol"
)

func newPipeline(t *testing.T, opts framer.Options) *Pipeline {
	t.Helper()
	proc := protocol.NewProcessor(codec.JSON{}, fec.NoOp{}, opts)
	eng := englishizer.New()
	return New("sess-1", proc, eng)
}

func encodeFrame(t *testing.T, proc *protocol.Processor, msgID [4]byte, value codec.Value) [][]byte {
	t.Helper()
	frames, err := proc.Encode(msgID, value)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	return frames
}

func TestIngestSingleFrameEmitsPlainEnglish(t *testing.T) {
	opts := framer.DefaultOptions()
	p := newPipeline(t, opts)
	frames := encodeFrame(t, p.Processor, [4]byte{1, 2, 3, 4}, map[string]any{
		"transport":  "ws",
		"codec":      "json",
		"negotiated": map[string]any{"compression": "zstd", "fec": true, "maxMtu": float64(1500)},
	})
	if len(frames) != 1 {
		t.Fatalf("expected a single frame, got %d", len(frames))
	}

	pf := audiodecoder.PipelineFrame{
		RawFrame:  frames[0],
		Timestamp: time.Now(),
		SNRdB:     20,
		LockPct:   0.95,
		CRCValid:  true,
	}
	if err := p.Ingest(context.Background(), pf); err != nil {
		t.Fatalf("Ingest: %v", err)
	}
	if p.Stats().MessagesComplete != 1 {
		t.Fatalf("MessagesComplete = %d, want 1", p.Stats().MessagesComplete)
	}
	if p.Stats().CRCFailures != 0 {
		t.Fatalf("CRCFailures = %d, want 0", p.Stats().CRCFailures)
	}
}

func TestIngestChunkedMessageCompletesOnLastChunk(t *testing.T) {
	opts := framer.Options{MaxFrameSize: 40, EnableChunking: true}
	p := newPipeline(t, opts)

	bigPayload := map[string]any{"op": "compute", "args": []any{1, 2, 3, 4, 5, 6, 7, 8, 9, 10}, "from": "a", "to": "b"}
	frames := encodeFrame(t, p.Processor, [4]byte{9, 9, 9, 9}, bigPayload)
	if len(frames) < 2 {
		t.Fatalf("expected multiple chunks, got %d", len(frames))
	}

	start := time.Now()
	for i, raw := range frames {
		pf := audiodecoder.PipelineFrame{
			RawFrame:  raw,
			Timestamp: start.Add(time.Duration(i) * time.Millisecond),
			SNRdB:     15,
			LockPct:   0.8,
			CRCValid:  false, // a false flag is counted but does not stop reassembly
		}
		if err := p.Ingest(context.Background(), pf); err != nil {
			t.Fatalf("Ingest chunk %d: %v", i, err)
		}
	}

	if p.Stats().MessagesComplete != 1 {
		t.Fatalf("MessagesComplete = %d, want 1", p.Stats().MessagesComplete)
	}
	if p.Stats().CRCFailures != len(frames) {
		t.Fatalf("CRCFailures = %d, want %d (every chunk was flagged CRCValid=false)", p.Stats().CRCFailures, len(frames))
	}
}

func TestIngestEmptyRawFrameIsNoOp(t *testing.T) {
	p := newPipeline(t, framer.DefaultOptions())
	err := p.Ingest(context.Background(), audiodecoder.PipelineFrame{Timestamp: time.Now()})
	if err != nil {
		t.Fatalf("Ingest: %v", err)
	}
	if p.Stats().MessagesComplete != 0 {
		t.Fatalf("expected no completed messages for an empty frame")
	}
}

func TestIngestLatencyWarningOnSlowCompletion(t *testing.T) {
	opts := framer.Options{MaxFrameSize: 40, EnableChunking: true}
	p := newPipeline(t, opts)
	p.MaxLatencyMS = 1 // force the warning path deterministically

	frames := encodeFrame(t, p.Processor, [4]byte{5, 5, 5, 5}, map[string]any{"op": "x", "args": []any{1, 2, 3, 4, 5, 6, 7, 8}, "from": "a", "to": "b"})
	if len(frames) < 2 {
		t.Fatalf("expected multiple chunks, got %d", len(frames))
	}

	start := time.Now()
	for i, raw := range frames {
		pf := audiodecoder.PipelineFrame{
			RawFrame:  raw,
			Timestamp: start.Add(time.Duration(i) * 5 * time.Millisecond),
		}
		if err := p.Ingest(context.Background(), pf); err != nil {
			t.Fatalf("Ingest chunk %d: %v", i, err)
		}
	}

	if p.Stats().LatencyWarnings != 1 {
		t.Fatalf("LatencyWarnings = %d, want 1", p.Stats().LatencyWarnings)
	}
}
