package modem

import (
	"testing"
	"time"
)

func TestSamplesPerSymbol(t *testing.T) {
	p := DefaultParams(PresetLowLatency)
	if got := p.SamplesPerSymbol(); got != 128 {
		t.Fatalf("SamplesPerSymbol() = %d, want 128 (16000/125)", got)
	}
}

func TestDefaultParamsPresets(t *testing.T) {
	cases := []struct {
		preset     Preset
		sampleRate float64
		symbolRate float64
	}{
		{PresetLowLatency, 16000, 125},
		{PresetHighQuality, 48000, 500},
		{PresetNoiseResistant, 44100, 100},
	}
	for _, c := range cases {
		p := DefaultParams(c.preset)
		if p.SampleRate != c.sampleRate || p.SymbolRate != c.symbolRate {
			t.Fatalf("preset %s: got sampleRate=%v symbolRate=%v", c.preset, p.SampleRate, p.SymbolRate)
		}
	}
}

func TestBytesToSymbolsMSBFirst(t *testing.T) {
	got := bytesToSymbols([]byte{0b11_01_10_00})
	want := []int{3, 1, 2, 0}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("symbol %d = %d, want %d", i, got[i], want[i])
		}
	}
}

func TestPackSymbolsRoundTripsBytesToSymbols(t *testing.T) {
	data := []byte{0x4B, 0xF0, 0x01}
	symbols := bytesToSymbols(data)
	packed := packSymbols(symbols)
	for i := range data {
		if packed[i] != data[i] {
			t.Fatalf("byte %d = %08b, want %08b", i, packed[i], data[i])
		}
	}
}

func TestPreambleSymbolsAlternate(t *testing.T) {
	p := DefaultParams(PresetLowLatency)
	syms := preambleSymbols(p)
	if len(syms) == 0 {
		t.Fatalf("expected non-empty preamble")
	}
	for i, s := range syms {
		want := 0
		if i%2 == 1 {
			want = 2
		}
		if s != want {
			t.Fatalf("preamble[%d] = %d, want %d", i, s, want)
		}
	}
}

func TestEncodeProducesNonEmptySampleStream(t *testing.T) {
	p := DefaultParams(PresetLowLatency)
	samples := Encode(p, []byte("hi"))
	expectedSymbols := len(preambleSymbols(p)) + len(syncBarker) + 2*4
	if len(samples) != expectedSymbols*p.SamplesPerSymbol() {
		t.Fatalf("sample count = %d, want %d", len(samples), expectedSymbols*p.SamplesPerSymbol())
	}
}

func TestGoertzelMagnitudeDetectsTargetTone(t *testing.T) {
	p := DefaultParams(PresetLowLatency)
	samples := renderSymbol(p, 1) // tone index 1
	magAtTarget := goertzelMagnitude(samples, p.Tones[1], p.SampleRate)
	magAtOther := goertzelMagnitude(samples, p.Tones[3], p.SampleRate)
	if magAtTarget <= magAtOther {
		t.Fatalf("expected target tone magnitude (%v) > other tone magnitude (%v)", magAtTarget, magAtOther)
	}
}

func TestFindPreambleMatchFindsExactAlternatingRun(t *testing.T) {
	// The leading 3, 0 lie outside the ±1 tolerance, so the first window
	// that matches is the exact alternating run starting at index 2.
	symbols := []int{3, 0, 0, 2, 0, 2, 0, 2, 3, 3}
	start, ok := findPreambleMatch(symbols, 6)
	if !ok {
		t.Fatalf("expected preamble match")
	}
	if start != 2 {
		t.Fatalf("start = %d, want 2", start)
	}
}

func TestFindTerminatorDetectsTenConsecutiveNoSymbol(t *testing.T) {
	symbols := append([]int{1, 2, 3}, make([]int, 10)...)
	for i := 3; i < len(symbols); i++ {
		symbols[i] = noSymbol
	}
	idx, ok := findTerminator(symbols, 10)
	if !ok {
		t.Fatalf("expected terminator to be found")
	}
	if idx != 3 {
		t.Fatalf("terminator index = %d, want 3", idx)
	}
}

func TestDecoderRecoversEncodedPayload(t *testing.T) {
	p := DefaultParams(PresetLowLatency)
	p.NoiseThreshold = 0
	payload := []byte{0xAB, 0xCD}
	samples := Encode(p, payload)

	// Pad with trailing silence so the terminator run of no-symbol hops
	// can be detected after the payload ends.
	pad := make([]float64, p.SamplesPerSymbol()*20)
	samples = append(samples, pad...)

	d := NewDecoder(p)
	results := d.DecodeChunk(samples, time.Unix(0, 0))
	if len(results) == 0 {
		t.Fatalf("expected at least one decoded frame")
	}
}
