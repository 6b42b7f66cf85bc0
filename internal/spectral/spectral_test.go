package spectral

import (
	"math"
	"testing"
	"time"
)

func sineWave(freq, sampleRate float64, n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = math.Sin(2 * math.Pi * freq * float64(i) / sampleRate)
	}
	return out
}

func TestNewAnalyzerRejectsNonPowerOfTwoWindow(t *testing.T) {
	if _, err := NewAnalyzer(48000, 500, 0.25); err == nil {
		t.Fatalf("expected error for non-power-of-two window size")
	}
}

func TestAnalyzerDetectsDominantFrequency(t *testing.T) {
	const sampleRate = 48000.0
	const freq = 1500.0
	a, err := NewAnalyzer(sampleRate, 512, 0.25)
	if err != nil {
		t.Fatalf("NewAnalyzer: %v", err)
	}

	samples := sineWave(freq, sampleRate, 4096)
	hops := a.Push(samples, time.Unix(0, 0))
	if len(hops) == 0 {
		t.Fatalf("expected at least one hop of bins")
	}

	last := hops[len(hops)-1]
	peaks := FindPeakFrequencies(last, 1.0)
	if len(peaks) == 0 {
		t.Fatalf("expected at least one peak frequency")
	}
	if math.Abs(peaks[0]-freq) > sampleRate/float64(512) {
		t.Fatalf("peak = %v, want near %v", peaks[0], freq)
	}
}

func TestAnalyzerBinCountIsHalfWindow(t *testing.T) {
	a, err := NewAnalyzer(48000, 256, 0)
	if err != nil {
		t.Fatalf("NewAnalyzer: %v", err)
	}
	hops := a.Push(make([]float64, 256), time.Now())
	if len(hops) != 1 {
		t.Fatalf("expected exactly one hop, got %d", len(hops))
	}
	if len(hops[0]) != 128 {
		t.Fatalf("expected 128 bins, got %d", len(hops[0]))
	}
}

func TestFindPeakFrequenciesDedupsWithin50Hz(t *testing.T) {
	bins := []Bin{
		{Frequency: 1000, Magnitude: 10},
		{Frequency: 1020, Magnitude: 8}, // within 50Hz of 1000, weaker: dropped
		{Frequency: 2000, Magnitude: 5},
	}
	peaks := FindPeakFrequencies(bins, 1.0)
	if len(peaks) != 2 {
		t.Fatalf("expected 2 deduplicated peaks, got %d: %v", len(peaks), peaks)
	}
	if peaks[0] != 1000 || peaks[1] != 2000 {
		t.Fatalf("unexpected peaks: %v", peaks)
	}
}

func TestFindPeakFrequenciesCapsAtTen(t *testing.T) {
	bins := make([]Bin, 0, 20)
	for i := 0; i < 20; i++ {
		bins = append(bins, Bin{Frequency: float64(i * 200), Magnitude: float64(20 - i)})
	}
	peaks := FindPeakFrequencies(bins, 0)
	if len(peaks) != 10 {
		t.Fatalf("expected at most 10 peaks, got %d", len(peaks))
	}
}

func TestFFTOfConstantSignalHasOnlyDCComponent(t *testing.T) {
	buf := make([]complex128, 8)
	for i := range buf {
		buf[i] = complex(1, 0)
	}
	fft(buf)
	if math.Abs(real(buf[0])-8) > 1e-9 {
		t.Fatalf("DC bin = %v, want 8", buf[0])
	}
	for i := 1; i < len(buf); i++ {
		if math.Hypot(real(buf[i]), imag(buf[i])) > 1e-9 {
			t.Fatalf("bin %d = %v, want ~0", i, buf[i])
		}
	}
}
