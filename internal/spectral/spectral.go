// Package spectral implements the streaming Hann-windowed FFT analyzer used
// by the acoustic modem to characterize incoming PCM before demodulation.
package spectral

import (
	"math"
	"sort"
	"time"

	"github.com/tphakala/gibberlink-gateway/internal/xerrors"
)

// Bin is a single frequency-domain sample produced by a hop of the analyzer.
type Bin struct {
	Frequency float64
	Magnitude float64
	Phase     float64
	Timestamp time.Time
}

// Analyzer runs a streaming Hann-windowed FFT over a PCM sample stream. W
// (window size) must be a power of two; hop H = W*(1-overlap).
type Analyzer struct {
	sampleRate float64
	window     int
	hop        int
	hannCoeff  []float64

	buf []float64 // accumulated samples awaiting a full window
}

// NewAnalyzer constructs an Analyzer. overlap is clamped to [0, 0.95].
func NewAnalyzer(sampleRate float64, windowSize int, overlap float64) (*Analyzer, error) {
	if !isPowerOfTwo(windowSize) {
		return nil, xerrors.Newf("window size must be a power of two").
			Category(xerrors.CategorySpectral).
			Build()
	}
	if overlap < 0 {
		overlap = 0
	}
	if overlap > 0.95 {
		overlap = 0.95
	}
	hop := int(float64(windowSize) * (1 - overlap))
	if hop < 1 {
		hop = 1
	}
	return &Analyzer{
		sampleRate: sampleRate,
		window:     windowSize,
		hop:        hop,
		hannCoeff:  hannWindow(windowSize),
	}, nil
}

// Push appends PCM samples to the internal buffer and returns every
// complete hop's worth of bins produced since the last call, in order.
func (a *Analyzer) Push(samples []float64, ts time.Time) [][]Bin {
	a.buf = append(a.buf, samples...)

	var hops [][]Bin
	for len(a.buf) >= a.window {
		hops = append(hops, a.analyzeWindow(a.buf[:a.window], ts))
		if a.hop >= len(a.buf) {
			a.buf = a.buf[:0]
			break
		}
		a.buf = a.buf[a.hop:]
	}
	return hops
}

// analyzeWindow computes the W/2 bins for one windowed FFT.
func (a *Analyzer) analyzeWindow(samples []float64, ts time.Time) []Bin {
	n := len(samples)
	buf := make([]complex128, n)
	for i, s := range samples {
		buf[i] = complex(s*a.hannCoeff[i], 0)
	}
	fft(buf)

	bins := make([]Bin, n/2)
	for k := 0; k < n/2; k++ {
		c := buf[k]
		mag := math.Hypot(real(c), imag(c))
		bins[k] = Bin{
			Frequency: float64(k) * a.sampleRate / float64(n),
			Magnitude: mag,
			Phase:     math.Atan2(imag(c), real(c)),
			Timestamp: ts,
		}
	}
	return bins
}

// FindPeakFrequencies returns up to 10 frequencies from bins whose magnitude
// exceeds threshold, sorted by descending magnitude and deduplicated within
// a 50 Hz window (the stronger of two close peaks wins).
func FindPeakFrequencies(bins []Bin, threshold float64) []float64 {
	const dedupWindow = 50.0
	const maxPeaks = 10

	candidates := make([]Bin, 0, len(bins))
	for _, b := range bins {
		if b.Magnitude > threshold {
			candidates = append(candidates, b)
		}
	}
	sort.Slice(candidates, func(i, j int) bool {
		return candidates[i].Magnitude > candidates[j].Magnitude
	})

	var peaks []float64
	for _, c := range candidates {
		if len(peaks) >= maxPeaks {
			break
		}
		dup := false
		for _, p := range peaks {
			if math.Abs(p-c.Frequency) < dedupWindow {
				dup = true
				break
			}
		}
		if !dup {
			peaks = append(peaks, c.Frequency)
		}
	}
	return peaks
}
