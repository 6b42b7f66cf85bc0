package modem

import (
	"math"
	"time"
)

// Result is one demodulated frame candidate recovered from the symbol
// stream, plus the metadata the audio decoder layers on top.
type Result struct {
	Payload   []byte
	SNR       float64
	LockPct   float64
	Timestamp time.Time
}

// Decoder runs the streaming Goertzel demodulation pipeline described in
// spec.md §4.7 over successive PCM chunks.
type Decoder struct {
	params Params

	prevSample float64 // pre-emphasis state
	symbols    []int   // accumulated symbol stream awaiting frame acquisition

	lastSymbolTime float64 // advisory timing recovery
	symbolClock    float64
	haveLastSymbol bool

	totalHops     int
	detectedHops  int
	droppedFrames int
}

// NewDecoder constructs a Decoder for params.
func NewDecoder(params Params) *Decoder {
	return &Decoder{params: params}
}

// DroppedFrames reports how many reconstructed payloads exceeded
// maxFrameSize and were discarded.
func (d *Decoder) DroppedFrames() int { return d.droppedFrames }

// LockPercent returns the fraction of analyzed hops that resolved to a
// symbol (as opposed to "no symbol"), a rough acquisition-quality metric.
func (d *Decoder) LockPercent() float64 {
	if d.totalHops == 0 {
		return 0
	}
	return float64(d.detectedHops) / float64(d.totalHops)
}

const decodeBlockSize = 1024

// DecodeChunk feeds new PCM samples through pre-emphasis, crude bandpass
// smoothing, hop-wise Goertzel symbol detection, and frame acquisition. It
// returns every complete frame recovered as a result of this call (zero or
// more — acquisition may span several chunks before a frame completes).
func (d *Decoder) DecodeChunk(samples []float64, ts time.Time) []Result {
	emphasized := d.preEmphasize(samples)
	filtered := movingAverage(emphasized, 5)

	hop := d.params.SamplesPerSymbol() / 4
	if hop < 1 {
		hop = 1
	}
	hann := hannWindow(decodeBlockSize)

	for start := 0; start+decodeBlockSize <= len(filtered); start += hop {
		block := filtered[start : start+decodeBlockSize]
		sym := d.detectSymbol(block, hann)
		d.symbols = append(d.symbols, sym)
		d.recordTiming(sym)
	}

	return d.scanFrames(ts)
}

func (d *Decoder) preEmphasize(samples []float64) []float64 {
	out := make([]float64, len(samples))
	prev := d.prevSample
	for i, x := range samples {
		out[i] = x - 0.95*prev
		prev = x
	}
	if len(samples) > 0 {
		d.prevSample = samples[len(samples)-1]
	}
	return out
}

// detectSymbol Hann-windows block, computes the Goertzel magnitude at each
// of the 4 tones, and emits the strongest tone's index if it clears the
// adaptive threshold 2.0*sqrt(mean(|m|^2)), else noSymbol.
func (d *Decoder) detectSymbol(block []float64, hann []float64) int {
	windowed := make([]float64, len(block))
	for i, v := range block {
		windowed[i] = v * hann[i]
	}

	var mags [4]float64
	for k := 0; k < 4; k++ {
		mags[k] = goertzelMagnitude(windowed, d.params.Tones[k], d.params.SampleRate)
	}

	var meanSq float64
	for _, m := range mags {
		meanSq += m * m
	}
	meanSq /= 4
	threshold := 2.0 * math.Sqrt(meanSq)

	d.totalHops++

	peakIdx, peakMag := 0, mags[0]
	for k := 1; k < 4; k++ {
		if mags[k] > peakMag {
			peakIdx, peakMag = k, mags[k]
		}
	}
	if peakMag > threshold {
		d.detectedHops++
		return peakIdx
	}
	return noSymbol
}

// recordTiming updates the advisory symbol clock: phaseError tracks drift
// between consecutive detected symbols and the nominal symbol period, but
// is never used to resample — only exposed for diagnostics.
func (d *Decoder) recordTiming(sym int) {
	if sym == noSymbol {
		return
	}
	now := float64(len(d.symbols)) / d.params.SymbolRate
	if d.haveLastSymbol {
		phaseError := (now - d.lastSymbolTime - 1/d.params.SymbolRate) * d.params.SymbolRate
		d.symbolClock += phaseError
	}
	d.lastSymbolTime = now
	d.haveLastSymbol = true
}

// SymbolClock returns the accumulated advisory phase-error drift.
func (d *Decoder) SymbolClock() float64 { return d.symbolClock }

// scanFrames looks for preamble+sync acquisition in the accumulated symbol
// stream, then extracts the payload run up to 10 consecutive no-symbol
// markers, packs it into bytes, and consumes the matched prefix.
func (d *Decoder) scanFrames(ts time.Time) []Result {
	var results []Result

	for {
		preLen := len(preambleSymbols(d.params))
		start, ok := findPreambleMatch(d.symbols, preLen)
		if !ok {
			break
		}

		syncStart := start + preLen
		syncEnd := syncStart + len(syncBarker)
		if syncEnd > len(d.symbols) {
			break // wait for more data
		}
		if !exactMatch(d.symbols[syncStart:syncEnd], syncBarker) {
			// False preamble lock; drop one symbol and retry.
			d.symbols = d.symbols[start+1:]
			continue
		}

		payloadStart := syncEnd
		termIdx, terminated := findTerminator(d.symbols[payloadStart:], 10)
		if !terminated {
			break // payload still arriving
		}

		payloadSymbols := d.symbols[payloadStart : payloadStart+termIdx]
		payload := packSymbols(payloadSymbols)

		consumed := payloadStart + termIdx
		d.symbols = d.symbols[consumed:]

		if len(payload) > d.params.MaxFrameSize {
			d.droppedFrames++
			continue
		}

		results = append(results, Result{
			Payload:   payload,
			SNR:       d.estimateSNR(),
			LockPct:   d.LockPercent(),
			Timestamp: ts,
		})
	}

	return results
}

// findPreambleMatch slides a window of length preLen over symbols looking
// for the alternating 0,2,... pattern with >=80% match (each position
// within ±1 symbol index tolerance counts as a match).
func findPreambleMatch(symbols []int, preLen int) (int, bool) {
	if preLen == 0 || len(symbols) < preLen {
		return 0, false
	}
	for start := 0; start+preLen <= len(symbols); start++ {
		matches := 0
		for i := 0; i < preLen; i++ {
			expected := 0
			if i%2 == 1 {
				expected = 2
			}
			actual := symbols[start+i]
			if actual == expected || abs(actual-expected) <= 1 {
				matches++
			}
		}
		if float64(matches)/float64(preLen) >= 0.8 {
			return start, true
		}
	}
	return 0, false
}

func exactMatch(got []int, want []int) bool {
	if len(got) != len(want) {
		return false
	}
	for i := range got {
		if got[i] != want[i] {
			return false
		}
	}
	return true
}

// findTerminator returns the index of the first symbol of a run of at
// least runLen consecutive noSymbol markers, or ok=false if no such run
// has appeared yet.
func findTerminator(symbols []int, runLen int) (int, bool) {
	run := 0
	for i, s := range symbols {
		if s == noSymbol {
			run++
			if run >= runLen {
				return i - runLen + 1, true
			}
		} else {
			run = 0
		}
	}
	return 0, false
}

// packSymbols packs 4 MSB-first 2-bit symbols per byte, treating a
// noSymbol entry inside the payload as 0.
func packSymbols(symbols []int) []byte {
	n := len(symbols) / 4
	out := make([]byte, n)
	for i := 0; i < n; i++ {
		var b byte
		for j := 0; j < 4; j++ {
			s := symbols[i*4+j]
			if s == noSymbol {
				s = 0
			}
			b = b<<2 | byte(s&0x3)
		}
		out[i] = b
	}
	return out
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}

// estimateSNR computes 10*log10(peak signal power / mean noise power)
// using the cumulative detected-vs-undetected hop ratio (LockPercent, over
// every hop analyzed since construction) as a proxy, since
// the decoder does not retain full per-bin power history across chunks.
func (d *Decoder) estimateSNR() float64 {
	lock := d.LockPercent()
	if lock <= 0 {
		return 0
	}
	if lock >= 1 {
		lock = 0.999
	}
	return 10 * math.Log10(lock/(1-lock))
}
