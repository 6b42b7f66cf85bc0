// Package modem implements the 4-FSK acoustic physical layer: symbol
// encoding of framed bytes into PCM samples, and a streaming Goertzel-based
// decoder that recovers symbols, acquires frames via preamble/sync
// matching, and packs the payload back into bytes.
package modem

import "math"

// Params configures one 4-FSK link. SamplesPerSymbol is derived, not
// configured.
type Params struct {
	SampleRate      float64
	SymbolRate      float64
	Tones           [4]float64
	WindowSize      int
	Overlap         float64
	NoiseThreshold  float64
	SilenceThresh   float64
	MaxFrameSize    int
}

// SamplesPerSymbol returns S = floor(sampleRate / symbolRate).
func (p Params) SamplesPerSymbol() int {
	return int(math.Floor(p.SampleRate / p.SymbolRate))
}

// Preset names one of the three built-in tuning presets from spec.md §6.
type Preset string

const (
	PresetLowLatency     Preset = "lowLatency"
	PresetHighQuality    Preset = "highQuality"
	PresetNoiseResistant Preset = "noiseResistant"
)

// DefaultParams returns the spec.md §6 default parameters for a preset.
// maxFrameSize and the noise/silence thresholds are not preset-specific in
// the spec and use sensible shared defaults.
func DefaultParams(preset Preset) Params {
	base := Params{
		NoiseThreshold: 0.1,
		SilenceThresh:  0.01,
		MaxFrameSize:   1200,
	}
	switch preset {
	case PresetHighQuality:
		base.SampleRate = 48000
		base.SymbolRate = 500
		base.Tones = [4]float64{1500, 1900, 2300, 2700}
		base.WindowSize = 2048
		base.Overlap = 0.75
	case PresetNoiseResistant:
		base.SampleRate = 44100
		base.SymbolRate = 100
		base.Tones = [4]float64{1200, 1800, 2400, 3000}
		base.WindowSize = 4096
		base.Overlap = 0.5
	default: // PresetLowLatency
		base.SampleRate = 16000
		base.SymbolRate = 125
		base.Tones = [4]float64{1000, 1500, 2000, 2500}
		base.WindowSize = 512
		base.Overlap = 0.25
	}
	return base
}

// syncBarker is the fixed 13-chip Barker-like sync pattern.
var syncBarker = []int{1, 1, 1, 1, 1, 0, 0, 1, 1, 0, 1, 0, 1}

// noSymbol marks a hop where no tone crossed the adaptive threshold.
const noSymbol = -1
