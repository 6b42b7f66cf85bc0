package fec

import (
	"math/rand"
	"time"
)

// DefaultLossRate is the probability SimulatedLoss drops a packet entirely.
const DefaultLossRate = 0.05

// bitFlipRate is the per-bit corruption probability applied to packets that
// survive the loss roll.
const bitFlipRate = 0.001

// SimulatedLoss wraps a base Codec to exercise the rest of the stack
// against a lossy, bit-error-prone acoustic-style channel. Encode delegates
// unchanged to Base; Decode randomly drops or corrupts the packet before
// delegating to Base.Decode.
type SimulatedLoss struct {
	Base     Codec
	LossRate float64
	rng      *rand.Rand
}

// NewSimulatedLoss returns a SimulatedLoss wrapping base with lossRate
// (use DefaultLossRate for the spec default).
func NewSimulatedLoss(base Codec, lossRate float64) *SimulatedLoss {
	return &SimulatedLoss{
		Base:     base,
		LossRate: lossRate,
		rng:      rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// Encode delegates to Base.Encode unchanged — loss/corruption is simulated
// only on the receive side.
func (s *SimulatedLoss) Encode(data []byte) []byte {
	return s.Base.Encode(data)
}

// Decode drops the packet with probability LossRate, otherwise flips each
// bit independently with probability 0.001, then delegates to Base.Decode.
func (s *SimulatedLoss) Decode(data []byte) ([]byte, bool) {
	if s.rng.Float64() < s.LossRate {
		return nil, false
	}

	corrupted := make([]byte, len(data))
	copy(corrupted, data)
	for i := range corrupted {
		for bit := 0; bit < 8; bit++ {
			if s.rng.Float64() < bitFlipRate {
				corrupted[i] ^= 1 << uint(bit)
			}
		}
	}

	return s.Base.Decode(corrupted)
}
