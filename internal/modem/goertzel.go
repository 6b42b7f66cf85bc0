package modem

import "math"

// goertzelMagnitude computes the single-bin Goertzel magnitude of samples
// at targetFreq, given sampleRate. samples is expected to already be
// windowed by the caller.
func goertzelMagnitude(samples []float64, targetFreq, sampleRate float64) float64 {
	n := len(samples)
	if n == 0 {
		return 0
	}
	k := int(0.5 + float64(n)*targetFreq/sampleRate)
	omega := 2 * math.Pi * float64(k) / float64(n)
	coeff := 2 * math.Cos(omega)

	var s0, s1, s2 float64
	for _, x := range samples {
		s0 = x + coeff*s1 - s2
		s2 = s1
		s1 = s0
	}

	realPart := s1 - s2*math.Cos(omega)
	imagPart := s2 * math.Sin(omega)
	return math.Hypot(realPart, imagPart)
}
