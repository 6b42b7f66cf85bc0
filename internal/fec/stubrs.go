package fec

import "encoding/binary"

// redundancyRate is the default fraction of the original length appended
// as "redundancy" bytes: ceil(N*0.25).
const redundancyRate = 0.25

// StubRS prepends a 4-byte big-endian original length and appends
// ceil(N*redundancyRate) redundancy bytes.
//
// IMPORTANT: this codec does NOT perform real Reed-Solomon error
// correction. Decode only strips the length prefix and redundancy tail
// back off; it never inspects the redundancy bytes to detect or repair
// corruption. A caller that negotiates fec=true must not treat that as a
// reliability guarantee — it is a wire-compatible stub characterized for
// the test suite, not a working FEC scheme. Real Reed-Solomon is out of
// scope (spec.md §1 Non-goals).
type StubRS struct{}

// Encode prepends the 4-byte original length and appends redundancy bytes,
// where redundancy[i] = data[i mod N] XOR (i*7 mod 256).
func (StubRS) Encode(data []byte) []byte {
	n := len(data)
	redundancyLen := ceilFrac(n, redundancyRate)

	out := make([]byte, 4+n+redundancyLen)
	binary.BigEndian.PutUint32(out, uint32(n))
	copy(out[4:], data)

	for i := 0; i < redundancyLen; i++ {
		var src byte
		if n > 0 {
			src = data[i%n]
		}
		out[4+n+i] = src ^ byte((i*7)%256)
	}

	return out
}

// Decode strips the length prefix and redundancy tail, returning the
// original data. It does not attempt correction: whatever bytes sit in
// the length-prefixed region are returned as-is, corrupted or not.
func (StubRS) Decode(data []byte) ([]byte, bool) {
	if len(data) < 4 {
		return nil, false
	}
	n := int(binary.BigEndian.Uint32(data))
	if len(data) < 4+n {
		return nil, false
	}
	out := make([]byte, n)
	copy(out, data[4:4+n])
	return out, true
}

func ceilFrac(n int, rate float64) int {
	raw := float64(n) * rate
	whole := int(raw)
	if float64(whole) < raw {
		whole++
	}
	return whole
}
