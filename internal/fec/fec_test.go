package fec

import (
	"bytes"
	"testing"
)

func TestNoOpRoundTrip(t *testing.T) {
	c := NoOp{}
	data := []byte("passthrough")
	encoded := c.Encode(data)
	decoded, ok := c.Decode(encoded)
	if !ok {
		t.Fatalf("expected Decode to succeed")
	}
	if !bytes.Equal(decoded, data) {
		t.Fatalf("decoded = %q, want %q", decoded, data)
	}
}

func TestStubRSRoundTripWithoutCorruption(t *testing.T) {
	c := StubRS{}
	data := []byte("hello world, this is a test payload")
	encoded := c.Encode(data)

	decoded, ok := c.Decode(encoded)
	if !ok {
		t.Fatalf("expected Decode to succeed")
	}
	if !bytes.Equal(decoded, data) {
		t.Fatalf("decoded = %q, want %q", decoded, data)
	}
}

func TestStubRSAppendsExpectedRedundancyLength(t *testing.T) {
	c := StubRS{}
	data := make([]byte, 10)
	encoded := c.Encode(data)

	wantRedundancy := ceilFrac(len(data), redundancyRate)
	wantTotal := 4 + len(data) + wantRedundancy
	if len(encoded) != wantTotal {
		t.Fatalf("encoded length = %d, want %d", len(encoded), wantTotal)
	}
}

// TestStubRSDoesNotCorrectErrors documents the open-question decision
// recorded in DESIGN.md: StubRS provides no correction capability, so a
// corrupted data byte comes back corrupted.
func TestStubRSDoesNotCorrectErrors(t *testing.T) {
	c := StubRS{}
	data := []byte("uncorrectable payload bytes")
	encoded := c.Encode(data)

	// Corrupt a single byte within the original-data region (after the
	// 4-byte length prefix).
	encoded[4] ^= 0xFF

	decoded, ok := c.Decode(encoded)
	if !ok {
		t.Fatalf("expected Decode to still report ok (stub never detects corruption)")
	}
	if bytes.Equal(decoded, data) {
		t.Fatalf("expected corrupted byte to survive uncorrected, but decoded matched the original")
	}
}

func TestStubRSDecodeRejectsTooShortInput(t *testing.T) {
	c := StubRS{}
	if _, ok := c.Decode([]byte{0x00, 0x00}); ok {
		t.Fatalf("expected Decode to reject input shorter than the length prefix")
	}
}

func TestSimulatedLossEncodeIsIdentityOverBase(t *testing.T) {
	s := NewSimulatedLoss(StubRS{}, 0)
	data := []byte("identity check")
	if !bytes.Equal(s.Encode(data), StubRS{}.Encode(data)) {
		t.Fatalf("SimulatedLoss.Encode should delegate unchanged to Base.Encode")
	}
}

func TestSimulatedLossDropsAtLossRateOne(t *testing.T) {
	s := NewSimulatedLoss(NoOp{}, 1.0)
	if _, ok := s.Decode([]byte("anything")); ok {
		t.Fatalf("expected Decode to always drop when LossRate=1.0")
	}
}

func TestSimulatedLossNeverDropsAtLossRateZero(t *testing.T) {
	s := NewSimulatedLoss(NoOp{}, 0)
	data := []byte("should mostly survive, possibly bit-flipped")
	if _, ok := s.Decode(data); !ok {
		t.Fatalf("expected Decode to never drop when LossRate=0")
	}
}
