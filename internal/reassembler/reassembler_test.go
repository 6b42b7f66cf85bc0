package reassembler

import (
	"bytes"
	"testing"
	"time"

	"github.com/tphakala/gibberlink-gateway/internal/crc32x"
)

func TestAddChunkAssemblesInOrder(t *testing.T) {
	r := New()
	id := [4]byte{1, 2, 3, 4}

	if _, complete := r.AddChunk(id, 1, 3, []byte("B")); complete {
		t.Fatalf("expected incomplete after first chunk")
	}
	if _, complete := r.AddChunk(id, 0, 3, []byte("A")); complete {
		t.Fatalf("expected incomplete after second chunk")
	}

	assembled, complete := r.AddChunk(id, 2, 3, []byte("C"))
	if !complete {
		t.Fatalf("expected complete after third chunk")
	}
	if !bytes.Equal(assembled, []byte("ABC")) {
		t.Fatalf("assembled = %q, want %q", assembled, "ABC")
	}

	if r.Pending() != 0 {
		t.Fatalf("expected entry to be evicted after completion, pending=%d", r.Pending())
	}
}

func TestAddChunkDuplicateIndexOverwrites(t *testing.T) {
	r := New()
	id := [4]byte{5, 5, 5, 5}

	r.AddChunk(id, 0, 2, []byte("X"))
	r.AddChunk(id, 0, 2, []byte("Y")) // overwrite with last-writer-wins

	assembled, complete := r.AddChunk(id, 1, 2, []byte("Z"))
	if !complete {
		t.Fatalf("expected complete")
	}
	if !bytes.Equal(assembled, []byte("YZ")) {
		t.Fatalf("assembled = %q, want %q (duplicate should overwrite)", assembled, "YZ")
	}
}

func TestIncompleteMessageGarbageCollectedAfterTimeout(t *testing.T) {
	r := New()
	id := [4]byte{9, 9, 9, 9}

	r.AddChunk(id, 0, 2, []byte("only-half"))

	// Simulate the passage of time by manipulating the entry directly,
	// since Timeout is 30s and tests should not sleep that long.
	r.mu.Lock()
	r.entries[id].firstSeen = time.Now().Add(-Timeout - time.Second)
	r.mu.Unlock()

	// Any subsequent call runs GC first.
	otherID := [4]byte{1, 1, 1, 1}
	r.AddChunk(otherID, 0, 1, []byte("trigger-gc"))

	if r.Pending() != 0 {
		t.Fatalf("expected stale entry to be garbage collected, pending=%d", r.Pending())
	}
	if r.DroppedIncomplete() != 1 {
		t.Fatalf("DroppedIncomplete() = %d, want 1", r.DroppedIncomplete())
	}
}

func TestVerifyReassembledMatchesFramerCRC(t *testing.T) {
	id := [4]byte{7, 7, 7, 7}
	payload := []byte("reassembled payload")

	crcInput := append(append([]byte{}, id[:]...), payload...)
	sum := crc32x.Calculate(crcInput)

	if !VerifyReassembled(id, payload, sum) {
		t.Fatalf("expected VerifyReassembled to succeed for matching CRC")
	}
	if VerifyReassembled(id, payload, sum^0xFFFFFFFF) {
		t.Fatalf("expected VerifyReassembled to fail for mismatched CRC")
	}
}
