package transcript

import (
	"path/filepath"
	"testing"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "nested", "transcripts.jsonl"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestPutAndLookupRoundTrip(t *testing.T) {
	s := openTestStore(t)

	payload := map[string]any{"op": "sum"}
	frames := [][]byte{[]byte("frame-one"), []byte("frame-two")}
	if err := s.Put("abcd", payload, frames); err != nil {
		t.Fatalf("Put: %v", err)
	}

	rec, ok, err := s.Lookup("abcd")
	if err != nil {
		t.Fatalf("Lookup: %v", err)
	}
	if !ok {
		t.Fatalf("expected record to be found")
	}
	if len(rec.RawFrames) != 2 {
		t.Fatalf("RawFrames = %v, want 2 entries", rec.RawFrames)
	}
}

func TestLookupMissingMsgIDReturnsNotFound(t *testing.T) {
	s := openTestStore(t)
	_, ok, err := s.Lookup("missing")
	if err != nil {
		t.Fatalf("Lookup: %v", err)
	}
	if ok {
		t.Fatal("expected ok=false for a msgId never written")
	}
}

func TestLookupLatestWriteShadowsEarlierOnes(t *testing.T) {
	s := openTestStore(t)
	if err := s.Put("abcd", map[string]any{"n": 1}, nil); err != nil {
		t.Fatalf("Put first: %v", err)
	}
	if err := s.Put("abcd", map[string]any{"n": 2}, nil); err != nil {
		t.Fatalf("Put second: %v", err)
	}

	rec, ok, err := s.Lookup("abcd")
	if err != nil {
		t.Fatalf("Lookup: %v", err)
	}
	if !ok {
		t.Fatalf("expected record to be found")
	}
	payload, ok := rec.Payload.(map[string]any)
	if !ok || payload["n"] != float64(2) {
		t.Fatalf("Payload = %#v, want the most recently written record", rec.Payload)
	}
}
