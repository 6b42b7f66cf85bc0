// Package reassembler collects chunked Gibberlink frames into complete
// messages, garbage-collecting partial messages that never finish arriving.
package reassembler

import (
	"sync"
	"time"

	"github.com/tphakala/gibberlink-gateway/internal/crc32x"
)

// Timeout is how long an incomplete message may sit before it is dropped.
const Timeout = 30 * time.Second

// entry tracks the chunks seen so far for one in-flight message.
type entry struct {
	chunks     map[uint8][]byte
	total      uint8
	firstSeen  time.Time
}

// Reassembler is safe for concurrent use; addChunk-like calls from multiple
// goroutines for different (or the same) msgIds are serialized internally.
type Reassembler struct {
	mu      sync.Mutex
	entries map[[4]byte]*entry

	droppedIncomplete uint64
}

// New returns an empty Reassembler.
func New() *Reassembler {
	return &Reassembler{entries: make(map[[4]byte]*entry)}
}

// AddChunk stores chunk index i (of total) for msgId. When every index in
// [0,total) has been seen, it returns the concatenated payload, in index
// order, and evicts the entry. Duplicate indices overwrite the prior value
// (last-writer-wins). Every call first garbage-collects entries older than
// Timeout, silently dropping their partial data.
func (r *Reassembler) AddChunk(msgID [4]byte, index, total uint8, payload []byte) (assembled []byte, complete bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.gcLocked(time.Now())

	e, ok := r.entries[msgID]
	if !ok {
		e = &entry{
			chunks:    make(map[uint8][]byte),
			total:     total,
			firstSeen: time.Now(),
		}
		r.entries[msgID] = e
	}

	stored := make([]byte, len(payload))
	copy(stored, payload)
	e.chunks[index] = stored

	if uint8(len(e.chunks)) < e.total {
		return nil, false
	}

	out := make([]byte, 0, e.total)
	for i := uint8(0); i < e.total; i++ {
		chunk, ok := e.chunks[i]
		if !ok {
			// Shouldn't happen given the length check above, but guards
			// against a pathological total of 0 or a map invariant bug.
			return nil, false
		}
		out = append(out, chunk...)
	}

	delete(r.entries, msgID)
	return out, true
}

// VerifyReassembled reports whether the reassembled payload matches the
// full-message CRC carried on every chunk (see internal/framer).
func VerifyReassembled(msgID [4]byte, payload []byte, expectedCRC uint32) bool {
	crcInput := make([]byte, 0, len(msgID)+len(payload))
	crcInput = append(crcInput, msgID[:]...)
	crcInput = append(crcInput, payload...)
	return crc32x.Verify(crcInput, expectedCRC)
}

// gcLocked removes entries whose firstSeen is older than Timeout. Callers
// must hold r.mu.
func (r *Reassembler) gcLocked(now time.Time) {
	for id, e := range r.entries {
		if now.Sub(e.firstSeen) > Timeout {
			delete(r.entries, id)
			r.droppedIncomplete++
		}
	}
}

// DroppedIncomplete returns the count of partial messages evicted by GC,
// for metrics reporting.
func (r *Reassembler) DroppedIncomplete() uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.droppedIncomplete
}

// Pending returns the number of in-flight (incomplete) messages currently
// tracked, for metrics/diagnostics.
func (r *Reassembler) Pending() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}
