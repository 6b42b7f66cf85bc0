// Package transcript persists the decoded payload and raw wire frames of
// encoded messages, keyed by msgId, so GET /v1/transcript/:msgId can
// return more than the audit journal's metadata-only entry. It mirrors
// internal/audit's single-writer, file-backed, line-scanned design.
package transcript

import (
	"bufio"
	"encoding/base64"
	"encoding/json"
	"os"
	"path/filepath"
	"sync"

	"github.com/tphakala/gibberlink-gateway/internal/xerrors"
)

// Record is one transcript entry: the decoded payload plus the exact wire
// bytes of every frame Framer.Frame produced for the message, matching
// spec.md §3's Transcript data model.
type Record struct {
	MsgID     string   `json:"msgId"`
	Payload   any      `json:"payload,omitempty"`
	RawFrames []string `json:"rawFrames,omitempty"`
}

// Store is a single-writer, append-only JSON-lines store of Records, one
// file per process. Unlike audit.Journal it is neither size-rotated nor
// pruned: every Put appends to the same file, which only grows.
type Store struct {
	mu   sync.Mutex
	path string
	file *os.File
}

// Open opens (or creates) the transcript store at path, creating parent
// directories as needed.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, xerrors.New(err).Category(xerrors.CategoryAudit).Build()
	}
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, xerrors.New(err).Category(xerrors.CategoryAudit).Build()
	}
	return &Store{path: path, file: f}, nil
}

// Put appends a Record for msgId. frames are the exact wire bytes
// produced for each chunk; they are stored base64-encoded per spec.md's
// EXPANSION note that rawFrames are "base64 of the exact wire bytes
// written by Framer.Frame".
func (s *Store) Put(msgID string, payload any, frames [][]byte) error {
	raw := make([]string, len(frames))
	for i, f := range frames {
		raw[i] = base64.StdEncoding.EncodeToString(f)
	}

	line, err := json.Marshal(Record{MsgID: msgID, Payload: payload, RawFrames: raw})
	if err != nil {
		return xerrors.New(err).Category(xerrors.CategoryAudit).Build()
	}
	line = append(line, '\n')

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := s.file.Write(line); err != nil {
		return xerrors.New(err).Category(xerrors.CategoryAudit).Build()
	}
	return s.file.Sync()
}

// Lookup scans the store for the most recent Record matching msgID. Later
// writes shadow earlier ones so a re-encoded message returns its newest
// transcript.
func (s *Store) Lookup(msgID string) (Record, bool, error) {
	s.mu.Lock()
	path := s.path
	s.mu.Unlock()

	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Record{}, false, nil
		}
		return Record{}, false, xerrors.New(err).Category(xerrors.CategoryAudit).Build()
	}
	defer f.Close()

	var found Record
	var ok bool
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 4<<20)
	for scanner.Scan() {
		var r Record
		if err := json.Unmarshal(scanner.Bytes(), &r); err != nil {
			continue
		}
		if r.MsgID == msgID {
			found = r
			ok = true
		}
	}
	if err := scanner.Err(); err != nil {
		return Record{}, false, xerrors.New(err).Category(xerrors.CategoryAudit).Build()
	}
	return found, ok, nil
}

// Close closes the underlying file.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.file.Close()
}
