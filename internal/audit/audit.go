// Package audit implements the append-only JSON-lines audit journal from
// spec.md §4.12: every policy-checked message gets one line, rotated by
// size, with msgId lookup and filtered search over the current file.
package audit

import (
	"bufio"
	"encoding/json"
	"os"
	"strconv"
	"sync"
	"time"

	"github.com/tphakala/gibberlink-gateway/internal/xerrors"
)

// DefaultMaxFileSize is the spec default of 10 MiB.
const DefaultMaxFileSize = 10 << 20

// DefaultMaxFiles is how many rotated backups (path.1 .. path.N) are kept.
const DefaultMaxFiles = 5

// Entry is one audit journal line, matching spec.md §3's AuditLog entry.
type Entry struct {
	Timestamp      time.Time `json:"timestamp"`
	Route          string    `json:"route"`
	Actor          string    `json:"actor"`
	MsgID          string    `json:"msgId"`
	Size           int       `json:"size"`
	Codec          string    `json:"codec"`
	Transport      string    `json:"transport"`
	PolicyDecision string    `json:"policyDecision"`
	SHA256         string    `json:"sha256"`
	PIIDetected    bool      `json:"piiDetected"`
	RedactedFields []string  `json:"redactedFields,omitempty"`
}

// Journal is a single-writer, size-rotated JSON-lines append log.
type Journal struct {
	mu          sync.Mutex
	path        string
	maxFileSize int64
	maxFiles    int
	file        *os.File
	size        int64
}

// Open opens (or creates) the journal at path. maxFileSize<=0 and
// maxFiles<=0 fall back to the spec defaults.
func Open(path string, maxFileSize int64, maxFiles int) (*Journal, error) {
	if maxFileSize <= 0 {
		maxFileSize = DefaultMaxFileSize
	}
	if maxFiles <= 0 {
		maxFiles = DefaultMaxFiles
	}

	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, xerrors.New(err).Category(xerrors.CategoryAudit).Build()
	}
	info, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return nil, xerrors.New(err).Category(xerrors.CategoryAudit).Build()
	}

	return &Journal{
		path:        path,
		maxFileSize: maxFileSize,
		maxFiles:    maxFiles,
		file:        f,
		size:        info.Size(),
	}, nil
}

// Append writes entry as one JSON line, rotating first if the current
// file would exceed maxFileSize. Each write is followed by a flush
// (fsync) so a crash never loses an acknowledged audit record.
func (j *Journal) Append(entry Entry) error {
	line, err := json.Marshal(entry)
	if err != nil {
		return xerrors.New(err).Category(xerrors.CategoryAudit).Build()
	}
	line = append(line, '\n')

	j.mu.Lock()
	defer j.mu.Unlock()

	if j.size+int64(len(line)) > j.maxFileSize {
		if err := j.rotateLocked(); err != nil {
			return err
		}
	}

	n, err := j.file.Write(line)
	if err != nil {
		return xerrors.New(err).Category(xerrors.CategoryAudit).Build()
	}
	if err := j.file.Sync(); err != nil {
		return xerrors.New(err).Category(xerrors.CategoryAudit).Build()
	}
	j.size += int64(n)
	return nil
}

// rotateLocked shifts path.(maxFiles-1) .. path.1 up by one (discarding
// the oldest), renames path -> path.1, and reopens a fresh path. Callers
// must hold j.mu.
func (j *Journal) rotateLocked() error {
	if err := j.file.Close(); err != nil {
		return xerrors.New(err).Category(xerrors.CategoryAudit).Build()
	}

	for i := j.maxFiles - 1; i >= 1; i-- {
		src := rotatedName(j.path, i)
		dst := rotatedName(j.path, i+1)
		if _, err := os.Stat(src); err == nil {
			_ = os.Remove(dst)
			_ = os.Rename(src, dst)
		}
	}
	if _, err := os.Stat(j.path); err == nil {
		if err := os.Rename(j.path, rotatedName(j.path, 1)); err != nil {
			return xerrors.New(err).Category(xerrors.CategoryAudit).Build()
		}
	}

	f, err := os.OpenFile(j.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return xerrors.New(err).Category(xerrors.CategoryAudit).Build()
	}
	j.file = f
	j.size = 0
	return nil
}

func rotatedName(path string, i int) string {
	return path + "." + strconv.Itoa(i)
}

// Close closes the underlying file.
func (j *Journal) Close() error {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.file.Close()
}

// Lookup scans the current file line-by-line for the first entry matching
// msgID.
func (j *Journal) Lookup(msgID string) (Entry, bool, error) {
	entries, err := j.scan(func(e Entry) bool { return e.MsgID == msgID })
	if err != nil {
		return Entry{}, false, err
	}
	if len(entries) == 0 {
		return Entry{}, false, nil
	}
	return entries[0], true, nil
}

// Filter narrows Search to entries matching every populated field.
type Filter struct {
	Actor          string
	Route          string
	PolicyDecision string
	Since          time.Time
	Until          time.Time
}

// Search scans the current file for every entry matching filter.
func (j *Journal) Search(filter Filter) ([]Entry, error) {
	return j.scan(func(e Entry) bool {
		if filter.Actor != "" && e.Actor != filter.Actor {
			return false
		}
		if filter.Route != "" && e.Route != filter.Route {
			return false
		}
		if filter.PolicyDecision != "" && e.PolicyDecision != filter.PolicyDecision {
			return false
		}
		if !filter.Since.IsZero() && e.Timestamp.Before(filter.Since) {
			return false
		}
		if !filter.Until.IsZero() && e.Timestamp.After(filter.Until) {
			return false
		}
		return true
	})
}

// scan re-opens the journal file read-only and yields every entry for
// which match returns true, preserving file order.
func (j *Journal) scan(match func(Entry) bool) ([]Entry, error) {
	j.mu.Lock()
	path := j.path
	j.mu.Unlock()

	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, xerrors.New(err).Category(xerrors.CategoryAudit).Build()
	}
	defer f.Close()

	var out []Entry
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1<<20)
	for scanner.Scan() {
		var e Entry
		if err := json.Unmarshal(scanner.Bytes(), &e); err != nil {
			continue
		}
		if match(e) {
			out = append(out, e)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, xerrors.New(err).Category(xerrors.CategoryAudit).Build()
	}
	return out, nil
}
