// Package policy implements the payload gate described in spec.md §4.11:
// size limits, denylist/PII redaction, and transport/codec allowlisting,
// producing a content hash for the audit journal.
package policy

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"regexp"
	"sort"
	"strings"

	"github.com/tphakala/gibberlink-gateway/internal/xerrors"
)

// DefaultMaxPayloadSize is the spec default of 1 MiB.
const DefaultMaxPayloadSize = 1 << 20

// denylistKeys are object keys whose value is always replaced regardless
// of content, matched case-insensitively.
var denylistKeys = map[string]struct{}{
	"password":   {},
	"secret":     {},
	"token":      {},
	"key":        {},
	"credential": {},
}

var (
	ssnPattern    = regexp.MustCompile(`\b\d{3}-\d{2}-\d{4}\b`)
	ccPattern     = regexp.MustCompile(`\b\d{4}[- ]?\d{4}[- ]?\d{4}[- ]?\d{4}\b`)
	emailPattern  = regexp.MustCompile(`\b[A-Za-z0-9._%+\-]+@[A-Za-z0-9.\-]+\.[A-Za-z]{2,}\b`)
	phonePattern  = regexp.MustCompile(`\b\d{3}[-. ]?\d{3}[-. ]?\d{4}\b`)
	piiPatterns   = []*regexp.Regexp{ssnPattern, ccPattern, emailPattern, phonePattern}
)

// Features names the transport/codec a payload arrived over, checked
// against the engine's allowlists.
type Features struct {
	Transport string
	Codec     string
}

// Decision is the result of CheckPolicy.
type Decision struct {
	Allowed        bool
	Reason         string
	RedactedFields []string
	PIIDetected    bool
	PayloadHash    string
	Redacted       any
}

// Engine holds the configured allowlists and size limit.
type Engine struct {
	MaxPayloadSize    int
	TransportAllowlist []string
	CodecAllowlist     []string
}

// NewEngine constructs an Engine with the spec defaults; empty allowlists
// mean "any transport/codec is allowed".
func NewEngine() *Engine {
	return &Engine{MaxPayloadSize: DefaultMaxPayloadSize}
}

// CheckPolicy serializes payload to canonical JSON for sizing and hashing,
// then recursively redacts denylisted keys and PII matches on a deep copy,
// finally validating features against the configured allowlists.
func (e *Engine) CheckPolicy(payload any, features Features) (Decision, error) {
	canonical, err := canonicalJSON(payload)
	if err != nil {
		return Decision{}, xerrors.New(err).
			Category(xerrors.CategoryPolicy).
			Build()
	}

	maxSize := e.MaxPayloadSize
	if maxSize <= 0 {
		maxSize = DefaultMaxPayloadSize
	}
	hash := sha256.Sum256(canonical)
	decision := Decision{PayloadHash: hex.EncodeToString(hash[:])}

	if len(canonical) > maxSize {
		decision.Allowed = false
		decision.Reason = "payload exceeds maximum size"
		return decision, nil
	}

	var copyVal any
	if err := json.Unmarshal(canonical, &copyVal); err != nil {
		return Decision{}, xerrors.New(err).
			Category(xerrors.CategoryPolicy).
			Build()
	}

	redacted, fields, pii := Redact(copyVal, "", denylistReplacement, piiReplacement, true)
	sort.Strings(fields)
	decision.Redacted = redacted
	decision.RedactedFields = fields
	decision.PIIDetected = pii

	if !e.allowed(e.TransportAllowlist, features.Transport) {
		decision.Allowed = false
		decision.Reason = "transport not permitted"
		return decision, nil
	}
	if !e.allowed(e.CodecAllowlist, features.Codec) {
		decision.Allowed = false
		decision.Reason = "codec not permitted"
		return decision, nil
	}

	decision.Allowed = true
	return decision, nil
}

func (e *Engine) allowed(allowlist []string, value string) bool {
	if value == "" || len(allowlist) == 0 {
		return true
	}
	for _, v := range allowlist {
		if strings.EqualFold(v, value) {
			return true
		}
	}
	return false
}

// canonicalJSON serializes value with sorted object keys, which is
// encoding/json's default behavior for map[string]any — no custom
// canonicalization pass is required beyond a round trip through a plain
// map representation.
func canonicalJSON(value any) ([]byte, error) {
	// Round-trip through Marshal/Unmarshal/Marshal so struct values (whose
	// field order is fixed by declaration, not sorted) normalize to the
	// same map-based, key-sorted representation as a map literal would.
	raw, err := json.Marshal(value)
	if err != nil {
		return nil, err
	}
	var generic any
	if err := json.Unmarshal(raw, &generic); err != nil {
		return nil, err
	}
	return json.Marshal(generic)
}
