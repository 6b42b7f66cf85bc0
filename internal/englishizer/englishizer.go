// Package englishizer renders decoded gateway payloads into short
// plain-English summaries (spec.md §4.13): kind detection, deterministic
// template rendering, redaction, glossary extraction, and an optional
// external-enhancer hook.
package englishizer

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/tphakala/gibberlink-gateway/internal/policy"
	"github.com/tphakala/gibberlink-gateway/internal/xerrors"
)

// redactionReplacement is the Englishizer's own redaction sentinel,
// distinct from the policy engine's "[REDACTED]"/"[PII_REDACTED]" since
// the two surfaces serve different audiences (audit log vs. human text).
const redactionReplacement = "«redacted»"

// Meta carries the envelope fields every GatewayEvent needs regardless of
// payload shape.
type Meta struct {
	MsgID     string
	Transport string
	Codec     string
	Timestamp time.Time
	SessionID string
}

// GatewayEvent is the Englishizer's input: a decoded payload plus its
// envelope metadata and an optional pre-known Kind.
type GatewayEvent struct {
	Kind    string
	Payload any
	Meta    Meta
}

// Englishized is the rendered result (spec.md §3).
type Englishized struct {
	Text          string
	Bullets       []string
	Glossary      map[string]string
	Fields        map[string]any
	Redactions    []string
	MsgID         string
	Confidence    float64
	SourceMapping any
}

// Options configures post-render shaping.
type Options struct {
	MaxSentences  int
	Glossary      bool
	SourceMapping bool
	Bullets       bool
}

// Englishizer renders GatewayEvents. The zero value is usable; set
// Enhancer to enable the optional external-enhancement hook.
type Englishizer struct {
	Enhancer        Enhancer
	EnhancerTimeout time.Duration
	Glossary        map[string]string
	history         map[string][]string // sessionID -> recent rendered texts
}

// New constructs an Englishizer with the default 5s enhancer timeout and
// the built-in glossary.
func New() *Englishizer {
	return &Englishizer{
		EnhancerTimeout: 5 * time.Second,
		Glossary:        defaultGlossary(),
		history:         make(map[string][]string),
	}
}

// historyWindow is how many recent renders per session are retained for
// the enhancer's {lastN} context.
const historyWindow = 5

// Process runs the full pipeline: redact, detect kind, render, shape,
// optionally enhance.
func (e *Englishizer) Process(ctx context.Context, event GatewayEvent, opts Options) (Englishized, error) {
	redactedPayload, redactions, err := e.redactPayload(event.Payload)
	if err != nil {
		return Englishized{}, err
	}

	payloadMap, _ := redactedPayload.(map[string]any)

	kind := event.Kind
	if kind == "" {
		kind = detectKind(payloadMap)
	}

	rendered := render(kind, payloadMap, event.Meta)

	result := Englishized{
		Text:       rendered.Text,
		Fields:     rendered.Fields,
		Redactions: redactions,
		MsgID:      event.Meta.MsgID,
		Confidence: rendered.Confidence,
	}
	if opts.Bullets {
		result.Bullets = rendered.Bullets
	}

	if opts.MaxSentences > 0 {
		result.Text = truncateSentences(result.Text, opts.MaxSentences)
	}
	if opts.Glossary {
		result.Glossary = extractGlossary(result.Text, e.Glossary)
	}
	if opts.SourceMapping {
		result.SourceMapping = map[string]any{"kind": kind, "msgId": event.Meta.MsgID}
	}

	needsEnhancement := e.Enhancer != nil && (result.Confidence < 0.7 || len(result.Text) > 100 || opts.Glossary)
	if needsEnhancement {
		e.tryEnhance(ctx, event, kind, &result)
	}

	e.recordHistory(event.Meta.SessionID, result.Text)
	return result, nil
}

// redactPayload deep-copies payload through a JSON round trip (matching
// internal/policy's canonicalization approach) and applies
// policy.Redact with the Englishizer's own replacement sentinel.
func (e *Englishizer) redactPayload(payload any) (any, []string, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, nil, xerrors.New(err).Category(xerrors.CategoryEnglishizer).Build()
	}
	var generic any
	if err := json.Unmarshal(raw, &generic); err != nil {
		return nil, nil, xerrors.New(err).Category(xerrors.CategoryEnglishizer).Build()
	}
	redacted, fields, _ := policy.Redact(generic, "", redactionReplacement, redactionReplacement, true)
	return redacted, fields, nil
}

func (e *Englishizer) recordHistory(sessionID, text string) {
	if sessionID == "" {
		return
	}
	hist := append(e.history[sessionID], text)
	if len(hist) > historyWindow {
		hist = hist[len(hist)-historyWindow:]
	}
	e.history[sessionID] = hist
}

// truncateSentences splits text on '.', '?', '!' and keeps at most max
// sentences.
func truncateSentences(text string, max int) string {
	sentences := splitSentences(text)
	if len(sentences) <= max {
		return text
	}
	return strings.Join(sentences[:max], " ")
}

func splitSentences(text string) []string {
	var sentences []string
	var cur strings.Builder
	for _, r := range text {
		cur.WriteRune(r)
		if r == '.' || r == '?' || r == '!' {
			s := strings.TrimSpace(cur.String())
			if s != "" {
				sentences = append(sentences, s)
			}
			cur.Reset()
		}
	}
	if rest := strings.TrimSpace(cur.String()); rest != "" {
		sentences = append(sentences, rest)
	}
	return sentences
}
