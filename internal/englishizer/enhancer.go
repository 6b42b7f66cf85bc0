package englishizer

import (
	"context"
	"time"

	"github.com/tphakala/gibberlink-gateway/internal/logging"
)

// EnhanceContext carries the conversational context an Enhancer may use.
type EnhanceContext struct {
	LastN     []string
	SessionID string
	Timestamp int64
}

// EnhanceRequest is what an external enhancer receives.
type EnhanceRequest struct {
	OriginalPayload     any
	DetectedKind        string
	TemplateTranslation string
	Confidence          float64
	Context             EnhanceContext
}

// EnhanceResponse is what an external enhancer returns on success.
type EnhanceResponse struct {
	Text       string
	Confidence float64
}

// Enhancer is the optional external-enhancement hook (e.g. an LLM call).
// It MUST respect ctx cancellation; the Englishizer enforces its own
// timeout around the call regardless.
type Enhancer interface {
	Enhance(ctx context.Context, req EnhanceRequest) (EnhanceResponse, error)
}

// tryEnhance calls e.Enhancer with a bounded timeout. On success it
// replaces result's text/confidence; on any failure (error or timeout) it
// leaves the template output untouched and logs a warning — it never
// raises, per spec.md §4.13 step 5.
func (e *Englishizer) tryEnhance(ctx context.Context, event GatewayEvent, kind string, result *Englishized) {
	timeout := e.EnhancerTimeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req := EnhanceRequest{
		OriginalPayload:     event.Payload,
		DetectedKind:        kind,
		TemplateTranslation: result.Text,
		Confidence:          result.Confidence,
		Context: EnhanceContext{
			LastN:     e.history[event.Meta.SessionID],
			SessionID: event.Meta.SessionID,
			Timestamp: event.Meta.Timestamp.Unix(),
		},
	}

	resp, err := e.Enhancer.Enhance(ctx, req)
	if err != nil {
		logging.Warn("englishizer: external enhancer call failed, keeping template output",
			"component", "englishizer",
			"kind", kind,
			"error", err)
		return
	}

	result.Text = resp.Text
	result.Confidence = resp.Confidence
}
