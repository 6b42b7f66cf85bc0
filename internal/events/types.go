// Package events provides an asynchronous event bus that decouples the
// audio/protocol pipeline from its observers (logging, metrics, the
// plain-English translator) so none of them can block the hot decode path.
package events

import "time"

// Kind identifies which payload field of a PipelineEvent is populated.
// A closed enum, rather than a string key, keeps the set of event kinds
// fixed and named in one place; Go does not check a consumer's switch for
// missing cases.
type Kind int

const (
	KindFrame Kind = iota
	KindError
	KindStats
	KindPlainEnglish
	KindLatencyWarning
)

func (k Kind) String() string {
	switch k {
	case KindFrame:
		return "frame"
	case KindError:
		return "error"
	case KindStats:
		return "stats"
	case KindPlainEnglish:
		return "plain_english"
	case KindLatencyWarning:
		return "latency_warning"
	default:
		return "unknown"
	}
}

// FramePayload reports a decoded audio frame's signal-quality metadata.
type FramePayload struct {
	SequenceNo int
	LockPct    float64
	SNRdB      float64
	RMS        float64
	Silence    bool
}

// ErrorPayload carries a component/category-tagged error, mirroring what
// internal/xerrors.EnhancedError exposes without importing that package
// directly (keeps events dependency-free of the error-builder machinery).
type ErrorPayload struct {
	Component string
	Category  string
	Context   map[string]any
	Err       error
}

// StatsPayload carries a named set of pipeline counters/gauges.
type StatsPayload struct {
	Counters map[string]float64
}

// PlainEnglishPayload carries a rendered Englishizer sentence along with
// the signal-quality metadata averaged across the frames that contributed
// to the decoded message.
type PlainEnglishPayload struct {
	MsgID        string
	Sentence     string
	Confidence   float64
	AverageSNRdB float64
	AverageLock  float64
	StartedAt    time.Time
	CompletedAt  time.Time
	LatencyMS    float64
}

// LatencyWarningPayload reports that a pipeline stage exceeded its budget.
type LatencyWarningPayload struct {
	MsgID       string
	Stage       string
	ActualMS    float64
	ThresholdMS float64
}

// PipelineEvent is a tagged union: exactly one payload field is populated,
// selected by Kind. Consumers switch on Kind rather than type-asserting.
type PipelineEvent struct {
	Kind      Kind
	SessionID string
	Timestamp time.Time

	Frame        *FramePayload
	Error        *ErrorPayload
	Stats        *StatsPayload
	PlainEnglish *PlainEnglishPayload
	Latency      *LatencyWarningPayload
}

// EventConsumer processes pipeline events published to the bus.
type EventConsumer interface {
	// Name returns the consumer name for identification and dedup.
	Name() string

	// ProcessEvent processes a single event.
	ProcessEvent(event PipelineEvent) error

	// ProcessBatch processes multiple events at once (for efficiency).
	ProcessBatch(events []PipelineEvent) error

	// SupportsBatching returns true if this consumer supports batch processing.
	SupportsBatching() bool
}

// EventBusStats contains runtime statistics for monitoring.
type EventBusStats struct {
	EventsReceived  uint64
	EventsProcessed uint64
	EventsDropped   uint64
	ConsumerErrors  uint64
}
