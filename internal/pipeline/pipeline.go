// Package pipeline wires a session's decoded audio frames through the
// protocol processor and the englishizer, publishing plainEnglish and
// latencyWarning events (spec.md §4.14). One Pipeline serves one session's
// single-producer/single-consumer decode chain; ordering within a session
// is preserved since frames are ingested sequentially.
package pipeline

import (
	"context"
	"time"

	"github.com/tphakala/gibberlink-gateway/internal/audiodecoder"
	"github.com/tphakala/gibberlink-gateway/internal/englishizer"
	"github.com/tphakala/gibberlink-gateway/internal/events"
	"github.com/tphakala/gibberlink-gateway/internal/logging"
	"github.com/tphakala/gibberlink-gateway/internal/protocol"
	"github.com/tphakala/gibberlink-gateway/internal/xerrors"
)

// DefaultMaxLatencyMS is the latency budget from frame arrival to a
// published plainEnglish event before a latencyWarning is also emitted.
const DefaultMaxLatencyMS = 300

// inFlight tracks the parts of a still-assembling multipart message so the
// plainEnglish event can report an SNR/lock average across all of them
// and a latency measured from the first contributing frame.
type inFlight struct {
	startedAt time.Time
	snrSum    float64
	lockSum   float64
	count     int
}

// Pipeline orchestrates one session's audio-to-plain-English chain:
// Processor owns deframe/FEC/codec decode and multipart reassembly;
// Englishizer renders the decoded value into a human-readable summary.
type Pipeline struct {
	SessionID    string
	Processor    *protocol.Processor
	Englishizer  *englishizer.Englishizer
	MaxLatencyMS float64

	Transport string
	Codec     string

	stats   Stats
	pending map[[4]byte]*inFlight

	// OnPlainEnglish/OnLatencyWarning let a single in-process caller (the
	// API layer's per-connection WebSocket handler) receive this
	// pipeline's own results directly, without subscribing a consumer to
	// the process-wide event bus for a connection that may last seconds.
	// Both are optional; the bus publication below always happens too.
	OnPlainEnglish   func(msgID string, result englishizer.Englishized, avgSNR, avgLock, latencyMS float64)
	OnLatencyWarning func(msgID string, latencyMS float64)
}

// Stats tracks running pipeline health for a session.
type Stats struct {
	FramesIngested   int
	CRCFailures      int
	MessagesComplete int
	DecodeErrors     int
	LatencyWarnings  int
}

// New constructs a Pipeline for sessionID. transport/codec label the
// synthesized GatewayEvent envelope (spec.md §4.14 step 5 fixes these to
// "Audio"/"JSON", but callers may override for non-audio transports
// routed through the same orchestration).
func New(sessionID string, proc *protocol.Processor, eng *englishizer.Englishizer) *Pipeline {
	return &Pipeline{
		SessionID:    sessionID,
		Processor:    proc,
		Englishizer:  eng,
		MaxLatencyMS: DefaultMaxLatencyMS,
		Transport:    "Audio",
		Codec:        "JSON",
		pending:      make(map[[4]byte]*inFlight),
	}
}

// Ingest processes one decoded audio frame: it updates counters, attempts
// the authoritative protocol decode of frame.RawFrame, and — once a
// message completes — englishizes the result and publishes a
// plainEnglish event (and a latencyWarning if the budget was exceeded).
//
// A frame whose best-effort CRCValid is false is not aborted outright: it
// is still handed to the processor, whose own deframe is authoritative and
// rejects a corrupt frame there. CRCValid only gates the failure counter.
func (p *Pipeline) Ingest(ctx context.Context, frame audiodecoder.PipelineFrame) error {
	p.stats.FramesIngested++
	if !frame.CRCValid {
		p.stats.CRCFailures++
	}

	if len(frame.RawFrame) == 0 {
		return nil
	}

	decoded, ok, err := p.Processor.Decode(frame.RawFrame)
	if err != nil {
		p.stats.DecodeErrors++
		p.publishError(err, "decodeError")
		return nil
	}
	if !ok {
		p.trackPending(decoded.MsgID, frame)
		return nil
	}

	fi := p.pending[decoded.MsgID]
	delete(p.pending, decoded.MsgID)
	if fi == nil {
		fi = &inFlight{startedAt: frame.Timestamp, snrSum: frame.SNRdB, lockSum: frame.LockPct, count: 1}
	}

	return p.completeMessage(ctx, decoded, fi, frame.Timestamp)
}

func (p *Pipeline) trackPending(msgID [4]byte, frame audiodecoder.PipelineFrame) {
	fi, ok := p.pending[msgID]
	if !ok {
		fi = &inFlight{startedAt: frame.Timestamp}
		p.pending[msgID] = fi
	}
	fi.snrSum += frame.SNRdB
	fi.lockSum += frame.LockPct
	fi.count++
}

func (p *Pipeline) completeMessage(ctx context.Context, decoded protocol.Decoded, fi *inFlight, completedAt time.Time) error {
	p.stats.MessagesComplete++

	msgID := string(decoded.MsgID[:])
	event := englishizer.GatewayEvent{
		Kind:    "unknown",
		Payload: decoded.Value,
		Meta: englishizer.Meta{
			MsgID:     msgID,
			Transport: p.Transport,
			Codec:     p.Codec,
			Timestamp: completedAt,
			SessionID: p.SessionID,
		},
	}

	result, err := p.Englishizer.Process(ctx, event, englishizer.Options{})
	if err != nil {
		p.stats.DecodeErrors++
		p.publishError(err, "decodeError")
		return nil
	}

	count := fi.count
	if count == 0 {
		count = 1
	}
	avgSNR := fi.snrSum / float64(count)
	avgLock := fi.lockSum / float64(count)
	latencyMS := float64(completedAt.Sub(fi.startedAt).Microseconds()) / 1000.0

	p.publishPlainEnglish(msgID, result, avgSNR, avgLock, fi.startedAt, completedAt, latencyMS)

	if latencyMS > p.MaxLatencyMS {
		p.stats.LatencyWarnings++
		p.publishLatencyWarning(msgID, latencyMS)
	}

	return nil
}

func (p *Pipeline) publishPlainEnglish(msgID string, result englishizer.Englishized, avgSNR, avgLock float64, startedAt, completedAt time.Time, latencyMS float64) {
	if p.OnPlainEnglish != nil {
		p.OnPlainEnglish(msgID, result, avgSNR, avgLock, latencyMS)
	}

	bus := events.GetEventBus()
	if bus == nil {
		return
	}
	bus.TryPublish(events.PipelineEvent{
		Kind:      events.KindPlainEnglish,
		SessionID: p.SessionID,
		Timestamp: completedAt,
		PlainEnglish: &events.PlainEnglishPayload{
			MsgID:        msgID,
			Sentence:     result.Text,
			Confidence:   result.Confidence,
			AverageSNRdB: avgSNR,
			AverageLock:  avgLock,
			StartedAt:    startedAt,
			CompletedAt:  completedAt,
			LatencyMS:    latencyMS,
		},
	})
}

func (p *Pipeline) publishLatencyWarning(msgID string, latencyMS float64) {
	if p.OnLatencyWarning != nil {
		p.OnLatencyWarning(msgID, latencyMS)
	}

	bus := events.GetEventBus()
	if bus == nil {
		return
	}
	bus.TryPublish(events.PipelineEvent{
		Kind:      events.KindLatencyWarning,
		SessionID: p.SessionID,
		Timestamp: time.Now(),
		Latency: &events.LatencyWarningPayload{
			MsgID:       msgID,
			Stage:       "audio_to_plain",
			ActualMS:    latencyMS,
			ThresholdMS: p.MaxLatencyMS,
		},
	})
}

func (p *Pipeline) publishError(err error, stage string) {
	bus := events.GetEventBus()
	if bus == nil {
		logging.Warn("pipeline: "+stage+" with no active event bus", "session_id", p.SessionID, "error", err)
		return
	}
	enhanced, ok := err.(*xerrors.EnhancedError)
	if !ok {
		enhanced = xerrors.New(err).Category(xerrors.CategoryPipeline).Build()
	}
	bus.TryPublish(events.PipelineEvent{
		Kind:      events.KindError,
		SessionID: p.SessionID,
		Timestamp: time.Now(),
		Error: &events.ErrorPayload{
			Component: enhanced.GetComponent(),
			Category:  enhanced.GetCategory(),
			Context:   enhanced.GetContext(),
			Err:       enhanced,
		},
	})
}

// Stats returns a snapshot of running pipeline statistics.
func (p *Pipeline) Stats() Stats { return p.stats }
