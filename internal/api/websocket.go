package api

import (
	"context"
	"encoding/base64"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"

	"github.com/tphakala/gibberlink-gateway/internal/audiodecoder"
	"github.com/tphakala/gibberlink-gateway/internal/englishizer"
	"github.com/tphakala/gibberlink-gateway/internal/modem"
	"github.com/tphakala/gibberlink-gateway/internal/pipeline"
	"github.com/tphakala/gibberlink-gateway/internal/policy"
	"github.com/tphakala/gibberlink-gateway/internal/protocol"
	"github.com/tphakala/gibberlink-gateway/internal/session"
)

// wsInbound is the envelope for every message read from a /v1/messages
// connection (spec.md §6). Payload/Samples/Preset are populated depending
// on Type; unused fields are simply left zero.
type wsInbound struct {
	Type              string    `json:"type"`
	Target            string    `json:"target"`
	Payload           any       `json:"payload"`
	RequireTranscript bool      `json:"requireTranscript"`
	Preset            string    `json:"preset"`
	Samples           []float64 `json:"samples"`
}

// wsOutbound is the envelope for every message written to a /v1/messages
// connection.
type wsOutbound struct {
	Type      string    `json:"type"`
	Timestamp time.Time `json:"timestamp"`

	MsgID        string  `json:"msgId,omitempty"`
	BytesBase64  string  `json:"bytesBase64,omitempty"`
	Frames       int     `json:"frames,omitempty"`
	Size         int     `json:"size,omitempty"`
	TranscriptID string  `json:"transcriptId,omitempty"`
	Sentence     string  `json:"sentence,omitempty"`
	Confidence   float64 `json:"confidence,omitempty"`
	AverageSNRdB float64 `json:"averageSnrDb,omitempty"`
	AverageLock  float64 `json:"averageLock,omitempty"`
	LatencyMS    float64 `json:"latencyMs,omitempty"`
	Message      string  `json:"message,omitempty"`
}

// wsConn serializes writes to a single connection: gorilla/websocket
// forbids concurrent writers, and both the read loop and the pipeline's
// OnPlainEnglish/OnLatencyWarning callbacks (invoked synchronously from
// within Ingest, itself called from the read loop) need to write.
type wsConn struct {
	mu sync.Mutex
	ws *websocket.Conn
}

func (c *wsConn) writeJSON(v any) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ws.WriteJSON(v)
}

// Messages handles a GET /v1/messages?sessionId=… WebSocket connection,
// per spec.md §6. One connection serves one session: a "send" message
// runs the same encode path as POST /v1/encode; "audio.*" messages drive
// a per-connection audiodecoder.Decoder and pipeline.Pipeline so live PCM
// chunks stream back as "recv.plain" translations as messages complete.
func (c *Controller) Messages(ctx echo.Context) error {
	sessionID := ctx.QueryParam("sessionId")
	sess, found := c.Sessions.Get(sessionID)
	if !found {
		return writeError(ctx, codeSessionNotFound, "session not found or expired", http.StatusNotFound)
	}

	conn, err := upgrader.Upgrade(ctx.Response(), ctx.Request(), nil)
	if err != nil {
		return err
	}
	wc := &wsConn{ws: conn}
	defer conn.Close()

	codecImpl := c.codecForSession(sess)
	proc := protocol.NewProcessor(codecImpl, c.FECCodec, c.FrameOpts)

	var (
		dec     *audiodecoder.Decoder
		pl      *pipeline.Pipeline
		started bool
	)

	pgCtx := ctx.Request().Context()

	for {
		var in wsInbound
		if err := conn.ReadJSON(&in); err != nil {
			return nil
		}

		switch in.Type {
		case "send":
			c.handleWSSend(ctx, wc, sess, proc, in)

		case "audio.start":
			params := c.ModemParam
			if in.Preset != "" {
				params = modem.DefaultParams(modem.Preset(in.Preset))
			}
			dec = audiodecoder.New(sessionID, params)
			eng := englishizer.New()
			pl = pipeline.New(sessionID, proc, eng)
			pl.OnPlainEnglish = func(msgID string, result englishizer.Englishized, avgSNR, avgLock, latencyMS float64) {
				_ = wc.writeJSON(wsOutbound{
					Type:         "recv.plain",
					Timestamp:    time.Now(),
					MsgID:        base64.RawURLEncoding.EncodeToString([]byte(msgID)),
					Sentence:     result.Text,
					Confidence:   result.Confidence,
					AverageSNRdB: avgSNR,
					AverageLock:  avgLock,
					LatencyMS:    latencyMS,
				})
			}
			pl.OnLatencyWarning = func(msgID string, latencyMS float64) {
				_ = wc.writeJSON(wsOutbound{
					Type:      "audio.noise",
					Timestamp: time.Now(),
					MsgID:     base64.RawURLEncoding.EncodeToString([]byte(msgID)),
					Message:   "pipeline latency budget exceeded",
					LatencyMS: latencyMS,
				})
			}
			started = true
			_ = wc.writeJSON(wsOutbound{Type: "audio.started", Timestamp: time.Now()})

		case "audio.frame", "audio.raw":
			if !started || dec == nil {
				_ = wc.writeJSON(wsOutbound{Type: "error", Timestamp: time.Now(), Message: "audio.start required before streaming samples"})
				continue
			}
			c.handleWSAudio(pgCtx, wc, dec, pl, in.Samples)

		case "audio.stop":
			started = false
			stats := audiodecoder.AudioStats{}
			if dec != nil {
				stats = dec.Stats()
			}
			_ = wc.writeJSON(wsOutbound{
				Type:      "audio.stopped",
				Timestamp: time.Now(),
				Frames:    stats.TotalFrames,
			})
			dec = nil
			pl = nil

		default:
			_ = wc.writeJSON(wsOutbound{Type: "error", Timestamp: time.Now(), Message: "unknown message type: " + in.Type})
		}
	}
}

func (c *Controller) handleWSSend(ctx echo.Context, wc *wsConn, sess session.Session, proc *protocol.Processor, in wsInbound) {
	msgID := newMsgID()
	codecName := proc.Codec.Name()

	decision, err := c.Policy.CheckPolicy(in.Payload, policy.Features{Transport: in.Target, Codec: codecName})
	if err != nil {
		_ = wc.writeJSON(wsOutbound{Type: "error", Timestamp: time.Now(), Message: "policy check failed: " + err.Error()})
		return
	}
	if c.Metrics != nil {
		c.Metrics.RecordPolicyDecision(decision.Allowed)
	}
	if !decision.Allowed {
		c.appendAudit(ctx, msgID, sess, decision, in.Target, codecName, 0)
		_ = wc.writeJSON(wsOutbound{Type: "error", Timestamp: time.Now(), Message: decision.Reason})
		return
	}

	frames, err := proc.Encode(msgID, in.Payload)
	if err != nil {
		_ = wc.writeJSON(wsOutbound{Type: "error", Timestamp: time.Now(), Message: "encode failed: " + err.Error()})
		return
	}

	var joined []byte
	for _, f := range frames {
		joined = append(joined, f...)
	}

	entryID := c.appendAudit(ctx, msgID, sess, decision, in.Target, codecName, len(joined))
	resp := wsOutbound{
		Type:        "recv",
		Timestamp:   time.Now(),
		MsgID:       base64.RawURLEncoding.EncodeToString(msgID[:]),
		BytesBase64: base64.StdEncoding.EncodeToString(joined),
		Frames:      len(frames),
		Size:        len(joined),
	}
	if in.RequireTranscript {
		resp.TranscriptID = entryID
	}
	_ = wc.writeJSON(resp)
}

func (c *Controller) handleWSAudio(ctx context.Context, wc *wsConn, dec *audiodecoder.Decoder, pl *pipeline.Pipeline, samples []float64) {
	if c.audioLimiter != nil && !c.audioLimiter.Allow() {
		_ = wc.writeJSON(wsOutbound{Type: "audio.error", Timestamp: time.Now(), Message: "audio frame rate limit exceeded"})
		return
	}
	frames, err := dec.DecodeChunk(samples)
	if err != nil {
		_ = wc.writeJSON(wsOutbound{Type: "audio.error", Timestamp: time.Now(), Message: err.Error()})
		return
	}
	for _, frame := range frames {
		if pl == nil {
			continue
		}
		if err := pl.Ingest(ctx, frame); err != nil {
			_ = wc.writeJSON(wsOutbound{Type: "audio.error", Timestamp: time.Now(), Message: err.Error()})
		}
	}
}
