package api

import (
	"encoding/base64"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/tphakala/gibberlink-gateway/internal/audit"
	"github.com/tphakala/gibberlink-gateway/internal/codec"
	"github.com/tphakala/gibberlink-gateway/internal/crc32x"
	"github.com/tphakala/gibberlink-gateway/internal/framer"
	"github.com/tphakala/gibberlink-gateway/internal/policy"
	"github.com/tphakala/gibberlink-gateway/internal/protocol"
	"github.com/tphakala/gibberlink-gateway/internal/session"
)

// healthResponse is the spec.md §6 `/v1/health` body.
type healthResponse struct {
	Status     string   `json:"status"`
	Timestamp  time.Time `json:"timestamp"`
	Transports []string `json:"transports"`
	Codecs     []string `json:"codecs"`
	Version    string   `json:"version"`
}

// HealthCheck is unauthenticated and unrate-limited, per spec.md §6.
func (c *Controller) HealthCheck(ctx echo.Context) error {
	return ctx.JSON(http.StatusOK, healthResponse{
		Status:     "ok",
		Timestamp:  time.Now(),
		Transports: []string{"ws", "wss", "udp", "audio"},
		Codecs:     []string{"json", "msgpack", "cbor"},
		Version:    c.Runtime.GetVersion(),
	})
}

type handshakeRequest struct {
	ClientFeatures session.Features `json:"clientFeatures"`
	PeerAddress    string           `json:"peerAddress"`
}

type handshakeResponse struct {
	SessionID   string           `json:"sessionId"`
	Negotiated  session.Features `json:"negotiated"`
	PeerAddress string           `json:"peerAddress"`
	ExpiresAt   time.Time        `json:"expiresAt"`
}

// serverFeatures are this gateway's own advertised capabilities, used as
// the "server" side of session.Negotiate.
func (c *Controller) serverFeatures() session.Features {
	return session.Features{Compression: "zstd", FEC: true, Crypto: false, MaxMTU: framer.DefaultMaxFrameSize}
}

// Handshake negotiates a session per spec.md §4.10/§6.
func (c *Controller) Handshake(ctx echo.Context) error {
	var req handshakeRequest
	if err := ctx.Bind(&req); err != nil {
		return writeError(ctx, codeBadRequest, "malformed handshake request body", http.StatusBadRequest)
	}

	peer, err := session.ParseAddress(req.PeerAddress)
	if err != nil {
		return writeError(ctx, codeBadRequest, "invalid peerAddress: "+err.Error(), http.StatusBadRequest)
	}

	hs, err := session.Negotiate(req.ClientFeatures, c.serverFeatures(), peer)
	if err != nil {
		if c.Metrics != nil {
			c.Metrics.RecordHandshake("error")
		}
		return writeError(ctx, codeBadRequest, err.Error(), http.StatusBadRequest)
	}

	c.Sessions.Create(hs, peer.Protocol)
	if c.Metrics != nil {
		c.Metrics.RecordHandshake("ok")
		c.Metrics.SetActiveSessions(c.Sessions.Len())
	}

	return ctx.JSON(http.StatusOK, handshakeResponse{
		SessionID:   hs.SessionID,
		Negotiated:  hs.Negotiated,
		PeerAddress: req.PeerAddress,
		ExpiresAt:   hs.ExpiresAt,
	})
}

type encodeRequest struct {
	SessionID         string `json:"sessionId"`
	Target            string `json:"target"`
	Payload           any    `json:"payload"`
	RequireTranscript bool   `json:"requireTranscript"`
}

type encodeResponse struct {
	MsgID        string `json:"msgId"`
	BytesBase64  string `json:"bytesBase64"`
	Frames       int    `json:"frames"`
	Size         int    `json:"size"`
	CRC32        string `json:"crc32"`
	TranscriptID string `json:"transcriptId,omitempty"`
}

// Encode runs a payload through the policy gate and the protocol
// processor, returning the resulting wire frames base64-encoded.
func (c *Controller) Encode(ctx echo.Context) error {
	var req encodeRequest
	if err := ctx.Bind(&req); err != nil {
		return writeError(ctx, codeBadRequest, "malformed encode request body", http.StatusBadRequest)
	}

	sess, found := c.Sessions.Get(req.SessionID)
	if !found {
		return writeError(ctx, codeSessionNotFound, "session not found or expired", http.StatusNotFound)
	}

	msgID := newMsgID()
	codecImpl := c.codecForSession(sess)

	decision, err := c.Policy.CheckPolicy(req.Payload, policy.Features{Transport: req.Target, Codec: codecImpl.Name()})
	if err != nil {
		return writeError(ctx, codeInternalError, "policy check failed: "+err.Error(), http.StatusInternalServerError)
	}
	if c.Metrics != nil {
		c.Metrics.RecordPolicyDecision(decision.Allowed)
	}
	if !decision.Allowed {
		c.appendAudit(ctx, msgID, sess, decision, req.Target, codecImpl.Name(), 0)
		return writeError(ctx, codePolicyViolation, decision.Reason, http.StatusForbidden)
	}

	proc := protocol.NewProcessor(codecImpl, c.FECCodec, c.FrameOpts)
	frames, err := proc.Encode(msgID, req.Payload)
	if err != nil {
		return writeError(ctx, codeInternalError, "encode failed: "+err.Error(), http.StatusInternalServerError)
	}

	var totalSize int
	for _, f := range frames {
		totalSize += len(f)
	}
	var joined []byte
	for _, f := range frames {
		joined = append(joined, f...)
	}
	crc := crc32x.Calculate(joined)

	resp := encodeResponse{
		MsgID:       base64.RawURLEncoding.EncodeToString(msgID[:]),
		BytesBase64: base64.StdEncoding.EncodeToString(joined),
		Frames:      len(frames),
		Size:        totalSize,
		CRC32:       crc32x.Hex(crc),
	}

	entryID := c.appendAudit(ctx, msgID, sess, decision, req.Target, codecImpl.Name(), totalSize)
	if req.RequireTranscript {
		resp.TranscriptID = entryID
		if c.Transcript != nil {
			if err := c.Transcript.Put(entryID, req.Payload, frames); err != nil && c.logger != nil {
				c.logger.Warn("transcript persist failed", "error", err)
			}
		}
	}

	return ctx.JSON(http.StatusOK, resp)
}

type decodeRequest struct {
	BytesBase64 string `json:"bytesBase64"`
}

type decodeResponse struct {
	MsgID    string `json:"msgId"`
	Payload  any    `json:"payload"`
	Metadata any    `json:"metadata"`
	CRC32    string `json:"crc32"`
}

// Decode deframes, FEC-decodes, and codec-decodes a raw frame.
func (c *Controller) Decode(ctx echo.Context) error {
	var req decodeRequest
	if err := ctx.Bind(&req); err != nil {
		return writeError(ctx, codeBadRequest, "malformed decode request body", http.StatusBadRequest)
	}

	raw, err := base64.StdEncoding.DecodeString(req.BytesBase64)
	if err != nil {
		return writeError(ctx, codeBadRequest, "bytesBase64 is not valid base64", http.StatusBadRequest)
	}

	proc := protocol.NewProcessor(codec.JSON{}, c.FECCodec, c.FrameOpts)
	decoded, ok, err := proc.Decode(raw)
	if err != nil {
		if c.Metrics != nil {
			c.Metrics.RecordDecodeError("", "decodeError")
		}
		return writeError(ctx, codeDecodeFailed, err.Error(), http.StatusBadRequest)
	}
	if !ok {
		return writeError(ctx, codeDecodeFailed, "frame is a partial chunk of a larger message", http.StatusBadRequest)
	}

	crc := crc32x.Calculate(raw)
	return ctx.JSON(http.StatusOK, decodeResponse{
		MsgID:    base64.RawURLEncoding.EncodeToString(decoded.MsgID[:]),
		Payload:  decoded.Value,
		Metadata: map[string]any{"size": len(raw)},
		CRC32:    crc32x.Hex(crc),
	})
}

type transcriptResponse struct {
	MsgID     string       `json:"msgId"`
	Timestamp time.Time    `json:"timestamp"`
	Payload   any          `json:"payload,omitempty"`
	Metadata  any          `json:"metadata,omitempty"`
	Audit     *audit.Entry `json:"audit"`
	RawFrames []string     `json:"rawFrames"`
}

// Transcript looks up an audit entry for msgId, plus its persisted
// payload and raw wire frames if the encode call that produced it set
// requireTranscript. Payload/rawFrames stay empty for messages encoded
// without that flag, since nothing was stored for them.
func (c *Controller) Transcript(ctx echo.Context) error {
	msgID := ctx.Param("msgId")
	entry, found, err := c.Audit.Lookup(msgID)
	if err != nil {
		return writeError(ctx, codeInternalError, "transcript lookup failed: "+err.Error(), http.StatusInternalServerError)
	}
	if !found {
		return writeError(ctx, codeNotFound, "no transcript for msgId", http.StatusNotFound)
	}

	resp := transcriptResponse{
		MsgID:     entry.MsgID,
		Timestamp: entry.Timestamp,
		Audit:     &entry,
		RawFrames: []string{},
	}
	if c.Transcript != nil {
		if rec, found, err := c.Transcript.Lookup(msgID); err != nil {
			if c.logger != nil {
				c.logger.Warn("transcript store lookup failed", "error", err)
			}
		} else if found {
			resp.Payload = rec.Payload
			resp.RawFrames = rec.RawFrames
		}
	}

	return ctx.JSON(http.StatusOK, resp)
}

func (c *Controller) codecForSession(sess session.Session) codec.Codec {
	base := codec.Codec(codec.JSON{})
	if sess.Negotiated.Compression == "zstd" {
		return codec.NewCompressed(base, codec.Zstd)
	}
	return base
}

func (c *Controller) appendAudit(ctx echo.Context, msgID [4]byte, sess session.Session, decision policy.Decision, transport, codecName string, size int) string {
	if c.Audit == nil {
		return ""
	}
	policyDecision := "deny"
	if decision.Allowed {
		policyDecision = "allow"
	}
	entry := audit.Entry{
		Timestamp:      time.Now(),
		Route:          ctx.Path(),
		Actor:          actorFromContext(ctx),
		MsgID:          base64.RawURLEncoding.EncodeToString(msgID[:]),
		Size:           size,
		Codec:          codecName,
		Transport:      transport,
		PolicyDecision: policyDecision,
		SHA256:         decision.PayloadHash,
		PIIDetected:    decision.PIIDetected,
		RedactedFields: decision.RedactedFields,
	}
	if err := c.Audit.Append(entry); err != nil && c.logger != nil {
		c.logger.Warn("audit append failed", "error", err)
	}
	if c.Metrics != nil {
		c.Metrics.RecordAuditAppend(policyDecision)
	}
	return entry.MsgID
}

func actorFromContext(ctx echo.Context) string {
	if id, ok := ctx.Get("apiKeyID").(string); ok && id != "" {
		return id
	}
	return ctx.RealIP()
}

func newMsgID() [4]byte {
	var id [4]byte
	// crypto/rand would be stronger, but msgId only needs to be a stable,
	// practically-unique 4-byte tag per spec.md §4.3 ("implementations MAY
	// use the first 4 bytes of a NanoID-equivalent"), so the low 32 bits of
	// the current time in nanoseconds serve as a cheap tag that needs no
	// cryptographic unpredictability.
	now := time.Now().UnixNano()
	id[0] = byte(now >> 24)
	id[1] = byte(now >> 16)
	id[2] = byte(now >> 8)
	id[3] = byte(now)
	return id
}
