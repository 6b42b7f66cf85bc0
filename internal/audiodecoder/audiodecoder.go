// Package audiodecoder owns the acoustic receive chain: each PCM chunk is
// handed straight to the modem, recovered bytestreams are deframed and
// decoded, and the result is emitted both as a return value and as bus
// events so slower consumers (logging, metrics) never block the decode
// path. There is no ring buffer: samples are not carried across calls, so
// a tail shorter than one detection block at the end of a chunk is not
// joined to the start of the next chunk.
package audiodecoder

import (
	"math"
	"time"

	"github.com/tphakala/gibberlink-gateway/internal/events"
	"github.com/tphakala/gibberlink-gateway/internal/framer"
	"github.com/tphakala/gibberlink-gateway/internal/modem"
	"github.com/tphakala/gibberlink-gateway/internal/xerrors"
)

// PipelineFrame is a successfully demodulated wire frame. RawFrame is the
// complete framer-encoded blob the modem recovered — the authoritative
// bytes for the protocol processor's own deframe/FEC/codec decode and
// chunk reassembly. The MsgID/Payload/CRCValid fields are a best-effort
// single-frame deframe attempted here purely for event/stats metadata.
// One chunk of a multipart message parses without a CRC check (its CRC
// covers the whole message and is verified only after reassembly), so it
// gets CRCValid=true. The fields are empty/false for a frame this package
// could not deframe at all (corrupt or truncated), which is not itself an
// error — the pipeline's own decode is authoritative.
type PipelineFrame struct {
	MsgID     [4]byte
	Payload   []byte
	RawFrame  []byte
	Timestamp time.Time
	SNRdB     float64
	LockPct   float64
	CRCValid  bool
}

// AudioStats tracks running decode health for a session.
type AudioStats struct {
	TotalChunks   int
	TotalFrames   int
	AverageSNR    float64
	ErrorRate     float64
	LastFrameTime time.Time

	errorCount int
}

// Decoder wraps a modem.Decoder, publishing frame/error/stats events to the
// bus as it recovers frames from a PCM stream.
type Decoder struct {
	sessionID string
	modem     *modem.Decoder
	stats     AudioStats

	silenceThreshold float64
}

// New constructs a Decoder for sessionID using params to configure the
// underlying modem.
func New(sessionID string, params modem.Params) *Decoder {
	return &Decoder{
		sessionID:        sessionID,
		modem:            modem.NewDecoder(params),
		silenceThreshold: params.SilenceThresh,
	}
}

// DecodeChunk demodulates pcm, deframes every recovered bytestream, and
// returns the resulting PipelineFrames. A silent chunk (RMS below the
// configured silence threshold) skips the FFT/demodulation stage entirely.
func (d *Decoder) DecodeChunk(pcm []float64) ([]PipelineFrame, error) {
	d.stats.TotalChunks++

	if rms(pcm) < d.silenceThreshold {
		return nil, nil
	}

	results := d.modem.DecodeChunk(pcm, time.Now())
	if len(results) == 0 {
		return nil, nil
	}

	frames := make([]PipelineFrame, 0, len(results))
	for _, r := range results {
		frame := d.toPipelineFrame(r)
		if !frame.CRCValid {
			d.stats.errorCount++
			d.publishError(xerrors.Newf("single-frame deframe attempt failed (corrupt or truncated frame)").
				Category(xerrors.CategoryFraming).
				Build())
			// Not fatal: RawFrame still carries the recovered bytes for the
			// pipeline's own authoritative deframe/reassemble/decode.
		}
		frames = append(frames, frame)
		d.stats.TotalFrames++
		d.stats.LastFrameTime = frame.Timestamp
		d.updateRunningSNR(frame.SNRdB)
		d.publishFrame(frame)
	}

	if d.stats.TotalChunks > 0 {
		d.stats.ErrorRate = float64(d.stats.errorCount) / float64(d.stats.TotalChunks)
	}
	d.publishStats()

	return frames, nil
}

// toPipelineFrame always carries r.Payload forward as RawFrame — the
// pipeline's authoritative input for protocol.Processor.Decode. The
// MsgID/Payload/CRCValid fields are a best-effort single-frame deframe
// attempted here only so events/stats have something to report per chunk;
// they are left zero-valued when the attempt fails (a corrupt or truncated
// frame), which is not treated as an error here. A chunk of a multipart
// message parses without a CRC check and so gets CRCValid=true.
func (d *Decoder) toPipelineFrame(r modem.Result) PipelineFrame {
	frame := PipelineFrame{
		RawFrame:  r.Payload,
		Timestamp: r.Timestamp,
		SNRdB:     r.SNR,
		LockPct:   r.LockPct,
	}
	f, err := framer.Decode(r.Payload)
	if err != nil {
		return frame
	}
	copy(frame.MsgID[:], f.MsgID[:])
	frame.Payload = f.Payload
	frame.CRCValid = f.Chunked || f.CRC32 != 0
	return frame
}

func (d *Decoder) updateRunningSNR(snr float64) {
	n := float64(d.stats.TotalFrames)
	if n <= 1 {
		d.stats.AverageSNR = snr
		return
	}
	d.stats.AverageSNR += (snr - d.stats.AverageSNR) / n
}

// Stats returns a snapshot of running decode statistics.
func (d *Decoder) Stats() AudioStats { return d.stats }

func (d *Decoder) publishFrame(f PipelineFrame) {
	bus := events.GetEventBus()
	if bus == nil {
		return
	}
	bus.TryPublish(events.PipelineEvent{
		Kind:      events.KindFrame,
		SessionID: d.sessionID,
		Timestamp: f.Timestamp,
		Frame: &events.FramePayload{
			SequenceNo: d.stats.TotalFrames,
			LockPct:    f.LockPct,
			SNRdB:      f.SNRdB,
			Silence:    false,
		},
	})
}

func (d *Decoder) publishError(err *xerrors.EnhancedError) {
	bus := events.GetEventBus()
	if bus == nil {
		return
	}
	bus.TryPublish(events.PipelineEvent{
		Kind:      events.KindError,
		SessionID: d.sessionID,
		Timestamp: time.Now(),
		Error: &events.ErrorPayload{
			Component: err.GetComponent(),
			Category:  err.GetCategory(),
			Context:   err.GetContext(),
			Err:       err,
		},
	})
}

func (d *Decoder) publishStats() {
	bus := events.GetEventBus()
	if bus == nil {
		return
	}
	bus.TryPublish(events.PipelineEvent{
		Kind:      events.KindStats,
		SessionID: d.sessionID,
		Timestamp: time.Now(),
		Stats: &events.StatsPayload{
			Counters: map[string]float64{
				"total_chunks": float64(d.stats.TotalChunks),
				"total_frames": float64(d.stats.TotalFrames),
				"average_snr":  d.stats.AverageSNR,
				"error_rate":   d.stats.ErrorRate,
			},
		},
	})
}

func rms(samples []float64) float64 {
	if len(samples) == 0 {
		return 0
	}
	var sumSq float64
	for _, s := range samples {
		sumSq += s * s
	}
	mean := sumSq / float64(len(samples))
	return math.Sqrt(mean)
}
