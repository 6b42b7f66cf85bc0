// Package metrics exposes the gateway's Prometheus instrumentation,
// modeled on the teacher's internal/observability/metrics package: one
// struct per subsystem, constructed against a caller-supplied registry so
// tests can use an isolated prometheus.NewRegistry() instead of the global
// default one.
package metrics

import "github.com/prometheus/client_golang/prometheus"

// GatewayMetrics bundles every counter/gauge/histogram the gateway
// records across its pipeline, session, audit, and API layers.
type GatewayMetrics struct {
	framesDecoded      *prometheus.CounterVec
	crcFailuresTotal   *prometheus.CounterVec
	messagesCompleted  *prometheus.CounterVec
	decodeErrorsTotal  *prometheus.CounterVec
	pipelineLatency    *prometheus.HistogramVec
	latencyWarnings    *prometheus.CounterVec
	activeSessions     prometheus.Gauge
	sessionsNegotiated *prometheus.CounterVec
	auditAppends       *prometheus.CounterVec
	policyDecisions    *prometheus.CounterVec
	apiRequestsTotal   *prometheus.CounterVec
	apiRequestDuration *prometheus.HistogramVec
}

// New constructs GatewayMetrics and registers every collector against reg.
// Pass prometheus.NewRegistry() in tests; the production default registry
// in the running server.
func New(reg prometheus.Registerer) (*GatewayMetrics, error) {
	m := &GatewayMetrics{
		framesDecoded: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "gibberlink",
			Subsystem: "pipeline",
			Name:      "frames_decoded_total",
			Help:      "Audio frames that reached the pipeline's decode stage, by session.",
		}, []string{"session_id"}),
		crcFailuresTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "gibberlink",
			Subsystem: "pipeline",
			Name:      "crc_failures_total",
			Help:      "Frames whose best-effort single-frame deframe reported an invalid CRC.",
		}, []string{"session_id"}),
		messagesCompleted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "gibberlink",
			Subsystem: "pipeline",
			Name:      "messages_completed_total",
			Help:      "Messages that completed protocol decode (single-frame or fully reassembled).",
		}, []string{"session_id"}),
		decodeErrorsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "gibberlink",
			Subsystem: "pipeline",
			Name:      "decode_errors_total",
			Help:      "Messages that failed deframe/FEC/codec decode or englishizing.",
		}, []string{"session_id", "stage"}),
		pipelineLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "gibberlink",
			Subsystem: "pipeline",
			Name:      "audio_to_plain_latency_ms",
			Help:      "Milliseconds from first contributing frame to a published plainEnglish event.",
			Buckets:   []float64{10, 25, 50, 100, 150, 200, 300, 500, 1000, 2000},
		}, []string{"session_id"}),
		latencyWarnings: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "gibberlink",
			Subsystem: "pipeline",
			Name:      "latency_warnings_total",
			Help:      "plainEnglish completions that exceeded maxLatencyMs.",
		}, []string{"session_id"}),
		activeSessions: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "gibberlink",
			Subsystem: "session",
			Name:      "active_sessions",
			Help:      "Sessions currently held in the session store.",
		}),
		sessionsNegotiated: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "gibberlink",
			Subsystem: "session",
			Name:      "negotiated_total",
			Help:      "Handshakes negotiated, by outcome.",
		}, []string{"outcome"}),
		auditAppends: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "gibberlink",
			Subsystem: "audit",
			Name:      "appends_total",
			Help:      "Audit journal entries appended, by policy decision.",
		}, []string{"decision"}),
		policyDecisions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "gibberlink",
			Subsystem: "policy",
			Name:      "decisions_total",
			Help:      "Policy checks evaluated, by allowed/denied outcome.",
		}, []string{"allowed"}),
		apiRequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "gibberlink",
			Subsystem: "api",
			Name:      "requests_total",
			Help:      "HTTP requests served, by route and status code.",
		}, []string{"route", "status"}),
		apiRequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "gibberlink",
			Subsystem: "api",
			Name:      "request_duration_seconds",
			Help:      "HTTP request handling duration, by route.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route"}),
	}

	collectors := []prometheus.Collector{
		m.framesDecoded, m.crcFailuresTotal, m.messagesCompleted, m.decodeErrorsTotal,
		m.pipelineLatency, m.latencyWarnings, m.activeSessions, m.sessionsNegotiated,
		m.auditAppends, m.policyDecisions, m.apiRequestsTotal, m.apiRequestDuration,
	}
	for _, c := range collectors {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// RecordFrameDecoded increments the per-session decoded-frame counter and,
// if crcValid is false, the CRC-failure counter.
func (m *GatewayMetrics) RecordFrameDecoded(sessionID string, crcValid bool) {
	if m == nil {
		return
	}
	m.framesDecoded.WithLabelValues(sessionID).Inc()
	if !crcValid {
		m.crcFailuresTotal.WithLabelValues(sessionID).Inc()
	}
}

// RecordMessageCompleted records a fully decoded message and its
// audio-to-plain latency.
func (m *GatewayMetrics) RecordMessageCompleted(sessionID string, latencyMS float64) {
	if m == nil {
		return
	}
	m.messagesCompleted.WithLabelValues(sessionID).Inc()
	m.pipelineLatency.WithLabelValues(sessionID).Observe(latencyMS)
}

// RecordDecodeError records a decode failure at the named stage
// (decodeError, englishizeError, etc).
func (m *GatewayMetrics) RecordDecodeError(sessionID, stage string) {
	if m == nil {
		return
	}
	m.decodeErrorsTotal.WithLabelValues(sessionID, stage).Inc()
}

// RecordLatencyWarning records a plainEnglish completion that exceeded its
// latency budget.
func (m *GatewayMetrics) RecordLatencyWarning(sessionID string) {
	if m == nil {
		return
	}
	m.latencyWarnings.WithLabelValues(sessionID).Inc()
}

// SetActiveSessions sets the current session-store occupancy gauge.
func (m *GatewayMetrics) SetActiveSessions(n int) {
	if m == nil {
		return
	}
	m.activeSessions.Set(float64(n))
}

// RecordHandshake records a negotiated handshake outcome ("ok" or "error").
func (m *GatewayMetrics) RecordHandshake(outcome string) {
	if m == nil {
		return
	}
	m.sessionsNegotiated.WithLabelValues(outcome).Inc()
}

// RecordAuditAppend records an audit journal write, labeled by the
// policy decision it recorded ("allow" or "deny").
func (m *GatewayMetrics) RecordAuditAppend(decision string) {
	if m == nil {
		return
	}
	m.auditAppends.WithLabelValues(decision).Inc()
}

// RecordPolicyDecision records a policy evaluation outcome.
func (m *GatewayMetrics) RecordPolicyDecision(allowed bool) {
	if m == nil {
		return
	}
	m.policyDecisions.WithLabelValues(boolLabel(allowed)).Inc()
}

// RecordAPIRequest records an HTTP request's route, status code, and
// handling duration.
func (m *GatewayMetrics) RecordAPIRequest(route, status string, durationSeconds float64) {
	if m == nil {
		return
	}
	m.apiRequestsTotal.WithLabelValues(route, status).Inc()
	m.apiRequestDuration.WithLabelValues(route).Observe(durationSeconds)
}

func boolLabel(b bool) string {
	if b {
		return "true"
	}
	return "false"
}
