package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestMetrics(t *testing.T) *GatewayMetrics {
	t.Helper()
	reg := prometheus.NewRegistry()
	m, err := New(reg)
	require.NoError(t, err)
	return m
}

func TestRecordFrameDecoded(t *testing.T) {
	m := newTestMetrics(t)

	m.RecordFrameDecoded("sess-1", true)
	m.RecordFrameDecoded("sess-1", false)

	assert.Equal(t, float64(2), testutil.ToFloat64(m.framesDecoded.WithLabelValues("sess-1")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.crcFailuresTotal.WithLabelValues("sess-1")))
}

func TestRecordMessageCompletedObservesLatency(t *testing.T) {
	m := newTestMetrics(t)

	m.RecordMessageCompleted("sess-1", 42.5)

	assert.Equal(t, float64(1), testutil.ToFloat64(m.messagesCompleted.WithLabelValues("sess-1")))
}

func TestRecordDecodeErrorLabelsByStage(t *testing.T) {
	m := newTestMetrics(t)

	m.RecordDecodeError("sess-1", "decodeError")
	m.RecordDecodeError("sess-1", "englishizeError")

	assert.Equal(t, float64(1), testutil.ToFloat64(m.decodeErrorsTotal.WithLabelValues("sess-1", "decodeError")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.decodeErrorsTotal.WithLabelValues("sess-1", "englishizeError")))
}

func TestSetActiveSessions(t *testing.T) {
	m := newTestMetrics(t)

	m.SetActiveSessions(3)

	assert.Equal(t, float64(3), testutil.ToFloat64(m.activeSessions))
}

func TestRecordPolicyDecisionLabelsByOutcome(t *testing.T) {
	m := newTestMetrics(t)

	m.RecordPolicyDecision(true)
	m.RecordPolicyDecision(false)
	m.RecordPolicyDecision(false)

	assert.Equal(t, float64(1), testutil.ToFloat64(m.policyDecisions.WithLabelValues("true")))
	assert.Equal(t, float64(2), testutil.ToFloat64(m.policyDecisions.WithLabelValues("false")))
}

func TestNilMetricsMethodsAreNoOps(t *testing.T) {
	var m *GatewayMetrics
	assert.NotPanics(t, func() {
		m.RecordFrameDecoded("x", true)
		m.RecordMessageCompleted("x", 1)
		m.RecordDecodeError("x", "y")
		m.RecordLatencyWarning("x")
		m.SetActiveSessions(1)
		m.RecordHandshake("ok")
		m.RecordAuditAppend("allow")
		m.RecordPolicyDecision(true)
		m.RecordAPIRequest("/v1/health", "200", 0.01)
	})
}
