package englishizer

// kindMatchers runs in priority order; the first match wins. Each matcher
// inspects the (already redacted) payload map and reports whether it
// recognizes the shape.
var kindMatchers = []struct {
	kind  string
	match func(map[string]any) bool
}{
	{"audio-error", matchAudioError},
	{"sensor-status", matchSensorStatus},
	{"handshake", matchHandshake},
	{"compute-request", matchComputeRequest},
	{"ack", matchAck},
	{"error", matchError},
	{"policy-decision", matchPolicyDecision},
}

func detectKind(payload map[string]any) string {
	for _, m := range kindMatchers {
		if m.match(payload) {
			return m.kind
		}
	}
	return "unknown"
}

func hasKeys(payload map[string]any, keys ...string) bool {
	for _, k := range keys {
		if _, ok := payload[k]; !ok {
			return false
		}
	}
	return true
}

func matchAudioError(p map[string]any) bool {
	if !hasKeys(p, "code") {
		return false
	}
	_, hasAudioMarker := p["audioFrame"]
	code, isNumber := asFloat(p["code"])
	return isNumber && hasAudioMarker && isHTTPLikeCode(code)
}

func matchSensorStatus(p map[string]any) bool {
	op, _ := p["op"].(string)
	switch op {
	case "sensor_read", "status_check", "status":
		return true
	}
	return false
}

func matchHandshake(p map[string]any) bool {
	return hasKeys(p, "transport", "codec", "negotiated")
}

func matchComputeRequest(p map[string]any) bool {
	return hasKeys(p, "op", "args")
}

func matchAck(p map[string]any) bool {
	return hasKeys(p, "ackOf")
}

func matchError(p map[string]any) bool {
	return hasKeys(p, "errorKind") || hasKeys(p, "code", "message")
}

func matchPolicyDecision(p map[string]any) bool {
	return hasKeys(p, "decision", "policy")
}

func isHTTPLikeCode(code float64) bool {
	switch int(code) {
	case 400, 403, 404, 500:
		return true
	default:
		return false
	}
}

func asFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case int:
		return float64(n), true
	default:
		return 0, false
	}
}
