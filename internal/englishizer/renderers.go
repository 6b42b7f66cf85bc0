package englishizer

import (
	"fmt"
	"sort"
	"strings"

	"github.com/tphakala/gibberlink-gateway/internal/englishizer/internal/humanize"
)

// rendered is a renderer's output before Options shaping is applied.
type rendered struct {
	Text       string
	Confidence float64
	Bullets    []string
	Fields     map[string]any
}

// render dispatches to the renderer for kind. Renderers are pure and
// deterministic per spec.md §4.13.
func render(kind string, payload map[string]any, meta Meta) rendered {
	switch kind {
	case "handshake":
		return renderHandshake(payload, meta)
	case "compute-request":
		return renderComputeRequest(payload, meta)
	case "ack":
		return renderAck(payload, meta)
	case "error":
		return renderError(payload, meta)
	case "policy-decision":
		return renderPolicyDecision(payload, meta)
	case "sensor-status":
		return renderSensorStatus(payload, meta)
	case "audio-error":
		return renderAudioError(payload, meta)
	default:
		return renderGeneric(payload, meta)
	}
}

func str(p map[string]any, key string) string {
	s, _ := p[key].(string)
	return s
}

func renderHandshake(p map[string]any, _ Meta) rendered {
	transport := str(p, "transport")
	codec := str(p, "codec")

	var features []string
	if neg, ok := p["negotiated"].(map[string]any); ok {
		if c, ok := neg["compression"].(string); ok && c != "" && c != "none" {
			features = append(features, "compression="+c)
		}
		if f, ok := neg["fec"].(bool); ok && f {
			features = append(features, "fec=on")
		}
		if c, ok := neg["crypto"].(bool); ok && c {
			features = append(features, "crypto=on")
		}
		if mtu, ok := asFloat(neg["maxMtu"]); ok {
			features = append(features, "mtu="+humanize.Bytes(int64(mtu)))
		}
	}

	text := fmt.Sprintf("Handshake negotiated over %s using %s codec", transport, codec)
	if len(features) > 0 {
		text += " (" + strings.Join(features, ", ") + ")"
	}
	text += "."

	return rendered{Text: text, Confidence: 0.95}
}

func renderComputeRequest(p map[string]any, _ Meta) rendered {
	from := str(p, "from")
	to := str(p, "to")
	op := str(p, "op")

	var text string
	switch {
	case from != "" && to != "":
		text = fmt.Sprintf("agent %s asked agent %s to perform %q", from, to, op)
	case to != "":
		text = fmt.Sprintf("a request asked agent %s to perform %q", to, op)
	default:
		text = fmt.Sprintf("a request to perform %q", op)
	}
	if args, ok := p["args"]; ok {
		if formatted := formatArgs(args); formatted != "" {
			text += " with " + formatted
		}
	}
	text += " and return the result"

	reqID := str(p, "requestId")
	if reqID == "" {
		reqID = str(p, "id")
	}
	if reqID != "" {
		text += fmt.Sprintf(" (request %s)", reqID)
	}
	text += "."
	return rendered{Text: text, Confidence: 1.0}
}

// formatArgs renders a compute-request's args map as "key: value" pairs in
// sorted-key order, e.g. "a: 2, b: 3", rather than Go's default map
// formatting (which produces "map[a:2 b:3]" with no space after the colon).
func formatArgs(args any) string {
	m, ok := args.(map[string]any)
	if !ok {
		return fmt.Sprintf("%v", args)
	}
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	pairs := make([]string, 0, len(keys))
	for _, k := range keys {
		pairs = append(pairs, fmt.Sprintf("%s: %v", k, m[k]))
	}
	return strings.Join(pairs, ", ")
}

func renderAck(p map[string]any, _ Meta) rendered {
	ackOf := str(p, "ackOf")
	shape := describeResultShape(p["result"])
	return rendered{
		Text:       fmt.Sprintf("Acknowledged message %s with a %s result.", ackOf, shape),
		Confidence: 0.9,
	}
}

func describeResultShape(result any) string {
	switch v := result.(type) {
	case string:
		return "string"
	case float64, int:
		return "number"
	case bool:
		return "boolean"
	case []any:
		return fmt.Sprintf("%d-element array", len(v))
	case map[string]any:
		keys := make([]string, 0, len(v))
		for k := range v {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		return fmt.Sprintf("object with keys [%s]", strings.Join(keys, ", "))
	default:
		return "empty"
	}
}

func renderError(p map[string]any, _ Meta) rendered {
	kind := str(p, "errorKind")
	code := str(p, "code")
	if code == "" {
		if c, ok := asFloat(p["code"]); ok {
			code = fmt.Sprintf("%d", int(c))
		}
	}
	text := fmt.Sprintf("Error (%s)", kind)
	if code != "" {
		text += fmt.Sprintf(" code %s", code)
	}
	if ref := str(p, "msgIdRef"); ref != "" {
		text += fmt.Sprintf(" referencing message %s", ref)
	}
	if details := str(p, "message"); details != "" {
		text += ": " + details
	}
	text += "."
	return rendered{Text: text, Confidence: 0.85}
}

func renderPolicyDecision(p map[string]any, _ Meta) rendered {
	decision := str(p, "decision")
	policyName := str(p, "policy")
	resource := str(p, "resource")
	actor := str(p, "actor")
	reason := str(p, "reason")

	text := fmt.Sprintf("%s %s access to %s for %s", strings.Title(decision), policyName, resource, actor)
	if reason != "" {
		text += fmt.Sprintf(" (%s)", reason)
	}
	text += "."
	return rendered{Text: text, Confidence: 0.9}
}

func renderSensorStatus(p map[string]any, _ Meta) rendered {
	var parts []string
	if temp, ok := asFloat(p["temperature"]); ok {
		switch {
		case temp > 30:
			parts = append(parts, fmt.Sprintf("temperature is high at %.1f°C", temp))
		case temp < 10:
			parts = append(parts, fmt.Sprintf("temperature is low at %.1f°C", temp))
		default:
			parts = append(parts, fmt.Sprintf("temperature is normal at %.1f°C", temp))
		}
	}
	if battery, ok := asFloat(p["battery"]); ok {
		if battery <= 20 {
			parts = append(parts, fmt.Sprintf("battery is critical at %.0f%%", battery))
		} else {
			parts = append(parts, fmt.Sprintf("battery is at %.0f%%", battery))
		}
	}
	if len(parts) == 0 {
		return rendered{Text: "Sensor status update with no recognized readings.", Confidence: 0.4}
	}
	return rendered{Text: "Sensor status: " + strings.Join(parts, "; ") + ".", Confidence: 0.9}
}

func renderAudioError(p map[string]any, _ Meta) rendered {
	code, _ := asFloat(p["code"])
	var explanation string
	switch int(code) {
	case 400:
		explanation = "the request was malformed"
	case 403:
		explanation = "access was denied"
	case 404:
		explanation = "the resource was not found"
	case 500:
		explanation = "the server failed unexpectedly"
	default:
		explanation = "an unrecognized error occurred"
	}
	return rendered{
		Text:       fmt.Sprintf("Audio channel error %d: %s.", int(code), explanation),
		Confidence: 0.85,
	}
}

func renderGeneric(p map[string]any, _ Meta) rendered {
	keys := make([]string, 0, len(p))
	for k := range p {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var bullets []string
	for i, k := range keys {
		if i >= 5 {
			break
		}
		bullets = append(bullets, fmt.Sprintf("%s: %v", k, p[k]))
	}

	return rendered{
		Text:       fmt.Sprintf("Message with %d field(s).", len(p)),
		Confidence: 0.3,
		Bullets:    bullets,
	}
}
