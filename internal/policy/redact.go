package policy

import "fmt"

const (
	denylistReplacement = "[REDACTED]"
	piiReplacement       = "[PII_REDACTED]"
)

// Redact walks value (the decoded JSON value model: map[string]any,
// []any, string, float64, bool, nil), replacing denylisted object keys
// and PII-matching string values. It returns a new value (the original is
// never mutated), the dotted paths that were redacted, and whether any
// PII redaction occurred.
func Redact(value any, path, denyRepl, piiRepl string, _ bool) (any, []string, bool) {
	switch v := value.(type) {
	case map[string]any:
		out := make(map[string]any, len(v))
		var fields []string
		var piiFound bool
		for key, child := range v {
			childPath := key
			if path != "" {
				childPath = path + "." + key
			}
			if isDenylisted(key) {
				out[key] = denyRepl
				fields = append(fields, childPath)
				continue
			}
			redactedChild, childFields, childPII := Redact(child, childPath, denyRepl, piiRepl, false)
			out[key] = redactedChild
			fields = append(fields, childFields...)
			piiFound = piiFound || childPII
		}
		return out, fields, piiFound

	case []any:
		out := make([]any, len(v))
		var fields []string
		var piiFound bool
		for i, child := range v {
			childPath := fmt.Sprintf("%s[%d]", path, i)
			redactedChild, childFields, childPII := Redact(child, childPath, denyRepl, piiRepl, false)
			out[i] = redactedChild
			fields = append(fields, childFields...)
			piiFound = piiFound || childPII
		}
		return out, fields, piiFound

	case string:
		if isAlreadyRedacted(v) {
			return v, nil, false // idempotent: redacting a redacted value is a no-op
		}
		for _, pattern := range piiPatterns {
			if pattern.MatchString(v) {
				return piiRepl, []string{path}, true
			}
		}
		return v, nil, false

	default:
		return v, nil, false
	}
}

func isDenylisted(key string) bool {
	_, found := denylistKeys[normalizeKey(key)]
	return found
}

func normalizeKey(key string) string {
	out := make([]byte, len(key))
	for i := 0; i < len(key); i++ {
		c := key[i]
		if c >= 'A' && c <= 'Z' {
			c += 'a' - 'A'
		}
		out[i] = c
	}
	return string(out)
}

func isAlreadyRedacted(s string) bool {
	return s == denylistReplacement || s == piiReplacement
}
