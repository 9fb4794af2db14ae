package guardrail

import "strings"

// Redacted replaces sensitive values in audit details.
const Redacted = "***REDACTED***"

var sensitiveKeys = []string{
	"password",
	"api_key",
	"secret",
	"token",
	"ssn",
	"social_security",
	"credit_card",
	"cvv",
	"pin",
}

func sensitive(key string) bool {
	k := strings.ToLower(key)
	for _, s := range sensitiveKeys {
		if strings.Contains(k, s) {
			return true
		}
	}
	return false
}

// Redact returns a deep copy of payload with sensitive keys masked. Nested
// maps and maps inside slices are handled too. The input is not modified.
func Redact(payload map[string]any) map[string]any {
	if payload == nil {
		return nil
	}
	out := make(map[string]any, len(payload))
	for k, v := range payload {
		if sensitive(k) {
			out[k] = Redacted
			continue
		}
		out[k] = redactValue(v)
	}
	return out
}

func redactValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		return Redact(t)
	case []any:
		items := make([]any, len(t))
		for i, item := range t {
			items[i] = redactValue(item)
		}
		return items
	default:
		return v
	}
}
