package audit

import (
	"encoding/json"
	"strings"
)

// defaultPatterns are key substrings that are always redacted.
var defaultPatterns = []string{
	"token",
	"secret",
	"password",
	"authorization",
	"cookie",
	"credential",
	"apikey",
	"api_key",
}

const redactedValue = "[REDACTED]"

// Redact replaces the values of sensitive keys in a JSON object with
// [REDACTED], descending into nested objects and arrays. Input that is not
// JSON is returned unchanged.
func Redact(params json.RawMessage, hints []string) json.RawMessage {
	if len(params) == 0 {
		return params
	}
	var v any
	if err := json.Unmarshal(params, &v); err != nil {
		return params
	}
	if !redactValue(v, hints) {
		return params
	}
	out, err := json.Marshal(v)
	if err != nil {
		return params
	}
	return out
}

// redactValue rewrites v in place and reports whether anything changed.
func redactValue(v any, hints []string) bool {
	changed := false
	switch t := v.(type) {
	case map[string]any:
		for k, child := range t {
			if sensitiveKey(k, hints) {
				t[k] = redactedValue
				changed = true
				continue
			}
			if redactValue(child, hints) {
				changed = true
			}
		}
	case []any:
		for _, child := range t {
			if redactValue(child, hints) {
				changed = true
			}
		}
	}
	return changed
}

func sensitiveKey(key string, hints []string) bool {
	lower := strings.ToLower(key)
	for _, p := range defaultPatterns {
		if strings.Contains(lower, p) {
			return true
		}
	}
	for _, h := range hints {
		if h != "" && strings.Contains(lower, strings.ToLower(h)) {
			return true
		}
	}
	return false
}
