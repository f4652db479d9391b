package llmtext

import (
	"encoding/json"
	"strconv"
	"strings"
)

// ParseObject recovers a single JSON object from a model response. It first
// parses the fence-stripped text as a whole, then falls back to the span
// from the first '{' to the last '}'. This is approximate: prose that itself
// contains braces around the object defeats the second attempt. Returns nil
// when nothing parses.
func ParseObject(text string) map[string]any {
	clean := strings.TrimSpace(StripFences(text))
	if clean == "" {
		return nil
	}

	if obj, ok := decodeObject(clean); ok {
		return obj
	}

	start := strings.Index(clean, "{")
	end := strings.LastIndex(clean, "}")
	if start < 0 || end <= start {
		return nil
	}
	if obj, ok := decodeObject(clean[start : end+1]); ok {
		return obj
	}
	return nil
}

func decodeObject(s string) (map[string]any, bool) {
	var out map[string]any
	if err := json.Unmarshal([]byte(s), &out); err != nil || out == nil {
		return nil, false
	}
	return out, true
}

// String returns obj[key] when it is a non-blank string.
func String(obj map[string]any, key string) (string, bool) {
	v, ok := obj[key].(string)
	if !ok || strings.TrimSpace(v) == "" {
		return "", false
	}
	return v, true
}

// Number returns obj[key] as a float64, accepting JSON numbers and numeric
// strings.
func Number(obj map[string]any, key string) (float64, bool) {
	switch v := obj[key].(type) {
	case float64:
		return v, true
	case json.Number:
		f, err := v.Float64()
		return f, err == nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		return f, err == nil
	default:
		return 0, false
	}
}
