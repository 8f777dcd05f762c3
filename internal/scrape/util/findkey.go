package util

import (
	"encoding/json"
	"strings"
)

// FindKey walks decoded JSON depth-first and returns the first value stored
// under key whose type is accepted by match. A nil match accepts anything.
func FindKey(v any, key string, match func(any) bool) (any, bool) {
	switch t := v.(type) {
	case map[string]any:
		if val, ok := t[key]; ok && (match == nil || match(val)) {
			return val, true
		}
		for _, child := range t {
			if found, ok := FindKey(child, key, match); ok {
				return found, true
			}
		}
	case []any:
		for _, child := range t {
			if found, ok := FindKey(child, key, match); ok {
				return found, true
			}
		}
	}
	return nil, false
}

// IsArray is a FindKey matcher for JSON arrays.
func IsArray(v any) bool {
	_, ok := v.([]any)
	return ok
}

// DecodeAfterMarker finds every `"marker":` in text and decodes the JSON
// value that follows it. Values that do not decode are skipped.
func DecodeAfterMarker(text, marker string) []any {
	needle := `"` + marker + `":`
	var out []any
	for rest := text; ; {
		i := strings.Index(rest, needle)
		if i < 0 {
			return out
		}
		rest = rest[i+len(needle):]
		var v any
		if err := json.NewDecoder(strings.NewReader(rest)).Decode(&v); err == nil {
			out = append(out, v)
		}
	}
}

// Index walks nested arrays by position, e.g. Index(v, 3, 0, 0). It returns
// nil when any step is missing or not an array.
func Index(v any, path ...int) any {
	for _, i := range path {
		arr, ok := v.([]any)
		if !ok || i < 0 || i >= len(arr) {
			return nil
		}
		v = arr[i]
	}
	return v
}

// IndexString is Index followed by a string assertion.
func IndexString(v any, path ...int) string {
	s, _ := Index(v, path...).(string)
	return s
}
