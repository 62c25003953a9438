package recovery

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Fields is a decoded JSON object with lenient typed accessors.
type Fields map[string]any

// String returns key as a string, or def when missing or not a scalar.
func (f Fields) String(key, def string) string {
	switch v := f[key].(type) {
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(v)
	default:
		return def
	}
}

// Strings returns key as a list of strings. A single string becomes a
// one-element list.
func (f Fields) Strings(key string) []string {
	switch v := f[key].(type) {
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			switch s := item.(type) {
			case string:
				out = append(out, s)
			case float64, bool:
				out = append(out, fmt.Sprint(s))
			}
		}
		return out
	case string:
		if strings.TrimSpace(v) == "" {
			return nil
		}
		return []string{v}
	default:
		return nil
	}
}

// Int returns key as an int, or def when missing or not numeric.
func (f Fields) Int(key string, def int) int {
	switch v := f[key].(type) {
	case float64:
		return int(math.Round(v))
	case string:
		if n, err := strconv.Atoi(strings.TrimSpace(v)); err == nil {
			return n
		}
	}
	return def
}

// Bool returns key as a bool, or def when missing.
func (f Fields) Bool(key string, def bool) bool {
	switch v := f[key].(type) {
	case bool:
		return v
	case string:
		if b, err := strconv.ParseBool(strings.TrimSpace(v)); err == nil {
			return b
		}
	}
	return def
}

// Objects returns key as a list of nested objects, skipping other values.
func (f Fields) Objects(key string) []Fields {
	list, ok := f[key].([]any)
	if !ok {
		return nil
	}
	out := make([]Fields, 0, len(list))
	for _, item := range list {
		if obj, ok := item.(map[string]any); ok {
			out = append(out, Fields(obj))
		}
	}
	return out
}

// Has reports whether key is present.
func (f Fields) Has(key string) bool {
	_, ok := f[key]
	return ok
}
