package tools

import (
	"fmt"
	"time"
)

// Args is the schema-validated argument mapping handed to Execute. The
// dispatcher has already enforced required fields and primitive types, so
// the accessors here only coerce JSON's loose numeric typing; a tool still
// validates deep semantics itself.
type Args map[string]any

// Has reports whether the key was supplied at all.
func (a Args) Has(key string) bool {
	_, ok := a[key]
	return ok
}

// String returns the string value for key, or def when absent.
func (a Args) String(key, def string) string {
	if v, ok := a[key].(string); ok {
		return v
	}
	return def
}

// Bool returns the boolean value for key, or def when absent.
func (a Args) Bool(key string, def bool) bool {
	if v, ok := a[key].(bool); ok {
		return v
	}
	return def
}

// Int returns the integer value for key, or def when absent. JSON numbers
// arrive as float64; both forms are accepted.
func (a Args) Int(key string, def int) int {
	switch v := a[key].(type) {
	case float64:
		return int(v)
	case int:
		return v
	case int64:
		return int(v)
	default:
		return def
	}
}

// Float returns the numeric value for key, or def when absent.
func (a Args) Float(key string, def float64) float64 {
	switch v := a[key].(type) {
	case float64:
		return v
	case int:
		return float64(v)
	default:
		return def
	}
}

// StringMap returns the object value for key as string pairs. Non-string
// members are rendered with %v; headers and form fields tolerate that.
func (a Args) StringMap(key string) map[string]string {
	obj, ok := a[key].(map[string]any)
	if !ok {
		return nil
	}
	out := make(map[string]string, len(obj))
	for k, v := range obj {
		if s, ok := v.(string); ok {
			out[k] = s
		} else {
			out[k] = fmt.Sprintf("%v", v)
		}
	}
	return out
}

// Timeout resolves the per-call timeout: a positive timeout argument (in
// milliseconds) overrides the process default.
func (a Args) Timeout(def time.Duration) time.Duration {
	if ms := a.Int("timeout", 0); ms > 0 {
		return time.Duration(ms) * time.Millisecond
	}
	return def
}
