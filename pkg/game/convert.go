package game

import "encoding/json"

// AsFloat coerces the numeric shapes encoding/json and hand-built payloads
// produce into a float64.
func AsFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		if err != nil {
			return 0, false
		}
		return f, true
	default:
		return 0, false
	}
}

// AsInt coerces a numeric value to int, truncating fractions.
func AsInt(v any) (int, bool) {
	f, ok := AsFloat(v)
	if !ok {
		return 0, false
	}
	return int(f), true
}

// AsString returns v when it is a string.
func AsString(v any) (string, bool) {
	s, ok := v.(string)
	return s, ok
}
