package bridge

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// ParseToolArgs turns LLM-emitted tool arguments into a parameter map.
// Planner output is JSON most of the time but degrades under pressure, so
// the cascade is tolerant; the first successful parse wins:
//
//  1. JSON object, or any JSON value wrapped as {"input": value}
//  2. YAML carrying structure (arrays or nested maps)
//  3. "key: value" / "key=value" pairs split on commas and newlines
//  4. the raw string as {"input": s}
//
// Empty input yields an empty map for zero-argument tools.
func ParseToolArgs(input string) map[string]any {
	input = strings.TrimSpace(input)
	if input == "" {
		return map[string]any{}
	}
	if args, ok := parseJSONArgs(input); ok {
		return args
	}
	if args, ok := parseYAMLArgs(input); ok {
		return args
	}
	if args, ok := parsePairArgs(input); ok {
		return args
	}
	return map[string]any{"input": input}
}

func parseJSONArgs(input string) (map[string]any, bool) {
	// Cheap reject before unmarshal: JSON starts with a known byte.
	switch input[0] {
	case '{', '[', '"', '-', 't', 'f', 'n',
		'0', '1', '2', '3', '4', '5', '6', '7', '8', '9':
	default:
		return nil, false
	}
	var raw any
	if err := json.Unmarshal([]byte(input), &raw); err != nil {
		return nil, false
	}
	if m, ok := raw.(map[string]any); ok {
		return m, true
	}
	return map[string]any{"input": raw}, true
}

// parseYAMLArgs accepts YAML only when it carries real structure. Flat
// "key: value" lines fall through to the pair parser, which avoids false
// positives on prose that happens to contain a colon.
func parseYAMLArgs(input string) (map[string]any, bool) {
	var result map[string]any
	if err := yaml.Unmarshal([]byte(input), &result); err != nil {
		return nil, false
	}
	if len(result) == 0 {
		return nil, false
	}
	for _, v := range result {
		switch v.(type) {
		case []any, map[string]any:
			return result, true
		}
	}
	return nil, false
}

// parsePairArgs parses "key: value" or "key=value" pairs separated by
// commas or newlines. Values containing commas mis-split and reject the
// whole input, which then lands in the raw-string fallback.
func parsePairArgs(input string) (map[string]any, bool) {
	normalized := strings.ReplaceAll(input, "\n", ",")
	result := make(map[string]any)
	for _, part := range strings.Split(normalized, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		key, value, ok := splitPair(part)
		if !ok {
			return nil, false
		}
		result[key] = coerceScalar(value)
	}
	if len(result) == 0 {
		return nil, false
	}
	return result, true
}

func splitPair(part string) (key, value string, ok bool) {
	for _, sep := range []string{":", "="} {
		idx := strings.Index(part, sep)
		if idx <= 0 {
			continue
		}
		k := strings.TrimSpace(part[:idx])
		if k == "" || strings.Contains(k, " ") {
			continue
		}
		return k, strings.TrimSpace(part[idx+1:]), true
	}
	return "", "", false
}

// coerceScalar converts pair values to bool, nil, int64, or float64 where
// they parse as one; NaN and Inf stay strings because JSON cannot carry
// them.
func coerceScalar(s string) any {
	switch strings.ToLower(s) {
	case "true":
		return true
	case "false":
		return false
	case "null", "none":
		return nil
	}
	if i, err := strconv.ParseInt(s, 10, 64); err == nil {
		return i
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return s
		}
		return f
	}
	return s
}
