package jsonutil

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// StringValue reads a text field. JSON strings are returned as is and bare
// numbers (CSV exports emit them for codes and ids) as their literal text.
// Objects, arrays and booleans are an error. The boolean result is false when
// the value is absent: null or empty.
func StringValue(raw json.RawMessage) (string, bool, error) {
	if isNull(raw) {
		return "", false, nil
	}

	trimmed := strings.TrimSpace(string(raw))
	switch trimmed[0] {
	case '"':
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return "", false, fmt.Errorf("invalid string: %w", err)
		}
		return s, true, nil
	case '{', '[', 't', 'f':
		return "", true, fmt.Errorf("not text: %s", trimmed)
	}

	if _, err := strconv.ParseFloat(trimmed, 64); err != nil {
		return "", true, fmt.Errorf("not text: %s", trimmed)
	}
	return trimmed, true, nil
}

// FlexibleInt64 converts a JSON number or numeric string to an int64.
// Integral floats such as 93.0 are accepted. The boolean result is false when
// the value is absent: null, empty, or an empty string.
func FlexibleInt64(raw json.RawMessage) (int64, bool, error) {
	text, ok, err := numericText(raw)
	if err != nil || !ok {
		return 0, ok, err
	}

	if n, err := strconv.ParseInt(text, 10, 64); err == nil {
		return n, true, nil
	}

	f, err := strconv.ParseFloat(text, 64)
	if err != nil {
		return 0, true, fmt.Errorf("not an integer: %s", text)
	}
	if f != math.Trunc(f) || f > math.MaxInt64 || f < math.MinInt64 {
		return 0, true, fmt.Errorf("not an integer: %s", text)
	}
	return int64(f), true, nil
}

// FlexibleFloat64 converts a JSON number or numeric string to a float64.
// The boolean result is false when the value is absent.
func FlexibleFloat64(raw json.RawMessage) (float64, bool, error) {
	text, ok, err := numericText(raw)
	if err != nil || !ok {
		return 0, ok, err
	}

	f, err := strconv.ParseFloat(text, 64)
	if err != nil {
		return 0, true, fmt.Errorf("not a number: %s", text)
	}
	return f, true, nil
}

// numericText returns the textual form of a number held either bare or inside
// a JSON string.
func numericText(raw json.RawMessage) (string, bool, error) {
	if isNull(raw) {
		return "", false, nil
	}

	trimmed := strings.TrimSpace(string(raw))
	if strings.HasPrefix(trimmed, `"`) {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return "", false, fmt.Errorf("invalid string: %w", err)
		}
		s = strings.TrimSpace(s)
		if s == "" {
			return "", false, nil
		}
		return s, true, nil
	}

	switch trimmed[0] {
	case '{', '[', 't', 'f':
		return "", true, fmt.Errorf("not a number: %s", trimmed)
	}
	return trimmed, true, nil
}

func isNull(raw json.RawMessage) bool {
	trimmed := strings.TrimSpace(string(raw))
	return trimmed == "" || trimmed == "null"
}
