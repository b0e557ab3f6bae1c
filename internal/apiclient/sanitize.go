package apiclient

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
)

// SanitizeLimits bounds payload shape before dispatch. This is best-effort
// hardening of outbound request bodies, not a security boundary; the backend
// still validates everything server-side.
type SanitizeLimits struct {
	MaxTopLevelKeys int
	MaxObjectKeys   int
	MaxArrayLen     int
	MaxDepth        int
	MaxStringLen    int
}

func sanitizeLimitsWithDefaults(limits SanitizeLimits) SanitizeLimits {
	if limits.MaxTopLevelKeys == 0 {
		limits.MaxTopLevelKeys = 100
	}
	if limits.MaxObjectKeys == 0 {
		limits.MaxObjectKeys = 256
	}
	if limits.MaxArrayLen == 0 {
		limits.MaxArrayLen = 1000
	}
	if limits.MaxDepth == 0 {
		limits.MaxDepth = 8
	}
	if limits.MaxStringLen == 0 {
		limits.MaxStringLen = 64 * 1024
	}
	return limits
}

var (
	uriSchemePattern    = regexp.MustCompile(`(?i)(javascript|data)\s*:`)
	eventHandlerPattern = regexp.MustCompile(`(?i)\bon[a-z]+\s*=`)
)

// sanitizePayload normalizes payload into JSON value shapes (object, array,
// string, number, boolean, null), cleans every string, and enforces the
// configured bounds. It returns a new value; the input is never mutated.
// Exceeding a bound is a *ValidationError.
func sanitizePayload(payload any, limits SanitizeLimits) (any, error) {
	if payload == nil {
		return nil, nil
	}

	limits = sanitizeLimitsWithDefaults(limits)

	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, &ValidationError{Reason: fmt.Sprintf("payload is not JSON-encodable: %v", err)}
	}

	var value any
	if err := json.Unmarshal(raw, &value); err != nil {
		return nil, &ValidationError{Reason: fmt.Sprintf("payload decode: %v", err)}
	}

	if obj, ok := value.(map[string]any); ok && len(obj) > limits.MaxTopLevelKeys {
		return nil, &ValidationError{Reason: fmt.Sprintf("payload has %d top-level keys, max %d", len(obj), limits.MaxTopLevelKeys)}
	}

	return sanitizeValue(value, limits, 0)
}

func sanitizeValue(value any, limits SanitizeLimits, depth int) (any, error) {
	if depth > limits.MaxDepth {
		return nil, &ValidationError{Reason: fmt.Sprintf("payload nesting exceeds max depth %d", limits.MaxDepth)}
	}

	switch v := value.(type) {
	case nil, bool, float64:
		return v, nil
	case string:
		return cleanString(v, limits.MaxStringLen)
	case map[string]any:
		if depth > 0 && len(v) > limits.MaxObjectKeys {
			return nil, &ValidationError{Reason: fmt.Sprintf("nested object has %d keys, max %d", len(v), limits.MaxObjectKeys)}
		}
		out := make(map[string]any, len(v))
		for key, inner := range v {
			cleanKey, err := cleanString(key, limits.MaxStringLen)
			if err != nil {
				return nil, err
			}
			sanitized, err := sanitizeValue(inner, limits, depth+1)
			if err != nil {
				return nil, err
			}
			out[cleanKey] = sanitized
		}
		return out, nil
	case []any:
		if len(v) > limits.MaxArrayLen {
			return nil, &ValidationError{Reason: fmt.Sprintf("array has %d elements, max %d", len(v), limits.MaxArrayLen)}
		}
		out := make([]any, 0, len(v))
		for _, inner := range v {
			sanitized, err := sanitizeValue(inner, limits, depth+1)
			if err != nil {
				return nil, err
			}
			out = append(out, sanitized)
		}
		return out, nil
	default:
		return nil, &ValidationError{Reason: fmt.Sprintf("unsupported payload value of type %T", value)}
	}
}

// cleanString strips angle brackets, javascript:/data: URI schemes, and
// inline event-handler attribute patterns.
func cleanString(s string, maxLen int) (string, error) {
	if len(s) > maxLen {
		return "", &ValidationError{Reason: fmt.Sprintf("string field of %d bytes exceeds max %d", len(s), maxLen)}
	}

	s = strings.ReplaceAll(s, "<", "")
	s = strings.ReplaceAll(s, ">", "")
	s = uriSchemePattern.ReplaceAllString(s, "")
	s = eventHandlerPattern.ReplaceAllString(s, "")
	return s, nil
}
