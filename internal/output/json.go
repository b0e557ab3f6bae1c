package output

import (
	"bytes"
	"encoding/json"
	"strings"
)

// PrettyJSON re-indents a JSON body for terminal display. Non-JSON
// bodies are returned unchanged.
func PrettyJSON(body []byte) (string, error) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 {
		return "", nil
	}

	var buf bytes.Buffer
	if err := json.Indent(&buf, trimmed, "", "  "); err != nil {
		return string(body), nil
	}
	return buf.String(), nil
}

// MarshalIndented renders any value as indented JSON.
func MarshalIndented(v any) (string, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// truncateCell bounds a table cell, counting runes so multi-byte text is
// never split mid-character.
func truncateCell(value string, limit int) string {
	value = strings.ReplaceAll(value, "\n", " ")
	runes := []rune(value)
	if limit > 0 && len(runes) > limit {
		return string(runes[:limit-1]) + "…"
	}
	return value
}
