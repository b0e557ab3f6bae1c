// Package output renders API responses and client statistics for the
// CLI in table, JSON or markdown form.
package output

import (
	"fmt"
	"strings"
)

// Format represents an output format.
type Format string

const (
	FormatTable    Format = "table"
	FormatJSON     Format = "json"
	FormatMarkdown Format = "markdown"
)

// ParseFormat validates and normalizes a format string.
func ParseFormat(value string) (Format, error) {
	normalized := strings.ToLower(strings.TrimSpace(value))
	switch normalized {
	case "", string(FormatTable):
		return FormatTable, nil
	case string(FormatJSON):
		return FormatJSON, nil
	case string(FormatMarkdown):
		return FormatMarkdown, nil
	default:
		return "", fmt.Errorf("unsupported output format: %s", value)
	}
}

// FormatBody renders a response body in the requested format. Table and
// markdown rendering need a JSON object or array body; anything else
// falls back to the raw text.
func FormatBody(format Format, body []byte) (string, error) {
	switch format {
	case FormatJSON:
		return PrettyJSON(body)
	case FormatMarkdown:
		return TableFromJSON(body, true)
	default:
		return TableFromJSON(body, false)
	}
}
