package output

import (
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/gymgate/gymgate/internal/apiclient"
)

const maxCellWidth = 60

// TableFromJSON renders a JSON array of objects as a table with one
// column per key, or a single object as a key/value listing. Bodies
// that are neither are returned as pretty JSON.
func TableFromJSON(body []byte, markdown bool) (string, error) {
	var asList []map[string]any
	if err := json.Unmarshal(body, &asList); err == nil {
		return renderList(asList, markdown), nil
	}

	var asObject map[string]any
	if err := json.Unmarshal(body, &asObject); err == nil {
		return renderObject(asObject, markdown), nil
	}

	return PrettyJSON(body)
}

// StatsTable renders the client counters for the stats command.
func StatsTable(stats apiclient.Stats, markdown bool) string {
	t := table.NewWriter()
	t.SetStyle(table.StyleRounded)
	t.AppendHeader(table.Row{"Counter", "Value"})
	t.AppendRows([]table.Row{
		{"requests", stats.Requests},
		{"cache hits", stats.CacheHits},
		{"cache misses", stats.CacheMisses},
		{"retries", stats.Retries},
		{"rate limited", stats.RateLimited},
		{"failures", stats.Failures},
		{"cache entries", stats.CacheEntries},
		{"window occupancy", stats.WindowOccupancy},
	})
	if markdown {
		return t.RenderMarkdown()
	}
	return t.Render()
}

func renderList(items []map[string]any, markdown bool) string {
	if len(items) == 0 {
		return "(empty)"
	}

	seen := make(map[string]struct{})
	columns := make([]string, 0)
	for _, item := range items {
		for key := range item {
			if _, ok := seen[key]; !ok {
				seen[key] = struct{}{}
				columns = append(columns, key)
			}
		}
	}
	sort.Strings(columns)

	t := table.NewWriter()
	t.SetStyle(table.StyleRounded)

	header := make(table.Row, 0, len(columns))
	for _, col := range columns {
		header = append(header, col)
	}
	t.AppendHeader(header)

	for _, item := range items {
		row := make(table.Row, 0, len(columns))
		for _, col := range columns {
			row = append(row, cellValue(item[col]))
		}
		t.AppendRow(row)
	}

	if markdown {
		return t.RenderMarkdown()
	}
	return t.Render()
}

func renderObject(obj map[string]any, markdown bool) string {
	keys := make([]string, 0, len(obj))
	for key := range obj {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	t := table.NewWriter()
	t.SetStyle(table.StyleRounded)
	t.AppendHeader(table.Row{"Field", "Value"})
	for _, key := range keys {
		t.AppendRow(table.Row{key, cellValue(obj[key])})
	}

	if markdown {
		return t.RenderMarkdown()
	}
	return t.Render()
}

func cellValue(value any) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return truncateCell(v, maxCellWidth)
	case float64:
		if v == float64(int64(v)) {
			return fmt.Sprintf("%d", int64(v))
		}
		return fmt.Sprintf("%g", v)
	case bool:
		return fmt.Sprintf("%t", v)
	case time.Time:
		return v.Format(time.RFC3339)
	default:
		encoded, err := json.Marshal(v)
		if err != nil {
			return fmt.Sprintf("%v", v)
		}
		return truncateCell(string(encoded), maxCellWidth)
	}
}
