package dataset

import (
	"strings"

	"datalens/internal/models"

	"github.com/google/uuid"
)

// MaxRows caps how many parsed rows a dataset retains. The true accepted-row
// count is still recorded on the dataset.
const MaxRows = 3000

// ParseError reports an upload whose content held no usable table.
type ParseError struct {
	Reason string
}

func (e *ParseError) Error() string {
	return "parse csv: " + e.Reason
}

// ParseCSV turns raw delimited text into a Dataset.
//
// Parsing is deliberately naive: fields are split on commas with no support
// for quoted commas, and any line whose field count does not match the header
// is silently dropped. Both are fixed ingestion policy, not oversights.
func ParseCSV(content, name string) (*models.Dataset, error) {
	lines := splitLines(content)
	if len(lines) == 0 {
		return nil, &ParseError{Reason: "input contains no data"}
	}

	header := strings.Split(lines[0], ",")
	// The BOM comes off the raw first token so a quoted header behind it
	// still gets its quotes stripped.
	header[0] = strings.TrimPrefix(header[0], "\uFEFF")
	columns := make([]string, len(header))
	for i, h := range header {
		columns[i] = stripQuotes(strings.TrimSpace(h))
	}

	rows := []models.Row{}
	accepted := 0
	for _, line := range lines[1:] {
		fields := strings.Split(line, ",")
		if len(fields) != len(columns) {
			continue
		}
		accepted++
		if accepted > MaxRows {
			continue
		}
		row := make(models.Row, len(columns))
		for i, field := range fields {
			row[columns[i]] = models.Coerce(stripQuotes(strings.TrimSpace(field)))
		}
		rows = append(rows, row)
	}

	return &models.Dataset{
		ID:        uuid.NewString(),
		Name:      name,
		Columns:   columns,
		Rows:      rows,
		TotalRows: accepted,
	}, nil
}

func splitLines(content string) []string {
	raw := strings.Split(strings.ReplaceAll(content, "\r\n", "\n"), "\n")
	lines := raw[:0]
	for _, l := range raw {
		if strings.TrimSpace(l) != "" {
			lines = append(lines, l)
		}
	}
	return lines
}

// stripQuotes removes one layer of wrapping double quotes.
func stripQuotes(s string) string {
	if len(s) >= 2 && strings.HasPrefix(s, `"`) && strings.HasSuffix(s, `"`) {
		return s[1 : len(s)-1]
	}
	return s
}
