package dataset

import (
	"time"

	"datalens/internal/models"
)

// numericSample is how many leading rows must agree before a column is
// classified numeric. Matches the correlation engine's confirmation rule.
const numericSample = 50

const maxExamples = 3

// ColumnIsNumeric reports whether every one of the first numericSample rows
// (or all rows, if fewer) holds a number in the named column.
func ColumnIsNumeric(rows []models.Row, col string) bool {
	if len(rows) == 0 {
		return false
	}
	n := numericSample
	if len(rows) < n {
		n = len(rows)
	}
	for i := 0; i < n; i++ {
		if !rows[i][col].IsNumber() {
			return false
		}
	}
	return true
}

// ColumnTypes classifies every column as numeric, datetime, categorical, or
// text. The tags are advisory hints for the UI and the AI prompt; only
// numeric-ness is re-derived where it matters.
func ColumnTypes(ds *models.Dataset) map[string]string {
	types := make(map[string]string, len(ds.Columns))
	for _, col := range ds.Columns {
		types[col] = classifyColumn(ds.Rows, col)
	}
	return types
}

func classifyColumn(rows []models.Row, col string) string {
	if ColumnIsNumeric(rows, col) {
		return models.ColumnNumeric
	}
	if isDateColumn(rows, col) {
		return models.ColumnDatetime
	}
	// Low cardinality reads as categorical, anything else as free text.
	distinct := make(map[string]bool)
	seen := 0
	for _, row := range rows {
		v := row[col]
		if v.IsEmpty() {
			continue
		}
		seen++
		distinct[v.String()] = true
	}
	if seen > 0 && len(distinct) <= seen/2+1 {
		return models.ColumnCategorical
	}
	return models.ColumnText
}

var dateFormats = []string{
	time.RFC3339,
	"2006-01-02",
	"02/01/2006",
	"01/02/2006",
	"2006/01/02",
	"Jan 2, 2006",
	"January 2, 2006",
}

func isDateColumn(rows []models.Row, col string) bool {
	checkRows := 5
	if len(rows) < checkRows {
		checkRows = len(rows)
	}

	for i := 0; i < checkRows; i++ {
		v := rows[i][col]
		if v.Kind != models.KindText {
			continue
		}
		for _, format := range dateFormats {
			if _, err := time.Parse(format, v.Str); err == nil {
				return true
			}
		}
	}
	return false
}

// ProfileColumns computes a local profile per column: missing and unique
// counts plus a few example values. It feeds the AI prompt sample and the
// profile endpoint; the AI returns its own advisory profiles alongside.
func ProfileColumns(ds *models.Dataset) []models.ColumnProfile {
	profiles := make([]models.ColumnProfile, 0, len(ds.Columns))
	for _, col := range ds.Columns {
		profiles = append(profiles, profileColumn(ds.Rows, col, classifyColumn(ds.Rows, col)))
	}
	return profiles
}

func profileColumn(rows []models.Row, col, colType string) models.ColumnProfile {
	profile := models.ColumnProfile{
		Name:     col,
		Type:     colType,
		Examples: []string{},
	}

	distinct := make(map[string]bool)
	for _, row := range rows {
		v, ok := row[col]
		if !ok || v.IsEmpty() {
			profile.Missing++
			continue
		}
		s := v.String()
		if !distinct[s] {
			distinct[s] = true
			if len(profile.Examples) < maxExamples {
				profile.Examples = append(profile.Examples, s)
			}
		}
	}
	profile.Unique = len(distinct)
	return profile
}
