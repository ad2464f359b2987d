package reconcile

import (
	"strings"

	"datalens/internal/models"
)

// Repair reconciles AI-proposed chart configs against the real dataset.
// Field names the model invents get remapped onto actual columns when a
// case-insensitive match exists; charts whose x or y key still misses after
// resolution are dropped. The function is pure and total: it never fails,
// and repairing an already-repaired result is a no-op.
func Repair(result *models.AnalysisResult, ds *models.Dataset) *models.AnalysisResult {
	if result == nil {
		return nil
	}

	columns := ds.ColumnNames()
	if len(columns) == 0 {
		// Nothing to validate against; hand the result back untouched.
		return result
	}

	repaired := *result
	repaired.RecommendedCharts = []models.ChartConfig{}
	for _, chart := range result.RecommendedCharts {
		chart.XKey = resolveKey(chart.XKey, columns)
		chart.YKey = resolveKey(chart.YKey, columns)
		if chart.CategoryKey != "" {
			// An unresolved category key is kept as-is, never fatal.
			chart.CategoryKey = resolveKey(chart.CategoryKey, columns)
		}
		if !contains(columns, chart.XKey) || !contains(columns, chart.YKey) {
			continue
		}
		repaired.RecommendedCharts = append(repaired.RecommendedCharts, chart)
	}
	return &repaired
}

// resolveKey maps a proposed field name onto a real column: exact match
// first, then the first case-insensitive match on the trimmed name, else
// the original name unchanged.
func resolveKey(key string, columns []string) string {
	for _, col := range columns {
		if col == key {
			return col
		}
	}
	trimmed := strings.TrimSpace(key)
	for _, col := range columns {
		if strings.EqualFold(col, trimmed) {
			return col
		}
	}
	return key
}

func contains(columns []string, name string) bool {
	for _, col := range columns {
		if col == name {
			return true
		}
	}
	return false
}
