package query

import (
	"math"
	"sort"
	"strings"

	"datalens/internal/models"

	"github.com/spf13/cast"
)

// MaxResultRows caps every result the engine returns.
const MaxResultRows = 50

// Run derives a new row set for the intent: filter, then group/aggregate,
// then sort, then cap. Every stage is skipped when the intent lacks its
// directive, so a malformed intent degrades instead of failing. The engine
// never mutates the source rows and never returns an error.
func Run(rows []models.Row, intent *models.QueryIntent) []models.Row {
	if intent == nil {
		return cap50(copyRows(rows))
	}

	coerceFilterValues(intent)

	filtered := filter(rows, intent.Filters)

	if intent.HasGrouping() {
		filtered = aggregate(filtered, intent.GroupBy, intent.Metric, intent.Aggregation)
	}

	return cap50(filtered)
}

// coerceFilterValues applies the one-time string-to-number pass: a filter
// value that fully parses as a number is compared numerically from then on.
func coerceFilterValues(intent *models.QueryIntent) {
	for i, f := range intent.Filters {
		if s, ok := f.Value.(string); ok {
			if n, err := cast.ToFloat64E(strings.TrimSpace(s)); err == nil && strings.TrimSpace(s) != "" {
				intent.Filters[i].Value = n
			}
		}
	}
}

func filter(rows []models.Row, filters []models.QueryFilter) []models.Row {
	if len(filters) == 0 {
		return copyRows(rows)
	}
	out := []models.Row{}
	for _, row := range rows {
		if matchesAll(row, filters) {
			out = append(out, row)
		}
	}
	return out
}

func matchesAll(row models.Row, filters []models.QueryFilter) bool {
	for _, f := range filters {
		if !matches(row, f) {
			return false
		}
	}
	return true
}

func matches(row models.Row, f models.QueryFilter) bool {
	value := row[f.Column]
	want := cast.ToString(f.Value)

	switch f.Operator {
	case "==":
		return strings.EqualFold(value.String(), want)
	case "contains":
		return strings.Contains(strings.ToLower(value.String()), strings.ToLower(want))
	case ">", "<", ">=", "<=":
		return compare(value, f.Value, f.Operator)
	default:
		// Unknown operators fail open: the row passes. Explicit policy.
		return true
	}
}

// compare orders a cell against a filter value. Both sides numeric compares
// numerically; otherwise the stringified forms compare lexicographically.
// A missing or empty cell is incomparable and excludes the row.
func compare(value models.Value, want interface{}, op string) bool {
	if value.IsEmpty() {
		return false
	}

	left, leftErr := toFloat(value)
	right, rightErr := cast.ToFloat64E(want)
	if leftErr == nil && rightErr == nil {
		return ordered(op, compareFloats(left, right))
	}

	return ordered(op, strings.Compare(value.String(), cast.ToString(want)))
}

func toFloat(v models.Value) (float64, error) {
	if v.IsNumber() {
		return v.Num, nil
	}
	return cast.ToFloat64E(v.Str)
}

func compareFloats(a, b float64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

func ordered(op string, cmp int) bool {
	switch op {
	case ">":
		return cmp > 0
	case "<":
		return cmp < 0
	case ">=":
		return cmp >= 0
	case "<=":
		return cmp <= 0
	}
	return false
}

// aggregate partitions rows by the stringified group key and reduces the
// metric column per group. Output has one row per distinct key with the
// rounded aggregate under the metric column, sorted by value descending.
// Tie order between equal aggregates is implementation-defined.
func aggregate(rows []models.Row, groupBy, metric, kind string) []models.Row {
	groups := map[string][]float64{}
	order := []string{}
	for _, row := range rows {
		key := row[groupBy].String()
		if _, seen := groups[key]; !seen {
			order = append(order, key)
		}
		groups[key] = append(groups[key], metricValue(row[metric]))
	}

	out := make([]models.Row, 0, len(order))
	for _, key := range order {
		out = append(out, models.Row{
			groupBy: models.Text(key),
			metric:  models.Number(round2(reduce(kind, groups[key]))),
		})
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i][metric].Num > out[j][metric].Num
	})
	return out
}

// metricValue coerces an aggregate cell to a number; non-numeric and missing
// cells count as 0.
func metricValue(v models.Value) float64 {
	if v.IsNumber() {
		return v.Num
	}
	return cast.ToFloat64(v.Str)
}

func reduce(kind string, values []float64) float64 {
	switch kind {
	case models.AggSum:
		sum := 0.0
		for _, v := range values {
			sum += v
		}
		return sum
	case models.AggAvg:
		if len(values) == 0 {
			return 0
		}
		sum := 0.0
		for _, v := range values {
			sum += v
		}
		return sum / float64(len(values))
	case models.AggCount:
		return float64(len(values))
	case models.AggCountDistinct:
		// Distinct over the coerced numeric values, not the raw cells, so
		// every non-numeric string collapses onto 0.
		distinct := map[float64]struct{}{}
		for _, v := range values {
			distinct[v] = struct{}{}
		}
		return float64(len(distinct))
	default:
		// Unknown aggregation counts the group, the least surprising reduction.
		return float64(len(values))
	}
}

func copyRows(rows []models.Row) []models.Row {
	out := make([]models.Row, len(rows))
	copy(out, rows)
	return out
}

func cap50(rows []models.Row) []models.Row {
	if len(rows) > MaxResultRows {
		return rows[:MaxResultRows]
	}
	return rows
}

func round2(f float64) float64 {
	return math.Round(f*100) / 100
}
