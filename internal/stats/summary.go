package stats

import (
	"errors"
	"sort"

	"datalens/internal/models"
)

// ColumnSummary holds basic descriptive statistics for one numeric column.
type ColumnSummary struct {
	Sum    float64
	Min    float64
	Max    float64
	Mean   float64
	Median float64
	Count  int
}

var errNoNumericValues = errors.New("no numeric values")

// Summarize computes descriptive stats over the numeric cells of a column.
// Non-numeric cells are skipped, not coerced.
func Summarize(rows []models.Row, col string) (ColumnSummary, error) {
	values := []float64{}
	for _, row := range rows {
		if v := row[col]; v.IsNumber() {
			values = append(values, v.Num)
		}
	}
	if len(values) == 0 {
		return ColumnSummary{}, errNoNumericValues
	}

	sort.Float64s(values)

	sum := 0.0
	for _, v := range values {
		sum += v
	}

	median := values[len(values)/2]
	if len(values)%2 == 0 {
		median = (values[len(values)/2-1] + values[len(values)/2]) / 2
	}

	return ColumnSummary{
		Sum:    sum,
		Min:    values[0],
		Max:    values[len(values)-1],
		Mean:   sum / float64(len(values)),
		Median: median,
		Count:  len(values),
	}, nil
}
