package stats

import (
	"errors"
	"math"

	"datalens/internal/dataset"
	"datalens/internal/models"
)

// ErrInsufficientData means fewer than two candidate columns were confirmed
// numeric. The caller decides how to render that condition; the engine never
// fabricates a degenerate matrix.
var ErrInsufficientData = errors.New("correlation requires at least two numeric columns")

// Correlate computes the pairwise Pearson matrix over the candidate columns
// that are confirmed numeric. Variable order follows confirmation order.
// Coefficients are rounded to two decimals; the diagonal is exactly 1 and a
// degenerate (constant) column correlates at 0 rather than NaN.
func Correlate(rows []models.Row, candidates []string) (*models.CorrelationMatrix, error) {
	variables := []string{}
	series := [][]float64{}
	for _, col := range candidates {
		if !dataset.ColumnIsNumeric(rows, col) {
			continue
		}
		variables = append(variables, col)
		series = append(series, columnValues(rows, col))
	}

	if len(variables) < 2 {
		return nil, ErrInsufficientData
	}

	matrix := make([][]float64, len(variables))
	for i := range variables {
		matrix[i] = make([]float64, len(variables))
		for j := range variables {
			if i == j {
				matrix[i][j] = 1
				continue
			}
			matrix[i][j] = round2(pearson(series[i], series[j]))
		}
	}

	return &models.CorrelationMatrix{Variables: variables, Matrix: matrix}, nil
}

// columnValues extracts the full column as floats. Confirmation only samples
// the leading rows, so later cells may be non-numeric; those count as 0.
func columnValues(rows []models.Row, col string) []float64 {
	values := make([]float64, len(rows))
	for i, row := range rows {
		if v := row[col]; v.IsNumber() {
			values[i] = v.Num
		}
	}
	return values
}

// pearson computes the Pearson coefficient with the standard sums formula.
func pearson(x, y []float64) float64 {
	n := float64(len(x))
	if n == 0 {
		return 0
	}

	sumX, sumY, sumXY, sumX2, sumY2 := 0.0, 0.0, 0.0, 0.0, 0.0
	for i := range x {
		sumX += x[i]
		sumY += y[i]
		sumXY += x[i] * y[i]
		sumX2 += x[i] * x[i]
		sumY2 += y[i] * y[i]
	}

	num := n*sumXY - sumX*sumY
	den := math.Sqrt((n*sumX2 - sumX*sumX) * (n*sumY2 - sumY*sumY))

	if den == 0 {
		return 0
	}
	return num / den
}

func round2(f float64) float64 {
	return math.Round(f*100) / 100
}
