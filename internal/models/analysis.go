package models

// Column type tags. The tag on an AI-supplied profile is advisory; only the
// correlation engine re-derives numeric-ness empirically.
const (
	ColumnNumeric     = "numeric"
	ColumnCategorical = "categorical"
	ColumnDatetime    = "datetime"
	ColumnText        = "text"
)

// Chart kinds the UI can render.
const (
	ChartBar     = "bar"
	ChartLine    = "line"
	ChartScatter = "scatter"
	ChartPie     = "pie"
	ChartArea    = "area"
)

// ColumnProfile describes one column of the dataset.
type ColumnProfile struct {
	Name     string   `json:"name"`
	Type     string   `json:"type"`
	Missing  int      `json:"missing"`
	Unique   int      `json:"unique"`
	Examples []string `json:"examples"`
}

// ChartConfig is a renderable chart recommendation. After reconciliation
// XKey and YKey are guaranteed to name real dataset columns.
type ChartConfig struct {
	ID          string `json:"id"`
	Type        string `json:"type"`
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	XKey        string `json:"xKey"`
	YKey        string `json:"yKey"`
	CategoryKey string `json:"categoryKey,omitempty"`
}

// AnalysisResult is what the external AI collaborator returns for a dataset
// sample, after reconciliation against the real columns.
type AnalysisResult struct {
	Summary           string          `json:"summary"`
	Insights          []string        `json:"insights"`
	Columns           []ColumnProfile `json:"columns"`
	RecommendedCharts []ChartConfig   `json:"recommendedCharts"`
}

// CorrelationMatrix is a symmetric Pearson matrix over the confirmed numeric
// columns. Matrix[i][j] == Matrix[j][i] and Matrix[i][i] == 1.
type CorrelationMatrix struct {
	Variables []string    `json:"variables"`
	Matrix    [][]float64 `json:"matrix"`
}
