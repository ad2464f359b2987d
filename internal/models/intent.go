package models

// Intent kinds produced by the query interpreter.
const (
	IntentQuery         = "query"
	IntentChat          = "chat"
	IntentClarification = "clarification"
)

// Aggregation kinds understood by the query engine.
const (
	AggSum           = "SUM"
	AggAvg           = "AVG"
	AggCount         = "COUNT"
	AggCountDistinct = "COUNT_DISTINCT"
)

// QueryFilter is a single predicate over one column. Value arrives as raw
// JSON (usually a string) and is coerced once before evaluation.
type QueryFilter struct {
	Column   string      `json:"column"`
	Operator string      `json:"operator"`
	Value    interface{} `json:"value"`
}

// QueryIntent is the structured form of a data request, built either from a
// UI action or by interpreting a free-text question. It is constructed fresh
// per request and not mutated afterwards, except for the one-time filter
// value coercion pass.
type QueryIntent struct {
	Type        string        `json:"type"`
	Filters     []QueryFilter `json:"filters"`
	GroupBy     string        `json:"groupBy,omitempty"`
	Metric      string        `json:"metric,omitempty"`
	Aggregation string        `json:"aggregation,omitempty"`
	ChartType   string        `json:"chartType,omitempty"`
	Title       string        `json:"title,omitempty"`
	Text        string        `json:"text,omitempty"`
}

// HasGrouping reports whether the intent carries a complete group/aggregate
// directive. Incomplete directives degrade to filtered-only results.
func (q *QueryIntent) HasGrouping() bool {
	return q.GroupBy != "" && q.Metric != "" && q.Aggregation != ""
}
