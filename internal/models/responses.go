package models

// UploadResponse is returned after a successful CSV upload.
type UploadResponse struct {
	Message     string   `json:"message"`
	DatasetID   string   `json:"dataset_id"`
	Rows        int      `json:"rows"`
	TotalRows   int      `json:"total_rows"`
	Columns     int      `json:"columns"`
	ColumnNames []string `json:"column_names"`
}

// StatusResponse is returned by /api/status.
type StatusResponse struct {
	Loaded    bool   `json:"loaded"`
	Analyzed  bool   `json:"analyzed"`
	DatasetID string `json:"dataset_id,omitempty"`
	Name      string `json:"name,omitempty"`
	Rows      int    `json:"rows"`
	TotalRows int    `json:"total_rows"`
	Columns   int    `json:"columns"`
}

// KPI is a headline figure for one numeric column.
type KPI struct {
	Name   string  `json:"name"`
	Sum    float64 `json:"sum"`
	Avg    float64 `json:"avg"`
	Min    float64 `json:"min"`
	Max    float64 `json:"max"`
	Median float64 `json:"median"`
}

// QueryResponse carries the derived rows for a structured intent.
type QueryResponse struct {
	Rows int   `json:"rows"`
	Data []Row `json:"data"`
}

// ChatResponse is one assistant turn: the interpreted intent, the rows the
// engine derived for it, and the natural-language answer.
type ChatResponse struct {
	Intent *QueryIntent `json:"intent"`
	Rows   []Row        `json:"rows,omitempty"`
	Answer string       `json:"answer"`
}

// AIConfig mirrors the runtime-editable AI service settings.
type AIConfig struct {
	BaseURL string `json:"baseUrl"`
	Model   string `json:"model"`
}

// ErrorResponse is the uniform error envelope.
type ErrorResponse struct {
	Error string `json:"error"`
}
