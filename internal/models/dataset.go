package models

// Dataset is the in-memory table a session explores. Rows keep source file
// order and are truncated at ingestion; TotalRows records how many rows the
// source actually contained, which may exceed len(Rows).
type Dataset struct {
	ID        string   `json:"id"`
	Name      string   `json:"name"`
	Columns   []string `json:"columns"`
	Rows      []Row    `json:"rows"`
	TotalRows int      `json:"total_rows"`
}

// ColumnNames returns the column set visible to reconciliation: the keys of
// the first row, or nil when the dataset is empty.
func (d *Dataset) ColumnNames() []string {
	if d == nil || len(d.Rows) == 0 {
		return nil
	}
	if len(d.Columns) > 0 {
		return d.Columns
	}
	cols := make([]string, 0, len(d.Rows[0]))
	for name := range d.Rows[0] {
		cols = append(cols, name)
	}
	return cols
}
