package models

import (
	"encoding/json"
	"strconv"
	"strings"
)

// ValueKind discriminates the cell types a parsed dataset can hold.
type ValueKind int

const (
	KindEmpty ValueKind = iota
	KindNumber
	KindText
)

// Value is a single cell: a number, a piece of text, or empty.
// Typing is per cell; a column may mix kinds across rows.
type Value struct {
	Kind ValueKind
	Num  float64
	Str  string
}

func Number(f float64) Value { return Value{Kind: KindNumber, Num: f} }

func Text(s string) Value {
	if s == "" {
		return Value{Kind: KindEmpty}
	}
	return Value{Kind: KindText, Str: s}
}

func Empty() Value { return Value{Kind: KindEmpty} }

// IsNumber reports whether the cell holds a numeric value.
func (v Value) IsNumber() bool { return v.Kind == KindNumber }

// IsEmpty reports whether the cell is empty or missing.
func (v Value) IsEmpty() bool { return v.Kind == KindEmpty }

// String renders the cell the way it appears in filters and group keys:
// numbers in their shortest decimal form, empty cells as "".
func (v Value) String() string {
	switch v.Kind {
	case KindNumber:
		return strconv.FormatFloat(v.Num, 'f', -1, 64)
	case KindText:
		return v.Str
	default:
		return ""
	}
}

// Coerce turns a raw string into a Value using the ingestion rule: a
// non-empty string that fully parses as a number becomes a number,
// anything else stays text. The empty string stays empty, never 0.
func Coerce(raw string) Value {
	s := strings.TrimSpace(raw)
	if s == "" {
		return Empty()
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return Number(f)
	}
	return Text(s)
}

// MarshalJSON emits numbers as JSON numbers and everything else as strings,
// so API consumers see the same shapes the original cells had.
func (v Value) MarshalJSON() ([]byte, error) {
	switch v.Kind {
	case KindNumber:
		return json.Marshal(v.Num)
	case KindText:
		return json.Marshal(v.Str)
	default:
		return json.Marshal("")
	}
}

// UnmarshalJSON accepts numbers, strings, and null.
func (v *Value) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*v = Empty()
		return nil
	}
	var f float64
	if err := json.Unmarshal(data, &f); err == nil {
		*v = Number(f)
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	*v = Text(s)
	return nil
}

// Row maps column names to cell values.
type Row map[string]Value
