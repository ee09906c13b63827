package core

import (
	"bytes"
	"encoding/json"
	"slices"
)

// Cell is a single named value used to build a Record.
type Cell struct {
	Column string
	Value  any
}

// Record is one row of a dataset: an ordered mapping from column name to cell value.
// Values produced by the CSV reader are strings, but any value may be stored.
// The zero Record has no columns.
type Record struct {
	columns []string
	values  map[string]any
}

// NewRecord builds a Record from cells in the given order.
// A repeated column keeps its first position and takes the last value.
func NewRecord(cells ...Cell) Record {
	r := Record{
		columns: make([]string, 0, len(cells)),
		values:  make(map[string]any, len(cells)),
	}
	for _, c := range cells {
		if _, dup := r.values[c.Column]; !dup {
			r.columns = append(r.columns, c.Column)
		}
		r.values[c.Column] = c.Value
	}
	return r
}

// RecordFromRow pairs a header with one parsed CSV row.
// Header positions past the end of a short row are left absent.
func RecordFromRow(header, row []string) Record {
	cells := make([]Cell, 0, len(header))
	for i, col := range header {
		if i >= len(row) {
			break
		}
		cells = append(cells, Cell{Column: col, Value: row[i]})
	}
	return NewRecord(cells...)
}

// Columns returns the record's column names in order.
func (r Record) Columns() []string {
	return slices.Clone(r.columns)
}

// Len returns the number of columns in the record.
func (r Record) Len() int {
	return len(r.columns)
}

// Get returns the cell value for a column and whether the column exists.
func (r Record) Get(column string) (any, bool) {
	v, ok := r.values[column]
	return v, ok
}

// Text returns the cell as a string. ok is false when the column is absent
// or the cell holds a non-string value.
func (r Record) Text(column string) (string, bool) {
	s, ok := r.values[column].(string)
	return s, ok
}

// MarshalJSON encodes the record as a JSON object with keys in column order.
func (r Record) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, col := range r.columns {
		if i > 0 {
			buf.WriteByte(',')
		}
		k, err := json.Marshal(col)
		if err != nil {
			return nil, err
		}
		v, err := json.Marshal(r.values[col])
		if err != nil {
			return nil, err
		}
		buf.Write(k)
		buf.WriteByte(':')
		buf.Write(v)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// HeaderOf returns the column order of the first record, or nil for an empty dataset.
func HeaderOf(records []Record) []string {
	if len(records) == 0 {
		return nil
	}
	return records[0].Columns()
}

// ColumnFilter is a single filter rule on one column.
// Value may hold several sub-values separated by newlines; how they combine
// depends on Operator.
type ColumnFilter struct {
	ID       string   `json:"id"`
	Column   string   `json:"columnName"`
	Operator Operator `json:"operator"`
	Value    string   `json:"value"`
}
