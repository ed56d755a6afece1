package entity

import (
	"strconv"

	"github.com/joseph-ayodele/contract-extractor/constants"
)

// ExtractedRecord is one output row keyed by the canonical columns.
// Every column is always present; an unknown value is "".
type ExtractedRecord struct {
	Idx    int64
	values map[string]string
}

// NewExtractedRecord returns a record with every column set to "".
func NewExtractedRecord() ExtractedRecord {
	values := make(map[string]string, len(constants.Columns))
	for _, c := range constants.Columns {
		if c == constants.ColumnIdx {
			continue
		}
		values[c] = ""
	}
	return ExtractedRecord{Idx: -1, values: values}
}

// Get returns the value of a column; unknown columns yield "".
func (r ExtractedRecord) Get(field string) string {
	if field == constants.ColumnIdx {
		if r.Idx < 0 {
			return ""
		}
		return strconv.FormatInt(r.Idx, 10)
	}
	return r.values[field]
}

// Set assigns a column value. Names outside the schema are ignored so the record
// shape never drifts from the store header.
func (r ExtractedRecord) Set(field, value string) {
	if _, ok := r.values[field]; !ok {
		return
	}
	r.values[field] = value
}

// WithIdx returns a copy carrying the assigned idx.
func (r ExtractedRecord) WithIdx(idx int64) ExtractedRecord {
	values := make(map[string]string, len(r.values))
	for k, v := range r.values {
		values[k] = v
	}
	return ExtractedRecord{Idx: idx, values: values}
}

// URL is the document identifier the record was extracted for.
func (r ExtractedRecord) URL() string {
	return r.values[constants.ColumnURL]
}

// Row renders the record in column order.
func (r ExtractedRecord) Row() []string {
	row := make([]string, len(constants.Columns))
	for i, c := range constants.Columns {
		row[i] = r.Get(c)
	}
	return row
}

// Map returns a copy of the record keyed by column name, idx included when assigned.
func (r ExtractedRecord) Map() map[string]string {
	out := make(map[string]string, len(constants.Columns))
	for _, c := range constants.Columns {
		out[c] = r.Get(c)
	}
	return out
}

// Populated counts non-empty extracted fields (idx and url excluded).
func (r ExtractedRecord) Populated() int {
	n := 0
	for _, f := range constants.ExtractedFields() {
		if r.values[f] != "" {
			n++
		}
	}
	return n
}
