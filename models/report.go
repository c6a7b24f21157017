// Package models defines data structures for the report pipeline.
package models

import "time"

// EntityStub is one candidate row scanned from a listing page.
// Link is only populated when the listing was fetched live.
type EntityStub struct {
	Code string `json:"code"`
	Name string `json:"name"`
	Link string `json:"link,omitempty"`
}

// Field is a single named cell of a Record.
type Field struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// Record is one report row. Field order is the column declaration order.
type Record struct {
	Fields []Field
}

// NewRecord pairs names with values. values must be at least as long as names.
func NewRecord(names, values []string) Record {
	fields := make([]Field, len(names))
	for i, name := range names {
		fields[i] = Field{Name: name, Value: values[i]}
	}
	return Record{Fields: fields}
}

// Get returns the value stored under name.
func (r Record) Get(name string) (string, bool) {
	for _, f := range r.Fields {
		if f.Name == name {
			return f.Value, true
		}
	}
	return "", false
}

// Names returns the field names in order.
func (r Record) Names() []string {
	names := make([]string, len(r.Fields))
	for i, f := range r.Fields {
		names[i] = f.Name
	}
	return names
}

// Values returns the field values in order.
func (r Record) Values() []string {
	values := make([]string, len(r.Fields))
	for i, f := range r.Fields {
		values[i] = f.Value
	}
	return values
}

// Report is the titled, ordered output of one pipeline run.
type Report struct {
	Title   string
	Records []Record
}

// Columns returns the field names of the first record, or nil when empty.
func (r *Report) Columns() []string {
	if r == nil || len(r.Records) == 0 {
		return nil
	}
	return r.Records[0].Names()
}

// Empty reports whether the report carries no records.
func (r *Report) Empty() bool {
	return r == nil || len(r.Records) == 0
}

// RunStats holds the overall result of a pipeline run.
type RunStats struct {
	RunID         string
	StartTime     time.Time
	EndTime       time.Time
	Scanned       int
	Processed     int
	Records       int
	Skipped       map[string]int
	DegradedCells int
}
