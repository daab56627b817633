// Package models provides data structures used throughout the approval pipeline.
package models

import (
	"time"
)

// Row maps column names to scalar values. Column names are unique per row;
// binary values are sanitized to text or hex before a row leaves the
// executor.
type Row map[string]interface{}

// QueryResult represents the outcome of executing one validated statement.
// Data-store failures are carried in Error rather than raised, because
// execution failures are expected and recoverable.
type QueryResult struct {
	Columns       []string      `json:"columns,omitempty"`
	Rows          []Row         `json:"rows"`
	Error         string        `json:"error,omitempty"`
	ExecutionTime time.Duration `json:"execution_time,omitempty"`
}

// Failed reports whether the execution produced a data-store error.
func (r *QueryResult) Failed() bool {
	return r.Error != ""
}

// RowCount returns the number of rows in the result.
func (r *QueryResult) RowCount() int {
	return len(r.Rows)
}
