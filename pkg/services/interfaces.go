// Package services contains business logic implementations.
package services

import (
	"context"
	"time"

	"github.com/TFMV/parley/pkg/models"
)

// SQLValidator is the deterministic safety filter every generated query
// must pass before it may run. Validate is pure: identical input yields
// identical outcomes, so it can run at classification time and again at
// approval time.
type SQLValidator interface {
	Validate(sql string) (string, error)
	RowLimit() int
}

// QueryService executes validated SQL. Input is assumed to have passed the
// validator immediately beforehand; data-store failures come back inside
// the QueryResult, not as an error.
type QueryService interface {
	Execute(ctx context.Context, sql string) *models.QueryResult
}

// ApprovalService is the pending-action store and approval gate. All
// methods operate on a caller-owned session; at most one pending action
// exists per session at any time.
type ApprovalService interface {
	Submit(ctx context.Context, state *models.SessionState, intent models.Intent, utterance string) *models.OutputPayload
	Approve(ctx context.Context, state *models.SessionState) *models.OutputPayload
	Deny(ctx context.Context, state *models.SessionState) *models.OutputPayload
	Clear(ctx context.Context, state *models.SessionState) *models.OutputPayload
}

// DispatchService turns executed rows plus a side-effect request into the
// final user-facing payload. It never mutates the rows.
type DispatchService interface {
	Dispatch(ctx context.Context, state *models.SessionState, sideEffect models.SideEffect, originalQuery, sql string) (*models.OutputPayload, error)
}

// Summarizer is the external result-formatting collaborator.
type Summarizer interface {
	Summarize(ctx context.Context, originalQuery, sql string, rows []models.Row) (string, error)
}

// Logger defines logging interface.
type Logger interface {
	Debug(msg string, keysAndValues ...interface{})
	Info(msg string, keysAndValues ...interface{})
	Warn(msg string, keysAndValues ...interface{})
	Error(msg string, keysAndValues ...interface{})
}

// MetricsCollector defines metrics collection interface.
type MetricsCollector interface {
	IncrementCounter(name string, labels ...string)
	RecordHistogram(name string, value float64, labels ...string)
	RecordGauge(name string, value float64, labels ...string)
	StartTimer(name string) Timer
}

// Timer represents a timing measurement.
type Timer interface {
	Stop() time.Duration
}
