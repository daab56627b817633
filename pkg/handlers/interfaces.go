// Package handlers orchestrates the pipeline for the transports. Both the
// REPL and the HTTP server drive these handlers; neither reimplements the
// classify/approve/dispatch flow.
package handlers

import (
	"context"

	"github.com/TFMV/parley/pkg/models"
)

// ConversationHandler handles one user utterance end to end.
type ConversationHandler interface {
	// ProcessUtterance classifies the utterance and routes the intent
	// through the approval gate. SQL-bearing intents come back as approval
	// requests, never as executed results.
	ProcessUtterance(ctx context.Context, state *models.SessionState, utterance string) (*models.OutputPayload, error)
}

// ApprovalHandler resolves pending actions.
type ApprovalHandler interface {
	// Approve executes the pending SQL and dispatches its results.
	Approve(ctx context.Context, state *models.SessionState) *models.OutputPayload

	// Deny discards the pending SQL without executing it.
	Deny(ctx context.Context, state *models.SessionState) *models.OutputPayload

	// Pending returns the action awaiting approval, or nil.
	Pending(state *models.SessionState) *models.PendingAction

	// Clear resets the session.
	Clear(ctx context.Context, state *models.SessionState) *models.OutputPayload
}

// Logger defines the logging interface.
type Logger interface {
	Debug(msg string, keysAndValues ...interface{})
	Info(msg string, keysAndValues ...interface{})
	Warn(msg string, keysAndValues ...interface{})
	Error(msg string, keysAndValues ...interface{})
}

// MetricsCollector defines the metrics interface.
type MetricsCollector interface {
	IncrementCounter(name string, tags ...string)
	RecordHistogram(name string, value float64, tags ...string)
	RecordGauge(name string, value float64, tags ...string)
	StartTimer(name string) Timer
}

// Timer represents a timing measurement.
type Timer interface {
	Stop()
}
