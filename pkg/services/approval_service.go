package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/TFMV/parley/pkg/errors"
	"github.com/TFMV/parley/pkg/models"
)

// Notices returned by the approval gate. These are user-facing strings, not
// error codes; transports render them verbatim.
const (
	noticeApprovalRequired = "This query requires approval before it runs."
	noticeNothingToApprove = "No pending SQL to approve."
	noticeNothingToDeny    = "No pending SQL to deny."
	noticeDenied           = "SQL execution denied."
	noticeSessionCleared   = "Session cleared."
)

// approvalService implements the pending-action store and approval gate.
// Sessions are caller-owned and handled one action at a time, so the state
// machine needs no locking of its own; each method either consumes or
// replaces the single pending action before returning.
type approvalService struct {
	validator SQLValidator
	query     QueryService
	dispatch  DispatchService
	logger    Logger
	metrics   MetricsCollector
}

// NewApprovalService creates a new approval service.
func NewApprovalService(
	validator SQLValidator,
	query QueryService,
	dispatch DispatchService,
	logger Logger,
	metrics MetricsCollector,
) ApprovalService {
	return &approvalService{
		validator: validator,
		query:     query,
		dispatch:  dispatch,
		logger:    logger,
		metrics:   metrics,
	}
}

// Submit routes one classified intent. SQL-bearing intents are validated and
// stored for approval, never executed here. Any utterance arriving while an
// action is pending supersedes it unconditionally.
func (s *approvalService) Submit(ctx context.Context, state *models.SessionState, intent models.Intent, utterance string) *models.OutputPayload {
	timer := s.metrics.StartTimer("intent_submit")
	defer timer.Stop()

	state.Touch()

	if state.Pending != nil {
		s.logger.Info("Superseding pending action",
			"pending_id", state.Pending.ID,
			"session_id", state.ID)
		s.metrics.IncrementCounter("pending_actions_superseded")
		state.Pending = nil
	}

	switch intent.Kind {
	case models.IntentSQL, models.IntentSQLAndExport, models.IntentSQLAndChart:
		return s.submitSQL(state, intent, utterance)

	case models.IntentExport, models.IntentChart:
		payload, err := s.dispatch.Dispatch(ctx, state, intent.SideEffect(), utterance, "")
		if err != nil {
			s.metrics.IncrementCounter("dispatch_errors")
			s.logger.Warn("Dispatch against prior results failed", "error", err, "session_id", state.ID)
			return &models.OutputPayload{Kind: models.PayloadText, Text: errors.GetMessage(err)}
		}
		return payload

	default:
		return &models.OutputPayload{Kind: models.PayloadText, Text: intent.Answer}
	}
}

// submitSQL validates generated SQL and, on success, stores the normalized
// statement as the session's pending action. The human approves exactly the
// SQL that will run.
func (s *approvalService) submitSQL(state *models.SessionState, intent models.Intent, utterance string) *models.OutputPayload {
	normalized, err := s.validator.Validate(intent.SQL)
	if err != nil {
		s.metrics.IncrementCounter("validation_rejections")
		s.logger.Warn("Generated SQL rejected by validator",
			"error", err,
			"sql", intent.SQL,
			"session_id", state.ID)
		return &models.OutputPayload{Kind: models.PayloadText, Text: errors.GetMessage(err)}
	}

	pending := &models.PendingAction{
		ID:            uuid.New().String(),
		SQL:           normalized,
		OriginalQuery: utterance,
		SideEffect:    intent.SideEffect(),
		CreatedAt:     time.Now(),
	}
	state.Pending = pending

	s.metrics.IncrementCounter("pending_actions_created")
	s.logger.Info("Stored pending action",
		"pending_id", pending.ID,
		"session_id", state.ID,
		"side_effect", string(pending.SideEffect.Kind))

	return &models.OutputPayload{
		Kind: models.PayloadApproval,
		Text: noticeApprovalRequired,
		SQL:  normalized,
	}
}

// Approve consumes the pending action: re-validate, execute, dispatch. The
// pending action is cleared exactly once whatever the outcome.
func (s *approvalService) Approve(ctx context.Context, state *models.SessionState) *models.OutputPayload {
	timer := s.metrics.StartTimer("approval_resolution")
	defer timer.Stop()

	state.Touch()

	pending := state.Pending
	if pending == nil {
		return &models.OutputPayload{Kind: models.PayloadText, Text: noticeNothingToApprove}
	}
	state.Pending = nil

	// Re-validation defends against stale or tampered state; the stored SQL
	// normally passes because it is the validator's own output.
	normalized, err := s.validator.Validate(pending.SQL)
	if err != nil {
		s.metrics.IncrementCounter("validation_rejections")
		s.logger.Warn("Pending SQL failed re-validation",
			"error", err,
			"pending_id", pending.ID,
			"session_id", state.ID)
		return &models.OutputPayload{Kind: models.PayloadText, Text: errors.GetMessage(err)}
	}

	result := s.query.Execute(ctx, normalized)
	if result.Failed() {
		s.metrics.IncrementCounter("approved_execution_errors")
		return &models.OutputPayload{
			Kind: models.PayloadText,
			Text: fmt.Sprintf("SQL execution failed: %s", result.Error),
		}
	}

	state.LastResultRows = result.Rows
	state.LastResultColumns = result.Columns

	payload, err := s.dispatch.Dispatch(ctx, state, pending.SideEffect, pending.OriginalQuery, normalized)
	if err != nil {
		s.metrics.IncrementCounter("dispatch_errors")
		s.logger.Warn("Dispatch failed after approved execution",
			"error", err,
			"pending_id", pending.ID,
			"session_id", state.ID)
		return &models.OutputPayload{Kind: models.PayloadText, Text: errors.GetMessage(err)}
	}

	s.metrics.IncrementCounter("approved_executions")
	s.logger.Info("Approved action executed",
		"pending_id", pending.ID,
		"session_id", state.ID,
		"rows", len(result.Rows))
	return payload
}

// Deny discards the pending action without executing anything.
func (s *approvalService) Deny(ctx context.Context, state *models.SessionState) *models.OutputPayload {
	state.Touch()

	pending := state.Pending
	if pending == nil {
		return &models.OutputPayload{Kind: models.PayloadText, Text: noticeNothingToDeny}
	}
	state.Pending = nil

	s.metrics.IncrementCounter("pending_actions_denied")
	s.logger.Info("Pending action denied",
		"pending_id", pending.ID,
		"session_id", state.ID)
	return &models.OutputPayload{Kind: models.PayloadText, Text: noticeDenied}
}

// Clear resets the session to its initial idle state.
func (s *approvalService) Clear(ctx context.Context, state *models.SessionState) *models.OutputPayload {
	state.Reset()
	s.logger.Debug("Session cleared", "session_id", state.ID)
	return &models.OutputPayload{Kind: models.PayloadText, Text: noticeSessionCleared}
}
