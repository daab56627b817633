package handlers

import (
	"context"

	"github.com/TFMV/parley/pkg/models"
	"github.com/TFMV/parley/pkg/services"
)

// approvalHandler implements ApprovalHandler as a thin layer over the
// approval gate.
type approvalHandler struct {
	approval services.ApprovalService
	logger   Logger
	metrics  MetricsCollector
}

// NewApprovalHandler creates a new approval handler.
func NewApprovalHandler(approval services.ApprovalService, logger Logger, metrics MetricsCollector) ApprovalHandler {
	return &approvalHandler{
		approval: approval,
		logger:   logger,
		metrics:  metrics,
	}
}

func (h *approvalHandler) Approve(ctx context.Context, state *models.SessionState) *models.OutputPayload {
	timer := h.metrics.StartTimer("handler_approve")
	defer timer.Stop()

	h.logger.Debug("Approving pending action", "session_id", state.ID)
	return h.approval.Approve(ctx, state)
}

func (h *approvalHandler) Deny(ctx context.Context, state *models.SessionState) *models.OutputPayload {
	h.logger.Debug("Denying pending action", "session_id", state.ID)
	return h.approval.Deny(ctx, state)
}

func (h *approvalHandler) Pending(state *models.SessionState) *models.PendingAction {
	return state.Pending
}

func (h *approvalHandler) Clear(ctx context.Context, state *models.SessionState) *models.OutputPayload {
	return h.approval.Clear(ctx, state)
}
