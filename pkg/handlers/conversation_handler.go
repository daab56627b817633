package handlers

import (
	"context"

	"github.com/TFMV/parley/pkg/classify"
	"github.com/TFMV/parley/pkg/models"
	"github.com/TFMV/parley/pkg/schema"
	"github.com/TFMV/parley/pkg/services"
)

// conversationHandler implements ConversationHandler.
type conversationHandler struct {
	classifier *classify.Classifier
	schemas    schema.Provider
	approval   services.ApprovalService
	fragments  int
	logger     Logger
	metrics    MetricsCollector
}

// NewConversationHandler creates a new conversation handler. fragments is
// how many schema fragments go into the classifier prompt.
func NewConversationHandler(
	classifier *classify.Classifier,
	schemas schema.Provider,
	approval services.ApprovalService,
	fragments int,
	logger Logger,
	metrics MetricsCollector,
) ConversationHandler {
	return &conversationHandler{
		classifier: classifier,
		schemas:    schemas,
		approval:   approval,
		fragments:  fragments,
		logger:     logger,
		metrics:    metrics,
	}
}

// ProcessUtterance retrieves schema context, classifies the utterance, and
// submits the intent to the approval gate. Schema retrieval failures are
// logged and classification proceeds without context; classifier transport
// failures return a coded error.
func (h *conversationHandler) ProcessUtterance(ctx context.Context, state *models.SessionState, utterance string) (*models.OutputPayload, error) {
	timer := h.metrics.StartTimer("handler_process_utterance")
	defer timer.Stop()

	h.logger.Debug("Processing utterance",
		"session_id", state.ID,
		"utterance_len", len(utterance))

	var schemaContext []string
	if h.schemas != nil {
		fragments, err := h.schemas.Retrieve(ctx, utterance, h.fragments)
		if err != nil {
			h.metrics.IncrementCounter("handler_schema_errors")
			h.logger.Warn("Schema retrieval failed, classifying without context",
				"error", err,
				"session_id", state.ID)
		} else {
			schemaContext = fragments
		}
	}

	intent, _, err := h.classifier.Classify(ctx, classify.Request{
		Utterance:        utterance,
		SchemaContext:    schemaContext,
		HasPriorResults:  state.HasResults(),
		AvailableColumns: state.ColumnNames(),
	})
	if err != nil {
		h.metrics.IncrementCounter("handler_classifier_errors")
		h.logger.Error("Classification failed",
			"error", err,
			"session_id", state.ID)
		return nil, err
	}

	h.metrics.IncrementCounter("handler_intents", "kind", string(intent.Kind))
	return h.approval.Submit(ctx, state, intent, utterance), nil
}
