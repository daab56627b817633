package handlers

import (
	"context"
	stdErrors "errors"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/TFMV/parley/pkg/classify"
	"github.com/TFMV/parley/pkg/errors"
	"github.com/TFMV/parley/pkg/models"
)

type noopLogger struct{}

func (noopLogger) Debug(string, ...interface{}) {}
func (noopLogger) Info(string, ...interface{})  {}
func (noopLogger) Warn(string, ...interface{})  {}
func (noopLogger) Error(string, ...interface{}) {}

type noopTimer struct{}

func (noopTimer) Stop() {}

type noopMetrics struct{}

func (noopMetrics) IncrementCounter(string, ...string)         {}
func (noopMetrics) RecordHistogram(string, float64, ...string) {}
func (noopMetrics) RecordGauge(string, float64, ...string)     {}
func (noopMetrics) StartTimer(string) Timer                    { return noopTimer{} }

type scriptedProvider struct {
	response   string
	err        error
	lastSystem string
	lastUser   string
}

func (p *scriptedProvider) Complete(_ context.Context, system, user string) (string, error) {
	p.lastSystem = system
	p.lastUser = user
	if p.err != nil {
		return "", p.err
	}
	return p.response, nil
}

type mockSchemaProvider struct {
	retrieveFunc func(ctx context.Context, query string, k int) ([]string, error)
	calls        int
}

func (m *mockSchemaProvider) Retrieve(ctx context.Context, query string, k int) ([]string, error) {
	m.calls++
	if m.retrieveFunc != nil {
		return m.retrieveFunc(ctx, query, k)
	}
	return []string{"TABLE customers (\n  id BIGINT\n)"}, nil
}

type mockApprovalService struct {
	submitted []models.Intent
	approves  int
	denies    int
	clears    int
}

func (m *mockApprovalService) Submit(_ context.Context, _ *models.SessionState, intent models.Intent, _ string) *models.OutputPayload {
	m.submitted = append(m.submitted, intent)
	return &models.OutputPayload{Kind: models.PayloadText, Text: "submitted"}
}

func (m *mockApprovalService) Approve(context.Context, *models.SessionState) *models.OutputPayload {
	m.approves++
	return &models.OutputPayload{Kind: models.PayloadText, Text: "approved"}
}

func (m *mockApprovalService) Deny(context.Context, *models.SessionState) *models.OutputPayload {
	m.denies++
	return &models.OutputPayload{Kind: models.PayloadText, Text: "denied"}
}

func (m *mockApprovalService) Clear(context.Context, *models.SessionState) *models.OutputPayload {
	m.clears++
	return &models.OutputPayload{Kind: models.PayloadText, Text: "cleared"}
}

func newConversationFixture(provider *scriptedProvider) (ConversationHandler, *mockSchemaProvider, *mockApprovalService) {
	schemas := &mockSchemaProvider{}
	approval := &mockApprovalService{}
	handler := NewConversationHandler(
		classify.NewClassifier(provider, zerolog.Nop()),
		schemas,
		approval,
		4,
		noopLogger{},
		noopMetrics{},
	)
	return handler, schemas, approval
}

func TestProcessUtteranceSubmitsClassifiedIntent(t *testing.T) {
	provider := &scriptedProvider{
		response: `{"type": "sql", "sql": "SELECT id FROM customers"}`,
	}
	handler, schemas, approval := newConversationFixture(provider)
	state := models.NewSessionState("s1")

	payload, err := handler.ProcessUtterance(context.Background(), state, "list customer ids")

	require.NoError(t, err)
	assert.Equal(t, "submitted", payload.Text)
	assert.Equal(t, 1, schemas.calls)
	require.Len(t, approval.submitted, 1)
	assert.Equal(t, models.IntentSQL, approval.submitted[0].Kind)
	assert.Equal(t, "SELECT id FROM customers", approval.submitted[0].SQL)
	assert.Contains(t, provider.lastSystem, "TABLE customers (")
}

func TestProcessUtteranceSchemaFailureStillClassifies(t *testing.T) {
	provider := &scriptedProvider{
		response: `{"type": "message", "content": "Hi!"}`,
	}
	handler, schemas, approval := newConversationFixture(provider)
	schemas.retrieveFunc = func(context.Context, string, int) ([]string, error) {
		return nil, stdErrors.New("introspection failed")
	}
	state := models.NewSessionState("s1")

	payload, err := handler.ProcessUtterance(context.Background(), state, "hello")

	require.NoError(t, err)
	assert.Equal(t, "submitted", payload.Text)
	require.Len(t, approval.submitted, 1)
	assert.Equal(t, models.IntentAnswer, approval.submitted[0].Kind)
	assert.False(t, strings.Contains(provider.lastSystem, "Schema:"))
}

func TestProcessUtteranceClassifierFailure(t *testing.T) {
	provider := &scriptedProvider{err: stdErrors.New("connection refused")}
	handler, _, approval := newConversationFixture(provider)
	state := models.NewSessionState("s1")

	payload, err := handler.ProcessUtterance(context.Background(), state, "anything")

	assert.Nil(t, payload)
	require.Error(t, err)
	assert.Equal(t, errors.CodeClassifierUnavailable, errors.GetCode(err))
	assert.Empty(t, approval.submitted)
}

func TestProcessUtterancePriorResultsReachClassifier(t *testing.T) {
	provider := &scriptedProvider{
		response: `{"type": "export", "format": "csv"}`,
	}
	handler, _, approval := newConversationFixture(provider)
	state := models.NewSessionState("s1")
	state.LastResultRows = []models.Row{{"region": "north", "total": int64(1)}}
	state.LastResultColumns = []string{"region", "total"}

	_, err := handler.ProcessUtterance(context.Background(), state, "save that as csv")

	require.NoError(t, err)
	assert.Contains(t, provider.lastSystem, `{"type": "export"`)
	assert.Contains(t, provider.lastSystem, "region, total")
	require.Len(t, approval.submitted, 1)
	assert.Equal(t, models.IntentExport, approval.submitted[0].Kind)
}
