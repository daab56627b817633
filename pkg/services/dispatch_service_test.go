package services

import (
	"context"
	stdErrors "errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/TFMV/parley/pkg/errors"
	"github.com/TFMV/parley/pkg/models"
	"github.com/TFMV/parley/pkg/render"
)

type mockSummarizer struct {
	summarizeFunc func(ctx context.Context, originalQuery, sql string, rows []models.Row) (string, error)
	calls         int
}

func (m *mockSummarizer) Summarize(ctx context.Context, originalQuery, sql string, rows []models.Row) (string, error) {
	m.calls++
	if m.summarizeFunc != nil {
		return m.summarizeFunc(ctx, originalQuery, sql, rows)
	}
	return "Here is what the data says.", nil
}

type mockExportRenderer struct {
	renderFunc func(rows []models.Row, columns []string, format models.ExportFormat) (*render.File, error)
	calls      int
}

func (m *mockExportRenderer) RenderExport(rows []models.Row, columns []string, format models.ExportFormat) (*render.File, error) {
	m.calls++
	if m.renderFunc != nil {
		return m.renderFunc(rows, columns, format)
	}
	return &render.File{Name: "export_x.csv", Bytes: []byte("csv"), MimeType: "text/csv"}, nil
}

type mockChartRenderer struct {
	renderFunc func(rows []models.Row, spec models.ChartSpec) (*render.File, error)
	calls      int
	lastSpec   models.ChartSpec
}

func (m *mockChartRenderer) RenderChart(rows []models.Row, spec models.ChartSpec) (*render.File, error) {
	m.calls++
	m.lastSpec = spec
	if m.renderFunc != nil {
		return m.renderFunc(rows, spec)
	}
	return &render.File{Name: "chart_x.png", Bytes: []byte("png"), MimeType: models.MimeTypePNG}, nil
}

type mockPublisher struct {
	publishFunc func(ctx context.Context, name string, payload []byte, contentType string) (string, error)
	enabled     bool
	calls       int
}

func (m *mockPublisher) Publish(ctx context.Context, name string, payload []byte, contentType string) (string, error) {
	m.calls++
	if m.publishFunc != nil {
		return m.publishFunc(ctx, name, payload, contentType)
	}
	return "http://store/artifacts/" + name, nil
}

func (m *mockPublisher) Enabled() bool { return m.enabled }

type dispatchFixture struct {
	service    DispatchService
	summarizer *mockSummarizer
	exporter   *mockExportRenderer
	charts     *mockChartRenderer
	publisher  *mockPublisher
}

func newDispatchFixture() *dispatchFixture {
	f := &dispatchFixture{
		summarizer: &mockSummarizer{},
		exporter:   &mockExportRenderer{},
		charts:     &mockChartRenderer{},
		publisher:  &mockPublisher{},
	}
	f.service = NewDispatchService(
		f.summarizer, f.exporter, f.charts, f.publisher,
		noopLogger{}, newRecordingMetrics(),
	)
	return f
}

func stateWithResults() *models.SessionState {
	state := models.NewSessionState("s1")
	state.LastResultRows = []models.Row{
		{"region": "north", "total": int64(120)},
		{"region": "south", "total": int64(80)},
	}
	state.LastResultColumns = []string{"region", "total"}
	return state
}

func TestDispatchSummary(t *testing.T) {
	f := newDispatchFixture()
	state := stateWithResults()

	payload, err := f.service.Dispatch(context.Background(), state,
		models.SideEffect{Kind: models.SideEffectNone}, "totals by region", "SELECT 1")

	require.NoError(t, err)
	assert.Equal(t, models.PayloadTable, payload.Kind)
	assert.Equal(t, "Here is what the data says.", payload.Text)
	assert.Equal(t, []string{"region", "total"}, payload.Columns)
	assert.Len(t, payload.Rows, 2)
	assert.Equal(t, "SELECT 1", payload.SQL)
	assert.Equal(t, 1, f.summarizer.calls)
}

func TestDispatchSummaryEmptyResultsSkipsSummarizer(t *testing.T) {
	f := newDispatchFixture()
	state := models.NewSessionState("s1")

	payload, err := f.service.Dispatch(context.Background(), state,
		models.SideEffect{Kind: models.SideEffectNone}, "anything", "SELECT 1")

	require.NoError(t, err)
	assert.Equal(t, models.PayloadText, payload.Kind)
	assert.Equal(t, "The query returned no results.", payload.Text)
	assert.Zero(t, f.summarizer.calls)
}

func TestDispatchSummaryFallbackOnSummarizerError(t *testing.T) {
	f := newDispatchFixture()
	state := stateWithResults()
	f.summarizer.summarizeFunc = func(context.Context, string, string, []models.Row) (string, error) {
		return "", stdErrors.New("model unavailable")
	}

	payload, err := f.service.Dispatch(context.Background(), state,
		models.SideEffect{Kind: models.SideEffectNone}, "totals", "SELECT 1")

	require.NoError(t, err)
	assert.Equal(t, "Query executed. 2 rows returned.", payload.Text)
	assert.Len(t, payload.Rows, 2)
}

func TestDispatchExport(t *testing.T) {
	f := newDispatchFixture()
	state := stateWithResults()

	payload, err := f.service.Dispatch(context.Background(), state,
		models.SideEffect{Kind: models.SideEffectExport, Format: models.FormatCSV}, "", "SELECT 1")

	require.NoError(t, err)
	assert.Equal(t, models.PayloadFile, payload.Kind)
	assert.Equal(t, "Here you go! Your CSV file with 2 rows is ready.", payload.Text)
	assert.Equal(t, "export_x.csv", payload.FileName)
	assert.Equal(t, []byte("csv"), payload.FileBytes)
	assert.Equal(t, "text/csv", payload.MimeType)
	assert.Empty(t, payload.ObjectURL)
	assert.Equal(t, 1, f.exporter.calls)
	assert.Zero(t, f.publisher.calls)
}

func TestDispatchExportEmptyRowsSkipsRenderer(t *testing.T) {
	f := newDispatchFixture()
	state := models.NewSessionState("s1")

	payload, err := f.service.Dispatch(context.Background(), state,
		models.SideEffect{Kind: models.SideEffectExport, Format: models.FormatCSV}, "", "")

	assert.Nil(t, payload)
	require.Error(t, err)
	assert.Equal(t, errors.CodeNoDataToExport, errors.GetCode(err))
	assert.Zero(t, f.exporter.calls)
}

func TestDispatchExportPublishes(t *testing.T) {
	f := newDispatchFixture()
	f.publisher.enabled = true
	state := stateWithResults()

	payload, err := f.service.Dispatch(context.Background(), state,
		models.SideEffect{Kind: models.SideEffectExport, Format: models.FormatParquet}, "", "")

	require.NoError(t, err)
	assert.Equal(t, 1, f.publisher.calls)
	assert.Equal(t, "http://store/artifacts/export_x.csv", payload.ObjectURL)
}

func TestDispatchExportPublishFailureIsNotFatal(t *testing.T) {
	f := newDispatchFixture()
	f.publisher.enabled = true
	f.publisher.publishFunc = func(context.Context, string, []byte, string) (string, error) {
		return "", stdErrors.New("bucket unreachable")
	}
	state := stateWithResults()

	payload, err := f.service.Dispatch(context.Background(), state,
		models.SideEffect{Kind: models.SideEffectExport, Format: models.FormatCSV}, "", "")

	require.NoError(t, err)
	assert.Equal(t, models.PayloadFile, payload.Kind)
	assert.Empty(t, payload.ObjectURL)
}

func TestDispatchChart(t *testing.T) {
	f := newDispatchFixture()
	state := stateWithResults()

	payload, err := f.service.Dispatch(context.Background(), state,
		models.SideEffect{
			Kind:  models.SideEffectChart,
			Chart: &models.ChartSpec{Type: models.ChartBar, XColumn: "region", YColumn: "total"},
		}, "", "")

	require.NoError(t, err)
	assert.Equal(t, models.PayloadChart, payload.Kind)
	assert.Equal(t, "Here's your bar chart with 2 data points.", payload.Text)
	assert.Equal(t, models.MimeTypePNG, payload.MimeType)
	assert.Equal(t, 1, f.charts.calls)

	require.NotNil(t, state.ChartPrefs)
	assert.Equal(t, models.ChartBar, state.ChartPrefs.Type)
	assert.Equal(t, "region", state.ChartPrefs.XColumn)
	assert.Equal(t, "total", state.ChartPrefs.YColumn)
}

func TestDispatchChartMissingColumnSkipsRenderer(t *testing.T) {
	f := newDispatchFixture()
	state := stateWithResults()

	payload, err := f.service.Dispatch(context.Background(), state,
		models.SideEffect{
			Kind:  models.SideEffectChart,
			Chart: &models.ChartSpec{Type: models.ChartBar, XColumn: "region", YColumn: "revenue"},
		}, "", "")

	assert.Nil(t, payload)
	require.Error(t, err)
	assert.Equal(t, errors.CodeColumnNotFound, errors.GetCode(err))
	assert.Contains(t, errors.GetMessage(err), "revenue")
	assert.Zero(t, f.charts.calls)
}

func TestDispatchChartEmptyRows(t *testing.T) {
	f := newDispatchFixture()
	state := models.NewSessionState("s1")

	payload, err := f.service.Dispatch(context.Background(), state,
		models.SideEffect{
			Kind:  models.SideEffectChart,
			Chart: &models.ChartSpec{Type: models.ChartBar, XColumn: "a", YColumn: "b"},
		}, "", "")

	assert.Nil(t, payload)
	require.Error(t, err)
	assert.Equal(t, errors.CodeNoDataToChart, errors.GetCode(err))
	assert.Zero(t, f.charts.calls)
}

func TestDispatchChartMergesPreferences(t *testing.T) {
	f := newDispatchFixture()
	state := stateWithResults()
	state.ChartPrefs = &models.ChartPreferences{
		Type:    models.ChartBar,
		XColumn: "region",
		YColumn: "total",
		Title:   "Totals by region",
	}

	// A follow-up like "make it a line chart" carries only the new type.
	payload, err := f.service.Dispatch(context.Background(), state,
		models.SideEffect{
			Kind:  models.SideEffectChart,
			Chart: &models.ChartSpec{Type: models.ChartLine},
		}, "", "")

	require.NoError(t, err)
	assert.Equal(t, models.PayloadChart, payload.Kind)
	assert.Equal(t, models.ChartLine, f.charts.lastSpec.Type)
	assert.Equal(t, "region", f.charts.lastSpec.XColumn)
	assert.Equal(t, "total", f.charts.lastSpec.YColumn)
	assert.Equal(t, "Totals by region", f.charts.lastSpec.Title)

	assert.Equal(t, models.ChartLine, state.ChartPrefs.Type)
}
