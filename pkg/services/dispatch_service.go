package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/TFMV/parley/pkg/artifact"
	"github.com/TFMV/parley/pkg/errors"
	"github.com/TFMV/parley/pkg/models"
	"github.com/TFMV/parley/pkg/render"
)

// dispatchService routes executed rows to the summarizer, an export
// renderer, or the chart renderer according to the side effect. Rows are
// read from the session and never modified.
type dispatchService struct {
	summarizer Summarizer
	exporter   render.ExportRenderer
	charts     render.ChartRenderer
	publisher  artifact.Publisher
	logger     Logger
	metrics    MetricsCollector
}

// NewDispatchService creates a new dispatch service. The publisher may be
// the disabled no-op implementation.
func NewDispatchService(
	summarizer Summarizer,
	exporter render.ExportRenderer,
	charts render.ChartRenderer,
	publisher artifact.Publisher,
	logger Logger,
	metrics MetricsCollector,
) DispatchService {
	return &dispatchService{
		summarizer: summarizer,
		exporter:   exporter,
		charts:     charts,
		publisher:  publisher,
		logger:     logger,
		metrics:    metrics,
	}
}

// Dispatch produces the final payload for one resolved action. Dispatch
// failures do not touch pending state; execution already finished.
func (s *dispatchService) Dispatch(ctx context.Context, state *models.SessionState, sideEffect models.SideEffect, originalQuery, sql string) (*models.OutputPayload, error) {
	timer := s.metrics.StartTimer("dispatch")
	defer timer.Stop()

	switch sideEffect.Kind {
	case models.SideEffectExport:
		return s.dispatchExport(ctx, state, sideEffect.Format)
	case models.SideEffectChart:
		return s.dispatchChart(ctx, state, sideEffect.Chart)
	default:
		return s.dispatchSummary(ctx, state, originalQuery, sql)
	}
}

// dispatchSummary turns rows into a natural-language answer. Empty results
// never reach the summarizer.
func (s *dispatchService) dispatchSummary(ctx context.Context, state *models.SessionState, originalQuery, sql string) (*models.OutputPayload, error) {
	rows := state.LastResultRows
	if len(rows) == 0 {
		s.metrics.IncrementCounter("dispatch_empty_results")
		return &models.OutputPayload{
			Kind: models.PayloadText,
			Text: "The query returned no results.",
			SQL:  sql,
		}, nil
	}

	summary, err := s.summarizer.Summarize(ctx, originalQuery, sql, rows)
	if err != nil {
		s.metrics.IncrementCounter("summarizer_errors")
		s.logger.Warn("Summarizer failed, using fallback",
			"error", err,
			"session_id", state.ID)
		summary = fmt.Sprintf("Query executed. %d rows returned.", len(rows))
	}

	s.metrics.IncrementCounter("dispatched_summaries")
	return &models.OutputPayload{
		Kind:    models.PayloadTable,
		Text:    summary,
		Rows:    rows,
		Columns: state.ColumnNames(),
		SQL:     sql,
	}, nil
}

func (s *dispatchService) dispatchExport(ctx context.Context, state *models.SessionState, format models.ExportFormat) (*models.OutputPayload, error) {
	rows := state.LastResultRows
	if len(rows) == 0 {
		s.metrics.IncrementCounter("dispatch_empty_results")
		return nil, errors.ErrNoDataToExport
	}

	file, err := s.exporter.RenderExport(rows, state.ColumnNames(), format)
	if err != nil {
		s.metrics.IncrementCounter("export_render_errors")
		return nil, err
	}

	s.metrics.IncrementCounter("dispatched_exports", "format", string(format))
	s.logger.Info("Export rendered",
		"format", string(format),
		"file", file.Name,
		"rows", len(rows),
		"session_id", state.ID)

	payload := &models.OutputPayload{
		Kind:      models.PayloadFile,
		Text:      fmt.Sprintf("Here you go! Your %s file with %d rows is ready.", strings.ToUpper(string(format)), len(rows)),
		FileName:  file.Name,
		FileBytes: file.Bytes,
		MimeType:  file.MimeType,
	}
	s.publish(ctx, state, payload)
	return payload, nil
}

func (s *dispatchService) dispatchChart(ctx context.Context, state *models.SessionState, requested *models.ChartSpec) (*models.OutputPayload, error) {
	rows := state.LastResultRows
	if len(rows) == 0 {
		s.metrics.IncrementCounter("dispatch_empty_results")
		return nil, errors.ErrNoDataToChart
	}

	var spec models.ChartSpec
	if requested != nil {
		spec = *requested
	}
	spec = state.ChartPrefs.Merge(spec)

	columns := state.ColumnNames()
	if !containsColumn(columns, spec.XColumn) {
		return nil, errors.Newf(errors.CodeColumnNotFound,
			"Column '%s' not found in results", spec.XColumn)
	}
	if !containsColumn(columns, spec.YColumn) {
		return nil, errors.Newf(errors.CodeColumnNotFound,
			"Column '%s' not found in results", spec.YColumn)
	}

	file, err := s.charts.RenderChart(rows, spec)
	if err != nil {
		s.metrics.IncrementCounter("chart_render_errors")
		return nil, err
	}

	state.ChartPrefs = &models.ChartPreferences{
		Type:    spec.Type,
		XColumn: spec.XColumn,
		YColumn: spec.YColumn,
		Title:   spec.Title,
		Theme:   spec.Theme,
	}

	s.metrics.IncrementCounter("dispatched_charts", "type", string(spec.Type))
	s.logger.Info("Chart rendered",
		"type", string(spec.Type),
		"file", file.Name,
		"rows", len(rows),
		"session_id", state.ID)

	payload := &models.OutputPayload{
		Kind:      models.PayloadChart,
		Text:      fmt.Sprintf("Here's your %s chart with %d data points.", spec.Type, len(rows)),
		FileName:  file.Name,
		FileBytes: file.Bytes,
		MimeType:  file.MimeType,
	}
	s.publish(ctx, state, payload)
	return payload, nil
}

// publish uploads a file payload when a publisher is configured. Upload
// failures are logged and the payload returns without an object URL.
func (s *dispatchService) publish(ctx context.Context, state *models.SessionState, payload *models.OutputPayload) {
	if s.publisher == nil || !s.publisher.Enabled() {
		return
	}
	url, err := s.publisher.Publish(ctx, payload.FileName, payload.FileBytes, payload.MimeType)
	if err != nil {
		s.metrics.IncrementCounter("artifact_publish_errors")
		s.logger.Warn("Artifact publish failed",
			"error", err,
			"file", payload.FileName,
			"session_id", state.ID)
		return
	}
	s.metrics.IncrementCounter("artifacts_published")
	payload.ObjectURL = url
}

func containsColumn(columns []string, name string) bool {
	for _, col := range columns {
		if col == name {
			return true
		}
	}
	return false
}
