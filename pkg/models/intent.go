package models

import (
	"encoding/json"
	"strings"
)

// IntentKind identifies the variant of a classified intent.
type IntentKind string

const (
	// IntentAnswer is a direct natural-language answer with no SQL.
	IntentAnswer IntentKind = "answer"
	// IntentSQL is a SQL query awaiting approval.
	IntentSQL IntentKind = "sql"
	// IntentSQLAndExport is a SQL query whose results should be exported after approval.
	IntentSQLAndExport IntentKind = "sql_and_export"
	// IntentSQLAndChart is a SQL query whose results should be charted after approval.
	IntentSQLAndChart IntentKind = "sql_and_chart"
	// IntentExport exports the previous result set without running new SQL.
	IntentExport IntentKind = "export"
	// IntentChart charts the previous result set without running new SQL.
	IntentChart IntentKind = "chart"
)

// Intent is the classified meaning of a user utterance. Exactly one variant
// per classification; the populated fields depend on Kind.
type Intent struct {
	Kind   IntentKind   `json:"kind"`
	Answer string       `json:"answer,omitempty"`
	SQL    string       `json:"sql,omitempty"`
	Format ExportFormat `json:"format,omitempty"`
	Chart  *ChartSpec   `json:"chart,omitempty"`
}

// RequiresApproval reports whether the intent carries SQL that must pass
// the safety validator and receive human approval before executing.
func (i Intent) RequiresApproval() bool {
	switch i.Kind {
	case IntentSQL, IntentSQLAndExport, IntentSQLAndChart:
		return true
	}
	return false
}

// SideEffect returns the side effect to perform after the intent's SQL runs.
func (i Intent) SideEffect() SideEffect {
	switch i.Kind {
	case IntentSQLAndExport:
		return SideEffect{Kind: SideEffectExport, Format: i.Format}
	case IntentSQLAndChart:
		return SideEffect{Kind: SideEffectChart, Chart: i.Chart}
	default:
		return SideEffect{Kind: SideEffectNone}
	}
}

// intentEnvelope is the wire shape the classifier prompt asks the model to
// produce. Unknown fields are ignored.
type intentEnvelope struct {
	Type      string `json:"type"`
	SQL       string `json:"sql"`
	Content   string `json:"content"`
	Answer    string `json:"answer"`
	Format    string `json:"format"`
	ChartType string `json:"chart_type"`
	XColumn   string `json:"x_column"`
	YColumn   string `json:"y_column"`
	Title     string `json:"title"`
	Theme     string `json:"theme"`
}

// DecodeIntent turns raw classifier output into an Intent. This is the only
// place raw model output is interpreted. Output that is not a JSON object
// with a known type degrades to IntentAnswer carrying the raw text; it is
// never an error.
func DecodeIntent(raw string) Intent {
	text := strings.TrimSpace(raw)

	var env intentEnvelope
	if err := json.Unmarshal([]byte(stripJSONFence(text)), &env); err != nil {
		return Intent{Kind: IntentAnswer, Answer: text}
	}

	switch env.Type {
	case "sql":
		return Intent{Kind: IntentSQL, SQL: env.SQL}
	case "sql_and_export":
		return Intent{Kind: IntentSQLAndExport, SQL: env.SQL, Format: normalizeFormat(env.Format)}
	case "sql_and_chart":
		return Intent{Kind: IntentSQLAndChart, SQL: env.SQL, Chart: env.chartSpec()}
	case "export":
		return Intent{Kind: IntentExport, Format: normalizeFormat(env.Format)}
	case "chart":
		return Intent{Kind: IntentChart, Chart: env.chartSpec()}
	case "message":
		return Intent{Kind: IntentAnswer, Answer: env.Content}
	case "answer":
		return Intent{Kind: IntentAnswer, Answer: env.Answer}
	default:
		return Intent{Kind: IntentAnswer, Answer: text}
	}
}

func (e intentEnvelope) chartSpec() *ChartSpec {
	spec := &ChartSpec{
		Type:    ChartType(strings.ToLower(strings.TrimSpace(e.ChartType))),
		XColumn: e.XColumn,
		YColumn: e.YColumn,
		Title:   e.Title,
		Theme:   strings.ToLower(strings.TrimSpace(e.Theme)),
	}
	if spec.Type == "" {
		spec.Type = ChartBar
	}
	if spec.Theme == "" {
		spec.Theme = ThemeDefault
	}
	return spec
}

func normalizeFormat(s string) ExportFormat {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "":
		return FormatCSV
	case "xlsx":
		return FormatExcel
	default:
		return ExportFormat(strings.ToLower(strings.TrimSpace(s)))
	}
}

// stripJSONFence removes a surrounding markdown code fence, which some
// models wrap around JSON despite instructions.
func stripJSONFence(s string) string {
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```JSON")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}
