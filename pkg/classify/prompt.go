package classify

import (
	"strings"
)

// Request carries everything the classifier needs to handle one utterance.
type Request struct {
	Utterance        string
	SchemaContext    []string
	HasPriorResults  bool
	AvailableColumns []string
}

// systemPrompt builds the classification instructions. The export-only and
// chart-only variants are offered only when a previous result set exists,
// so the model cannot request a side effect over data that is not there.
func systemPrompt(req Request) string {
	var b strings.Builder

	b.WriteString("You are a data assistant that answers questions about the connected database.\n")
	b.WriteString("Respond with a single JSON object and nothing else: no prose, no markdown, no code fences.\n\n")

	b.WriteString("Response types:\n")
	b.WriteString(`{"type": "message", "content": "<answer>"} - answer directly, no query needed` + "\n")
	b.WriteString(`{"type": "sql", "sql": "<SELECT statement>"} - run a query to answer the question` + "\n")
	b.WriteString(`{"type": "sql_and_export", "sql": "<SELECT statement>", "format": "csv|excel|pdf|parquet|arrow"} - run a query and save the results to a file` + "\n")
	b.WriteString(`{"type": "sql_and_chart", "sql": "<SELECT statement>", "chart_type": "bar|line|pie|scatter", "x_column": "<column>", "y_column": "<column>", "title": "<optional>", "theme": "default|dark|professional|colorful"} - run a query and chart the results` + "\n")

	if req.HasPriorResults {
		b.WriteString(`{"type": "export", "format": "csv|excel|pdf|parquet|arrow"} - save the previous results to a file` + "\n")
		b.WriteString(`{"type": "chart", "chart_type": "bar|line|pie|scatter", "x_column": "<column>", "y_column": "<column>", "title": "<optional>", "theme": "default|dark|professional|colorful"} - chart the previous results` + "\n")
		if len(req.AvailableColumns) > 0 {
			b.WriteString("\nThe previous results have these columns: ")
			b.WriteString(strings.Join(req.AvailableColumns, ", "))
			b.WriteString("\n")
		}
	}

	b.WriteString("\nRules:\n")
	b.WriteString("- Generate only single SELECT statements. Never modify data.\n")
	b.WriteString("- Use only tables and columns that appear in the schema.\n")
	b.WriteString("- When the user wants to save or chart data you have not fetched yet, use sql_and_export or sql_and_chart.\n")
	b.WriteString("- For charts, x_column and y_column must name columns the query returns.\n")

	if len(req.SchemaContext) > 0 {
		b.WriteString("\nSchema:\n")
		b.WriteString(strings.Join(req.SchemaContext, "\n\n"))
		b.WriteString("\n")
	}

	return b.String()
}
