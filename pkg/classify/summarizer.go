package classify

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/TFMV/parley/pkg/models"
)

// summaryRowCap bounds how many rows are shown to the model; the row count
// in the prompt still reflects the full result set.
const summaryRowCap = 50

const summarizerSystemPrompt = "You are a helpful data analyst. Summarize query results in one or two clear, conversational sentences. Call out notable values when they stand out. End by asking: Would you like me to save this as CSV, Excel, or PDF?"

// Summarizer is the result-formatting collaborator: it presents executed
// rows to the model and returns a conversational summary. It never fails
// the pipeline; provider errors fall back to a deterministic message.
type Summarizer struct {
	provider Provider
	logger   zerolog.Logger
}

// NewSummarizer creates a summarizer on top of a provider.
func NewSummarizer(provider Provider, logger zerolog.Logger) *Summarizer {
	return &Summarizer{provider: provider, logger: logger}
}

// Summarize describes the result set in plain language.
func (s *Summarizer) Summarize(ctx context.Context, originalQuery, sql string, rows []models.Row) (string, error) {
	sample := rows
	if len(sample) > summaryRowCap {
		sample = sample[:summaryRowCap]
	}

	data, err := json.Marshal(sample)
	if err != nil {
		s.logger.Warn().Err(err).Msg("Result rows did not marshal for summarization")
		return s.fallback(len(rows)), nil
	}

	user := fmt.Sprintf("Question: %s\n\nSQL:\n%s\n\nResults (%d rows, first %d shown):\n%s",
		originalQuery, sql, len(rows), len(sample), data)
	if len(sample) == len(rows) {
		user = fmt.Sprintf("Question: %s\n\nSQL:\n%s\n\nResults (%d rows):\n%s",
			originalQuery, sql, len(rows), data)
	}

	text, err := s.provider.Complete(ctx, summarizerSystemPrompt, user)
	if err != nil {
		s.logger.Warn().Err(err).Msg("Summarization failed, using fallback")
		return s.fallback(len(rows)), nil
	}
	return text, nil
}

func (s *Summarizer) fallback(rowCount int) string {
	return fmt.Sprintf("Query executed. %d rows returned.", rowCount)
}
