package classify

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/TFMV/parley/pkg/errors"
	"github.com/TFMV/parley/pkg/models"
)

// Classifier turns one user utterance into a typed Intent. Raw model output
// is interpreted in exactly one place, models.DecodeIntent, so malformed
// output degrades to a plain answer instead of failing.
type Classifier struct {
	provider Provider
	logger   zerolog.Logger
}

// NewClassifier creates a classifier on top of a provider.
func NewClassifier(provider Provider, logger zerolog.Logger) *Classifier {
	return &Classifier{provider: provider, logger: logger}
}

// Classify returns the decoded intent and the raw model output. Only a
// provider transport failure is an error.
func (c *Classifier) Classify(ctx context.Context, req Request) (models.Intent, string, error) {
	raw, err := c.provider.Complete(ctx, systemPrompt(req), req.Utterance)
	if err != nil {
		return models.Intent{}, "", errors.Wrap(err, errors.CodeClassifierUnavailable,
			"The classifier is unavailable right now")
	}

	intent := models.DecodeIntent(raw)
	c.logger.Debug().
		Str("kind", string(intent.Kind)).
		Int("raw_len", len(raw)).
		Msg("Classified utterance")
	return intent, raw, nil
}
