// Package classify is the LLM boundary of the pipeline: providers perform
// chat completions, the classifier turns user utterances into typed
// intents, and the summarizer turns executed rows into prose. Nothing in
// this package executes SQL or touches session state.
package classify

import "context"

// Provider performs one LLM round trip with a system and a user prompt.
type Provider interface {
	Complete(ctx context.Context, system, user string) (string, error)
}
