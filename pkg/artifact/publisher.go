// Package artifact uploads rendered export files and chart images to an
// object store so they outlive the session that produced them.
package artifact

import "context"

// Publisher stores one rendered artifact and returns its object URL.
// Publishing is best-effort; callers treat failures as warnings.
type Publisher interface {
	Publish(ctx context.Context, name string, payload []byte, contentType string) (string, error)
	Enabled() bool
}

// disabledPublisher is the default when no object store is configured.
type disabledPublisher struct{}

// NewDisabledPublisher returns a publisher that stores nothing.
func NewDisabledPublisher() Publisher {
	return disabledPublisher{}
}

func (disabledPublisher) Publish(context.Context, string, []byte, string) (string, error) {
	return "", nil
}

func (disabledPublisher) Enabled() bool { return false }
