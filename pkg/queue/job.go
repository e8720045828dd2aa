package queue

import "context"

// Job defines a queue job handler.
type Job interface {
	// Name is a human-readable identifier, used in logs.
	Name() string

	// Type is the message type this job consumes.
	Type() string

	// Handle processes one payload. A returned error triggers retry.
	Handle(ctx context.Context, payload interface{}) error
}
