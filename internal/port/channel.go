package port

import "context"

// MessageChannel hands a formatted order message to the outbound
// communication channel and returns the deep link that carries it.
type MessageChannel interface {
	// Check fails when the channel cannot deliver at all, e.g. a bad phone number
	Check() error
	Handoff(ctx context.Context, message string) (string, error)
}
