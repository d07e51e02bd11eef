package notifier

import "context"

// Notifier delivers failure reports to the operator channel. Implementations
// must be safe for concurrent use and must not block a conversation turn.
type Notifier interface {
	Notify(ctx context.Context, err error, details string) error
}
