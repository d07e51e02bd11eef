package ports

import "context"

// ChatMessage is one entry of the model conversation, oldest first.
type ChatMessage struct {
	Role    string // "system", "user" or "assistant"
	Content string
}

// ChatClient produces the tutor reply for a fully rebuilt message context.
type ChatClient interface {
	Complete(ctx context.Context, messages []ChatMessage, model string) (string, error)
}
