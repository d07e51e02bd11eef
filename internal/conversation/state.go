package conversation

import "time"

// Role identifies the author of a conversation message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is one half of a conversation turn, ordered by CreatedAt.
type Message struct {
	ID        string    `json:"id"`
	Role      Role      `json:"role"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

// Context is the conversational context rebuilt on every model call:
// the learning parameters plus the full ordered turn history.
type Context struct {
	Language       string    `json:"language"`        // ISO 639-1 target language
	NativeLanguage string    `json:"native_language"` // ISO 639-1, may be empty
	CEFRLevel      string    `json:"cefr_level"`      // A1..C2
	History        []Message `json:"history"`
}

// State is a read-only snapshot of the live conversation.
type State struct {
	Active    bool     `json:"active"`
	Recording bool     `json:"recording"`
	Paused    bool     `json:"paused"`
	SessionID string   `json:"session_id,omitempty"`
	Context   *Context `json:"context,omitempty"`
}

func (c *Context) clone() *Context {
	if c == nil {
		return nil
	}
	cp := *c
	cp.History = append([]Message(nil), c.History...)
	return &cp
}
