package ports

import (
	"context"
	"time"
)

// StoredMessage is the persisted form of one conversation turn half.
type StoredMessage struct {
	ID        string    `json:"id"`
	Role      string    `json:"role"` // "user" or "assistant"
	Content   string    `json:"content"`
	AudioURL  *string   `json:"audio_url,omitempty"` // archived utterance, when available
	CreatedAt time.Time `json:"created_at"`
}

// StoredSession is the durable record of one conversation.
type StoredSession struct {
	ID        string          `json:"id"`
	UserID    string          `json:"user_id"`
	Language  string          `json:"language"`
	CEFRLevel string          `json:"cefr_level"`
	Messages  []StoredMessage `json:"messages"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// SessionStore keeps conversation sessions durable. The conversation core
// treats every call as best-effort: failures are logged, never surfaced to
// the learner. Implementations return plain errors and must not panic.
type SessionStore interface {
	CreateSession(ctx context.Context, userID, language, cefrLevel string) (*StoredSession, error)
	// AppendMessages adds messages in order and bumps the session UpdatedAt.
	AppendMessages(ctx context.Context, sessionID string, msgs []StoredMessage) error
	GetSession(ctx context.Context, sessionID string) (*StoredSession, error)
}
