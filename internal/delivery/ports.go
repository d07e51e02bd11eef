package delivery

import (
	"context"

	"github.com/rodrigovega-17dev/paltalk-language-learning-avatar-sub001/internal/conversation"
	"github.com/rodrigovega-17dev/paltalk-language-learning-avatar-sub001/internal/ports"
)

// ConversationFlow is the surface of the conversation core the HTTP layer
// drives. *conversation.Service satisfies it.
type ConversationFlow interface {
	StartConversation(ctx context.Context) error
	HandleUserInput(ctx context.Context) error
	FinishUserInput(ctx context.Context) error
	PauseConversation()
	ResumeConversation()
	EndConversation(ctx context.Context) error

	State() conversation.State
	History() []conversation.Message
	Settings() ports.SynthesisSettings
	UpdateSynthesisSettings(st ports.SynthesisSettings)
}

// SessionReader exposes stored sessions. *history.Service satisfies it.
type SessionReader interface {
	GetSession(ctx context.Context, sessionID string) (*ports.StoredSession, error)
	ListSessions(ctx context.Context, userID string) ([]ports.StoredSession, error)
	FittingHistory(ctx context.Context, sessionID string, budget int) ([]ports.StoredMessage, error)
}

// UsageSource reports synthesis usage counters. *speech.StatsStore satisfies it.
type UsageSource interface {
	Snapshot() (ports.SpeechUsage, error)
}

// TokenVerifier checks bearer tokens. *profile.TokenService satisfies it.
type TokenVerifier interface {
	VerifyToken(token string) (string, error)
}
