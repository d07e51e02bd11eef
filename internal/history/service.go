package history

import (
	"context"
	"fmt"
	"log"

	tiktoken "github.com/pkoukk/tiktoken-go"

	"github.com/rodrigovega-17dev/paltalk-language-learning-avatar-sub001/internal/notifier"
	"github.com/rodrigovega-17dev/paltalk-language-learning-avatar-sub001/internal/ports"
)

// Store is the storage surface the service needs. *Repo satisfies it.
type Store interface {
	ports.SessionStore
	ListSessions(ctx context.Context, userID string) ([]ports.StoredSession, error)
}

// tiktoken fetches encodings on first use; tests stub this out.
var encodingForModel = tiktoken.EncodingForModel

const fallbackCharsPerToken = 4

// Service wraps the session store with admin alerting on write failures and
// token-budgeted history reads. The conversation core treats it as
// best-effort; write errors are reported but still returned to the caller.
type Service struct {
	store    Store
	notifier notifier.Notifier
	model    string
}

func NewService(store Store, n notifier.Notifier, model string) *Service {
	return &Service{
		store:    store,
		notifier: n,
		model:    model,
	}
}

func (s *Service) CreateSession(ctx context.Context, userID, language, cefrLevel string) (*ports.StoredSession, error) {
	sess, err := s.store.CreateSession(ctx, userID, language, cefrLevel)
	if err != nil {
		s.notifier.Notify(ctx, err,
			fmt.Sprintf("session create failed: user=%s", userID))
		return nil, err
	}
	return sess, nil
}

func (s *Service) AppendMessages(ctx context.Context, sessionID string, msgs []ports.StoredMessage) error {
	if err := s.store.AppendMessages(ctx, sessionID, msgs); err != nil {
		s.notifier.Notify(ctx, err,
			fmt.Sprintf("message append failed: session=%s count=%d", sessionID, len(msgs)))
		return err
	}
	return nil
}

func (s *Service) GetSession(ctx context.Context, sessionID string) (*ports.StoredSession, error) {
	return s.store.GetSession(ctx, sessionID)
}

func (s *Service) ListSessions(ctx context.Context, userID string) ([]ports.StoredSession, error) {
	return s.store.ListSessions(ctx, userID)
}

// FittingHistory returns the newest stored messages whose combined token
// count fits budget. A budget of zero or less returns the full history.
func (s *Service) FittingHistory(ctx context.Context, sessionID string, budget int) ([]ports.StoredMessage, error) {
	sess, err := s.store.GetSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if budget <= 0 {
		return sess.Messages, nil
	}

	count := estimateTokens
	if enc, err := encodingForModel(s.model); err != nil {
		log.Printf("[history] tokenizer init fail, using size estimate: %v", err)
	} else {
		count = func(text string) int { return len(enc.Encode(text, nil, nil)) }
	}

	total := 0
	start := len(sess.Messages)
	for i := len(sess.Messages) - 1; i >= 0; i-- {
		tokens := count(sess.Messages[i].Content)
		if total+tokens > budget {
			break
		}
		total += tokens
		start = i
	}

	return sess.Messages[start:], nil
}

func estimateTokens(text string) int {
	return (len(text) + fallbackCharsPerToken - 1) / fallbackCharsPerToken
}
