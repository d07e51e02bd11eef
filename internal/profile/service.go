package profile

import (
	"context"
	"errors"
	"log"

	"github.com/rodrigovega-17dev/paltalk-language-learning-avatar-sub001/internal/ports"
)

// UserSource is the storage surface the service needs. *Repo satisfies it.
type UserSource interface {
	GetUser(ctx context.Context, userID string) (*ports.User, error)
	GetProfile(ctx context.Context, userID string) (*ports.Profile, error)
}

// Service resolves the signed-in learner for the conversation core.
type Service struct {
	users UserSource
}

func NewService(users UserSource) *Service {
	return &Service{users: users}
}

// CurrentUser resolves the learner stamped onto ctx by the auth middleware.
// (nil, nil) means nobody is signed in. A user with a nil Profile means the
// profile could not be loaded; the caller decides what that is worth.
func (s *Service) CurrentUser(ctx context.Context) (*ports.User, error) {
	userID, ok := UserIDFromContext(ctx)
	if !ok {
		return nil, nil
	}

	user, err := s.users.GetUser(ctx, userID)
	if errors.Is(err, ErrUserNotFound) {
		log.Printf("[profile] token for unknown user %s", userID)
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	prof, err := s.users.GetProfile(ctx, userID)
	if err != nil {
		log.Printf("[profile] load profile for %s: %v", userID, err)
		return user, nil
	}
	user.Profile = prof

	return user, nil
}
