package notifier

import (
	"context"
	"log"
)

// Service fans failure reports out to the configured transport. Without one
// it degrades to logging, so callers never nil-check.
type Service struct {
	infra Notifier
}

func NewService(infra Notifier) *Service {
	return &Service{infra: infra}
}

func (s *Service) Notify(ctx context.Context, err error, details string) error {
	if s.infra == nil {
		log.Printf("[notifier] %s: %v", details, err)
		return nil
	}
	return s.infra.Notify(ctx, err, details)
}
