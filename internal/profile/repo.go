package profile

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/rodrigovega-17dev/paltalk-language-learning-avatar-sub001/internal/ports"
)

var (
	ErrUserNotFound    = errors.New("user not found")
	ErrProfileNotFound = errors.New("learner profile not found")
)

// Repo reads learners and their learning profiles from Postgres. The rows
// are owned by the account system; this side only reads.
//
// Tables:
//
//	users (id, email, created_at)
//	learner_profiles (user_id → users.id, target_language, native_language, cefr_level)
type Repo struct {
	db *sql.DB
}

func NewRepo(db *sql.DB) *Repo {
	return &Repo{db: db}
}

func (r *Repo) GetUser(ctx context.Context, userID string) (*ports.User, error) {
	var u ports.User
	err := r.db.QueryRowContext(ctx, `
		SELECT id FROM users WHERE id = $1
	`, userID).Scan(&u.ID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	return &u, nil
}

func (r *Repo) GetProfile(ctx context.Context, userID string) (*ports.Profile, error) {
	var p ports.Profile
	err := r.db.QueryRowContext(ctx, `
		SELECT target_language, native_language, cefr_level
		FROM learner_profiles
		WHERE user_id = $1
	`, userID).Scan(&p.TargetLanguage, &p.NativeLanguage, &p.CEFRLevel)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrProfileNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get profile: %w", err)
	}
	return &p, nil
}
