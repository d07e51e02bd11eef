package history

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/rodrigovega-17dev/paltalk-language-learning-avatar-sub001/internal/ports"
)

var ErrSessionNotFound = errors.New("session not found")

// Repo persists conversation sessions and their messages in Postgres.
//
// Tables:
//
//	sessions (id, user_id, language, cefr_level, created_at, updated_at)
//	messages (id, session_id → sessions.id, role, content, audio_url, created_at)
type Repo struct {
	db *sql.DB
}

func NewRepo(db *sql.DB) *Repo {
	return &Repo{db: db}
}

func (r *Repo) CreateSession(ctx context.Context, userID, language, cefrLevel string) (*ports.StoredSession, error) {
	now := time.Now().UTC()
	s := &ports.StoredSession{
		ID:        uuid.NewString(),
		UserID:    userID,
		Language:  language,
		CEFRLevel: cefrLevel,
		CreatedAt: now,
		UpdatedAt: now,
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO sessions (id, user_id, language, cefr_level, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, s.ID, s.UserID, s.Language, s.CEFRLevel, s.CreatedAt, s.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}
	return s, nil
}

func (r *Repo) AppendMessages(ctx context.Context, sessionID string, msgs []ports.StoredMessage) error {
	if len(msgs) == 0 {
		return nil
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("append messages: %w", err)
	}
	defer tx.Rollback()

	for _, m := range msgs {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO messages (id, session_id, role, content, audio_url, created_at)
			VALUES ($1, $2, $3, $4, $5, $6)
			ON CONFLICT (id) DO NOTHING
		`, m.ID, sessionID, m.Role, m.Content, m.AudioURL, m.CreatedAt)
		if err != nil {
			var pqErr *pq.Error
			if errors.As(err, &pqErr) && pqErr.Code.Name() == "foreign_key_violation" {
				return fmt.Errorf("append messages: session %s: %w", sessionID, ErrSessionNotFound)
			}
			return fmt.Errorf("append messages: %w", err)
		}
	}

	if _, err := tx.ExecContext(ctx, `
		UPDATE sessions SET updated_at = $2 WHERE id = $1
	`, sessionID, time.Now().UTC()); err != nil {
		return fmt.Errorf("append messages: touch session: %w", err)
	}

	return tx.Commit()
}

func (r *Repo) GetSession(ctx context.Context, sessionID string) (*ports.StoredSession, error) {
	var s ports.StoredSession
	err := r.db.QueryRowContext(ctx, `
		SELECT id, user_id, language, cefr_level, created_at, updated_at
		FROM sessions
		WHERE id = $1
	`, sessionID).Scan(&s.ID, &s.UserID, &s.Language, &s.CEFRLevel, &s.CreatedAt, &s.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("session %s: %w", sessionID, ErrSessionNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get session: %w", err)
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT id, role, content, audio_url, created_at
		FROM messages
		WHERE session_id = $1
		ORDER BY created_at ASC, id ASC
	`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("get session messages: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var m ports.StoredMessage
		if err := rows.Scan(&m.ID, &m.Role, &m.Content, &m.AudioURL, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("get session messages: %w", err)
		}
		s.Messages = append(s.Messages, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("get session messages: %w", err)
	}

	return &s, nil
}

// ListSessions returns the learner's sessions newest first, without messages.
func (r *Repo) ListSessions(ctx context.Context, userID string) ([]ports.StoredSession, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, user_id, language, cefr_level, created_at, updated_at
		FROM sessions
		WHERE user_id = $1
		ORDER BY created_at DESC
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	defer rows.Close()

	var sessions []ports.StoredSession
	for rows.Next() {
		var s ports.StoredSession
		if err := rows.Scan(&s.ID, &s.UserID, &s.Language, &s.CEFRLevel, &s.CreatedAt, &s.UpdatedAt); err != nil {
			return nil, fmt.Errorf("list sessions: %w", err)
		}
		sessions = append(sessions, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}

	return sessions, nil
}
