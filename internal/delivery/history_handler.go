package delivery

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/Vovarama1992/go-utils/logger"
	"github.com/go-chi/chi/v5"

	"github.com/rodrigovega-17dev/paltalk-language-learning-avatar-sub001/internal/history"
	"github.com/rodrigovega-17dev/paltalk-language-learning-avatar-sub001/internal/ports"
	"github.com/rodrigovega-17dev/paltalk-language-learning-avatar-sub001/internal/profile"
)

type HistoryHandler struct {
	sessions SessionReader
	log      *logger.ZapLogger
}

func NewHistoryHandler(sessions SessionReader, log *logger.ZapLogger) *HistoryHandler {
	return &HistoryHandler{
		sessions: sessions,
		log:      log,
	}
}

func (h *HistoryHandler) ListSessions(w http.ResponseWriter, r *http.Request) {
	userID, ok := profile.UserIDFromContext(r.Context())
	if !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	sessions, err := h.sessions.ListSessions(r.Context(), userID)
	if err != nil {
		h.log.Log(logger.LogEntry{Level: "error", Message: "list sessions", Error: err})
		http.Error(w, "db error: "+err.Error(), http.StatusInternalServerError)
		return
	}

	writeJSON(w, sessions)
}

func (h *HistoryHandler) GetSession(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.ownedSession(w, r)
	if !ok {
		return
	}
	writeJSON(w, sess)
}

// ExportSession returns the newest messages of a stored session that fit the
// "budget" query parameter, counted in model tokens. No budget means all.
func (h *HistoryHandler) ExportSession(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.ownedSession(w, r)
	if !ok {
		return
	}

	budget := 0
	if raw := r.URL.Query().Get("budget"); raw != "" {
		b, err := strconv.Atoi(raw)
		if err != nil {
			http.Error(w, "invalid budget", http.StatusBadRequest)
			return
		}
		budget = b
	}

	msgs, err := h.sessions.FittingHistory(r.Context(), sess.ID, budget)
	if err != nil {
		h.log.Log(logger.LogEntry{Level: "error", Message: "export session", Error: err})
		http.Error(w, "db error: "+err.Error(), http.StatusInternalServerError)
		return
	}

	writeJSON(w, msgs)
}

// ownedSession loads the addressed session and hides other learners'
// sessions behind a 404.
func (h *HistoryHandler) ownedSession(w http.ResponseWriter, r *http.Request) (*ports.StoredSession, bool) {
	userID, ok := profile.UserIDFromContext(r.Context())
	if !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return nil, false
	}

	sess, err := h.sessions.GetSession(r.Context(), chi.URLParam(r, "session_id"))
	if errors.Is(err, history.ErrSessionNotFound) {
		http.Error(w, "session not found", http.StatusNotFound)
		return nil, false
	}
	if err != nil {
		h.log.Log(logger.LogEntry{Level: "error", Message: "get session", Error: err})
		http.Error(w, "db error: "+err.Error(), http.StatusInternalServerError)
		return nil, false
	}
	if sess.UserID != userID {
		http.Error(w, "session not found", http.StatusNotFound)
		return nil, false
	}

	return sess, true
}
