package delivery

import (
	"encoding/json"
	"net/http"

	"github.com/Vovarama1992/go-utils/logger"

	"github.com/rodrigovega-17dev/paltalk-language-learning-avatar-sub001/internal/ports"
)

type ConversationHandler struct {
	flow ConversationFlow
	log  *logger.ZapLogger
}

func NewConversationHandler(flow ConversationFlow, log *logger.ZapLogger) *ConversationHandler {
	return &ConversationHandler{
		flow: flow,
		log:  log,
	}
}

func (h *ConversationHandler) Start(w http.ResponseWriter, r *http.Request) {
	if err := h.flow.StartConversation(r.Context()); err != nil {
		h.log.Log(logger.LogEntry{Level: "error", Message: "start conversation", Error: err})
		writeError(w, err)
		return
	}
	writeJSON(w, h.flow.State())
}

func (h *ConversationHandler) StartInput(w http.ResponseWriter, r *http.Request) {
	if err := h.flow.HandleUserInput(r.Context()); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, h.flow.State())
}

func (h *ConversationHandler) FinishInput(w http.ResponseWriter, r *http.Request) {
	if err := h.flow.FinishUserInput(r.Context()); err != nil {
		h.log.Log(logger.LogEntry{Level: "error", Message: "finish user input", Error: err})
		writeError(w, err)
		return
	}
	writeJSON(w, h.flow.State())
}

func (h *ConversationHandler) Pause(w http.ResponseWriter, _ *http.Request) {
	h.flow.PauseConversation()
	writeJSON(w, h.flow.State())
}

func (h *ConversationHandler) Resume(w http.ResponseWriter, _ *http.Request) {
	h.flow.ResumeConversation()
	writeJSON(w, h.flow.State())
}

func (h *ConversationHandler) End(w http.ResponseWriter, r *http.Request) {
	if err := h.flow.EndConversation(r.Context()); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, h.flow.State())
}

func (h *ConversationHandler) GetState(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, h.flow.State())
}

func (h *ConversationHandler) GetHistory(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, h.flow.History())
}

func (h *ConversationHandler) GetSettings(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, h.flow.Settings())
}

func (h *ConversationHandler) UpdateSettings(w http.ResponseWriter, r *http.Request) {
	var req ports.SynthesisSettings
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json: "+err.Error(), http.StatusBadRequest)
		return
	}

	h.flow.UpdateSynthesisSettings(req)
	writeJSON(w, h.flow.Settings())
}
