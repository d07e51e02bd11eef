package delivery

import (
	"net/http"

	"github.com/rodrigovega-17dev/paltalk-language-learning-avatar-sub001/internal/ports"
)

type SpeechHandler struct {
	usage UsageSource
}

func NewSpeechHandler(usage UsageSource) *SpeechHandler {
	return &SpeechHandler{usage: usage}
}

func (h *SpeechHandler) GetUsage(w http.ResponseWriter, _ *http.Request) {
	u, err := h.usage.Snapshot()
	if err != nil {
		http.Error(w, "usage unavailable: "+err.Error(), http.StatusInternalServerError)
		return
	}

	writeJSON(w, struct {
		ports.SpeechUsage
		HitRate float64 `json:"hit_rate"`
	}{u, u.HitRate()})
}
