package delivery

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/rodrigovega-17dev/paltalk-language-learning-avatar-sub001/internal/converr"
)

type errorResponse struct {
	Error       string `json:"error"`
	Kind        string `json:"kind"`
	Recoverable bool   `json:"recoverable"`
	Failure     string `json:"failure,omitempty"`
	RetryAfter  int    `json:"retry_after_seconds,omitempty"`
	Remediation string `json:"remediation,omitempty"`
}

func statusFor(e *converr.Error) int {
	switch e.Kind {
	case converr.KindAuth:
		return http.StatusUnauthorized
	case converr.KindProfile:
		return http.StatusUnprocessableEntity
	case converr.KindPermission:
		return http.StatusForbidden
	case converr.KindAPI:
		return http.StatusBadGateway
	case converr.KindSynthesis:
		if e.Failure == converr.SynthRateLimited {
			return http.StatusTooManyRequests
		}
		return http.StatusBadGateway
	case converr.KindInvalidState:
		return http.StatusConflict
	default: // KindAudio and anything unclassified
		return http.StatusInternalServerError
	}
}

// writeError renders a taxonomy error as JSON, with the HTTP status derived
// from its kind. Anything else becomes a bare 500.
func writeError(w http.ResponseWriter, err error) {
	cerr, ok := converr.As(err)
	if !ok {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	resp := errorResponse{
		Error:       cerr.Error(),
		Kind:        string(cerr.Kind),
		Recoverable: cerr.Recoverable,
	}
	if cerr.Kind == converr.KindSynthesis {
		resp.Failure = string(cerr.Failure)
		resp.RetryAfter = cerr.RetryAfter
		resp.Remediation = converr.Remediation(cerr.Failure)
		if cerr.RetryAfter > 0 {
			w.Header().Set("Retry-After", strconv.Itoa(cerr.RetryAfter))
		}
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusFor(cerr))
	_ = json.NewEncoder(w).Encode(resp)
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}
