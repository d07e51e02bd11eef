package speech

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/rodrigovega-17dev/paltalk-language-learning-avatar-sub001/internal/converr"
	"github.com/rodrigovega-17dev/paltalk-language-learning-avatar-sub001/internal/ports"
)

const (
	elevenLabsBaseURL = "https://api.elevenlabs.io"
	defaultTTSModelID = "eleven_multilingual_v2"
)

type ElevenLabsClient struct {
	apiKey  string
	modelID string
	httpCli *http.Client
}

func NewElevenLabsClient(apiKey, modelID string) *ElevenLabsClient {
	if modelID == "" {
		modelID = defaultTTSModelID
	}
	return &ElevenLabsClient{
		apiKey:  apiKey,
		modelID: modelID,
		httpCli: http.DefaultClient,
	}
}

type elevenLabsRequest struct {
	Text          string             `json:"text"`
	ModelID       string             `json:"model_id"`
	VoiceSettings elevenLabsSettings `json:"voice_settings"`
}

type elevenLabsSettings struct {
	Stability       float64 `json:"stability"`
	SimilarityBoost float64 `json:"similarity_boost"`
	Style           float64 `json:"style"`
	UseSpeakerBoost bool    `json:"use_speaker_boost"`
	Speed           float64 `json:"speed"`
}

// TEXT → SPEECH. Settings must already be clamped. Failures come back
// classified: 429 carries the Retry-After hint, quota exhaustion and unknown
// voices get their own sub-kinds, network errors mean the transport is down.
func (c *ElevenLabsClient) Synthesize(ctx context.Context, text string, st ports.SynthesisSettings) ([]byte, error) {
	url := fmt.Sprintf("%s/v1/text-to-speech/%s", elevenLabsBaseURL, st.VoiceID)

	payload, err := json.Marshal(elevenLabsRequest{
		Text:    text,
		ModelID: c.modelID,
		VoiceSettings: elevenLabsSettings{
			Stability:       st.Stability,
			SimilarityBoost: st.SimilarityBoost,
			Style:           styleFor(st.Emotion),
			UseSpeakerBoost: true,
			Speed:           st.Speed,
		},
	})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("xi-api-key", c.apiKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "audio/mpeg")

	resp, err := c.httpCli.Do(req)
	if err != nil {
		return nil, converr.Synthesis(converr.SynthTransportDown, 0, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		b, _ := io.ReadAll(resp.Body)
		return nil, classifyVendorFailure(resp.StatusCode, resp.Header.Get("Retry-After"), b)
	}

	audio, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, converr.Synthesis(converr.SynthTransportDown, 0, err)
	}
	return audio, nil
}

func classifyVendorFailure(status int, retryAfter string, body []byte) error {
	cause := fmt.Errorf("elevenlabs status %d: %s", status, bytes.TrimSpace(body))

	// the vendor reports exhausted quota as 401/400 with this detail status
	if bytes.Contains(body, []byte("quota_exceeded")) {
		return converr.Synthesis(converr.SynthQuotaExceeded, 0, cause)
	}

	switch status {
	case http.StatusTooManyRequests:
		return converr.Synthesis(converr.SynthRateLimited, retryAfterSeconds(retryAfter), cause)
	case http.StatusPaymentRequired:
		return converr.Synthesis(converr.SynthQuotaExceeded, 0, cause)
	case http.StatusNotFound:
		return converr.Synthesis(converr.SynthVoiceUnavailable, 0, cause)
	case http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		return converr.Synthesis(converr.SynthTransportDown, 0, cause)
	default:
		return converr.Synthesis(converr.SynthGeneric, 0, cause)
	}
}

// retryAfterSeconds parses both header forms, delta seconds and an HTTP
// date. Unparseable or past values mean no hint.
func retryAfterSeconds(v string) int {
	v = strings.TrimSpace(v)
	if v == "" {
		return 0
	}
	if seconds, err := strconv.Atoi(v); err == nil {
		if seconds < 0 {
			return 0
		}
		return seconds
	}
	when, err := http.ParseTime(v)
	if err != nil {
		return 0
	}
	seconds := int(time.Until(when).Round(time.Second).Seconds())
	if seconds < 0 {
		return 0
	}
	return seconds
}
