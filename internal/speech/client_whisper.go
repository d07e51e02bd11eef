package speech

import (
	"context"
	"strings"

	openai "github.com/sashabaranov/go-openai"
)

// WhisperClient transcribes recorded utterances through the OpenAI API.
type WhisperClient struct {
	client *openai.Client
}

func NewWhisperClient(apiKey string) *WhisperClient {
	return &WhisperClient{client: openai.NewClient(apiKey)}
}

// NewWhisperClientWith reuses an already configured OpenAI client.
func NewWhisperClientWith(client *openai.Client) *WhisperClient {
	return &WhisperClient{client: client}
}

// VOICE → TEXT. language is an ISO 639-1 hint and may be empty. Silence
// comes back as an empty string, not an error.
func (c *WhisperClient) Transcribe(ctx context.Context, filePath, language string) (string, error) {
	resp, err := c.client.CreateTranscription(ctx, openai.AudioRequest{
		Model:    openai.Whisper1,
		FilePath: filePath,
		Language: language,
	})
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(resp.Text), nil
}
