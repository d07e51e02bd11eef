package ai

import (
	"context"
	"errors"
	"strings"

	openai "github.com/sashabaranov/go-openai"

	"github.com/rodrigovega-17dev/paltalk-language-learning-avatar-sub001/internal/ports"
)

// OpenAIClient produces tutor replies through the chat-completion API.
type OpenAIClient struct {
	client *openai.Client
}

func NewOpenAIClient(apiKey string) *OpenAIClient {
	return &OpenAIClient{client: openai.NewClient(apiKey)}
}

// NewOpenAIClientWith reuses an already configured client.
func NewOpenAIClientWith(client *openai.Client) *OpenAIClient {
	return &OpenAIClient{client: client}
}

func (c *OpenAIClient) Complete(ctx context.Context, messages []ports.ChatMessage, model string) (string, error) {
	if model == "" {
		model = openai.GPT4oMini
	}

	converted := make([]openai.ChatCompletionMessage, 0, len(messages))
	for _, m := range messages {
		converted = append(converted, openai.ChatCompletionMessage{
			Role:    m.Role,
			Content: m.Content,
		})
	}

	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:    model,
		Messages: converted,
	})
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("completion returned no choices")
	}
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}

// Diagnose turns an opaque completion error into a short human hint for the
// admin alert channel.
func Diagnose(err error) string {
	msg := strings.ToLower(err.Error())

	switch {
	case strings.Contains(msg, "status code: 401"):
		return "OpenAI API key is invalid."
	case strings.Contains(msg, "status code: 404"):
		return "Model not found."
	case strings.Contains(msg, "status code: 429"):
		return "OpenAI rate limit exceeded."
	case strings.Contains(msg, "status code: 400") && strings.Contains(msg, "model"):
		return "Model name is wrong."
	case strings.Contains(msg, "status code: 400"):
		return "Malformed OpenAI request."
	case strings.Contains(msg, "status code: 500"):
		return "OpenAI internal error."
	}
	return "Unrecognized OpenAI error: " + err.Error()
}
