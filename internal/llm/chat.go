package llm

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/rs/zerolog/log"
	openai "github.com/sashabaranov/go-openai"
)

const (
	// DefaultModel is the OpenRouter model id used when none is configured.
	DefaultModel       = "google/gemini-2.5-flash"
	DefaultTemperature = float32(0.1)
	DefaultMaxTokens   = 1000
)

// Chat sends one system+user exchange and returns the assistant text.
type Chat struct {
	Client      Client
	Model       string
	Temperature float32
	MaxTokens   int
}

// Complete performs exactly one request. The returned text is untrusted and
// may be empty; callers are expected to parse it.
func (c *Chat) Complete(ctx context.Context, system, user string) (string, error) {
	if c == nil || c.Client == nil {
		return "", &TransportError{Message: "model client not configured", Err: errors.New("nil client")}
	}
	model := strings.TrimSpace(c.Model)
	if model == "" {
		model = DefaultModel
	}
	temp := c.Temperature
	if temp == 0 {
		temp = DefaultTemperature
	}
	maxTokens := c.MaxTokens
	if maxTokens <= 0 {
		maxTokens = DefaultMaxTokens
	}
	req := openai.ChatCompletionRequest{
		Model: model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: system},
			{Role: openai.ChatMessageRoleUser, Content: user},
		},
		Temperature: temp,
		MaxTokens:   maxTokens,
	}
	log.Debug().Str("stage", "model").Str("model", model).Int("prompt_chars", len(user)).Msg("chat request")
	resp, err := c.Client.CreateChatCompletion(ctx, req)
	if err != nil {
		te := asTransportError(err)
		log.Debug().Str("stage", "model").Int("status", te.Status).Msg("chat request failed")
		return "", te
	}
	if len(resp.Choices) == 0 {
		return "", &TransportError{Status: http.StatusOK, Message: "no choices in response"}
	}
	out := resp.Choices[0].Message.Content
	log.Debug().Str("stage", "model").Int("reply_chars", len(out)).Msg("chat response")
	return out, nil
}
