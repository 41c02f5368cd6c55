package llm

import (
	"context"
	"net/http"
	"time"

	openai "github.com/sashabaranov/go-openai"
)

// Client is the minimal interface needed by core logic to call a chat model.
// It mirrors go-openai's CreateChatCompletion so any OpenAI-compatible
// backend, OpenRouter included, can be adapted.
type Client interface {
	CreateChatCompletion(ctx context.Context, request openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

// OpenAIProvider adapts *openai.Client to the Client interface.
type OpenAIProvider struct {
	Inner *openai.Client
}

func (p *OpenAIProvider) CreateChatCompletion(ctx context.Context, request openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error) {
	return p.Inner.CreateChatCompletion(ctx, request)
}

// Settings configure the OpenAI-compatible endpoint.
type Settings struct {
	BaseURL string
	APIKey  string
	// Title and Referer are sent as X-Title and HTTP-Referer, which
	// OpenRouter uses for attribution. Empty values are not sent.
	Title   string
	Referer string
	// Timeout bounds one HTTP exchange. Zero selects 60s.
	Timeout time.Duration
}

// NewOpenAIProvider builds a provider bound to the configured endpoint.
func NewOpenAIProvider(s Settings) *OpenAIProvider {
	cfg := openai.DefaultConfig(s.APIKey)
	if s.BaseURL != "" {
		cfg.BaseURL = s.BaseURL
	}
	cfg.HTTPClient = newHTTPClient(s)
	return &OpenAIProvider{Inner: openai.NewClientWithConfig(cfg)}
}

func newHTTPClient(s Settings) *http.Client {
	timeout := s.Timeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	headers := http.Header{}
	if s.Title != "" {
		headers.Set("X-Title", s.Title)
	}
	if s.Referer != "" {
		headers.Set("HTTP-Referer", s.Referer)
	}
	return &http.Client{
		Transport: &headerTransport{base: newTransport(), headers: headers},
		Timeout:   timeout,
	}
}
