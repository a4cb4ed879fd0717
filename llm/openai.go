package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	openai "github.com/sashabaranov/go-openai"
)

// DefaultOpenAIModel is the chat model used when none is configured.
const DefaultOpenAIModel = "gpt-4o-mini"

// openAIProvider implements Provider for the OpenAI API through the
// go-openai client.
type openAIProvider struct {
	cfg    Config
	client *openai.Client
}

// NewOpenAI creates a provider for OpenAI. BaseURL, when set, is the API
// host; the /v1 prefix is appended.
func NewOpenAI(cfg Config) Provider {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.openai.com"
	}
	if cfg.Model == "" {
		cfg.Model = DefaultOpenAIModel
	}
	oc := openai.DefaultConfig(cfg.APIKey)
	oc.BaseURL = strings.TrimRight(cfg.BaseURL, "/") + "/v1"
	oc.HTTPClient = &http.Client{Timeout: cfg.timeout()}
	return &openAIProvider{cfg: cfg, client: openai.NewClientWithConfig(oc)}
}

func (p *openAIProvider) Chat(ctx context.Context, req ChatRequest) (*ChatResponse, error) {
	model := req.Model
	if model == "" {
		model = p.cfg.Model
	}
	creq := openai.ChatCompletionRequest{
		Model:       model,
		Temperature: float32(req.Temperature),
		MaxTokens:   req.MaxTokens,
	}
	for _, m := range req.Messages {
		creq.Messages = append(creq.Messages, openai.ChatCompletionMessage{Role: m.Role, Content: m.Content})
	}

	var resp openai.ChatCompletionResponse
	err := withRetries(ctx, "openai", p.cfg.MaxRetries, func(ctx context.Context) (bool, error) {
		var err error
		resp, err = p.client.CreateChatCompletion(ctx, creq)
		if err != nil {
			return openAIRetryable(err), fmt.Errorf("openai chat completion: %w", err)
		}
		return false, nil
	})
	if err != nil {
		return nil, err
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("no choices in response")
	}
	return &ChatResponse{
		Content:          resp.Choices[0].Message.Content,
		Model:            resp.Model,
		FinishReason:     string(resp.Choices[0].FinishReason),
		PromptTokens:     resp.Usage.PromptTokens,
		CompletionTokens: resp.Usage.CompletionTokens,
		TotalTokens:      resp.Usage.TotalTokens,
	}, nil
}

// openAIRetryable classifies go-openai errors: API and request errors carry
// an HTTP status, anything else is a transport failure.
func openAIRetryable(err error) bool {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return retryableStatusCode(apiErr.HTTPStatusCode)
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return retryableStatusCode(reqErr.HTTPStatusCode)
	}
	return true
}
