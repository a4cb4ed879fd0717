package llm

import (
	"context"
	"encoding/json"
	"fmt"
)

// DefaultOllamaModel is the chat model used when none is configured.
const DefaultOllamaModel = "gemma3:4b"

// ollamaProvider implements Provider for Ollama's native /api/chat
// endpoint. Ollama also serves the OpenAI-compatible API, but the native
// one reports token counts and accepts generation options directly.
type ollamaProvider struct {
	base openAICompatClient
}

// NewOllama creates a provider for Ollama.
func NewOllama(cfg Config) Provider {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "http://localhost:11434"
	}
	if cfg.Model == "" {
		cfg.Model = DefaultOllamaModel
	}
	return &ollamaProvider{base: newOpenAICompatClient(cfg, "ollama")}
}

type ollamaChatRequest struct {
	Model    string         `json:"model"`
	Messages []Message      `json:"messages"`
	Stream   bool           `json:"stream"`
	Options  *ollamaOptions `json:"options,omitempty"`
}

type ollamaOptions struct {
	Temperature float64 `json:"temperature,omitempty"`
	NumPredict  int     `json:"num_predict,omitempty"`
}

type ollamaChatResponse struct {
	Model   string `json:"model"`
	Message struct {
		Content string `json:"content"`
	} `json:"message"`
	DoneReason      string `json:"done_reason"`
	PromptEvalCount int    `json:"prompt_eval_count"`
	EvalCount       int    `json:"eval_count"`
}

func (p *ollamaProvider) Chat(ctx context.Context, req ChatRequest) (*ChatResponse, error) {
	body := ollamaChatRequest{
		Model:    p.base.model(req),
		Messages: req.Messages,
	}
	if req.Temperature != 0 || req.MaxTokens != 0 {
		body.Options = &ollamaOptions{Temperature: req.Temperature, NumPredict: req.MaxTokens}
	}

	respBody, err := p.base.doPost(ctx, "/api/chat", body)
	if err != nil {
		return nil, err
	}

	var resp ollamaChatResponse
	if err := json.Unmarshal(respBody, &resp); err != nil {
		return nil, fmt.Errorf("decoding ollama chat response: %w", err)
	}
	return &ChatResponse{
		Content:          resp.Message.Content,
		Model:            resp.Model,
		FinishReason:     resp.DoneReason,
		PromptTokens:     resp.PromptEvalCount,
		CompletionTokens: resp.EvalCount,
		TotalTokens:      resp.PromptEvalCount + resp.EvalCount,
	}, nil
}
