package llm

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// ErrUnavailable marks failures where the provider could not be reached or
// kept failing with transient errors: transport errors, 5xx and 429
// responses, and exhausted retries.
var ErrUnavailable = errors.New("llm: provider unavailable")

// Provider is the interface for LLM interactions.
type Provider interface {
	// Chat sends a chat completion request.
	Chat(ctx context.Context, req ChatRequest) (*ChatResponse, error)
}

// ChatRequest is a chat completion request.
type ChatRequest struct {
	Model       string    `json:"model"`
	Messages    []Message `json:"messages"`
	Temperature float64   `json:"temperature,omitempty"`
	MaxTokens   int       `json:"max_tokens,omitempty"`
}

// Message represents a chat message.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ChatResponse is the response from a chat completion.
type ChatResponse struct {
	Content          string `json:"content"`
	Model            string `json:"model"`
	FinishReason     string `json:"finish_reason"`
	PromptTokens     int    `json:"prompt_tokens"`
	CompletionTokens int    `json:"completion_tokens"`
	TotalTokens      int    `json:"total_tokens"`
}

// Config configures an LLM provider.
type Config struct {
	Provider string `json:"provider" yaml:"provider" validate:"omitempty,oneof=ollama lmstudio openai custom"`
	Model    string `json:"model" yaml:"model"`
	BaseURL  string `json:"base_url" yaml:"base_url" validate:"omitempty,url"`
	APIKey   string `json:"api_key" yaml:"api_key"`
	// MaxRetries is the number of extra attempts after a transient failure.
	// Zero means a single attempt.
	MaxRetries int `json:"max_retries" yaml:"max_retries" validate:"gte=0,lte=10"`
	// Timeout bounds each HTTP request. Zero uses DefaultTimeout.
	Timeout time.Duration `json:"timeout" yaml:"timeout" validate:"gte=0"`
}

// DefaultTimeout is kept generous for local providers (Ollama, LM Studio)
// which may load the model on the first request.
const DefaultTimeout = 120 * time.Second

func (c Config) timeout() time.Duration {
	if c.Timeout > 0 {
		return c.Timeout
	}
	return DefaultTimeout
}

// NewProvider creates an LLM provider from configuration.
func NewProvider(cfg Config) (Provider, error) {
	switch cfg.Provider {
	case "ollama":
		return NewOllama(cfg), nil
	case "lmstudio":
		return NewLMStudio(cfg), nil
	case "openai":
		return NewOpenAI(cfg), nil
	case "custom":
		return NewOpenAICompat(cfg), nil
	case "":
		return nil, fmt.Errorf("llm provider not specified")
	default:
		return nil, fmt.Errorf("unknown llm provider: %s", cfg.Provider)
	}
}
