package report

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/sony/gobreaker"

	"github.com/brunobiangulo/ifccheck/graph"
	"github.com/brunobiangulo/ifccheck/llm"
	"github.com/brunobiangulo/ifccheck/shape"
)

// SuggestionProvider produces a remediation text for one violation.
type SuggestionProvider interface {
	Suggest(ctx context.Context, v shape.Violation) (string, error)
}

// BreakerConfig controls when the suggester stops calling a failing
// provider.
type BreakerConfig struct {
	// ConsecutiveFailures trips the breaker. Zero disables it.
	ConsecutiveFailures uint32        `json:"consecutive_failures" yaml:"consecutive_failures"`
	OpenTimeout         time.Duration `json:"open_timeout" yaml:"open_timeout"`
}

// DefaultBreakerConfig returns the breaker settings used by the CLI.
func DefaultBreakerConfig() BreakerConfig {
	return BreakerConfig{ConsecutiveFailures: 3, OpenTimeout: 60 * time.Second}
}

// LLMSuggester asks a chat provider for suggestions through a circuit
// breaker.
type LLMSuggester struct {
	provider llm.Provider
	model    string
	breaker  *gobreaker.CircuitBreaker
	index    *graph.Index
	depth    int
}

// SuggesterOption configures an LLMSuggester.
type SuggesterOption func(*LLMSuggester)

// WithModel overrides the provider's configured model.
func WithModel(model string) SuggesterOption {
	return func(s *LLMSuggester) { s.model = model }
}

// WithNeighbourhood adds elements within depth hops of the focus node to
// each prompt.
func WithNeighbourhood(idx *graph.Index, depth int) SuggesterOption {
	return func(s *LLMSuggester) {
		s.index = idx
		s.depth = depth
	}
}

// NewLLMSuggester wraps provider. Cancellation does not count as a failure
// towards the breaker.
func NewLLMSuggester(provider llm.Provider, bc BreakerConfig, opts ...SuggesterOption) *LLMSuggester {
	s := &LLMSuggester{provider: provider}
	for _, o := range opts {
		o(s)
	}

	threshold := bc.ConsecutiveFailures
	s.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:    "suggestions",
		Timeout: bc.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return threshold > 0 && counts.ConsecutiveFailures >= threshold
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			slog.Warn("report: circuit breaker state changed", "breaker", name, "from", from.String(), "to", to.String())
		},
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
		},
	})
	return s
}

// Suggest returns the trimmed provider answer. Breaker rejections are
// reported as llm.ErrUnavailable.
func (s *LLMSuggester) Suggest(ctx context.Context, v shape.Violation) (string, error) {
	prompt := BuildPrompt(v, s.related(v))
	out, err := s.breaker.Execute(func() (any, error) {
		resp, err := s.provider.Chat(ctx, llm.ChatRequest{
			Model:    s.model,
			Messages: []llm.Message{{Role: "user", Content: prompt}},
		})
		if err != nil {
			return nil, err
		}
		return resp.Content, nil
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return "", fmt.Errorf("%w: %v", llm.ErrUnavailable, err)
		}
		return "", err
	}
	return strings.TrimSpace(out.(string)), nil
}

// related describes the focus node's stored neighbours.
func (s *LLMSuggester) related(v shape.Violation) []string {
	if s.index == nil || s.depth <= 0 {
		return nil
	}
	res := s.index.Traverse([]string{v.FocusID}, s.depth)
	var out []string
	for _, e := range res.Edges {
		line := fmt.Sprintf("%s -%s-> %s", e.From, e.Type, e.To)
		if n, ok := s.index.Node(e.To); ok && e.From == v.FocusID {
			if name, _ := n.Properties[graph.PropName].(string); name != "" {
				line += fmt.Sprintf(" (%s)", name)
			}
		}
		out = append(out, line)
	}
	return out
}
