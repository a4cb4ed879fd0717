//go:build integration

package ifccheck

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/brunobiangulo/ifccheck/llm"
	"github.com/brunobiangulo/ifccheck/report"
	"github.com/brunobiangulo/ifccheck/store"
)

const (
	ollamaURL   = "http://localhost:11434"
	testTimeout = 5 * time.Minute
)

func ollamaAvailable() bool {
	client := &http.Client{Timeout: 3 * time.Second}
	resp, err := client.Get(ollamaURL + "/api/tags")
	if err != nil {
		return false
	}
	resp.Body.Close()
	return true
}

// warmModel sends a tiny request to force Ollama to load a model into memory.
func warmModel(model string) error {
	body := fmt.Sprintf(`{"model":%q,"messages":[{"role":"user","content":"hi"}],"stream":false,"options":{"num_predict":1}}`, model)
	client := &http.Client{Timeout: testTimeout}
	resp, err := client.Post(ollamaURL+"/api/chat", "application/json", strings.NewReader(body))
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("warming %s: status %d", model, resp.StatusCode)
	}
	return nil
}

func TestIntegrationOllamaSuggestions(t *testing.T) {
	if !ollamaAvailable() {
		t.Skip("Ollama not reachable at " + ollamaURL)
	}
	model := os.Getenv("IFCCHECK_CHAT_MODEL")
	if model == "" {
		model = llm.DefaultOllamaModel
	}
	if err := warmModel(model); err != nil {
		t.Skipf("model %s not available: %v", model, err)
	}

	cfg := DefaultConfig()
	cfg.OutputDir = t.TempDir()
	cfg.Store = store.Config{Backend: store.BackendMemory}
	cfg.Chat.Model = model
	cfg.Suggestions.NeighbourhoodDepth = 1

	e, err := New(cfg)
	if err != nil {
		t.Fatalf("creating engine: %v", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), testTimeout)
	defer cancel()

	res, err := e.Run(ctx, minimalModel)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if len(res.Conflicts) != 3 {
		t.Fatalf("conflicts = %d, want 3", len(res.Conflicts))
	}
	for i, c := range res.Conflicts {
		if c.Fallback {
			t.Errorf("conflict %d fell back to the default suggestion", i+1)
			continue
		}
		if strings.TrimSpace(c.Suggestion) == "" || c.Suggestion == report.DefaultSuggestion {
			t.Errorf("conflict %d: empty suggestion", i+1)
		}
		t.Logf("conflict %d (%s): %s", i+1, c.Violation.Shape, c.Suggestion)
	}
}
