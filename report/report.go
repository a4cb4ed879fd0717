// Package report turns violations into conflicts with remediation
// suggestions and renders them as text or a spreadsheet.
package report

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/brunobiangulo/ifccheck/llm"
	"github.com/brunobiangulo/ifccheck/shape"
)

// ErrSuggestionFailed is returned by Build when the provider rejects a
// request for a reason other than unavailability.
var ErrSuggestionFailed = errors.New("report: suggestion request failed")

// ConformanceText is written when the model has no violations.
const ConformanceText = "No conflicts detected: the model conforms to the ontology."

// Conflict is a violation paired with its suggestion.
type Conflict struct {
	Violation  shape.Violation
	Suggestion string
	// Fallback is true when DefaultSuggestion was substituted.
	Fallback bool
}

// SuggestionObserver is notified once per suggestion attempt.
type SuggestionObserver func(fallback bool, elapsed time.Duration)

// Reporter builds conflicts sequentially, one provider call per violation.
type Reporter struct {
	suggester SuggestionProvider
	observe   SuggestionObserver
}

// NewReporter creates a reporter. A nil suggester yields DefaultSuggestion
// for every conflict; observe may be nil.
func NewReporter(s SuggestionProvider, observe SuggestionObserver) *Reporter {
	return &Reporter{suggester: s, observe: observe}
}

// Build returns one conflict per violation in input order. Empty answers
// and llm.ErrUnavailable degrade to DefaultSuggestion. Any other provider
// error (a rejected key, an unknown model) aborts the build with
// ErrSuggestionFailed; cancellation of ctx returns ctx.Err().
func (r *Reporter) Build(ctx context.Context, violations []shape.Violation) ([]Conflict, error) {
	conflicts := make([]Conflict, 0, len(violations))
	for _, v := range violations {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		c := Conflict{Violation: v, Suggestion: DefaultSuggestion, Fallback: true}
		if r.suggester != nil {
			start := time.Now()
			text, err := r.suggester.Suggest(ctx, v)
			switch {
			case err != nil && ctx.Err() != nil:
				return nil, ctx.Err()
			case errors.Is(err, llm.ErrUnavailable):
				slog.Warn("report: suggestion provider unavailable", "element", v.FocusID, "shape", v.Shape, "error", err)
			case err != nil:
				return nil, fmt.Errorf("%w: %s %s: %v", ErrSuggestionFailed, v.Shape, v.FocusID, err)
			case text == "":
				slog.Warn("report: empty suggestion", "element", v.FocusID, "shape", v.Shape)
			default:
				c.Suggestion = text
				c.Fallback = false
			}
			if r.observe != nil {
				r.observe(c.Fallback, time.Since(start))
			}
		}
		conflicts = append(conflicts, c)
	}
	return conflicts, nil
}

// Header identifies the run a report belongs to. Empty fields are omitted.
type Header struct {
	RunID string
	Model string
}

// RenderText writes the plain-text report.
func RenderText(w io.Writer, h Header, conflicts []Conflict) error {
	bw := bufio.NewWriter(w)
	bw.WriteString("Conformance validation result\n")
	bw.WriteString(strings.Repeat("=", 50) + "\n")
	if h.RunID != "" {
		fmt.Fprintf(bw, "Run: %s\n", h.RunID)
	}
	if h.Model != "" {
		fmt.Fprintf(bw, "Model: %s\n", h.Model)
	}
	bw.WriteString("\n")

	if len(conflicts) == 0 {
		bw.WriteString(ConformanceText + "\n")
		return bw.Flush()
	}

	if len(conflicts) == 1 {
		bw.WriteString("1 conflict found:\n")
	} else {
		fmt.Fprintf(bw, "%d conflicts found:\n", len(conflicts))
	}
	for i, c := range conflicts {
		v := c.Violation
		fmt.Fprintf(bw, "\nConflict #%d:\n", i+1)
		fmt.Fprintf(bw, "Element: %s\n", elementOf(v))
		fmt.Fprintf(bw, "Message: %s\n", v.Message)
		fmt.Fprintf(bw, "Property: %s\n", string(v.Path))
		if v.Value != "" {
			fmt.Fprintf(bw, "Value: %s\n", v.Value)
		}
		fmt.Fprintf(bw, "Severity: %s\n", v.Severity)
		fmt.Fprintf(bw, "Suggestion: %s\n", indent(c.Suggestion))
	}
	return bw.Flush()
}

// indent keeps multi-line suggestions inside their block.
func indent(s string) string {
	return strings.ReplaceAll(strings.TrimSpace(s), "\n", "\n  ")
}

// WriteTextFile renders the text report to path, creating parent
// directories.
func WriteTextFile(path string, h Header, conflicts []Conflict) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating report directory: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating report: %w", err)
	}
	if err := RenderText(f, h, conflicts); err != nil {
		f.Close()
		return fmt.Errorf("writing report: %w", err)
	}
	return f.Close()
}
