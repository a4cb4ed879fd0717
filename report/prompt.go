package report

import (
	"fmt"
	"strings"

	"github.com/brunobiangulo/ifccheck/shape"
)

// DefaultSuggestion replaces a suggestion the provider could not supply.
const DefaultSuggestion = "No correction suggestion available."

const (
	promptPersona = "persona: You are an expert in validating IFC (Industry Foundation Classes) models and ontologies who answers briefly but precisely (always fewer than 4 lines)."
	promptTask    = "task: Provide correction suggestions for conflicts found in an IFC model."
	promptAsk     = "Task: Suggest a technical correction for this problem."
)

// BuildPrompt renders the suggestion prompt for one violation. related, when
// non-empty, lists nearby elements from the property graph.
func BuildPrompt(v shape.Violation, related []string) string {
	var b strings.Builder
	b.WriteString(promptPersona + "\n")
	b.WriteString(promptTask + "\n")
	fmt.Fprintf(&b, "Problem: %s\n", v.Message)
	fmt.Fprintf(&b, "Element: %s\n", elementOf(v))
	fmt.Fprintf(&b, "Property: %s\n", string(v.Path))
	if v.Value != "" {
		fmt.Fprintf(&b, "Offending value: %s\n", v.Value)
	}
	if len(related) > 0 {
		b.WriteString("Related elements:\n")
		for _, r := range related {
			b.WriteString("- " + r + "\n")
		}
	}
	b.WriteString(promptAsk)
	return b.String()
}

// elementOf returns the focus node as written in reports.
func elementOf(v shape.Violation) string {
	if v.Focus == nil {
		return v.FocusID
	}
	return strings.Trim(v.Focus.String(), "<>")
}
