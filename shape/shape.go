// Package shape declares the constraint rules checked against the RDF
// graph and evaluates them. Rules are closed-world and non-recursive: a
// shape looks at one path from each focus node and never at nested shapes.
package shape

import (
	_ "embed"
	"errors"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/brunobiangulo/ifccheck/ontology"
)

//go:embed rules.yaml
var builtinRules []byte

// ErrInvalid is returned when a rule document cannot be compiled.
var ErrInvalid = errors.New("shape: invalid rule set")

// Severity grades a violation.
type Severity string

const (
	SeverityViolation Severity = "Violation"
	SeverityWarning   Severity = "Warning"
	SeverityInfo      Severity = "Info"
)

func (s Severity) valid() bool {
	switch s {
	case SeverityViolation, SeverityWarning, SeverityInfo:
		return true
	}
	return false
}

// Shape is one declarative rule. When TargetClass is empty the shape
// applies to every subject that has Path. A shape with neither bound checks
// the class of each value instead of counting.
type Shape struct {
	Name        string   `yaml:"name" json:"name"`
	TargetClass string   `yaml:"target_class,omitempty" json:"target_class,omitempty"`
	Path        string   `yaml:"path" json:"path"`
	Class       string   `yaml:"class" json:"class"`
	MinCount    *int     `yaml:"min_count,omitempty" json:"min_count,omitempty"`
	MaxCount    *int     `yaml:"max_count,omitempty" json:"max_count,omitempty"`
	Message     string   `yaml:"message" json:"message"`
	Severity    Severity `yaml:"severity,omitempty" json:"severity,omitempty"`
}

// HasBounds reports whether the shape counts values rather than checking
// each one.
func (s Shape) HasBounds() bool {
	return s.MinCount != nil || s.MaxCount != nil
}

// Set is a compiled, ordered collection of shapes.
type Set struct {
	shapes []Shape
}

// Shapes returns a copy of the compiled shapes in declaration order.
func (s *Set) Shapes() []Shape {
	return append([]Shape(nil), s.shapes...)
}

// Len returns the number of shapes.
func (s *Set) Len() int { return len(s.shapes) }

type document struct {
	Shapes []Shape `yaml:"shapes"`
}

// Compile parses a YAML rule document and checks every shape against the
// class hierarchy h. Class names are canonicalized. A missing severity
// defaults to Violation.
func Compile(data []byte, h *ontology.Hierarchy) (*Set, error) {
	var doc document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	if len(doc.Shapes) == 0 {
		return nil, fmt.Errorf("%w: no shapes declared", ErrInvalid)
	}

	seen := make(map[string]bool, len(doc.Shapes))
	set := &Set{shapes: make([]Shape, 0, len(doc.Shapes))}
	for i, sh := range doc.Shapes {
		sh.Name = strings.TrimSpace(sh.Name)
		if sh.Name == "" {
			return nil, fmt.Errorf("%w: shape %d: missing name", ErrInvalid, i)
		}
		if seen[sh.Name] {
			return nil, fmt.Errorf("%w: duplicate shape %q", ErrInvalid, sh.Name)
		}
		seen[sh.Name] = true
		if err := check(&sh, h); err != nil {
			return nil, fmt.Errorf("%w: shape %q: %v", ErrInvalid, sh.Name, err)
		}
		set.shapes = append(set.shapes, sh)
	}
	return set, nil
}

func check(sh *Shape, h *ontology.Hierarchy) error {
	if strings.TrimSpace(sh.Path) == "" {
		return errors.New("empty path")
	}
	if strings.TrimSpace(sh.Message) == "" {
		return errors.New("empty message")
	}
	if sh.Class == "" || !h.Known(sh.Class) {
		return fmt.Errorf("unknown class %q", sh.Class)
	}
	sh.Class = h.Canonical(sh.Class)
	if sh.TargetClass != "" {
		if !h.Known(sh.TargetClass) {
			return fmt.Errorf("unknown target class %q", sh.TargetClass)
		}
		sh.TargetClass = h.Canonical(sh.TargetClass)
	}
	if sh.MinCount != nil && *sh.MinCount < 0 {
		return fmt.Errorf("negative min_count %d", *sh.MinCount)
	}
	if sh.MaxCount != nil && *sh.MaxCount < 0 {
		return fmt.Errorf("negative max_count %d", *sh.MaxCount)
	}
	if sh.MinCount != nil && sh.MaxCount != nil && *sh.MinCount > *sh.MaxCount {
		return fmt.Errorf("min_count %d exceeds max_count %d", *sh.MinCount, *sh.MaxCount)
	}
	if sh.Severity == "" {
		sh.Severity = SeverityViolation
	}
	if !sh.Severity.valid() {
		return fmt.Errorf("unknown severity %q", sh.Severity)
	}
	return nil
}

// Default compiles the built-in rule set. The embedded document is fixed at
// build time, so a compile error here is a programming error.
func Default() *Set {
	set, err := Compile(builtinRules, ontology.Default())
	if err != nil {
		panic(err)
	}
	return set
}

// Load compiles a rule document against the built-in hierarchy, or the
// built-in set when data is empty.
func Load(data []byte) (*Set, error) {
	if len(data) == 0 {
		return Compile(builtinRules, ontology.Default())
	}
	return Compile(data, ontology.Default())
}
