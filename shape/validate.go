package shape

import (
	"log/slog"
	"sort"

	"github.com/cayleygraph/quad"

	"github.com/brunobiangulo/ifccheck/ontology"
	"github.com/brunobiangulo/ifccheck/rdf"
)

// Violation is one failed check of one shape on one focus node.
type Violation struct {
	Focus    quad.Value // focus node IRI
	FocusID  string     // GlobalId of the focus node, or its IRI when outside the element namespace
	Path     quad.IRI   // full predicate IRI of the checked path
	Message  string
	Severity Severity
	Shape    string
	Value    string // offending value for per-value checks; empty for count checks

	shapeIndex int
}

// Report is the outcome of validating one graph.
type Report struct {
	Violations []Violation
}

// Conforms reports whether the graph passed every shape.
func (r Report) Conforms() bool { return len(r.Violations) == 0 }

// Validate evaluates every shape against g. Class membership uses the
// rdfs:subClassOf triples present in g. Violations are sorted by focus
// identifier, then shape declaration order, then value.
func (s *Set) Validate(g *rdf.Graph) Report {
	var out []Violation
	for i, sh := range s.shapes {
		out = append(out, s.validateShape(g, i, sh)...)
	}
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.FocusID != b.FocusID {
			return a.FocusID < b.FocusID
		}
		if a.shapeIndex != b.shapeIndex {
			return a.shapeIndex < b.shapeIndex
		}
		return a.Value < b.Value
	})
	slog.Debug("shape: validation complete", "shapes", len(s.shapes), "violations", len(out))
	return Report{Violations: out}
}

func (s *Set) validateShape(g *rdf.Graph, index int, sh Shape) []Violation {
	path := ontology.PredicateIRI(sh.Path)
	isClass := g.InstanceTest(ontology.ClassIRI(sh.Class))

	var focus []quad.Value
	if sh.TargetClass != "" {
		focus = g.InstancesOf(ontology.ClassIRI(sh.TargetClass))
	} else {
		focus = g.SubjectsOf(path)
	}

	var out []Violation
	for _, f := range focus {
		values := g.Objects(f, path)
		if sh.HasBounds() {
			n := 0
			for _, v := range values {
				if isClass(v) {
					n++
				}
			}
			if (sh.MinCount != nil && n < *sh.MinCount) || (sh.MaxCount != nil && n > *sh.MaxCount) {
				out = append(out, newViolation(f, path, index, sh, ""))
			}
			continue
		}
		for _, v := range values {
			if !isClass(v) {
				out = append(out, newViolation(f, path, index, sh, termID(v)))
			}
		}
	}
	return out
}

func newViolation(focus quad.Value, path quad.IRI, index int, sh Shape, value string) Violation {
	return Violation{
		Focus:      focus,
		FocusID:    termID(focus),
		Path:       path,
		Message:    sh.Message,
		Severity:   sh.Severity,
		Shape:      sh.Name,
		Value:      value,
		shapeIndex: index,
	}
}

// termID returns the GlobalId behind an element IRI, or the term's own
// string form.
func termID(v quad.Value) string {
	if iri, ok := v.(quad.IRI); ok {
		if id, ok := ontology.GlobalIDFromIRI(iri); ok {
			return id
		}
		return string(iri)
	}
	return quad.StringOf(v)
}
