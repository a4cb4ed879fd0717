package rdf

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"github.com/cayleygraph/quad"
	"github.com/cayleygraph/quad/nquads"
)

// Format specifies the output serialization format.
type Format string

const (
	// FormatTurtle produces Turtle (.ttl) output.
	FormatTurtle Format = "turtle"

	// FormatNTriples produces N-Triples (.nt) output.
	FormatNTriples Format = "ntriples"
)

// FormatInfo provides metadata about an export format.
type FormatInfo struct {
	Name        Format
	MIMEType    string
	Extension   string
	Description string
}

// FormatRegistry contains metadata for all supported formats.
var FormatRegistry = map[Format]FormatInfo{
	FormatTurtle: {
		Name:        FormatTurtle,
		MIMEType:    "text/turtle",
		Extension:   ".ttl",
		Description: "Turtle - Terse RDF Triple Language",
	},
	FormatNTriples: {
		Name:        FormatNTriples,
		MIMEType:    "application/n-triples",
		Extension:   ".nt",
		Description: "N-Triples - Line-based RDF format",
	},
}

// ParseFormat resolves a format name, accepting "ttl" and "nt" shorthands.
func ParseFormat(name string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "turtle", "ttl":
		return FormatTurtle, nil
	case "ntriples", "n-triples", "nt":
		return FormatNTriples, nil
	default:
		return "", fmt.Errorf("unsupported rdf format: %s", name)
	}
}

// Write serializes g in the given format.
func Write(w io.Writer, g *Graph, format Format, prefixes map[string]string) error {
	switch format {
	case FormatTurtle:
		return WriteTurtle(w, g, prefixes)
	case FormatNTriples:
		return WriteNTriples(w, g)
	default:
		return fmt.Errorf("unsupported rdf format: %s", format)
	}
}

// WriteFile serializes g to path, creating parent directories as needed.
func WriteFile(path string, g *Graph, format Format, prefixes map[string]string) error {
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("creating output directory: %w", err)
		}
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	bw := bufio.NewWriter(f)
	if err := Write(bw, g, format, prefixes); err != nil {
		f.Close()
		return err
	}
	if err := bw.Flush(); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// WriteNTriples writes one line per triple using the N-Quads writer; a
// quad without a label is a valid N-Triples line.
func WriteNTriples(w io.Writer, g *Graph) error {
	nw := nquads.NewWriter(w)
	for _, q := range g.triples {
		if err := nw.WriteQuad(q); err != nil {
			return fmt.Errorf("writing triple: %w", err)
		}
	}
	return nw.Close()
}

// localName matches prefixed-name local parts we can emit without escapes.
var localName = regexp.MustCompile(`^[A-Za-z0-9_]([A-Za-z0-9_.-]*[A-Za-z0-9_-])?$`)

// WriteTurtle writes g grouped by subject, in insertion order, with
// predicates of the same subject joined by ";" and objects by ",".
func WriteTurtle(w io.Writer, g *Graph, prefixes map[string]string) error {
	tw := &turtleWriter{w: w, prefixes: prefixes}
	tw.writePrefixes()

	for _, s := range g.AllSubjects() {
		preds := g.spo[key(s)]
		order := predicateOrder(g, s)
		tw.printf("%s\n", tw.term(s))
		for i, p := range order {
			objs := preds[key(p)]
			terms := make([]string, len(objs))
			for j, o := range objs {
				terms[j] = tw.term(o)
			}
			terminator := " ;"
			if i == len(order)-1 {
				terminator = " ."
			}
			tw.printf("    %s %s%s\n", tw.predicate(p), strings.Join(terms, ", "), terminator)
		}
		tw.printf("\n")
	}
	return tw.err
}

// predicateOrder lists the predicates of s in first-seen order, with
// rdf:type first.
func predicateOrder(g *Graph, s quad.Value) []quad.Value {
	preds := g.Predicates(s)
	typeKey := key(TypePredicate)
	if len(g.spo[key(s)][typeKey]) == 0 {
		return preds
	}
	out := make([]quad.Value, 0, len(preds))
	out = append(out, TypePredicate)
	for _, p := range preds {
		if key(p) != typeKey {
			out = append(out, p)
		}
	}
	return out
}

type turtleWriter struct {
	w        io.Writer
	prefixes map[string]string
	err      error
}

func (t *turtleWriter) printf(format string, args ...any) {
	if t.err != nil {
		return
	}
	_, t.err = fmt.Fprintf(t.w, format, args...)
}

func (t *turtleWriter) writePrefixes() {
	keys := make([]string, 0, len(t.prefixes))
	for k := range t.prefixes {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		t.printf("@prefix %s: <%s> .\n", k, t.prefixes[k])
	}
	if len(keys) > 0 {
		t.printf("\n")
	}
}

func (t *turtleWriter) predicate(p quad.Value) string {
	if key(p) == key(TypePredicate) {
		return "a"
	}
	return t.term(p)
}

// term renders an IRI as a prefixed name when a namespace matches and the
// local part needs no escaping; everything else uses its N-Triples form.
func (t *turtleWriter) term(v quad.Value) string {
	iri, ok := v.(quad.IRI)
	if !ok {
		return v.String()
	}
	best, bestNS := "", ""
	for prefix, ns := range t.prefixes {
		if strings.HasPrefix(string(iri), ns) && len(ns) > len(bestNS) {
			best, bestNS = prefix, ns
		}
	}
	if bestNS != "" {
		local := strings.TrimPrefix(string(iri), bestNS)
		if localName.MatchString(local) {
			return best + ":" + local
		}
	}
	return "<" + string(iri) + ">"
}
