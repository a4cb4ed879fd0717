// Package rdf is a small in-memory triple graph with the RDFS subclass
// inference the shape engine needs, plus Turtle and N-Triples writers.
package rdf

import (
	"slices"

	"github.com/cayleygraph/quad"
	rdfvoc "github.com/cayleygraph/quad/voc/rdf"
	"github.com/cayleygraph/quad/voc/rdfs"
)

var (
	// TypePredicate is rdf:type.
	TypePredicate = quad.IRI(rdfvoc.Type).Full()
	// SubClassOf is rdfs:subClassOf.
	SubClassOf = quad.IRI(rdfs.SubClassOf).Full()
)

// Graph is a set of triples indexed by subject and by predicate. The
// zero value is not usable; call NewGraph. Graph is not safe for
// concurrent writes.
type Graph struct {
	triples []quad.Quad
	seen    map[[3]string]struct{}

	// distinct subjects, in first-seen order
	subjects []quad.Value
	// subject -> predicates, in first-seen order
	sp map[string][]quad.Value
	// subject -> predicate -> objects, in insertion order
	spo map[string]map[string][]quad.Value
	// predicate -> subjects that carry it, in insertion order
	ps map[string][]quad.Value
	// predicate -> object -> subjects
	pos map[string]map[string][]quad.Value
}

// NewGraph returns an empty graph.
func NewGraph() *Graph {
	return &Graph{
		seen: make(map[[3]string]struct{}),
		sp:   make(map[string][]quad.Value),
		spo:  make(map[string]map[string][]quad.Value),
		ps:   make(map[string][]quad.Value),
		pos:  make(map[string]map[string][]quad.Value),
	}
}

func key(v quad.Value) string {
	if v == nil {
		return ""
	}
	return v.String()
}

// Add inserts (s, p, o). It returns false if the triple was already present.
func (g *Graph) Add(s, p, o quad.Value) bool {
	k := [3]string{key(s), key(p), key(o)}
	if _, dup := g.seen[k]; dup {
		return false
	}
	g.seen[k] = struct{}{}
	g.triples = append(g.triples, quad.Quad{Subject: s, Predicate: p, Object: o})

	byPred, ok := g.spo[k[0]]
	if !ok {
		byPred = make(map[string][]quad.Value)
		g.spo[k[0]] = byPred
		g.subjects = append(g.subjects, s)
	}
	if len(byPred[k[1]]) == 0 {
		g.ps[k[1]] = append(g.ps[k[1]], s)
		g.sp[k[0]] = append(g.sp[k[0]], p)
	}
	byPred[k[1]] = append(byPred[k[1]], o)

	byObj, ok := g.pos[k[1]]
	if !ok {
		byObj = make(map[string][]quad.Value)
		g.pos[k[1]] = byObj
	}
	byObj[k[2]] = append(byObj[k[2]], s)
	return true
}

// AddQuad inserts q, ignoring its label.
func (g *Graph) AddQuad(q quad.Quad) bool {
	return g.Add(q.Subject, q.Predicate, q.Object)
}

// AddAll inserts every quad and returns how many were new.
func (g *Graph) AddAll(qs []quad.Quad) int {
	n := 0
	for _, q := range qs {
		if g.AddQuad(q) {
			n++
		}
	}
	return n
}

// Len returns the number of distinct triples.
func (g *Graph) Len() int {
	return len(g.triples)
}

// Triples returns all triples in insertion order.
func (g *Graph) Triples() []quad.Quad {
	out := make([]quad.Quad, len(g.triples))
	copy(out, g.triples)
	return out
}

// Has reports whether (s, p, o) is in the graph.
func (g *Graph) Has(s, p, o quad.Value) bool {
	_, ok := g.seen[[3]string{key(s), key(p), key(o)}]
	return ok
}

// Objects returns the objects of (s, p, ?).
func (g *Graph) Objects(s, p quad.Value) []quad.Value {
	return g.spo[key(s)][key(p)]
}

// Subjects returns the subjects of (?, p, o).
func (g *Graph) Subjects(p, o quad.Value) []quad.Value {
	return g.pos[key(p)][key(o)]
}

// SubjectsOf returns every subject that has at least one p edge.
func (g *Graph) SubjectsOf(p quad.Value) []quad.Value {
	return g.ps[key(p)]
}

// AllSubjects returns every distinct subject, in first-seen order.
func (g *Graph) AllSubjects() []quad.Value {
	return slices.Clone(g.subjects)
}

// Predicates returns the predicates of s, in first-seen order.
func (g *Graph) Predicates(s quad.Value) []quad.Value {
	return g.sp[key(s)]
}

// SuperClasses returns class and every class it reaches through
// rdfs:subClassOf edges.
func (g *Graph) SuperClasses(class quad.Value) map[string]bool {
	return g.closure(class, func(c quad.Value) []quad.Value { return g.Objects(c, SubClassOf) })
}

// SubClasses returns class and every class that reaches it through
// rdfs:subClassOf edges.
func (g *Graph) SubClasses(class quad.Value) map[string]bool {
	return g.closure(class, func(c quad.Value) []quad.Value { return g.Subjects(SubClassOf, c) })
}

func (g *Graph) closure(start quad.Value, next func(quad.Value) []quad.Value) map[string]bool {
	out := map[string]bool{key(start): true}
	queue := []quad.Value{start}
	for len(queue) > 0 {
		c := queue[0]
		queue = queue[1:]
		for _, n := range next(c) {
			if k := key(n); !out[k] {
				out[k] = true
				queue = append(queue, n)
			}
		}
	}
	return out
}

// IsInstanceOf reports whether node has an rdf:type that is class or one of
// its subclasses.
func (g *Graph) IsInstanceOf(node, class quad.Value) bool {
	return g.InstanceTest(class)(node)
}

// InstanceTest computes the subclass closure of class once and returns a
// membership test for nodes, for callers checking many nodes against the
// same class.
func (g *Graph) InstanceTest(class quad.Value) func(node quad.Value) bool {
	subs := g.SubClasses(class)
	return func(node quad.Value) bool {
		for _, t := range g.Objects(node, TypePredicate) {
			if subs[key(t)] {
				return true
			}
		}
		return false
	}
}

// InstancesOf returns every node typed with class or one of its subclasses,
// in first-seen order and without duplicates.
func (g *Graph) InstancesOf(class quad.Value) []quad.Value {
	subs := g.SubClasses(class)
	seen := make(map[string]bool)
	var out []quad.Value
	for _, q := range g.triples {
		if key(q.Predicate) != key(TypePredicate) || !subs[key(q.Object)] {
			continue
		}
		if k := key(q.Subject); !seen[k] {
			seen[k] = true
			out = append(out, q.Subject)
		}
	}
	return out
}
