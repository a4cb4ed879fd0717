// Package graph projects extracted entities into the two graph targets: a
// property graph written through a store transaction, and an RDF graph held
// in memory for shape validation.
package graph

import (
	"context"
	"fmt"
	"iter"
	"log/slog"

	"github.com/brunobiangulo/ifccheck/model"
	"github.com/brunobiangulo/ifccheck/ontology"
	"github.com/brunobiangulo/ifccheck/rdf"
	"github.com/brunobiangulo/ifccheck/store"
)

// Stats counts what one Build wrote.
type Stats struct {
	Entities   int // distinct entities projected
	Duplicates int // entities skipped because their GlobalId was already seen
	Nodes      int
	Edges      int
	Triples    int // new triples added to the RDF graph
}

// ProgressFunc is called after each entity is written to both targets.
type ProgressFunc func(e model.Entity, nodeEdges, triples int)

// Builder writes entities to both targets in a single pass.
type Builder struct {
	progress ProgressFunc
}

// NewBuilder creates a builder. progress may be nil.
func NewBuilder(progress ProgressFunc) *Builder {
	return &Builder{progress: progress}
}

// AddOntology adds the IFC class hierarchy as rdfs:subClassOf triples so
// type inference works on g and the serialized graph carries its basis.
func AddOntology(g *rdf.Graph) int {
	return g.AddAll(ontology.Default().Axioms())
}

// Build consumes entities once. Each entity's node and edges go to tx (in
// that order) and its triples to g; either target may be nil. An entity
// whose GlobalId was already projected is skipped with a warning. The first
// write error aborts the build; the caller owns tx and decides between
// commit and rollback.
func (b *Builder) Build(ctx context.Context, entities iter.Seq[model.Entity], tx store.Tx, g *rdf.Graph) (Stats, error) {
	var stats Stats
	seen := make(map[string]bool)

	for ent := range entities {
		if err := ctx.Err(); err != nil {
			return stats, err
		}
		if seen[ent.GlobalID] {
			stats.Duplicates++
			slog.Warn("graph: duplicate GlobalId skipped", "global_id", ent.GlobalID, "type", ent.Type)
			continue
		}
		seen[ent.GlobalID] = true
		stats.Entities++

		node, edges := ToPropertyGraph(ent)
		if tx != nil {
			if err := tx.CreateNode(ctx, node.Label, node.Properties()); err != nil {
				return stats, fmt.Errorf("creating node %s: %w", ent.GlobalID, err)
			}
			stats.Nodes++
			for _, e := range edges {
				if err := tx.CreateEdge(ctx, e.From, e.Type, e.To); err != nil {
					return stats, fmt.Errorf("creating edge %s -%s-> %s: %w", e.From, e.Type, e.To, err)
				}
				stats.Edges++
			}
		}

		added := 0
		if g != nil {
			added = g.AddAll(ToTriples(ent))
			stats.Triples += added
		}
		if b.progress != nil {
			b.progress(ent, len(edges), added)
		}
	}

	slog.Debug("graph: projection complete",
		"entities", stats.Entities, "duplicates", stats.Duplicates,
		"nodes", stats.Nodes, "edges", stats.Edges, "triples", stats.Triples)
	return stats, nil
}
