package graph

import (
	"context"
	"iter"
	"testing"

	"github.com/cayleygraph/quad"

	"github.com/brunobiangulo/ifccheck/model"
	"github.com/brunobiangulo/ifccheck/ontology"
	"github.com/brunobiangulo/ifccheck/rdf"
	"github.com/brunobiangulo/ifccheck/store"
)

func seq(entities ...model.Entity) iter.Seq[model.Entity] {
	return func(yield func(model.Entity) bool) {
		for _, e := range entities {
			if !yield(e) {
				return
			}
		}
	}
}

// wallWithMixedRefs references a storey (product), an owner history with a
// GlobalId (non-product), an unidentified element and a duplicate ref.
func wallWithMixedRefs() model.Entity {
	storey := model.Ref{GlobalID: "s1", Type: "IfcBuildingStorey"}
	return model.Entity{
		GlobalID: "w1",
		Type:     "IfcWall",
		Name:     "Wall A",
		Attributes: []model.Attribute{
			{Role: "type", Value: model.Scalar("IfcWall")},
			{Role: "GlobalId", Value: model.Scalar("w1")},
			{Role: "OwnerHistory", Value: model.RefValue(model.Ref{GlobalID: "oh1", Type: "IfcOwnerHistory"})},
			{Role: "Tag", Value: model.Scalar("W01")},
			{Role: "ContainedInStructure", Value: model.RefList(storey, storey)},
			{Role: "Material", Value: model.RefValue(model.Ref{GlobalID: "m1", Type: "IfcMaterial"})},
			{Role: "Representation", Value: model.RefValue(model.Ref{Type: "IfcProductDefinitionShape"})},
		},
	}
}

// ---------------------------------------------------------------------------
// Projection functions
// ---------------------------------------------------------------------------

func TestToPropertyGraph(t *testing.T) {
	node, edges := ToPropertyGraph(wallWithMixedRefs())

	if node.Label != NodeLabel || node.GlobalID != "w1" || node.Name != "Wall A" {
		t.Errorf("unexpected node %+v", node)
	}
	props := node.Properties()
	if props[store.KeyProperty] != "w1" || props[PropName] != "Wall A" || len(props) != 2 {
		t.Errorf("unexpected properties %v", props)
	}

	// Reserved roles and refs without GlobalId are skipped; non-product
	// targets are kept; the duplicate storey ref collapses.
	want := []Edge{
		{From: "w1", Type: "ContainedInStructure", To: "s1"},
		{From: "w1", Type: "Material", To: "m1"},
	}
	if len(edges) != len(want) {
		t.Fatalf("expected %d edges, got %+v", len(want), edges)
	}
	for i := range want {
		if edges[i] != want[i] {
			t.Errorf("edge %d = %+v, want %+v", i, edges[i], want[i])
		}
	}
}

func TestToPropertyGraphEmptyName(t *testing.T) {
	node, edges := ToPropertyGraph(model.Entity{GlobalID: "x", Type: "IfcSlab"})
	if node.Properties()[PropName] != "" {
		t.Errorf("absent name should be stored as empty string")
	}
	if len(edges) != 0 {
		t.Errorf("expected no edges, got %+v", edges)
	}
}

func TestToTriples(t *testing.T) {
	triples := ToTriples(wallWithMixedRefs())
	s := ontology.EntityIRI("w1")

	g := rdf.NewGraph()
	g.AddAll(triples)

	if !g.Has(s, rdf.TypePredicate, ontology.ClassIRI("IfcWall")) {
		t.Error("missing type triple")
	}
	if !g.Has(s, ontology.NamePredicate, quad.String("Wall A")) {
		t.Error("missing name triple")
	}
	if !g.Has(s, ontology.PredicateIRI("ContainedInStructure"), ontology.EntityIRI("s1")) {
		t.Error("missing relation to product target")
	}
	// Material is not a product: edge yes, triple no.
	if len(g.Objects(s, ontology.PredicateIRI("Material"))) != 0 {
		t.Error("non-product target must not produce a triple")
	}
	if len(g.Objects(s, ontology.PredicateIRI("OwnerHistory"))) != 0 {
		t.Error("reserved role must not produce a triple")
	}
	if len(g.Objects(s, ontology.PredicateIRI("Tag"))) != 0 {
		t.Error("scalar attributes must not produce triples")
	}
	if g.Len() != 3 {
		t.Errorf("expected 3 distinct triples, got %d", g.Len())
	}
}

func TestToTriplesWithoutName(t *testing.T) {
	triples := ToTriples(model.Entity{GlobalID: "x", Type: "IfcSlab"})
	if len(triples) != 1 {
		t.Fatalf("expected only the type triple, got %v", triples)
	}
}

// ---------------------------------------------------------------------------
// Builder
// ---------------------------------------------------------------------------

func build(t *testing.T, sink *store.MemorySink, g *rdf.Graph, entities ...model.Entity) Stats {
	t.Helper()
	ctx := context.Background()
	tx, err := sink.Begin(ctx)
	if err != nil {
		t.Fatalf("begin: %v", err)
	}
	if err := tx.Wipe(ctx); err != nil {
		t.Fatalf("wipe: %v", err)
	}
	stats, err := NewBuilder(nil).Build(ctx, seq(entities...), tx, g)
	if err != nil {
		tx.Rollback(ctx)
		t.Fatalf("build: %v", err)
	}
	if err := tx.Commit(ctx); err != nil {
		t.Fatalf("commit: %v", err)
	}
	return stats
}

func TestBuildWritesBothTargets(t *testing.T) {
	sink := store.NewMemory()
	g := rdf.NewGraph()
	storey := model.Entity{GlobalID: "s1", Type: "IfcBuildingStorey", Name: "Level 1"}

	stats := build(t, sink, g, wallWithMixedRefs(), storey)

	if stats.Entities != 2 || stats.Nodes != 2 || stats.Edges != 2 {
		t.Errorf("unexpected stats %+v", stats)
	}

	nodes, _ := sink.Nodes(context.Background())
	ids := make(map[string]bool)
	for _, n := range nodes {
		ids[n.GlobalID] = true
	}
	// m1 exists only as a stub endpoint.
	if len(nodes) != 3 || !ids["m1"] {
		t.Errorf("expected w1, s1 and stub m1, got %+v", nodes)
	}

	// Every typed RDF subject has a property-graph node.
	for _, s := range g.SubjectsOf(rdf.TypePredicate) {
		gid, ok := ontology.GlobalIDFromIRI(s.(quad.IRI))
		if !ok || !ids[gid] {
			t.Errorf("RDF subject %v has no node", s)
		}
	}
}

func TestBuildSkipsDuplicateGlobalID(t *testing.T) {
	sink := store.NewMemory()
	g := rdf.NewGraph()
	first := model.Entity{GlobalID: "d1", Type: "IfcDoor", Name: "First"}
	second := model.Entity{GlobalID: "d1", Type: "IfcDoor", Name: "Second"}

	stats := build(t, sink, g, first, second)

	if stats.Entities != 1 || stats.Duplicates != 1 {
		t.Errorf("unexpected stats %+v", stats)
	}
	nodes, _ := sink.Nodes(context.Background())
	if len(nodes) != 1 || nodes[0].Properties[PropName] != "First" {
		t.Errorf("first occurrence should win, got %+v", nodes)
	}
	if g.Has(ontology.EntityIRI("d1"), ontology.NamePredicate, quad.String("Second")) {
		t.Error("duplicate entity must not reach the RDF graph")
	}
}

func TestBuildIsIdempotent(t *testing.T) {
	sink := store.NewMemory()
	entities := []model.Entity{wallWithMixedRefs(), {GlobalID: "s1", Type: "IfcBuildingStorey"}}

	g1 := rdf.NewGraph()
	build(t, sink, g1, entities...)
	nodes1, _ := sink.Nodes(context.Background())
	edges1, _ := sink.Edges(context.Background())

	g2 := rdf.NewGraph()
	build(t, sink, g2, entities...)
	nodes2, _ := sink.Nodes(context.Background())
	edges2, _ := sink.Edges(context.Background())

	if len(nodes1) != len(nodes2) || len(edges1) != len(edges2) {
		t.Fatalf("rebuild changed the graph: %d/%d nodes, %d/%d edges",
			len(nodes1), len(nodes2), len(edges1), len(edges2))
	}
	if g1.Len() != g2.Len() {
		t.Errorf("rebuild changed the RDF graph: %d vs %d triples", g1.Len(), g2.Len())
	}
}

func TestBuildNilTargets(t *testing.T) {
	stats, err := NewBuilder(nil).Build(context.Background(), seq(wallWithMixedRefs()), nil, nil)
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if stats.Entities != 1 || stats.Nodes != 0 || stats.Triples != 0 {
		t.Errorf("unexpected stats %+v", stats)
	}
}

func TestBuildProgressAndCancellation(t *testing.T) {
	var calls int
	b := NewBuilder(func(model.Entity, int, int) { calls++ })
	ctx, cancel := context.WithCancel(context.Background())

	entities := func(yield func(model.Entity) bool) {
		if !yield(model.Entity{GlobalID: "a", Type: "IfcWall"}) {
			return
		}
		cancel()
		yield(model.Entity{GlobalID: "b", Type: "IfcWall"})
	}
	stats, err := b.Build(ctx, entities, nil, rdf.NewGraph())
	if err == nil {
		t.Fatal("expected cancellation error")
	}
	if calls != 1 || stats.Entities != 1 {
		t.Errorf("expected one entity before cancellation, got calls=%d stats=%+v", calls, stats)
	}
}

func TestAddOntology(t *testing.T) {
	g := rdf.NewGraph()
	if n := AddOntology(g); n == 0 {
		t.Fatal("expected axioms to be added")
	}
	g.AddAll(ToTriples(model.Entity{GlobalID: "w", Type: "IfcWallStandardCase"}))
	if !g.IsInstanceOf(ontology.EntityIRI("w"), ontology.ClassIRI("IfcWall")) {
		t.Error("subclass instance should be an IfcWall after adding the ontology")
	}
}
