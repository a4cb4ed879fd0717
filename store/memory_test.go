package store

import (
	"context"
	"testing"
)

// exerciseSink runs the write contract shared by every backend.
func exerciseSink(t *testing.T, s interface {
	Sink
	Reader
}) {
	t.Helper()
	ctx := context.Background()

	tx, err := s.Begin(ctx)
	if err != nil {
		t.Fatalf("begin: %v", err)
	}
	if err := tx.Wipe(ctx); err != nil {
		t.Fatalf("wipe: %v", err)
	}
	for _, id := range []string{"w1", "d1"} {
		if err := tx.CreateNode(ctx, "IfcProduct", Properties{"global_id": id, "name": "N-" + id}); err != nil {
			t.Fatalf("create node %s: %v", id, err)
		}
	}
	// Repeated edges collapse; the target p1 becomes a stub.
	for i := 0; i < 2; i++ {
		if err := tx.CreateEdge(ctx, "d1", "FillsVoids", "w1"); err != nil {
			t.Fatalf("create edge: %v", err)
		}
	}
	if err := tx.CreateEdge(ctx, "w1", "Decomposes", "p1"); err != nil {
		t.Fatalf("create edge to stub: %v", err)
	}
	if err := tx.CreateNode(ctx, "IfcProduct", Properties{"name": "no key"}); err != ErrNoKey {
		t.Fatalf("expected ErrNoKey, got %v", err)
	}
	if err := tx.Commit(ctx); err != nil {
		t.Fatalf("commit: %v", err)
	}

	nodes, err := s.Nodes(ctx)
	if err != nil {
		t.Fatalf("nodes: %v", err)
	}
	if len(nodes) != 3 {
		t.Fatalf("expected 3 nodes, got %+v", nodes)
	}
	byID := make(map[string]GraphNode)
	for _, n := range nodes {
		byID[n.GlobalID] = n
	}
	if byID["w1"].Stub || byID["w1"].Properties["name"] != "N-w1" {
		t.Errorf("unexpected w1 node %+v", byID["w1"])
	}
	if !byID["p1"].Stub || byID["p1"].Label != StubLabel {
		t.Errorf("p1 should be a stub with label %s, got %+v", StubLabel, byID["p1"])
	}

	edges, err := s.Edges(ctx)
	if err != nil {
		t.Fatalf("edges: %v", err)
	}
	want := []GraphEdge{
		{From: "d1", Type: "FillsVoids", To: "w1"},
		{From: "w1", Type: "Decomposes", To: "p1"},
	}
	if len(edges) != len(want) {
		t.Fatalf("expected %d edges, got %+v", len(want), edges)
	}
	for i := range want {
		if edges[i] != want[i] {
			t.Errorf("edge %d = %+v, want %+v", i, edges[i], want[i])
		}
	}

	// A rolled-back rebuild leaves the committed graph untouched.
	tx, err = s.Begin(ctx)
	if err != nil {
		t.Fatalf("begin second: %v", err)
	}
	if err := tx.Wipe(ctx); err != nil {
		t.Fatalf("wipe second: %v", err)
	}
	if err := tx.CreateNode(ctx, "IfcProduct", Properties{"global_id": "x"}); err != nil {
		t.Fatalf("create in second: %v", err)
	}
	if err := tx.Rollback(ctx); err != nil {
		t.Fatalf("rollback: %v", err)
	}
	nodes, _ = s.Nodes(ctx)
	if len(nodes) != 3 {
		t.Fatalf("rollback should keep 3 nodes, got %d", len(nodes))
	}

	// Promoting a stub to a full node keeps its edges.
	tx, _ = s.Begin(ctx)
	if err := tx.CreateNode(ctx, "IfcProduct", Properties{"global_id": "p1", "name": "Project"}); err != nil {
		t.Fatalf("promote stub: %v", err)
	}
	if err := tx.Commit(ctx); err != nil {
		t.Fatalf("commit promote: %v", err)
	}
	nodes, _ = s.Nodes(ctx)
	for _, n := range nodes {
		if n.GlobalID == "p1" && n.Stub {
			t.Error("p1 should no longer be a stub")
		}
	}
	edges, _ = s.Edges(ctx)
	if len(edges) != 2 {
		t.Errorf("expected edges to survive promotion, got %+v", edges)
	}
}

func TestMemorySinkContract(t *testing.T) {
	exerciseSink(t, NewMemory())
}

func TestMemoryTxFinished(t *testing.T) {
	ctx := context.Background()
	s := NewMemory()
	tx, _ := s.Begin(ctx)
	if err := tx.Commit(ctx); err != nil {
		t.Fatal(err)
	}
	if err := tx.CreateNode(ctx, "IfcProduct", Properties{"global_id": "a"}); err != ErrTxDone {
		t.Fatalf("expected ErrTxDone, got %v", err)
	}
}

func TestMemoryHonorsCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	s := NewMemory()
	tx, _ := s.Begin(ctx)
	cancel()
	if err := tx.Wipe(ctx); err == nil {
		t.Fatal("expected context error")
	}
	if _, err := s.Begin(ctx); err == nil {
		t.Fatal("expected Begin to fail on cancelled context")
	}
}

func TestOpen(t *testing.T) {
	ctx := context.Background()
	s, err := Open(ctx, Config{Backend: "memory"})
	if err != nil {
		t.Fatalf("open memory: %v", err)
	}
	if s.Name() != BackendMemory {
		t.Errorf("unexpected backend %s", s.Name())
	}
	s.Close(ctx)

	if _, err := Open(ctx, Config{Backend: "oracle"}); err == nil {
		t.Fatal("expected error for unknown backend")
	}
	if _, err := Open(ctx, Config{Backend: "neo4j"}); err == nil {
		t.Fatal("expected error for neo4j without uri")
	}
}

func TestQuoteIdentifier(t *testing.T) {
	tests := map[string]string{
		"ContainedInStructure": "`ContainedInStructure`",
		"has space":            "`has space`",
		"odd`name":             "`odd``name`",
	}
	for in, want := range tests {
		if got := quoteIdentifier(in); got != want {
			t.Errorf("quoteIdentifier(%q) = %s, want %s", in, got, want)
		}
	}
}
