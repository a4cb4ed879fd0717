package graph

import (
	"context"
	"testing"

	"github.com/brunobiangulo/ifccheck/model"
	"github.com/brunobiangulo/ifccheck/store"
)

// chain: d1 -FillsVoids-> w1 -ContainedInStructure-> s1 -Decomposes-> b1
func seedChain(t *testing.T) *Index {
	t.Helper()
	sink := store.NewMemory()
	ref := func(id, typ string) model.Value { return model.RefValue(model.Ref{GlobalID: id, Type: typ}) }
	build(t, sink, nil,
		model.Entity{GlobalID: "d1", Type: "IfcDoor", Attributes: []model.Attribute{{Role: "FillsVoids", Value: ref("w1", "IfcWall")}}},
		model.Entity{GlobalID: "w1", Type: "IfcWall", Attributes: []model.Attribute{{Role: "ContainedInStructure", Value: ref("s1", "IfcBuildingStorey")}}},
		model.Entity{GlobalID: "s1", Type: "IfcBuildingStorey", Attributes: []model.Attribute{{Role: "Decomposes", Value: ref("b1", "IfcBuilding")}}},
		model.Entity{GlobalID: "b1", Type: "IfcBuilding"},
	)
	idx, err := LoadIndex(context.Background(), sink)
	if err != nil {
		t.Fatalf("load index: %v", err)
	}
	return idx
}

func TestTraverse(t *testing.T) {
	idx := seedChain(t)

	tests := []struct {
		name      string
		seeds     []string
		depth     int
		wantNodes int
		wantEdges int
	}{
		{"depth zero keeps only seeds", []string{"w1"}, 0, 1, 0},
		{"one hop both directions", []string{"w1"}, 1, 3, 2},
		{"whole chain", []string{"d1"}, 3, 4, 3},
		{"unknown seed", []string{"nope"}, 2, 0, 0},
		{"no seeds", nil, 2, 0, 0},
		{"negative depth", []string{"w1"}, -1, 0, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := idx.Traverse(tt.seeds, tt.depth)
			if len(res.Nodes) != tt.wantNodes || len(res.Edges) != tt.wantEdges {
				t.Errorf("got %d nodes, %d edges; want %d, %d",
					len(res.Nodes), len(res.Edges), tt.wantNodes, tt.wantEdges)
			}
		})
	}
}

func TestTraverseSorted(t *testing.T) {
	res := seedChain(t).Traverse([]string{"s1"}, 1)
	for i := 1; i < len(res.Nodes); i++ {
		if res.Nodes[i-1].GlobalID > res.Nodes[i].GlobalID {
			t.Fatalf("nodes not sorted: %+v", res.Nodes)
		}
	}
}

func TestIndexNode(t *testing.T) {
	idx := seedChain(t)
	if n, ok := idx.Node("w1"); !ok || n.GlobalID != "w1" {
		t.Errorf("expected node w1, got %+v %v", n, ok)
	}
	if _, ok := idx.Node("missing"); ok {
		t.Error("unexpected node for unknown id")
	}
}
