package store

import (
	"strings"
	"testing"
)

func TestNeo4jMergesUseKeyLabel(t *testing.T) {
	keyed := "MERGE (n:`IfcProduct` {global_id: $gid})"

	tests := []struct {
		name    string
		cypher  string
		want    []string
		notWant []string
	}{
		{
			name:    "product node",
			cypher:  mergeNodeCypher("IfcProduct"),
			want:    []string{keyed, "SET n += $props"},
			notWant: []string{"SET n:"},
		},
		{
			name:   "extra label",
			cypher: mergeNodeCypher("IfcWall"),
			want:   []string{keyed, "SET n:`IfcWall`"},
		},
		{
			name:   "edge endpoints",
			cypher: mergeEdgeCypher("ContainedInStructure"),
			want: []string{
				"MERGE (a:`IfcProduct` {global_id: $from})",
				"MERGE (b:`IfcProduct` {global_id: $to})",
				"MERGE (a)-[:`ContainedInStructure`]->(b)",
			},
		},
		{
			name:   "key constraint",
			cypher: keyConstraintCypher(),
			want:   []string{"IF NOT EXISTS", "FOR (n:`IfcProduct`)", "REQUIRE n.global_id IS UNIQUE"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for _, w := range tt.want {
				if !strings.Contains(tt.cypher, w) {
					t.Errorf("cypher missing %q:\n%s", w, tt.cypher)
				}
			}
			for _, w := range tt.notWant {
				if strings.Contains(tt.cypher, w) {
					t.Errorf("cypher should not contain %q:\n%s", w, tt.cypher)
				}
			}
			if strings.Contains(tt.cypher, "MERGE (n {") || strings.Contains(tt.cypher, "MERGE (a {") {
				t.Errorf("unlabeled merge:\n%s", tt.cypher)
			}
		})
	}
}

func TestNodeLabelPrefersSpecificLabel(t *testing.T) {
	tests := []struct {
		labels []any
		want   string
	}{
		{[]any{"IfcProduct"}, "IfcProduct"},
		{[]any{"IfcProduct", "IfcWall"}, "IfcWall"},
		{[]any{"IfcWall", "IfcProduct"}, "IfcWall"},
		{nil, StubLabel},
	}
	for _, tt := range tests {
		if got := nodeLabel(tt.labels); got != tt.want {
			t.Errorf("nodeLabel(%v) = %q, want %q", tt.labels, got, tt.want)
		}
	}
}
