package ontology

import (
	"testing"

	"github.com/cayleygraph/quad"
)

func TestEntityIRIRoundTrip(t *testing.T) {
	ids := []string{
		"2O2Fr$t4X7Zf8NOew3FLOH",
		"0k5vQ_Xn1Em8Tq9rwQ4z7Y",
		"a/b",
		"a%2Fb",
		"with space",
	}
	seen := make(map[quad.IRI]string)
	for _, id := range ids {
		iri := EntityIRI(id)
		if prev, dup := seen[iri]; dup {
			t.Fatalf("EntityIRI collision: %q and %q both map to %s", prev, id, iri)
		}
		seen[iri] = id

		back, ok := GlobalIDFromIRI(iri)
		if !ok || back != id {
			t.Errorf("GlobalIDFromIRI(%s) = %q, %v; want %q", iri, back, ok, id)
		}
	}
}

func TestGlobalIDFromIRIRejectsForeign(t *testing.T) {
	if _, ok := GlobalIDFromIRI("http://other.org/x"); ok {
		t.Error("foreign namespace should not resolve")
	}
	if _, ok := GlobalIDFromIRI(quad.IRI(Namespace)); ok {
		t.Error("bare namespace should not resolve")
	}
}

func TestReservedRoles(t *testing.T) {
	for _, r := range []string{RoleGlobalID, RoleOwnerHistory, RoleName, RoleType} {
		if !IsReservedRole(r) {
			t.Errorf("%s should be reserved", r)
		}
	}
	for _, r := range []string{RoleContainedInStructure, RoleFillsVoids, "ObjectPlacement"} {
		if IsReservedRole(r) {
			t.Errorf("%s should not be reserved", r)
		}
	}
}

func TestIsProduct(t *testing.T) {
	tests := []struct {
		class string
		want  bool
	}{
		{"IfcWall", true},
		{"IfcWallStandardCase", true},
		{"IFCWALLSTANDARDCASE", true},
		{"IfcBuildingStorey", true},
		{"IfcOpeningElement", true},
		{"IfcProject", false},
		{"IfcRelAggregates", false},
		{"IfcOwnerHistory", false},
		{"", false},
	}
	for _, tt := range tests {
		t.Run(tt.class, func(t *testing.T) {
			if got := IsProduct(tt.class); got != tt.want {
				t.Errorf("IsProduct(%q) = %v, want %v", tt.class, got, tt.want)
			}
		})
	}
}

func TestHierarchy(t *testing.T) {
	h := Default()
	if !h.IsSubclassOf(ClassBuilding, ClassSpatialStructureElement) {
		t.Error("IfcBuilding should be a spatial structure element")
	}
	if h.IsSubclassOf(ClassWall, ClassSpatialStructureElement) {
		t.Error("IfcWall should not be a spatial structure element")
	}
	if got := h.Canonical("IFCDOOR"); got != ClassDoor {
		t.Errorf("Canonical(IFCDOOR) = %q", got)
	}
	if got := h.Canonical("IfcUnknownThing"); got != "IfcUnknownThing" {
		t.Errorf("unknown class should be unchanged, got %q", got)
	}
	chain := h.Ancestors("IfcWallStandardCase")
	if chain[0] != "IfcWallStandardCase" || chain[len(chain)-1] != ClassRoot {
		t.Errorf("unexpected ancestor chain %v", chain)
	}
}

func TestAxiomsCoverHierarchy(t *testing.T) {
	h := NewHierarchy(map[string]string{"B": "A", "C": "B"})
	axioms := h.Axioms()
	if len(axioms) != 2 {
		t.Fatalf("expected 2 axioms, got %d", len(axioms))
	}
	if axioms[0].Subject != ClassIRI("B") || axioms[0].Object != ClassIRI("A") {
		t.Errorf("unexpected first axiom %v", axioms[0])
	}
	if len(h.Classes()) != 3 {
		t.Errorf("expected 3 classes, got %v", h.Classes())
	}
}
