package graph

import (
	"github.com/cayleygraph/quad"

	"github.com/brunobiangulo/ifccheck/model"
	"github.com/brunobiangulo/ifccheck/ontology"
	"github.com/brunobiangulo/ifccheck/rdf"
	"github.com/brunobiangulo/ifccheck/store"
)

// NodeLabel is the label of every property-graph node. Nodes are not
// labelled by their IFC class.
const NodeLabel = ontology.ClassProduct

// PropName is the node property holding the element name.
const PropName = "name"

// Node is the property-graph view of one entity.
type Node struct {
	Label    string
	GlobalID string
	Name     string
}

// Properties returns the stored properties {global_id, name}. An absent
// name is stored as the empty string.
func (n Node) Properties() store.Properties {
	return store.Properties{store.KeyProperty: n.GlobalID, PropName: n.Name}
}

// Edge is a directed, role-typed link between two nodes.
type Edge struct {
	From string
	Type string
	To   string
}

// ToPropertyGraph maps an entity to its node and outgoing edges. Every
// reference under a non-reserved role whose target has a GlobalId becomes
// an edge, whatever the target's type. Repeated (role, target) pairs yield
// one edge.
func ToPropertyGraph(e model.Entity) (Node, []Edge) {
	node := Node{Label: NodeLabel, GlobalID: e.GlobalID, Name: e.Name}
	var edges []Edge
	seen := make(map[Edge]bool)
	for _, a := range e.Attributes {
		if ontology.IsReservedRole(a.Role) {
			continue
		}
		for _, r := range a.Value.Refs() {
			if !isEdgeTarget(r) {
				continue
			}
			edge := Edge{From: e.GlobalID, Type: a.Role, To: r.GlobalID}
			if !seen[edge] {
				seen[edge] = true
				edges = append(edges, edge)
			}
		}
	}
	return node, edges
}

// ToTriples maps an entity to its RDF statements: its type, its name when
// present, and one relation triple per reference whose target has a
// GlobalId and is an IfcProduct.
func ToTriples(e model.Entity) []quad.Quad {
	s := ontology.EntityIRI(e.GlobalID)
	out := []quad.Quad{{Subject: s, Predicate: rdf.TypePredicate, Object: ontology.ClassIRI(e.Type)}}
	if e.Name != "" {
		out = append(out, quad.Quad{Subject: s, Predicate: ontology.NamePredicate, Object: quad.String(e.Name)})
	}
	for _, a := range e.Attributes {
		if ontology.IsReservedRole(a.Role) {
			continue
		}
		p := ontology.PredicateIRI(a.Role)
		for _, r := range a.Value.Refs() {
			if !isTripleTarget(r) {
				continue
			}
			out = append(out, quad.Quad{Subject: s, Predicate: p, Object: ontology.EntityIRI(r.GlobalID)})
		}
	}
	return out
}

// isEdgeTarget is the property-graph relation filter.
func isEdgeTarget(r model.Ref) bool {
	return r.GlobalID != ""
}

// isTripleTarget is the RDF relation filter. It is stricter than
// isEdgeTarget; the two must stay separate.
func isTripleTarget(r model.Ref) bool {
	return r.GlobalID != "" && ontology.IsProduct(r.Type)
}
