// Package ontology holds the IFC vocabulary used by both graph projections:
// namespaces, the product class hierarchy and the identifier-to-IRI mapping.
package ontology

import (
	"net/url"
	"strings"

	"github.com/cayleygraph/quad"
)

const (
	// Namespace is the base IRI for IFC classes and element subjects.
	Namespace = "http://example.org/ifc/"

	// PropNamespace is the base IRI for relation predicates derived from
	// attribute role names.
	PropNamespace = "http://example.org/ifc/property#"
)

// Class names referenced by the projector and the shape set.
const (
	ClassRoot                    = "IfcRoot"
	ClassProduct                 = "IfcProduct"
	ClassWall                    = "IfcWall"
	ClassDoor                    = "IfcDoor"
	ClassSlab                    = "IfcSlab"
	ClassSpace                   = "IfcSpace"
	ClassBuilding                = "IfcBuilding"
	ClassBuildingStorey          = "IfcBuildingStorey"
	ClassSpatialElement          = "IfcSpatialElement"
	ClassSpatialStructureElement = "IfcSpatialStructureElement"
	ClassOpeningElement          = "IfcOpeningElement"
	ClassRelContainedInSpatial   = "IfcRelContainedInSpatialStructure"
	ClassRelAggregates           = "IfcRelAggregates"
	ClassRelFillsElement         = "IfcRelFillsElement"
	ClassRelVoidsElement         = "IfcRelVoidsElement"
	ClassRelSpaceBoundary        = "IfcRelSpaceBoundary"
)

// Attribute roles. The first four are the reserved roles that are never
// projected as relations.
const (
	RoleGlobalID     = "GlobalId"
	RoleOwnerHistory = "OwnerHistory"
	RoleName         = "Name"
	RoleType         = "type"

	RoleContainedInStructure = "ContainedInStructure"
	RoleFillsVoids           = "FillsVoids"
	RoleRelatingSpace        = "RelatingSpace"
	RoleDecomposes           = "Decomposes"
	RoleIsDecomposedBy       = "IsDecomposedBy"
	RoleHasOpenings          = "HasOpenings"
)

var reservedRoles = map[string]bool{
	RoleGlobalID:     true,
	RoleOwnerHistory: true,
	RoleName:         true,
	RoleType:         true,
}

// IsReservedRole reports whether role is an identity, audit, name or type
// discriminator role.
func IsReservedRole(role string) bool {
	return reservedRoles[role]
}

// NamePredicate is the predicate carrying an element's name literal.
var NamePredicate = quad.IRI(Namespace + "name")

// EntityIRI returns the subject IRI for a global identifier. Path-segment
// escaping is reversible, so distinct identifiers never share an IRI.
func EntityIRI(globalID string) quad.IRI {
	return quad.IRI(Namespace + url.PathEscape(globalID))
}

// GlobalIDFromIRI reverses EntityIRI. It returns false for IRIs outside the
// element namespace.
func GlobalIDFromIRI(iri quad.IRI) (string, bool) {
	s := string(iri)
	if !strings.HasPrefix(s, Namespace) {
		return "", false
	}
	id, err := url.PathUnescape(strings.TrimPrefix(s, Namespace))
	if err != nil || id == "" {
		return "", false
	}
	return id, true
}

// ClassIRI returns the IRI of an IFC class.
func ClassIRI(class string) quad.IRI {
	return quad.IRI(Namespace + class)
}

// PredicateIRI returns the relation predicate for an attribute role.
func PredicateIRI(role string) quad.IRI {
	return quad.IRI(PropNamespace + role)
}

// Prefixes returns the namespace prefixes written into serialized graphs.
func Prefixes() map[string]string {
	return map[string]string{
		"ifc":  Namespace,
		"prop": PropNamespace,
		"rdf":  "http://www.w3.org/1999/02/22-rdf-syntax-ns#",
		"rdfs": "http://www.w3.org/2000/01/rdf-schema#",
		"xsd":  "http://www.w3.org/2001/XMLSchema#",
	}
}
