package model

import (
	"fmt"
	"slices"

	"github.com/brunobiangulo/ifccheck/ontology"
)

// ownAttributes lists the explicit attributes each class declares on top of
// its supertype, in IFC4 order. Classes missing here add nothing; positions
// past the known list are named Arg<n>.
var ownAttributes = map[string][]string{
	ontology.ClassRoot: {ontology.RoleGlobalID, ontology.RoleOwnerHistory, ontology.RoleName, "Description"},
	"IfcObject":        {"ObjectType"},
	"IfcContext":       {"ObjectType", "LongName", "Phase", "RepresentationContexts", "UnitsInContext"},
	"IfcTypeObject":    {"ApplicableOccurrence", "HasPropertySets"},

	ontology.ClassProduct:                 {"ObjectPlacement", "Representation"},
	"IfcElement":                          {"Tag"},
	ontology.ClassSpatialElement:          {"LongName"},
	ontology.ClassSpatialStructureElement: {"CompositionType"},
	"IfcSite":                             {"RefLatitude", "RefLongitude", "RefElevation", "LandTitleNumber", "SiteAddress"},
	ontology.ClassBuilding:                {"ElevationOfRefHeight", "ElevationOfTerrain", "BuildingAddress"},
	ontology.ClassBuildingStorey:          {"Elevation"},
	ontology.ClassSpace:                   {"PredefinedType", "ElevationWithFlooring"},

	ontology.ClassWall:           {"PredefinedType"},
	ontology.ClassSlab:           {"PredefinedType"},
	ontology.ClassDoor:           {"OverallHeight", "OverallWidth", "PredefinedType", "OperationType", "UserDefinedOperationType"},
	"IfcWindow":                  {"OverallHeight", "OverallWidth", "PredefinedType", "PartitioningType", "UserDefinedPartitioningType"},
	"IfcBeam":                    {"PredefinedType"},
	"IfcColumn":                  {"PredefinedType"},
	"IfcMember":                  {"PredefinedType"},
	"IfcPlate":                   {"PredefinedType"},
	"IfcRoof":                    {"PredefinedType"},
	"IfcStair":                   {"PredefinedType"},
	"IfcRailing":                 {"PredefinedType"},
	"IfcCovering":                {"PredefinedType"},
	"IfcBuildingElementProxy":    {"PredefinedType"},
	ontology.ClassOpeningElement: {"PredefinedType"},

	ontology.ClassRelContainedInSpatial: {"RelatedElements", "RelatingStructure"},
	ontology.ClassRelAggregates:         {"RelatingObject", "RelatedObjects"},
	ontology.ClassRelFillsElement:       {"RelatingOpeningElement", "RelatedBuildingElement"},
	ontology.ClassRelVoidsElement:       {"RelatingBuildingElement", "RelatedOpeningElement"},
	ontology.ClassRelSpaceBoundary:      {"RelatingSpace", "RelatedBuildingElement", "ConnectionGeometry", "PhysicalOrVirtualBoundary", "InternalOrExternalBoundary"},
	"IfcRelNests":                       {"RelatingObject", "RelatedObjects"},
	"IfcRelDefinesByProperties":         {"RelatedObjects", "RelatingPropertyDefinition"},
	"IfcRelDefinesByType":               {"RelatedObjects", "RelatingType"},
	"IfcRelAssociatesMaterial":          {"RelatedObjects", "RelatingMaterial"},
	"IfcRelConnectsElements":            {"ConnectionGeometry", "RelatingElement", "RelatedElement"},
}

// AttributeNames returns the positional attribute names of class,
// inherited ones first. Unknown classes return nil.
func AttributeNames(class string) []string {
	h := ontology.Default()
	if !h.Known(class) {
		return nil
	}
	chain := h.Ancestors(class)
	slices.Reverse(chain)
	var names []string
	for _, c := range chain {
		names = append(names, ownAttributes[c]...)
	}
	return names
}

// roleAt names the i-th positional argument of a record.
func roleAt(names []string, i int) string {
	if i < len(names) {
		return names[i]
	}
	return fmt.Sprintf("Arg%d", i)
}
