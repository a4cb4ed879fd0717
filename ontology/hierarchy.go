package ontology

import (
	"sort"
	"strings"
	"sync"

	"github.com/cayleygraph/quad"
	"github.com/cayleygraph/quad/voc/rdfs"
)

// parents maps each known IFC4 class to its direct supertype. Only the
// branches reachable from building models we validate are listed; unknown
// classes are treated as isolated roots.
var parents = map[string]string{
	"IfcObjectDefinition":   ClassRoot,
	"IfcRelationship":       ClassRoot,
	"IfcPropertyDefinition": ClassRoot,

	"IfcObject":     "IfcObjectDefinition",
	"IfcContext":    "IfcObjectDefinition",
	"IfcTypeObject": "IfcObjectDefinition",
	"IfcProject":    "IfcContext",

	ClassProduct: "IfcObject",
	"IfcGroup":   "IfcObject",
	"IfcActor":   "IfcObject",
	"IfcProcess": "IfcObject",
	"IfcZone":    "IfcGroup",
	"IfcSystem":  "IfcGroup",

	"IfcElement":        ClassProduct,
	ClassSpatialElement: ClassProduct,
	"IfcAnnotation":     ClassProduct,
	"IfcGrid":           ClassProduct,
	"IfcPort":           ClassProduct,
	"IfcProxy":          ClassProduct,

	ClassSpatialStructureElement: ClassSpatialElement,
	"IfcSpatialZone":             ClassSpatialElement,
	"IfcExternalSpatialElement":  ClassSpatialElement,
	"IfcSite":                    ClassSpatialStructureElement,
	ClassBuilding:                ClassSpatialStructureElement,
	ClassBuildingStorey:          ClassSpatialStructureElement,
	ClassSpace:                   ClassSpatialStructureElement,

	"IfcBuildingElement":     "IfcElement",
	"IfcFeatureElement":      "IfcElement",
	"IfcFurnishingElement":   "IfcElement",
	"IfcDistributionElement": "IfcElement",
	"IfcElementAssembly":     "IfcElement",
	"IfcTransportElement":    "IfcElement",
	"IfcVirtualElement":      "IfcElement",

	ClassWall:                 "IfcBuildingElement",
	"IfcWallStandardCase":     ClassWall,
	"IfcWallElementedCase":    ClassWall,
	ClassDoor:                 "IfcBuildingElement",
	"IfcDoorStandardCase":     ClassDoor,
	"IfcWindow":               "IfcBuildingElement",
	"IfcWindowStandardCase":   "IfcWindow",
	ClassSlab:                 "IfcBuildingElement",
	"IfcSlabStandardCase":     ClassSlab,
	"IfcSlabElementedCase":    ClassSlab,
	"IfcBeam":                 "IfcBuildingElement",
	"IfcColumn":               "IfcBuildingElement",
	"IfcMember":               "IfcBuildingElement",
	"IfcPlate":                "IfcBuildingElement",
	"IfcRoof":                 "IfcBuildingElement",
	"IfcStair":                "IfcBuildingElement",
	"IfcStairFlight":          "IfcBuildingElement",
	"IfcRamp":                 "IfcBuildingElement",
	"IfcRampFlight":           "IfcBuildingElement",
	"IfcRailing":              "IfcBuildingElement",
	"IfcCovering":             "IfcBuildingElement",
	"IfcCurtainWall":          "IfcBuildingElement",
	"IfcFooting":              "IfcBuildingElement",
	"IfcPile":                 "IfcBuildingElement",
	"IfcChimney":              "IfcBuildingElement",
	"IfcShadingDevice":        "IfcBuildingElement",
	"IfcBuildingElementProxy": "IfcBuildingElement",

	"IfcFeatureElementSubtraction": "IfcFeatureElement",
	"IfcFeatureElementAddition":    "IfcFeatureElement",
	ClassOpeningElement:            "IfcFeatureElementSubtraction",
	"IfcOpeningStandardCase":       ClassOpeningElement,
	"IfcVoidingFeature":            "IfcFeatureElementSubtraction",
	"IfcFurniture":                 "IfcFurnishingElement",

	"IfcDistributionFlowElement":    "IfcDistributionElement",
	"IfcDistributionControlElement": "IfcDistributionElement",
	"IfcFlowTerminal":               "IfcDistributionFlowElement",
	"IfcFlowSegment":                "IfcDistributionFlowElement",
	"IfcFlowFitting":                "IfcDistributionFlowElement",
	"IfcFlowController":             "IfcDistributionFlowElement",
	"IfcFlowMovingDevice":           "IfcDistributionFlowElement",
	"IfcFlowStorageDevice":          "IfcDistributionFlowElement",
	"IfcFlowTreatmentDevice":        "IfcDistributionFlowElement",
	"IfcEnergyConversionDevice":     "IfcDistributionFlowElement",

	"IfcRelConnects":             "IfcRelationship",
	"IfcRelDecomposes":           "IfcRelationship",
	"IfcRelDefines":              "IfcRelationship",
	"IfcRelAssociates":           "IfcRelationship",
	"IfcRelAssigns":              "IfcRelationship",
	ClassRelContainedInSpatial:   "IfcRelConnects",
	ClassRelFillsElement:         "IfcRelConnects",
	ClassRelVoidsElement:         "IfcRelDecomposes",
	ClassRelSpaceBoundary:        "IfcRelConnects",
	"IfcRelConnectsElements":     "IfcRelConnects",
	"IfcRelConnectsPathElements": "IfcRelConnectsElements",
	ClassRelAggregates:           "IfcRelDecomposes",
	"IfcRelNests":                "IfcRelDecomposes",
	"IfcRelDefinesByProperties":  "IfcRelDefines",
	"IfcRelDefinesByType":        "IfcRelDefines",
	"IfcRelAssociatesMaterial":   "IfcRelAssociates",

	"IfcPropertySetDefinition": "IfcPropertyDefinition",
	"IfcPropertySet":           "IfcPropertySetDefinition",
	"IfcElementQuantity":       "IfcPropertySetDefinition",
}

// Hierarchy answers subtype questions over the IFC class tree.
type Hierarchy struct {
	parent map[string]string
	upper  map[string]string // STEP spelling -> canonical name
}

var (
	defaultOnce      sync.Once
	defaultHierarchy *Hierarchy
)

// Default returns the built-in IFC hierarchy.
func Default() *Hierarchy {
	defaultOnce.Do(func() {
		defaultHierarchy = NewHierarchy(parents)
	})
	return defaultHierarchy
}

// NewHierarchy builds a hierarchy from a child -> parent table.
func NewHierarchy(table map[string]string) *Hierarchy {
	h := &Hierarchy{
		parent: make(map[string]string, len(table)),
		upper:  make(map[string]string, len(table)+1),
	}
	for child, parent := range table {
		h.parent[child] = parent
		h.upper[strings.ToUpper(child)] = child
		h.upper[strings.ToUpper(parent)] = parent
	}
	return h
}

// Known reports whether class appears in the hierarchy.
func (h *Hierarchy) Known(class string) bool {
	_, ok := h.upper[strings.ToUpper(class)]
	return ok
}

// Canonical maps any spelling of a known class (STEP files use upper case)
// to its canonical name. Unknown names are returned unchanged.
func (h *Hierarchy) Canonical(class string) string {
	if c, ok := h.upper[strings.ToUpper(class)]; ok {
		return c
	}
	return class
}

// Parent returns the direct supertype of class.
func (h *Hierarchy) Parent(class string) (string, bool) {
	p, ok := h.parent[h.Canonical(class)]
	return p, ok
}

// Ancestors returns class followed by its supertypes up to the root.
func (h *Hierarchy) Ancestors(class string) []string {
	c := h.Canonical(class)
	chain := []string{c}
	seen := map[string]bool{c: true}
	for {
		p, ok := h.parent[c]
		if !ok || seen[p] {
			return chain
		}
		chain = append(chain, p)
		seen[p] = true
		c = p
	}
}

// IsSubclassOf reports whether class equals ancestor or inherits from it.
func (h *Hierarchy) IsSubclassOf(class, ancestor string) bool {
	if class == "" || ancestor == "" {
		return false
	}
	want := h.Canonical(ancestor)
	for _, c := range h.Ancestors(class) {
		if c == want {
			return true
		}
	}
	return false
}

// Classes returns every known class name, sorted.
func (h *Hierarchy) Classes() []string {
	out := make([]string, 0, len(h.upper))
	for _, c := range h.upper {
		out = append(out, c)
	}
	sort.Strings(out)
	return out
}

// Axioms returns one rdfs:subClassOf triple per known class, sorted by
// subject, so the triple graph carries its own inference basis.
func (h *Hierarchy) Axioms() []quad.Quad {
	children := make([]string, 0, len(h.parent))
	for c := range h.parent {
		children = append(children, c)
	}
	sort.Strings(children)

	subClassOf := quad.IRI(rdfs.SubClassOf).Full()
	out := make([]quad.Quad, 0, len(children))
	for _, c := range children {
		out = append(out, quad.Quad{
			Subject:   ClassIRI(c),
			Predicate: subClassOf,
			Object:    ClassIRI(h.parent[c]),
		})
	}
	return out
}

// IsProduct reports whether class belongs to the IfcProduct family, the
// trackable physical and spatial elements.
func IsProduct(class string) bool {
	return Default().IsSubclassOf(class, ClassProduct)
}
