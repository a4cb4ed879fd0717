package model

import "github.com/brunobiangulo/ifccheck/ontology"

// DeriveInverses turns objectified relationships into direct roles on the
// elements they relate, so shape paths can follow them:
//
//	IfcRelContainedInSpatialStructure  ContainedInStructure -> structure
//	IfcRelAggregates                   Decomposes -> whole, IsDecomposedBy -> parts
//	IfcRelVoidsElement                 HasOpenings -> opening
//	IfcRelFillsElement                 FillsVoids -> host of the filled opening
//	IfcRelSpaceBoundary                RelatingSpace -> space
//
// Elements are matched by GlobalID; references without one are skipped.
// Derived roles are reference lists appended in relationship order.
func DeriveInverses(elems []*Element) {
	h := ontology.Default()
	byID := make(map[string]*Element, len(elems))
	for _, e := range elems {
		if e.GlobalID == "" {
			continue
		}
		if _, dup := byID[e.GlobalID]; !dup {
			byID[e.GlobalID] = e
		}
	}

	type slot struct {
		e    *Element
		role string
	}
	derived := make(map[slot][]Ref)
	var order []slot
	add := func(target Ref, role string, ref Ref) {
		if target.GlobalID == "" || ref.GlobalID == "" {
			return
		}
		e, ok := byID[target.GlobalID]
		if !ok {
			return
		}
		k := slot{e, role}
		if _, seen := derived[k]; !seen {
			order = append(order, k)
		}
		derived[k] = append(derived[k], ref)
	}

	hosts := make(map[string]Ref) // opening GlobalID -> voided element
	var fills []*Element

	for _, rel := range elems {
		switch {
		case h.IsSubclassOf(rel.Type, ontology.ClassRelContainedInSpatial):
			structure := firstRef(rel, "RelatingStructure")
			for _, el := range refsOf(rel, "RelatedElements") {
				add(el, ontology.RoleContainedInStructure, structure)
			}
		case h.IsSubclassOf(rel.Type, ontology.ClassRelAggregates):
			whole := firstRef(rel, "RelatingObject")
			for _, part := range refsOf(rel, "RelatedObjects") {
				add(part, ontology.RoleDecomposes, whole)
				add(whole, ontology.RoleIsDecomposedBy, part)
			}
		case h.IsSubclassOf(rel.Type, ontology.ClassRelVoidsElement):
			host := firstRef(rel, "RelatingBuildingElement")
			opening := firstRef(rel, "RelatedOpeningElement")
			if opening.GlobalID != "" {
				hosts[opening.GlobalID] = host
			}
			add(host, ontology.RoleHasOpenings, opening)
		case h.IsSubclassOf(rel.Type, ontology.ClassRelFillsElement):
			fills = append(fills, rel)
		case h.IsSubclassOf(rel.Type, ontology.ClassRelSpaceBoundary):
			space := firstRef(rel, ontology.RoleRelatingSpace)
			el := firstRef(rel, "RelatedBuildingElement")
			add(el, ontology.RoleRelatingSpace, space)
		}
	}

	// Fills are resolved last so voids declared later in the file still
	// map an opening to its host.
	for _, rel := range fills {
		opening := firstRef(rel, "RelatingOpeningElement")
		filler := firstRef(rel, "RelatedBuildingElement")
		target := opening
		if host, ok := hosts[opening.GlobalID]; ok && host.GlobalID != "" {
			target = host
		}
		add(filler, ontology.RoleFillsVoids, target)
	}

	for _, k := range order {
		refs := derived[k]
		if existing, ok := k.e.Attr(k.role); ok {
			refs = append(existing.Refs(), refs...)
		}
		k.e.Set(k.role, RefList(refs...))
	}
}

func firstRef(e *Element, role string) Ref {
	v, ok := e.Attr(role)
	if !ok {
		return Ref{}
	}
	if refs := v.Refs(); len(refs) > 0 {
		return refs[0]
	}
	return Ref{}
}

func refsOf(e *Element, role string) []Ref {
	v, ok := e.Attr(role)
	if !ok {
		return nil
	}
	return v.Refs()
}
