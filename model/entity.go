package model

import "strings"

// Kind discriminates the three shapes an attribute value can take.
type Kind int

const (
	KindScalar Kind = iota
	KindRef
	KindRefList
)

func (k Kind) String() string {
	switch k {
	case KindScalar:
		return "scalar"
	case KindRef:
		return "ref"
	case KindRefList:
		return "ref-list"
	default:
		return "unknown"
	}
}

// Ref points at another element. GlobalID is empty when the target has no
// global identifier (geometry, owner history and other non-rooted records).
type Ref struct {
	GlobalID string
	Type     string
}

// Value is a scalar, a single reference or an ordered list of references.
type Value struct {
	kind   Kind
	scalar string
	refs   []Ref
}

// Scalar returns a scalar value.
func Scalar(s string) Value {
	return Value{kind: KindScalar, scalar: s}
}

// RefValue returns a single-reference value.
func RefValue(r Ref) Value {
	return Value{kind: KindRef, refs: []Ref{r}}
}

// RefList returns a collection-valued reference.
func RefList(refs ...Ref) Value {
	out := make([]Ref, len(refs))
	copy(out, refs)
	return Value{kind: KindRefList, refs: out}
}

// Kind reports which shape v has.
func (v Value) Kind() Kind { return v.kind }

// Scalar returns the scalar text; it is empty for reference values.
func (v Value) Scalar() string { return v.scalar }

// Ref returns the single reference of a KindRef value.
func (v Value) Ref() (Ref, bool) {
	if v.kind != KindRef || len(v.refs) == 0 {
		return Ref{}, false
	}
	return v.refs[0], true
}

// Refs returns every referenced element: one for KindRef, all members for
// KindRefList and none for scalars.
func (v Value) Refs() []Ref {
	if v.kind == KindScalar {
		return nil
	}
	return v.refs
}

func (v Value) String() string {
	switch v.kind {
	case KindRef, KindRefList:
		ids := make([]string, len(v.refs))
		for i, r := range v.refs {
			ids[i] = r.Type + ":" + r.GlobalID
		}
		if v.kind == KindRef {
			return ids[0]
		}
		return "(" + strings.Join(ids, ",") + ")"
	default:
		return v.scalar
	}
}

// Attribute is one named role of an element.
type Attribute struct {
	Role  string
	Value Value
}

// Element is a raw record of a loaded model. Its GlobalID may be empty.
type Element struct {
	GlobalID   string
	Type       string
	Name       string
	Attributes []Attribute
}

// Attr returns the value stored under role.
func (e *Element) Attr(role string) (Value, bool) {
	for _, a := range e.Attributes {
		if a.Role == role {
			return a.Value, true
		}
	}
	return Value{}, false
}

// Set replaces the value of role, appending it when absent.
func (e *Element) Set(role string, v Value) {
	for i, a := range e.Attributes {
		if a.Role == role {
			e.Attributes[i].Value = v
			return
		}
	}
	e.Attributes = append(e.Attributes, Attribute{Role: role, Value: v})
}

// Entity is an element accepted by Extract: its GlobalID is never empty
// and its type belongs to the extraction root.
type Entity struct {
	GlobalID   string
	Type       string
	Name       string
	Attributes []Attribute
}

// Attr returns the value stored under role.
func (e Entity) Attr(role string) (Value, bool) {
	for _, a := range e.Attributes {
		if a.Role == role {
			return a.Value, true
		}
	}
	return Value{}, false
}
