// Package model loads building models and exposes their elements as
// entities with uniformly typed attributes: scalars, single references and
// reference lists. Callers never see the file format's own type system.
package model

import (
	"iter"
	"log/slog"
	"sync/atomic"

	"github.com/brunobiangulo/ifccheck/ontology"
)

// Model is a loaded, read-only building model.
type Model interface {
	// Schema returns the schema identifier declared by the source, e.g. "IFC4".
	Schema() string
	// Elements yields every record in source order.
	Elements() iter.Seq[*Element]
}

// Memory is a Model held in a slice. Loaders return it; tests build it
// directly.
type Memory struct {
	schema   string
	elements []*Element
}

// NewMemory returns a model holding elems.
func NewMemory(schema string, elems ...*Element) *Memory {
	return &Memory{schema: schema, elements: elems}
}

// Add appends elements to the model.
func (m *Memory) Add(elems ...*Element) {
	m.elements = append(m.elements, elems...)
}

func (m *Memory) Schema() string { return m.schema }

// Len returns the number of records, rooted or not.
func (m *Memory) Len() int { return len(m.elements) }

func (m *Memory) Elements() iter.Seq[*Element] {
	return func(yield func(*Element) bool) {
		for _, e := range m.elements {
			if !yield(e) {
				return
			}
		}
	}
}

// Extract yields one Entity per element whose GlobalID is non-empty and
// whose type is rootClass or one of its subtypes. An empty rootClass means
// IfcProduct. Elements failing either test are dropped without error.
//
// The returned sequence is single-use: ranging over it a second time yields
// nothing.
func Extract(m Model, rootClass string) iter.Seq[Entity] {
	if rootClass == "" {
		rootClass = ontology.ClassProduct
	}
	h := ontology.Default()
	var used atomic.Bool
	return func(yield func(Entity) bool) {
		if used.Swap(true) {
			slog.Debug("model: entity sequence already consumed")
			return
		}
		for el := range m.Elements() {
			if el == nil || el.GlobalID == "" {
				continue
			}
			if !h.IsSubclassOf(el.Type, rootClass) {
				continue
			}
			ent := Entity{
				GlobalID:   el.GlobalID,
				Type:       h.Canonical(el.Type),
				Name:       el.Name,
				Attributes: el.Attributes,
			}
			if !yield(ent) {
				return
			}
		}
	}
}
