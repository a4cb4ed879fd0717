package model

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/brunobiangulo/ifccheck/ontology"
)

// DocumentLoader reads a model exported as a JSON (or YAML) document:
//
//	{"schema": "IFC4", "elements": [
//	  {"id": "w1", "global_id": "2O2Fr$t4X7Zf8NOew3FLOH", "type": "IfcWall", "name": "Wall",
//	   "attributes": {"Tag": "A-12", "ContainedInStructure": {"ref": "s1"},
//	                  "HasOpenings": [{"ref": "o1"}, {"ref": "o2"}]}}]}
//
// A ref names another element's id, or its global_id when no element has
// that id. Attribute order is preserved. Documents are decoded as YAML, so
// JSON indented with tabs is rejected.
type DocumentLoader struct{}

func (l *DocumentLoader) SupportedFormats() []string {
	return []string{"json", "yaml", "yml"}
}

func (l *DocumentLoader) Load(ctx context.Context, path string) (Model, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading model document: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m, err := ParseDocument(data)
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	slog.Debug("model: document loaded", "path", path, "schema", m.Schema(), "elements", m.Len())
	return m, nil
}

type document struct {
	Schema   string       `yaml:"schema"`
	Elements []docElement `yaml:"elements"`
}

type docElement struct {
	ID         string   `yaml:"id"`
	GlobalID   string   `yaml:"global_id"`
	Type       string   `yaml:"type"`
	Name       string   `yaml:"name"`
	Attributes docAttrs `yaml:"attributes"`
}

type docAttr struct {
	role string
	node *yaml.Node
}

type docAttrs []docAttr

func (a *docAttrs) UnmarshalYAML(n *yaml.Node) error {
	if n.Kind != yaml.MappingNode {
		return fmt.Errorf("line %d: attributes must be a mapping", n.Line)
	}
	for i := 0; i+1 < len(n.Content); i += 2 {
		*a = append(*a, docAttr{role: n.Content[i].Value, node: n.Content[i+1]})
	}
	return nil
}

// ParseDocument decodes a model document. JSON is read through the YAML
// decoder, which accepts it unchanged and keeps mapping order.
func ParseDocument(data []byte) (*Memory, error) {
	var doc document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decoding model document: %w", err)
	}

	h := ontology.Default()
	index := make(map[string]int, len(doc.Elements))
	for i, e := range doc.Elements {
		if e.ID != "" {
			if _, dup := index[e.ID]; dup {
				return nil, fmt.Errorf("duplicate element id %q", e.ID)
			}
			index[e.ID] = i
		}
	}
	for i, e := range doc.Elements {
		if e.GlobalID == "" {
			continue
		}
		if _, taken := index[e.GlobalID]; !taken {
			index[e.GlobalID] = i
		}
	}

	resolve := func(key string) (Ref, error) {
		i, ok := index[strings.TrimPrefix(key, "#")]
		if !ok {
			return Ref{}, fmt.Errorf("unresolved reference %q", key)
		}
		t := doc.Elements[i]
		return Ref{GlobalID: t.GlobalID, Type: h.Canonical(t.Type)}, nil
	}

	elems := make([]*Element, 0, len(doc.Elements))
	for i, e := range doc.Elements {
		if e.Type == "" {
			return nil, fmt.Errorf("element %d: missing type", i)
		}
		class := h.Canonical(e.Type)
		el := &Element{
			GlobalID:   e.GlobalID,
			Type:       class,
			Name:       e.Name,
			Attributes: []Attribute{{Role: ontology.RoleType, Value: Scalar(class)}},
		}
		for _, a := range e.Attributes {
			v, ok, err := convertNode(a.node, resolve)
			if err != nil {
				return nil, fmt.Errorf("element %d attribute %s: %w", i, a.role, err)
			}
			if ok {
				el.Attributes = append(el.Attributes, Attribute{Role: a.role, Value: v})
			}
		}
		elems = append(elems, el)
	}
	DeriveInverses(elems)
	return NewMemory(doc.Schema, elems...), nil
}

func convertNode(n *yaml.Node, resolve func(string) (Ref, error)) (Value, bool, error) {
	switch n.Kind {
	case yaml.ScalarNode:
		if n.Tag == "!!null" {
			return Value{}, false, nil
		}
		return Scalar(n.Value), true, nil
	case yaml.MappingNode:
		key, ok := refKey(n)
		if !ok {
			return Value{}, false, fmt.Errorf("line %d: object values must be {\"ref\": ...}", n.Line)
		}
		r, err := resolve(key)
		if err != nil {
			return Value{}, false, err
		}
		return RefValue(r), true, nil
	case yaml.SequenceNode:
		if len(n.Content) == 0 {
			return Value{}, false, nil
		}
		var (
			refs    []Ref
			scalars []string
		)
		for _, item := range n.Content {
			if key, ok := refKey(item); ok {
				r, err := resolve(key)
				if err != nil {
					return Value{}, false, err
				}
				refs = append(refs, r)
				continue
			}
			if item.Kind == yaml.ScalarNode {
				scalars = append(scalars, item.Value)
				continue
			}
			return Value{}, false, fmt.Errorf("line %d: unsupported list item", item.Line)
		}
		if len(refs) > 0 {
			return RefList(refs...), true, nil
		}
		return Scalar("(" + strings.Join(scalars, ",") + ")"), true, nil
	default:
		return Value{}, false, fmt.Errorf("line %d: unsupported attribute value", n.Line)
	}
}

func refKey(n *yaml.Node) (string, bool) {
	if n.Kind != yaml.MappingNode || len(n.Content) != 2 || n.Content[0].Value != "ref" {
		return "", false
	}
	return n.Content[1].Value, true
}
