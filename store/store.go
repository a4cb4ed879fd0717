// Package store persists the property-graph projection. A run opens one
// transaction, wipes the graph, rebuilds it and commits; any failure rolls
// the transaction back and the previously committed graph stays intact.
package store

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
)

// KeyProperty identifies a node. CreateNode requires it; edges name their
// endpoints by it.
const KeyProperty = "global_id"

// StubLabel is given to nodes created implicitly as edge endpoints.
const StubLabel = "IfcProduct"

// Backend names accepted by Open.
const (
	BackendNeo4j  = "neo4j"
	BackendSQLite = "sqlite"
	BackendMemory = "memory"
)

// ErrNoKey is returned when a node has no global_id property.
var ErrNoKey = errors.New("store: node has no global_id property")

// Properties are node properties. Values are strings, numbers or booleans.
type Properties map[string]any

// Key returns the node's global_id.
func (p Properties) Key() (string, bool) {
	v, ok := p[KeyProperty].(string)
	return v, ok && v != ""
}

// Sink is a property-graph backend.
type Sink interface {
	// Name returns the backend name.
	Name() string
	// Ping verifies the backend is reachable without changing it.
	Ping(ctx context.Context) error
	// Begin opens a write transaction.
	Begin(ctx context.Context) (Tx, error)
	Close(ctx context.Context) error
}

// Tx is one write transaction. Writes are synchronous. CreateNode and
// CreateEdge are idempotent: repeating a call changes nothing.
type Tx interface {
	// Wipe deletes every node and edge.
	Wipe(ctx context.Context) error
	// CreateNode creates or replaces the node keyed by props["global_id"].
	CreateNode(ctx context.Context, label string, props Properties) error
	// CreateEdge links two nodes by global_id, creating stub endpoints that
	// do not exist yet.
	CreateEdge(ctx context.Context, fromID, relType, toID string) error
	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}

// GraphNode is a stored node, as read back for inspection.
type GraphNode struct {
	Label      string
	GlobalID   string
	Properties Properties
	Stub       bool
}

// GraphEdge is a stored edge.
type GraphEdge struct {
	From string
	Type string
	To   string
}

// Reader is implemented by sinks whose contents can be read back.
type Reader interface {
	Nodes(ctx context.Context) ([]GraphNode, error)
	Edges(ctx context.Context) ([]GraphEdge, error)
}

// Config selects and configures a backend.
type Config struct {
	Backend  string `json:"backend" yaml:"backend" validate:"omitempty,oneof=neo4j sqlite memory"`
	URI      string `json:"uri" yaml:"uri" validate:"required_if=Backend neo4j"`
	Username string `json:"username" yaml:"username"`
	Password string `json:"password" yaml:"password"`
	Database string `json:"database" yaml:"database"`
	Path     string `json:"path" yaml:"path"`
}

// Open connects to the configured backend and verifies it is reachable.
func Open(ctx context.Context, cfg Config) (Sink, error) {
	var (
		s   Sink
		err error
	)
	switch strings.ToLower(cfg.Backend) {
	case BackendNeo4j:
		s, err = NewNeo4j(cfg.URI, cfg.Username, cfg.Password, cfg.Database)
	case BackendSQLite:
		s, err = NewSQLite(cfg.Path)
	case BackendMemory, "":
		s = NewMemory()
	default:
		return nil, fmt.Errorf("unknown graph store backend: %s", cfg.Backend)
	}
	if err != nil {
		return nil, err
	}
	if err := s.Ping(ctx); err != nil {
		s.Close(ctx)
		return nil, fmt.Errorf("%s: %w", s.Name(), err)
	}
	if n, ok := s.(*Neo4jSink); ok {
		if err := n.ensureSchema(ctx); err != nil {
			s.Close(ctx)
			return nil, fmt.Errorf("%s: %w", s.Name(), err)
		}
	}
	return s, nil
}

func sortNodes(nodes []GraphNode) {
	sort.Slice(nodes, func(i, j int) bool { return nodes[i].GlobalID < nodes[j].GlobalID })
}

func sortEdges(edges []GraphEdge) {
	sort.Slice(edges, func(i, j int) bool {
		a, b := edges[i], edges[j]
		if a.From != b.From {
			return a.From < b.From
		}
		if a.Type != b.Type {
			return a.Type < b.Type
		}
		return a.To < b.To
	})
}
