package store

import (
	"context"
	"errors"
	"maps"
	"sync"
)

// ErrTxDone is returned by writes on a committed or rolled-back transaction.
var ErrTxDone = errors.New("store: transaction already finished")

// MemorySink keeps the graph in process memory. Transactions work on a
// copy that replaces the committed graph on Commit.
type MemorySink struct {
	mu    sync.Mutex
	state memState
}

type memState struct {
	nodes map[string]GraphNode
	edges map[GraphEdge]struct{}
}

func newMemState() memState {
	return memState{nodes: make(map[string]GraphNode), edges: make(map[GraphEdge]struct{})}
}

func (s memState) clone() memState {
	c := memState{
		nodes: make(map[string]GraphNode, len(s.nodes)),
		edges: maps.Clone(s.edges),
	}
	for k, n := range s.nodes {
		n.Properties = maps.Clone(n.Properties)
		c.nodes[k] = n
	}
	if c.edges == nil {
		c.edges = make(map[GraphEdge]struct{})
	}
	return c
}

// NewMemory returns an empty in-memory sink.
func NewMemory() *MemorySink {
	return &MemorySink{state: newMemState()}
}

func (s *MemorySink) Name() string                    { return BackendMemory }
func (s *MemorySink) Ping(ctx context.Context) error  { return ctx.Err() }
func (s *MemorySink) Close(ctx context.Context) error { return nil }

func (s *MemorySink) Begin(ctx context.Context) (Tx, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return &memTx{sink: s, state: s.state.clone()}, nil
}

func (s *MemorySink) Nodes(ctx context.Context) ([]GraphNode, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]GraphNode, 0, len(s.state.nodes))
	for _, n := range s.state.nodes {
		n.Properties = maps.Clone(n.Properties)
		out = append(out, n)
	}
	sortNodes(out)
	return out, nil
}

func (s *MemorySink) Edges(ctx context.Context) ([]GraphEdge, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]GraphEdge, 0, len(s.state.edges))
	for e := range s.state.edges {
		out = append(out, e)
	}
	sortEdges(out)
	return out, nil
}

type memTx struct {
	sink  *MemorySink
	state memState
	done  bool
}

func (t *memTx) check(ctx context.Context) error {
	if t.done {
		return ErrTxDone
	}
	return ctx.Err()
}

func (t *memTx) Wipe(ctx context.Context) error {
	if err := t.check(ctx); err != nil {
		return err
	}
	t.state = newMemState()
	return nil
}

func (t *memTx) CreateNode(ctx context.Context, label string, props Properties) error {
	if err := t.check(ctx); err != nil {
		return err
	}
	id, ok := props.Key()
	if !ok {
		return ErrNoKey
	}
	t.state.nodes[id] = GraphNode{Label: label, GlobalID: id, Properties: maps.Clone(props)}
	return nil
}

func (t *memTx) CreateEdge(ctx context.Context, fromID, relType, toID string) error {
	if err := t.check(ctx); err != nil {
		return err
	}
	for _, id := range []string{fromID, toID} {
		if _, ok := t.state.nodes[id]; !ok {
			t.state.nodes[id] = GraphNode{
				Label:      StubLabel,
				GlobalID:   id,
				Properties: Properties{KeyProperty: id},
				Stub:       true,
			}
		}
	}
	t.state.edges[GraphEdge{From: fromID, Type: relType, To: toID}] = struct{}{}
	return nil
}

func (t *memTx) Commit(ctx context.Context) error {
	if err := t.check(ctx); err != nil {
		return err
	}
	t.done = true
	t.sink.mu.Lock()
	t.sink.state = t.state
	t.sink.mu.Unlock()
	return nil
}

func (t *memTx) Rollback(ctx context.Context) error {
	t.done = true
	return nil
}
