package graph

import (
	"context"
	"fmt"
	"sort"

	"github.com/brunobiangulo/ifccheck/store"
)

// TraversalResult holds the nodes and edges found around a set of seeds.
type TraversalResult struct {
	Nodes []store.GraphNode
	Edges []store.GraphEdge
}

// Index is an in-memory adjacency view of a committed property graph.
type Index struct {
	nodes map[string]store.GraphNode
	adj   map[string][]store.GraphEdge
}

// LoadIndex reads the whole stored graph once so that many traversals can
// run without further round trips.
func LoadIndex(ctx context.Context, r store.Reader) (*Index, error) {
	nodes, err := r.Nodes(ctx)
	if err != nil {
		return nil, fmt.Errorf("graph.LoadIndex: loading nodes: %w", err)
	}
	edges, err := r.Edges(ctx)
	if err != nil {
		return nil, fmt.Errorf("graph.LoadIndex: loading edges: %w", err)
	}

	idx := &Index{
		nodes: make(map[string]store.GraphNode, len(nodes)),
		adj:   make(map[string][]store.GraphEdge),
	}
	for _, n := range nodes {
		idx.nodes[n.GlobalID] = n
	}
	for _, e := range edges {
		idx.adj[e.From] = append(idx.adj[e.From], e)
		if e.To != e.From {
			idx.adj[e.To] = append(idx.adj[e.To], e)
		}
	}
	return idx, nil
}

// Node returns the stored node for a GlobalId.
func (idx *Index) Node(globalID string) (store.GraphNode, bool) {
	n, ok := idx.nodes[globalID]
	return n, ok
}

// Traverse walks outgoing and incoming edges breadth-first up to maxDepth
// hops from the seeds. Edges are included when both endpoints were reached.
// Nodes and edges come back sorted.
func (idx *Index) Traverse(seeds []string, maxDepth int) *TraversalResult {
	if len(seeds) == 0 || maxDepth < 0 {
		return &TraversalResult{}
	}

	visited := make(map[string]bool)
	var queue []string
	for _, id := range seeds {
		if _, ok := idx.nodes[id]; ok && !visited[id] {
			visited[id] = true
			queue = append(queue, id)
		}
	}

	for depth := 0; depth < maxDepth && len(queue) > 0; depth++ {
		var next []string
		for _, id := range queue {
			for _, e := range idx.adj[id] {
				other := e.To
				if other == id {
					other = e.From
				}
				if !visited[other] {
					visited[other] = true
					next = append(next, other)
				}
			}
		}
		queue = next
	}

	res := &TraversalResult{}
	seenEdge := make(map[store.GraphEdge]bool)
	for id := range visited {
		res.Nodes = append(res.Nodes, idx.nodes[id])
		for _, e := range idx.adj[id] {
			if visited[e.From] && visited[e.To] && !seenEdge[e] {
				seenEdge[e] = true
				res.Edges = append(res.Edges, e)
			}
		}
	}
	sort.Slice(res.Nodes, func(i, j int) bool { return res.Nodes[i].GlobalID < res.Nodes[j].GlobalID })
	sort.Slice(res.Edges, func(i, j int) bool {
		a, b := res.Edges[i], res.Edges[j]
		if a.From != b.From {
			return a.From < b.From
		}
		if a.Type != b.Type {
			return a.Type < b.Type
		}
		return a.To < b.To
	})
	return res
}
