//go:build cgo

package ifccheck

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/brunobiangulo/ifccheck/store"
)

func TestRunWithSQLiteStore(t *testing.T) {
	cfg := DefaultConfig()
	cfg.OutputDir = t.TempDir()
	cfg.Suggestions.Enabled = false

	e, err := New(cfg)
	require.NoError(t, err)

	ctx := context.Background()
	res, err := e.Run(ctx, minimalModel)
	require.NoError(t, err)
	require.Len(t, res.Violations, 3)

	dbPath := filepath.Join(cfg.OutputDir, "graph.db")
	s, err := store.NewSQLite(dbPath)
	require.NoError(t, err)
	defer s.Close(ctx)

	nodes, err := s.Nodes(ctx)
	require.NoError(t, err)
	edges, err := s.Edges(ctx)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, len(nodes), res.Stats.Nodes, "stub targets add nodes")
	assert.Equal(t, res.Stats.Edges, len(edges))

	// A second run replaces the graph instead of appending to it.
	_, err = e.Run(ctx, minimalModel)
	require.NoError(t, err)
	again, err := s.Nodes(ctx)
	require.NoError(t, err)
	assert.Len(t, again, len(nodes))
}

func TestRunSQLiteUnreadableModelKeepsGraph(t *testing.T) {
	cfg := DefaultConfig()
	cfg.OutputDir = t.TempDir()
	cfg.Suggestions.Enabled = false
	e, err := New(cfg)
	require.NoError(t, err)

	ctx := context.Background()
	_, err = e.Run(ctx, conformingModel)
	require.NoError(t, err)

	bad := filepath.Join(t.TempDir(), "broken.ifc")
	require.NoError(t, os.WriteFile(bad, []byte("ISO-10303-21;\nHEADER;"), 0o644))
	_, err = e.Run(ctx, bad)
	assert.ErrorIs(t, err, ErrModelUnreadable)

	s, err := store.NewSQLite(filepath.Join(cfg.OutputDir, "graph.db"))
	require.NoError(t, err)
	defer s.Close(ctx)
	nodes, err := s.Nodes(ctx)
	require.NoError(t, err)
	assert.NotEmpty(t, nodes)
}
