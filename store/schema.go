package store

// schemaSQL is the DDL for the property-graph tables. A stub node exists
// only because an edge points at it.
const schemaSQL = `
-- Property-graph nodes, keyed by GlobalId
CREATE TABLE IF NOT EXISTS nodes (
    global_id TEXT PRIMARY KEY,
    label TEXT NOT NULL,
    properties JSON,
    stub INTEGER NOT NULL DEFAULT 0
);

-- Property-graph edges, one per (source, role, target)
CREATE TABLE IF NOT EXISTS edges (
    id INTEGER PRIMARY KEY,
    source_id TEXT NOT NULL REFERENCES nodes(global_id) ON DELETE CASCADE,
    rel_type TEXT NOT NULL,
    target_id TEXT NOT NULL REFERENCES nodes(global_id) ON DELETE CASCADE,
    UNIQUE(source_id, rel_type, target_id)
);

CREATE INDEX IF NOT EXISTS idx_edges_source ON edges(source_id);
CREATE INDEX IF NOT EXISTS idx_edges_target ON edges(target_id);
`
