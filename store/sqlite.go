package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// SQLiteSink stores the property graph in a local SQLite file.
type SQLiteSink struct {
	db *sql.DB
}

// NewSQLite opens (or creates) a SQLite database at the given path and
// initialises the node and edge tables.
func NewSQLite(dbPath string) (*SQLiteSink, error) {
	if dbPath == "" {
		return nil, fmt.Errorf("sqlite store: empty database path")
	}
	dir := filepath.Dir(dbPath)
	if dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("creating db directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_foreign_keys=on&_busy_timeout=30000")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	if _, err := db.Exec(schemaSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}

	// A run is one long write transaction; a single connection keeps
	// SQLite from returning SQLITE_BUSY to concurrent readers of the pool.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(30 * time.Minute)

	s := &SQLiteSink{db: db}

	if err := s.migrate(context.Background()); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return s, nil
}

func (s *SQLiteSink) Name() string { return BackendSQLite }

func (s *SQLiteSink) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *SQLiteSink) Close(ctx context.Context) error {
	return s.db.Close()
}

func (s *SQLiteSink) Begin(ctx context.Context) (Tx, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	return &sqliteTx{tx: tx}, nil
}

func (s *SQLiteSink) Nodes(ctx context.Context) ([]GraphNode, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT global_id, label, properties, stub FROM nodes ORDER BY global_id
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var nodes []GraphNode
	for rows.Next() {
		var (
			n     GraphNode
			props sql.NullString
		)
		if err := rows.Scan(&n.GlobalID, &n.Label, &props, &n.Stub); err != nil {
			return nil, err
		}
		if props.Valid && props.String != "" {
			if err := json.Unmarshal([]byte(props.String), &n.Properties); err != nil {
				return nil, fmt.Errorf("decoding properties of %s: %w", n.GlobalID, err)
			}
		}
		nodes = append(nodes, n)
	}
	return nodes, rows.Err()
}

func (s *SQLiteSink) Edges(ctx context.Context) ([]GraphEdge, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT source_id, rel_type, target_id FROM edges
		ORDER BY source_id, rel_type, target_id
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var edges []GraphEdge
	for rows.Next() {
		var e GraphEdge
		if err := rows.Scan(&e.From, &e.Type, &e.To); err != nil {
			return nil, err
		}
		edges = append(edges, e)
	}
	return edges, rows.Err()
}

type sqliteTx struct {
	tx *sql.Tx
}

func (t *sqliteTx) Wipe(ctx context.Context) error {
	for _, stmt := range []string{"DELETE FROM edges", "DELETE FROM nodes"} {
		if _, err := t.tx.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("wiping graph: %w", err)
		}
	}
	return nil
}

func (t *sqliteTx) CreateNode(ctx context.Context, label string, props Properties) error {
	id, ok := props.Key()
	if !ok {
		return ErrNoKey
	}
	data, err := json.Marshal(props)
	if err != nil {
		return fmt.Errorf("encoding properties: %w", err)
	}
	_, err = t.tx.ExecContext(ctx, `
		INSERT INTO nodes (global_id, label, properties, stub)
		VALUES (?, ?, ?, 0)
		ON CONFLICT(global_id) DO UPDATE SET
			label = excluded.label,
			properties = excluded.properties,
			stub = 0
	`, id, label, string(data))
	return err
}

func (t *sqliteTx) CreateEdge(ctx context.Context, fromID, relType, toID string) error {
	for _, id := range []string{fromID, toID} {
		data, err := json.Marshal(Properties{KeyProperty: id})
		if err != nil {
			return err
		}
		if _, err := t.tx.ExecContext(ctx, `
			INSERT INTO nodes (global_id, label, properties, stub)
			VALUES (?, ?, ?, 1)
			ON CONFLICT(global_id) DO NOTHING
		`, id, StubLabel, string(data)); err != nil {
			return fmt.Errorf("creating endpoint %s: %w", id, err)
		}
	}
	_, err := t.tx.ExecContext(ctx,
		"INSERT OR IGNORE INTO edges (source_id, rel_type, target_id) VALUES (?, ?, ?)",
		fromID, relType, toID)
	return err
}

func (t *sqliteTx) Commit(ctx context.Context) error {
	return t.tx.Commit()
}

func (t *sqliteTx) Rollback(ctx context.Context) error {
	err := t.tx.Rollback()
	if err == sql.ErrTxDone {
		return nil
	}
	return err
}
