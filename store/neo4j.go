package store

import (
	"context"
	"fmt"
	"strings"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
)

// Neo4jSink writes the property graph to a Neo4j database over bolt.
type Neo4jSink struct {
	driver   neo4j.DriverWithContext
	database string
}

// NewNeo4j creates a driver for uri. No connection is made until Ping or
// Begin; Open calls Ping before handing the sink out.
func NewNeo4j(uri, username, password, database string) (*Neo4jSink, error) {
	if uri == "" {
		return nil, fmt.Errorf("neo4j store: empty uri")
	}
	driver, err := neo4j.NewDriverWithContext(uri, neo4j.BasicAuth(username, password, ""))
	if err != nil {
		return nil, fmt.Errorf("creating neo4j driver: %w", err)
	}
	return &Neo4jSink{driver: driver, database: database}, nil
}

func (s *Neo4jSink) Name() string { return BackendNeo4j }

func (s *Neo4jSink) Ping(ctx context.Context) error {
	return s.driver.VerifyConnectivity(ctx)
}

func (s *Neo4jSink) Close(ctx context.Context) error {
	return s.driver.Close(ctx)
}

func (s *Neo4jSink) Begin(ctx context.Context) (Tx, error) {
	session := s.driver.NewSession(ctx, neo4j.SessionConfig{
		AccessMode:   neo4j.AccessModeWrite,
		DatabaseName: s.database,
	})
	tx, err := session.BeginTransaction(ctx)
	if err != nil {
		session.Close(ctx)
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	return &neo4jTx{session: session, tx: tx}, nil
}

func (s *Neo4jSink) Nodes(ctx context.Context) ([]GraphNode, error) {
	session := s.driver.NewSession(ctx, neo4j.SessionConfig{
		AccessMode:   neo4j.AccessModeRead,
		DatabaseName: s.database,
	})
	defer session.Close(ctx)

	result, err := session.Run(ctx, fmt.Sprintf(`
		MATCH (n:%s)
		RETURN labels(n) AS labels, properties(n) AS props, coalesce(n.stub, false) AS stub
	`, quoteIdentifier(StubLabel)), nil)
	if err != nil {
		return nil, fmt.Errorf("reading nodes: %w", err)
	}

	var nodes []GraphNode
	for result.Next(ctx) {
		record := result.Record()
		n := GraphNode{Properties: Properties{}}
		if v, ok := record.Get("labels"); ok {
			if labels, ok := v.([]any); ok {
				n.Label = nodeLabel(labels)
			}
		}
		if v, ok := record.Get("props"); ok {
			if props, ok := v.(map[string]any); ok {
				for k, pv := range props {
					if k == "stub" {
						continue
					}
					n.Properties[k] = pv
				}
			}
		}
		if v, ok := record.Get("stub"); ok {
			n.Stub, _ = v.(bool)
		}
		n.GlobalID, _ = n.Properties[KeyProperty].(string)
		nodes = append(nodes, n)
	}
	if err := result.Err(); err != nil {
		return nil, err
	}
	sortNodes(nodes)
	return nodes, nil
}

func (s *Neo4jSink) Edges(ctx context.Context) ([]GraphEdge, error) {
	session := s.driver.NewSession(ctx, neo4j.SessionConfig{
		AccessMode:   neo4j.AccessModeRead,
		DatabaseName: s.database,
	})
	defer session.Close(ctx)

	result, err := session.Run(ctx, `
		MATCH (a)-[r]->(b)
		RETURN a.global_id AS from, type(r) AS type, b.global_id AS to
	`, nil)
	if err != nil {
		return nil, fmt.Errorf("reading edges: %w", err)
	}

	var edges []GraphEdge
	for result.Next(ctx) {
		record := result.Record()
		var e GraphEdge
		if v, ok := record.Get("from"); ok {
			e.From, _ = v.(string)
		}
		if v, ok := record.Get("type"); ok {
			e.Type, _ = v.(string)
		}
		if v, ok := record.Get("to"); ok {
			e.To, _ = v.(string)
		}
		edges = append(edges, e)
	}
	if err := result.Err(); err != nil {
		return nil, err
	}
	sortEdges(edges)
	return edges, nil
}

type neo4jTx struct {
	session neo4j.SessionWithContext
	tx      neo4j.ExplicitTransaction
}

func (t *neo4jTx) run(ctx context.Context, cypher string, params map[string]any) error {
	result, err := t.tx.Run(ctx, cypher, params)
	if err != nil {
		return err
	}
	_, err = result.Consume(ctx)
	return err
}

func (t *neo4jTx) Wipe(ctx context.Context) error {
	if err := t.run(ctx, "MATCH (n) DETACH DELETE n", nil); err != nil {
		return fmt.Errorf("wiping graph: %w", err)
	}
	return nil
}

func (t *neo4jTx) CreateNode(ctx context.Context, label string, props Properties) error {
	id, ok := props.Key()
	if !ok {
		return ErrNoKey
	}
	return t.run(ctx, mergeNodeCypher(label), map[string]any{"gid": id, "props": map[string]any(props)})
}

func (t *neo4jTx) CreateEdge(ctx context.Context, fromID, relType, toID string) error {
	return t.run(ctx, mergeEdgeCypher(relType), map[string]any{"from": fromID, "to": toID})
}

// Every node carries StubLabel, so merges on global_id use the key
// constraint index instead of scanning all nodes.

func mergeNodeCypher(label string) string {
	cypher := fmt.Sprintf("MERGE (n:%s {global_id: $gid}) ", quoteIdentifier(StubLabel))
	if label != StubLabel {
		cypher += fmt.Sprintf("SET n:%s ", quoteIdentifier(label))
	}
	return cypher + "SET n += $props REMOVE n.stub"
}

func mergeEdgeCypher(relType string) string {
	return fmt.Sprintf(`
		MERGE (a:%[1]s {global_id: $from}) ON CREATE SET a.stub = true
		MERGE (b:%[1]s {global_id: $to}) ON CREATE SET b.stub = true
		MERGE (a)-[:%[2]s]->(b)`,
		quoteIdentifier(StubLabel), quoteIdentifier(relType))
}

// keyConstraintCypher makes global_id unique among keyed nodes and backs
// the merges with an index.
func keyConstraintCypher() string {
	return fmt.Sprintf(
		"CREATE CONSTRAINT %s IF NOT EXISTS FOR (n:%s) REQUIRE n.%s IS UNIQUE",
		keyConstraintName, quoteIdentifier(StubLabel), KeyProperty)
}

const keyConstraintName = "ifccheck_global_id"

// ensureSchema creates the key constraint. Schema changes cannot share a
// transaction with writes, so it runs in its own auto-commit session.
func (s *Neo4jSink) ensureSchema(ctx context.Context) error {
	session := s.driver.NewSession(ctx, neo4j.SessionConfig{
		AccessMode:   neo4j.AccessModeWrite,
		DatabaseName: s.database,
	})
	defer session.Close(ctx)

	result, err := session.Run(ctx, keyConstraintCypher(), nil)
	if err != nil {
		return fmt.Errorf("creating key constraint: %w", err)
	}
	if _, err := result.Consume(ctx); err != nil {
		return fmt.Errorf("creating key constraint: %w", err)
	}
	return nil
}

func (t *neo4jTx) Commit(ctx context.Context) error {
	defer t.session.Close(ctx)
	return t.tx.Commit(ctx)
}

func (t *neo4jTx) Rollback(ctx context.Context) error {
	defer t.session.Close(ctx)
	return t.tx.Rollback(ctx)
}

// nodeLabel picks the most specific label: any label besides StubLabel.
func nodeLabel(labels []any) string {
	for _, l := range labels {
		if str, ok := l.(string); ok && str != StubLabel {
			return str
		}
	}
	return StubLabel
}

// quoteIdentifier backtick-quotes a label or relationship type so role
// names pass through Cypher unchanged.
func quoteIdentifier(name string) string {
	return "`" + strings.ReplaceAll(name, "`", "``") + "`"
}
