//go:build integration

package store

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
)

// Runs against a disposable database: the contract test wipes it.
func TestNeo4jSinkContract(t *testing.T) {
	uri := os.Getenv("IFCCHECK_NEO4J_URI")
	if uri == "" {
		t.Skip("IFCCHECK_NEO4J_URI not set")
	}
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	s, err := Open(ctx, Config{
		Backend:  BackendNeo4j,
		URI:      uri,
		Username: os.Getenv("IFCCHECK_NEO4J_USER"),
		Password: os.Getenv("IFCCHECK_NEO4J_PASSWORD"),
		Database: os.Getenv("IFCCHECK_NEO4J_DATABASE"),
	})
	if err != nil {
		t.Skipf("neo4j not reachable: %v", err)
	}
	defer s.Close(ctx)

	n := s.(*Neo4jSink)
	assertKeyConstraint(ctx, t, n)

	// Opening again must not fail on the existing constraint.
	if err := n.ensureSchema(ctx); err != nil {
		t.Fatalf("ensureSchema on existing constraint: %v", err)
	}

	exerciseSink(t, n)
}

func assertKeyConstraint(ctx context.Context, t *testing.T, s *Neo4jSink) {
	t.Helper()
	session := s.driver.NewSession(ctx, neo4j.SessionConfig{DatabaseName: s.database})
	defer session.Close(ctx)

	result, err := session.Run(ctx,
		"SHOW CONSTRAINTS YIELD name, type, labelsOrTypes, properties WHERE name = $name RETURN type, labelsOrTypes, properties",
		map[string]any{"name": keyConstraintName})
	if err != nil {
		t.Fatalf("listing constraints: %v", err)
	}
	rec, err := result.Single(ctx)
	if err != nil {
		t.Fatalf("key constraint %s not found: %v", keyConstraintName, err)
	}
	if typ, _ := rec.Get("type"); typ != "UNIQUENESS" {
		t.Errorf("constraint type = %v, want UNIQUENESS", typ)
	}
	labels, _ := rec.Get("labelsOrTypes")
	props, _ := rec.Get("properties")
	if l, ok := labels.([]any); !ok || len(l) != 1 || l[0] != StubLabel {
		t.Errorf("constraint labels = %v, want [%s]", labels, StubLabel)
	}
	if p, ok := props.([]any); !ok || len(p) != 1 || p[0] != KeyProperty {
		t.Errorf("constraint properties = %v, want [%s]", props, KeyProperty)
	}
}
