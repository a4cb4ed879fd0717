package metrics

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/brunobiangulo/ifccheck/graph"
	"github.com/brunobiangulo/ifccheck/shape"
)

func TestObserveProjection(t *testing.T) {
	r := New()
	r.ObserveProjection(graph.Stats{Entities: 7, Duplicates: 1, Nodes: 7, Edges: 5, Triples: 20})

	if v := testutil.ToFloat64(r.EntitiesTotal.WithLabelValues("projected")); v != 7 {
		t.Errorf("projected = %f, want 7", v)
	}
	if v := testutil.ToFloat64(r.EntitiesTotal.WithLabelValues("duplicate")); v != 1 {
		t.Errorf("duplicate = %f, want 1", v)
	}
	if v := testutil.ToFloat64(r.GraphWritesTotal.WithLabelValues("triple")); v != 20 {
		t.Errorf("triples = %f, want 20", v)
	}
}

func TestObserveViolationsAndSuggestions(t *testing.T) {
	r := New()
	r.ObserveViolations([]shape.Violation{
		{Shape: "WallContainmentRule", Severity: shape.SeverityViolation},
		{Shape: "WallContainmentRule", Severity: shape.SeverityViolation},
		{Shape: "ValidRelationRule", Severity: shape.SeverityViolation},
	})
	r.ObserveSuggestion(false, 200*time.Millisecond)
	r.ObserveSuggestion(true, time.Millisecond)

	if v := testutil.ToFloat64(r.ViolationsTotal.WithLabelValues("WallContainmentRule", "Violation")); v != 2 {
		t.Errorf("wall violations = %f, want 2", v)
	}
	if v := testutil.ToFloat64(r.SuggestionsTotal.WithLabelValues("fallback")); v != 1 {
		t.Errorf("fallback suggestions = %f, want 1", v)
	}
	if n := testutil.CollectAndCount(r.SuggestionSeconds); n != 1 {
		t.Errorf("expected one histogram series, got %d", n)
	}
}

func TestWriteTextfile(t *testing.T) {
	r := New()
	r.ObserveStage("validate", 10*time.Millisecond)
	r.RunFinished(ResultViolations, time.Unix(1700000000, 0))

	path := filepath.Join(t.TempDir(), "textfile", "ifccheck.prom")
	if err := r.WriteTextfile(path); err != nil {
		t.Fatalf("write: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	out := string(data)
	for _, want := range []string{
		`ifccheck_runs_total{result="violations"} 1`,
		`ifccheck_last_run_timestamp_seconds 1.7e+09`,
		`ifccheck_stage_duration_seconds_count{stage="validate"} 1`,
	} {
		if !strings.Contains(out, want) {
			t.Errorf("textfile missing %q", want)
		}
	}
}
