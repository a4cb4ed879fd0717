// Package metrics records per-run Prometheus counters. A validation run is
// a batch job, so metrics are written once to a node-exporter textfile
// rather than served.
package metrics

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/brunobiangulo/ifccheck/graph"
	"github.com/brunobiangulo/ifccheck/shape"
)

const namespace = "ifccheck"

// Run outcomes used as the result label.
const (
	ResultConforms   = "conforms"
	ResultViolations = "violations"
	ResultFailed     = "failed"
)

// Recorder holds the metrics of one process on its own registry.
type Recorder struct {
	reg *prometheus.Registry

	// RunsTotal counts finished runs. Labels: result.
	RunsTotal *prometheus.CounterVec
	// StageSeconds measures pipeline stages. Labels: stage.
	StageSeconds *prometheus.HistogramVec
	// EntitiesTotal counts projected entities. Labels: outcome (projected, duplicate).
	EntitiesTotal *prometheus.CounterVec
	// GraphWritesTotal counts writes per target. Labels: kind (node, edge, triple).
	GraphWritesTotal *prometheus.CounterVec
	// ViolationsTotal counts violations. Labels: shape, severity.
	ViolationsTotal *prometheus.CounterVec
	// SuggestionsTotal counts suggestion attempts. Labels: source (llm, fallback).
	SuggestionsTotal *prometheus.CounterVec
	// SuggestionSeconds measures provider latency.
	SuggestionSeconds prometheus.Histogram
	// LastRunTimestamp is the completion time of the last run.
	LastRunTimestamp prometheus.Gauge
}

// New registers every metric on a fresh registry.
func New() *Recorder {
	reg := prometheus.NewRegistry()
	f := promauto.With(reg)
	return &Recorder{
		reg: reg,
		RunsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "runs_total",
			Help:      "Validation runs by result.",
		}, []string{"result"}),
		StageSeconds: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "stage_duration_seconds",
			Help:      "Duration of each pipeline stage.",
			Buckets:   prometheus.ExponentialBuckets(0.01, 4, 8),
		}, []string{"stage"}),
		EntitiesTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "entities_total",
			Help:      "Extracted entities by outcome.",
		}, []string{"outcome"}),
		GraphWritesTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "graph_writes_total",
			Help:      "Nodes, edges and triples written.",
		}, []string{"kind"}),
		ViolationsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "violations_total",
			Help:      "Shape violations by shape and severity.",
		}, []string{"shape", "severity"}),
		SuggestionsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "suggestions_total",
			Help:      "Suggestion attempts by source of the final text.",
		}, []string{"source"}),
		SuggestionSeconds: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "suggestion_duration_seconds",
			Help:      "Latency of suggestion requests.",
			Buckets:   prometheus.ExponentialBuckets(0.1, 2, 10),
		}),
		LastRunTimestamp: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_run_timestamp_seconds",
			Help:      "Unix time the last run finished.",
		}),
	}
}

// Registry exposes the underlying registry.
func (r *Recorder) Registry() *prometheus.Registry { return r.reg }

// ObserveStage records the duration of one stage.
func (r *Recorder) ObserveStage(stage string, d time.Duration) {
	r.StageSeconds.WithLabelValues(stage).Observe(d.Seconds())
}

// ObserveProjection adds the builder's counts.
func (r *Recorder) ObserveProjection(s graph.Stats) {
	r.EntitiesTotal.WithLabelValues("projected").Add(float64(s.Entities))
	r.EntitiesTotal.WithLabelValues("duplicate").Add(float64(s.Duplicates))
	r.GraphWritesTotal.WithLabelValues("node").Add(float64(s.Nodes))
	r.GraphWritesTotal.WithLabelValues("edge").Add(float64(s.Edges))
	r.GraphWritesTotal.WithLabelValues("triple").Add(float64(s.Triples))
}

// ObserveViolations counts violations per shape.
func (r *Recorder) ObserveViolations(vs []shape.Violation) {
	for _, v := range vs {
		r.ViolationsTotal.WithLabelValues(v.Shape, string(v.Severity)).Inc()
	}
}

// ObserveSuggestion matches report.SuggestionObserver.
func (r *Recorder) ObserveSuggestion(fallback bool, elapsed time.Duration) {
	source := "llm"
	if fallback {
		source = "fallback"
	}
	r.SuggestionsTotal.WithLabelValues(source).Inc()
	r.SuggestionSeconds.Observe(elapsed.Seconds())
}

// RunFinished records the outcome of a run.
func (r *Recorder) RunFinished(result string, at time.Time) {
	r.RunsTotal.WithLabelValues(result).Inc()
	r.LastRunTimestamp.Set(float64(at.Unix()))
}

// WriteTextfile writes all metrics in the text exposition format. The
// write is atomic, as node-exporter requires.
func (r *Recorder) WriteTextfile(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating metrics directory: %w", err)
	}
	if err := prometheus.WriteToTextfile(path, r.reg); err != nil {
		return fmt.Errorf("writing metrics textfile: %w", err)
	}
	return nil
}
