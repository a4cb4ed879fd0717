// Package ifccheck validates a building model against a fixed set of
// ontology shapes. A run loads the model, projects its products into a
// property graph and an RDF graph in one pass, checks the shapes over the
// RDF graph, and reports each violation with a remediation suggestion.
package ifccheck

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/brunobiangulo/ifccheck/graph"
	"github.com/brunobiangulo/ifccheck/llm"
	"github.com/brunobiangulo/ifccheck/metrics"
	"github.com/brunobiangulo/ifccheck/model"
	"github.com/brunobiangulo/ifccheck/ontology"
	"github.com/brunobiangulo/ifccheck/rdf"
	"github.com/brunobiangulo/ifccheck/report"
	"github.com/brunobiangulo/ifccheck/shape"
	"github.com/brunobiangulo/ifccheck/store"
)

// Output file names inside Config.OutputDir.
const (
	GraphBaseName = "ifc_graph"
	ReportName    = "validation_report.txt"
	XLSXName      = "validation_report.xlsx"
)

// Result describes one completed run.
type Result struct {
	RunID      string            `json:"run_id"`
	Model      string            `json:"model"`
	Schema     string            `json:"schema"`
	Stats      graph.Stats       `json:"stats"`
	Violations []shape.Violation `json:"-"`
	Conflicts  []report.Conflict `json:"-"`
	RDFPath    string            `json:"rdf_path"`
	ReportPath string            `json:"report_path"`
	XLSXPath   string            `json:"xlsx_path,omitempty"`
	Duration   time.Duration     `json:"duration"`
}

// Conforms reports whether the model passed every shape.
func (r *Result) Conforms() bool { return len(r.Violations) == 0 }

// Engine runs validations. Runs are serialized within the process and,
// through a lock file, across processes sharing an output directory.
type Engine struct {
	cfg       Config
	format    rdf.Format
	shapes    *shape.Set
	loaders   *model.Registry
	sink      store.Sink
	suggester report.SuggestionProvider
	metrics   *metrics.Recorder

	mu sync.Mutex
}

// Option configures an Engine.
type Option func(*Engine)

// WithSink uses s instead of opening Config.Store. The engine does not
// close it.
func WithSink(s store.Sink) Option {
	return func(e *Engine) { e.sink = s }
}

// WithSuggestionProvider uses p instead of building one from Config.Chat.
func WithSuggestionProvider(p report.SuggestionProvider) Option {
	return func(e *Engine) { e.suggester = p }
}

// WithMetrics records run metrics on r.
func WithMetrics(r *metrics.Recorder) Option {
	return func(e *Engine) { e.metrics = r }
}

// WithLoaders replaces the model loader registry.
func WithLoaders(r *model.Registry) Option {
	return func(e *Engine) { e.loaders = r }
}

// New validates cfg and compiles the shape set.
func New(cfg Config, opts ...Option) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	format, err := rdf.ParseFormat(cfg.RDFFormat)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	shapes, err := shape.Load(nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRulesInvalid, err)
	}

	e := &Engine{
		cfg:     cfg,
		format:  format,
		shapes:  shapes,
		loaders: model.NewRegistry(),
	}
	for _, o := range opts {
		o(e)
	}
	if e.metrics == nil && cfg.MetricsFile != "" {
		e.metrics = metrics.New()
	}
	if e.suggester == nil && cfg.Suggestions.Enabled {
		if _, err := llm.NewProvider(cfg.Chat); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrLLMUnavailable, err)
		}
	}
	return e, nil
}

// Shapes returns the compiled shape set.
func (e *Engine) Shapes() *shape.Set { return e.shapes }

// Run validates the model at modelPath and writes every artifact. Any
// returned error wraps one of the package sentinels or a context error.
func (e *Engine) Run(ctx context.Context, modelPath string) (*Result, error) {
	if !e.mu.TryLock() {
		return nil, ErrRunInProgress
	}
	defer e.mu.Unlock()

	lock, err := acquireLock(e.cfg.OutputDir)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := lock.release(); err != nil {
			slog.Warn("ifccheck: releasing lock", "error", err)
		}
	}()

	start := time.Now()
	res := &Result{RunID: uuid.NewString(), Model: modelPath}
	log := slog.With("run_id", res.RunID)
	log.Info("ifccheck: run started", "model", modelPath, "store", e.cfg.Store.Backend)

	err = e.run(ctx, log, res)
	res.Duration = time.Since(start)
	e.finishMetrics(log, res, err)
	if err != nil {
		log.Error("ifccheck: run failed", "error", err, "elapsed", res.Duration)
		return nil, err
	}
	log.Info("ifccheck: run complete",
		"conforms", res.Conforms(), "violations", len(res.Violations), "elapsed", res.Duration)
	return res, nil
}

func (e *Engine) run(ctx context.Context, log *slog.Logger, res *Result) error {
	// Load fully before touching the store.
	stage := time.Now()
	m, err := e.loaders.Load(ctx, res.Model)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("%w: %v", ErrModelUnreadable, err)
	}
	res.Schema = m.Schema()
	e.observeStage("load", stage)

	// Project.
	stage = time.Now()
	sink, closeSink, err := e.openSink(ctx)
	if err != nil {
		return err
	}
	defer closeSink()

	g := rdf.NewGraph()
	graph.AddOntology(g)
	res.Stats, err = e.project(ctx, sink, model.Extract(m, e.cfg.RootClass), g)
	if err != nil {
		return err
	}
	log.Info("ifccheck: graphs built",
		"entities", res.Stats.Entities, "nodes", res.Stats.Nodes,
		"edges", res.Stats.Edges, "triples", g.Len())
	e.observeStage("project", stage)

	// Validate.
	stage = time.Now()
	res.Violations = e.shapes.Validate(g).Violations
	if e.metrics != nil {
		e.metrics.ObserveViolations(res.Violations)
	}
	log.Info("ifccheck: validation finished", "violations", len(res.Violations))
	e.observeStage("validate", stage)

	// Report.
	stage = time.Now()
	var observe report.SuggestionObserver
	if e.metrics != nil {
		observe = e.metrics.ObserveSuggestion
	}
	reporter := report.NewReporter(e.suggestionProvider(ctx, log, sink, res.Violations), observe)
	res.Conflicts, err = reporter.Build(ctx, res.Violations)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("%w: %v", ErrLLMUnavailable, err)
	}
	e.observeStage("report", stage)

	// Write.
	stage = time.Now()
	if err := e.writeOutputs(res, g); err != nil {
		return err
	}
	e.observeStage("write", stage)
	log.Info("ifccheck: report saved", "path", res.ReportPath)
	return nil
}

// openSink returns the injected sink or opens the configured one. The
// returned close function is always safe to call.
func (e *Engine) openSink(ctx context.Context) (store.Sink, func(), error) {
	if e.sink != nil {
		if err := e.sink.Ping(ctx); err != nil {
			if ctx.Err() != nil {
				return nil, nil, ctx.Err()
			}
			return nil, nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
		}
		return e.sink, func() {}, nil
	}
	s, err := store.Open(ctx, e.cfg.resolveStore())
	if err != nil {
		if ctx.Err() != nil {
			return nil, nil, ctx.Err()
		}
		return nil, nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return s, func() {
		if err := s.Close(context.WithoutCancel(ctx)); err != nil {
			slog.Warn("ifccheck: closing graph store", "error", err)
		}
	}, nil
}

// project wipes and rebuilds the property graph inside one transaction
// while filling g. On any failure the transaction is rolled back.
func (e *Engine) project(ctx context.Context, sink store.Sink, entities iter.Seq[model.Entity], g *rdf.Graph) (graph.Stats, error) {
	tx, err := sink.Begin(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return graph.Stats{}, ctx.Err()
		}
		return graph.Stats{}, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	rollback := func() {
		if err := tx.Rollback(context.WithoutCancel(ctx)); err != nil {
			slog.Warn("ifccheck: rollback failed", "error", err)
		}
	}

	if err := tx.Wipe(ctx); err != nil {
		rollback()
		return graph.Stats{}, storeWriteErr(ctx, "wiping graph", err)
	}
	stats, err := graph.NewBuilder(nil).Build(ctx, entities, tx, g)
	if err != nil {
		rollback()
		return stats, storeWriteErr(ctx, "building graph", err)
	}
	if err := tx.Commit(ctx); err != nil {
		rollback()
		return stats, storeWriteErr(ctx, "committing graph", err)
	}
	if e.metrics != nil {
		e.metrics.ObserveProjection(stats)
	}
	return stats, nil
}

func storeWriteErr(ctx context.Context, what string, err error) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}
	return fmt.Errorf("%w: %s: %v", ErrStoreWrite, what, err)
}

// suggestionProvider returns the injected provider or builds one from
// config. Nothing is built when there are no violations.
func (e *Engine) suggestionProvider(ctx context.Context, log *slog.Logger, sink store.Sink, vs []shape.Violation) report.SuggestionProvider {
	if e.suggester != nil || len(vs) == 0 || !e.cfg.Suggestions.Enabled {
		return e.suggester
	}
	provider, err := llm.NewProvider(e.cfg.Chat)
	if err != nil {
		log.Warn("ifccheck: suggestions disabled", "error", err)
		return nil
	}

	var opts []report.SuggesterOption
	if depth := e.cfg.Suggestions.NeighbourhoodDepth; depth > 0 {
		if r, ok := sink.(store.Reader); ok {
			idx, err := graph.LoadIndex(ctx, r)
			if err != nil {
				log.Warn("ifccheck: neighbourhood context unavailable", "error", err)
			} else {
				opts = append(opts, report.WithNeighbourhood(idx, depth))
			}
		}
	}
	return report.NewLLMSuggester(provider, e.cfg.Suggestions.Breaker, opts...)
}

func (e *Engine) writeOutputs(res *Result, g *rdf.Graph) error {
	dir := e.cfg.OutputDir
	res.RDFPath = filepath.Join(dir, GraphBaseName+rdf.FormatRegistry[e.format].Extension)
	if err := rdf.WriteFile(res.RDFPath, g, e.format, ontology.Prefixes()); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrOutputFailed, res.RDFPath, err)
	}

	res.ReportPath = filepath.Join(dir, ReportName)
	header := report.Header{RunID: res.RunID, Model: res.Model}
	if err := report.WriteTextFile(res.ReportPath, header, res.Conflicts); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrOutputFailed, res.ReportPath, err)
	}

	if e.cfg.XLSX {
		res.XLSXPath = filepath.Join(dir, XLSXName)
		if err := report.WriteXLSX(res.XLSXPath, res.Conflicts); err != nil {
			return fmt.Errorf("%w: %s: %v", ErrOutputFailed, res.XLSXPath, err)
		}
	}
	return nil
}

func (e *Engine) observeStage(name string, start time.Time) {
	if e.metrics != nil {
		e.metrics.ObserveStage(name, time.Since(start))
	}
}

func (e *Engine) finishMetrics(log *slog.Logger, res *Result, runErr error) {
	if e.metrics == nil {
		return
	}
	result := metrics.ResultConforms
	switch {
	case runErr != nil:
		result = metrics.ResultFailed
	case !res.Conforms():
		result = metrics.ResultViolations
	}
	e.metrics.RunFinished(result, time.Now())
	if e.cfg.MetricsFile == "" {
		return
	}
	if err := e.metrics.WriteTextfile(e.cfg.MetricsFile); err != nil {
		log.Warn("ifccheck: writing metrics", "error", errors.Join(ErrOutputFailed, err))
	}
}
