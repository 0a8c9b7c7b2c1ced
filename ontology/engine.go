package ontology

import (
	"log/slog"
	"strconv"
	"sync"
	"time"

	"github.com/c360/sonto/errors"
	"github.com/c360/sonto/metric"
	"github.com/c360/sonto/pkg/cache"
)

// Engine answers is-a queries against a loaded ontology. It owns the lazily
// built ancestor closures and the query diagnostics. Query methods never
// return errors: anything that cannot be resolved is simply not a match.
type Engine struct {
	graph    *Graph
	closures *closureIndex
	diag     *Diagnostics
	metrics  *EngineMetrics
	logger   *slog.Logger

	// mu serializes closure builds and membership checks
	mu sync.Mutex
}

// Option configures an Engine.
type Option func(*engineOptions)

type engineOptions struct {
	logger    *slog.Logger
	registrar metric.MetricsRegistrar
}

// WithLogger sets the engine logger.
func WithLogger(logger *slog.Logger) Option {
	return func(o *engineOptions) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithMetrics exports engine and closure cache collectors through registrar.
func WithMetrics(registrar metric.MetricsRegistrar) Option {
	return func(o *engineOptions) {
		o.registrar = registrar
	}
}

// New creates an engine over graph.
func New(graph *Graph, opts ...Option) (*Engine, error) {
	if graph == nil {
		return nil, errors.WrapFatal(errors.ErrOntologyNotFound, "Engine", "New", "graph is required")
	}

	o := &engineOptions{logger: slog.Default()}
	for _, opt := range opts {
		if opt != nil {
			opt(o)
		}
	}

	var cacheOpts []cache.Option
	var metrics *EngineMetrics
	if o.registrar != nil {
		var err error
		metrics, err = newEngineMetrics(o.registrar)
		if err != nil {
			return nil, errors.Wrap(err, "Engine", "New", "register engine metrics")
		}
		metrics.recordGraph(graph)
		cacheOpts = append(cacheOpts, cache.WithMetrics(o.registrar, "closure"))
	}

	sets, err := cache.New[ancestorSet](cacheOpts...)
	if err != nil {
		return nil, errors.Wrap(err, "Engine", "New", "create closure cache")
	}

	diag := NewDiagnostics(o.logger)
	if metrics != nil {
		diag.onMiss = metrics.recordNotFound
	}

	return &Engine{
		graph:    graph,
		closures: newClosureIndex(graph, sets),
		diag:     diag,
		metrics:  metrics,
		logger:   o.logger,
	}, nil
}

// IsA reports whether child is the same term as parent or one of its
// descendants. Either argument may be a description or a canonical ID.
func (e *Engine) IsA(child, parent string) bool {
	if child == "" || parent == "" {
		return false
	}
	start := time.Now()

	if child == parent {
		e.resolveAndRecord(child)
		e.metrics.recordQuery("true", time.Since(start).Seconds())
		return true
	}

	childTerm, ok := e.resolveAndRecord(child)
	if !ok {
		e.metrics.recordQuery("unresolved", time.Since(start).Seconds())
		return false
	}
	parentTerm, ok := e.graph.Resolve(parent)
	if !ok {
		e.logger.Debug("Parent term not resolved", "parent", parent, "child", child)
		e.metrics.recordQuery("unresolved", time.Since(start).Seconds())
		return false
	}

	e.mu.Lock()
	before := e.closures.traversals.Load()
	result := e.closures.isA(childTerm, parentTerm)
	built := e.closures.traversals.Load() != before
	e.mu.Unlock()

	if built {
		e.metrics.recordClosureBuild()
	}
	e.metrics.recordQuery(strconv.FormatBool(result), time.Since(start).Seconds())
	return result
}

// IsAnyOf reports whether child is any of parents. With no parents every
// child matches.
func (e *Engine) IsAnyOf(child string, parents ...string) bool {
	if len(parents) == 0 {
		return true
	}
	for _, parent := range parents {
		if e.IsA(child, parent) {
			return true
		}
	}
	return false
}

// Resolve looks a term up by description or ID without touching diagnostics.
func (e *Engine) Resolve(nameOrDescription string) (*Term, bool) {
	return e.graph.Resolve(nameOrDescription)
}

func (e *Engine) resolveAndRecord(id string) (*Term, bool) {
	t, ok := e.graph.Resolve(id)
	if ok {
		e.diag.RecordFound(id)
	} else {
		e.diag.RecordNotFound(id)
	}
	return t, ok
}

// Graph returns the underlying graph.
func (e *Engine) Graph() *Graph {
	return e.graph
}

// Diagnostics returns the engine's query diagnostics.
func (e *Engine) Diagnostics() *Diagnostics {
	return e.diag
}

// FoundTerms returns every identifier that resolved, sorted case-insensitively.
func (e *Engine) FoundTerms() []string {
	return e.diag.FoundTerms()
}

// NotFoundTerms returns every identifier that failed to resolve, sorted
// case-insensitively.
func (e *Engine) NotFoundTerms() []string {
	return e.diag.NotFoundTerms()
}

// Stats describes the loaded graph and closure activity.
type Stats struct {
	Terms         int          `json:"terms"`
	Edges         int          `json:"edges"`
	DanglingEdges int          `json:"dangling_edges"`
	Closures      ClosureStats `json:"closures"`
}

// Stats returns a point-in-time view of engine activity.
func (e *Engine) Stats() Stats {
	e.mu.Lock()
	closures := e.closures.stats()
	e.mu.Unlock()

	return Stats{
		Terms:         e.graph.Len(),
		Edges:         e.graph.EdgeCount(),
		DanglingEdges: e.graph.DanglingEdges(),
		Closures:      closures,
	}
}
