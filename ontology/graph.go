package ontology

import (
	"fmt"
	"log/slog"
	"sort"

	"github.com/c360/sonto/errors"
)

type isAEdge struct {
	child  string
	parent string
}

// Builder accumulates terms and is-a edges in load order and produces an
// immutable Graph. A Builder is not safe for concurrent use.
type Builder struct {
	logger *slog.Logger
	terms  map[string]*Term
	order  []*Term
	edges  []isAEdge
}

// NewBuilder creates an empty builder. A nil logger falls back to slog.Default.
func NewBuilder(logger *slog.Logger) *Builder {
	if logger == nil {
		logger = slog.Default()
	}
	return &Builder{
		logger: logger,
		terms:  make(map[string]*Term),
	}
}

// AddTerm records a term. Term IDs must be unique and non-empty.
func (b *Builder) AddTerm(t *Term) error {
	if t == nil || t.ID == "" {
		return errors.WrapInvalid(errors.ErrInvalidData, "Builder", "AddTerm", "term id cannot be empty")
	}
	if _, exists := b.terms[t.ID]; exists {
		return errors.WrapInvalid(
			fmt.Errorf("%w: %s", errors.ErrDuplicateTerm, t.ID),
			"Builder", "AddTerm", "register term")
	}
	b.terms[t.ID] = t
	b.order = append(b.order, t)
	return nil
}

// AddIsA records that childID is-a parentID. Either end may be added before
// the corresponding term; edges whose ends never appear are counted as
// dangling at Build time.
func (b *Builder) AddIsA(childID, parentID string) {
	b.edges = append(b.edges, isAEdge{child: childID, parent: parentID})
}

// Build freezes the builder contents into a Graph.
//
// When two terms share a description the non-obsolete one is indexed if
// exactly one of them is obsolete; otherwise the later term replaces the
// earlier one and a warning is logged.
func (b *Builder) Build() (*Graph, error) {
	if len(b.order) == 0 {
		return nil, errors.WrapInvalid(errors.ErrInvalidData, "Builder", "Build", "ontology contains no terms")
	}

	g := &Graph{
		terms:         make(map[string]*Term, len(b.order)),
		byDescription: make(map[string]*Term, len(b.order)),
		parents:       make(map[string][]*Term),
	}

	for _, t := range b.order {
		g.terms[t.ID] = t
		b.indexDescription(g.byDescription, t)
	}

	seen := make(map[isAEdge]struct{}, len(b.edges))
	for _, e := range b.edges {
		if _, dup := seen[e]; dup {
			continue
		}
		seen[e] = struct{}{}

		child, okChild := g.terms[e.child]
		parent, okParent := g.terms[e.parent]
		if !okChild || !okParent {
			g.dangling++
			b.logger.Debug("Skipping dangling is_a edge", "child", e.child, "parent", e.parent)
			continue
		}
		g.parents[child.ID] = append(g.parents[child.ID], parent)
		g.edgeCount++
	}

	g.sorted = append([]*Term(nil), b.order...)
	sort.Slice(g.sorted, func(i, j int) bool { return g.sorted[i].ID < g.sorted[j].ID })

	return g, nil
}

func (b *Builder) indexDescription(index map[string]*Term, t *Term) {
	if t.Description == "" {
		return
	}
	existing, ok := index[t.Description]
	if ok {
		switch {
		case t.Obsolete && !existing.Obsolete:
			b.logger.Debug("Ignoring obsolete term with duplicate description",
				"description", t.Description, "kept", existing.ID, "ignored", t.ID)
			return
		case existing.Obsolete && !t.Obsolete:
			b.logger.Debug("Replacing obsolete term with duplicate description",
				"description", t.Description, "kept", t.ID, "replaced", existing.ID)
		default:
			b.logger.Warn("Duplicate term description, later term wins",
				"description", t.Description, "kept", t.ID, "replaced", existing.ID)
		}
	}
	index[t.Description] = t
}

// Graph is an immutable is-a graph over ontology terms.
// All methods are safe for concurrent use.
type Graph struct {
	terms         map[string]*Term
	byDescription map[string]*Term
	parents       map[string][]*Term
	sorted        []*Term
	edgeCount     int
	dangling      int
}

// Resolve finds a term by description first and canonical ID second.
func (g *Graph) Resolve(nameOrDescription string) (*Term, bool) {
	if nameOrDescription == "" {
		return nil, false
	}
	if t, ok := g.byDescription[nameOrDescription]; ok {
		return t, true
	}
	t, ok := g.terms[nameOrDescription]
	return t, ok
}

// ParentsOf returns the direct is-a parents of t in recorded order.
func (g *Graph) ParentsOf(t *Term) []*Term {
	if t == nil {
		return nil
	}
	return append([]*Term(nil), g.parents[t.ID]...)
}

// parentsOf is the allocation-free variant used by the closure walk.
func (g *Graph) parentsOf(id string) []*Term {
	return g.parents[id]
}

// Term looks a term up by canonical ID only.
func (g *Graph) Term(id string) (*Term, bool) {
	t, ok := g.terms[id]
	return t, ok
}

// Len returns the number of terms.
func (g *Graph) Len() int {
	return len(g.terms)
}

// Terms returns every term sorted by ID.
func (g *Graph) Terms() []*Term {
	return append([]*Term(nil), g.sorted...)
}

// EdgeCount returns the number of distinct is-a edges kept.
func (g *Graph) EdgeCount() int {
	return g.edgeCount
}

// DanglingEdges returns how many is-a edges referenced unknown terms.
func (g *Graph) DanglingEdges() int {
	return g.dangling
}
