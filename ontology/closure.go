package ontology

import (
	"sync/atomic"

	"github.com/c360/sonto/pkg/cache"
)

// ancestorSet holds the IDs of every transitive is-a ancestor of a term.
// Sets are complete once stored and never mutated afterwards.
type ancestorSet map[string]struct{}

// closureIndex lazily computes and memoizes ancestor closures. Callers
// serialize access through the engine mutex.
type closureIndex struct {
	graph      *Graph
	sets       cache.Cache[ancestorSet]
	traversals atomic.Int64
	visits     atomic.Int64
}

func newClosureIndex(graph *Graph, sets cache.Cache[ancestorSet]) *closureIndex {
	return &closureIndex{graph: graph, sets: sets}
}

// isA reports whether parent is reachable from child over is-a edges.
// A term is always a kind of itself.
func (c *closureIndex) isA(child, parent *Term) bool {
	if child == nil || parent == nil {
		return false
	}
	if child.ID == parent.ID {
		return true
	}
	_, ok := c.ancestors(child)[parent.ID]
	return ok
}

func (c *closureIndex) ancestors(t *Term) ancestorSet {
	if set, ok := c.sets.Get(t.ID); ok {
		return set
	}
	set := c.build(t)
	// Term IDs are validated non-empty by the Builder so Set cannot fail.
	_, _ = c.sets.Set(t.ID, set)
	return set
}

// build walks the is-a graph from root with an explicit stack. The visited
// set makes the walk terminate on cyclic input, and root never lands in its
// own closure. Ancestors whose closure is already known are merged instead
// of re-walked; those lookups stay out of the cache statistics.
func (c *closureIndex) build(root *Term) ancestorSet {
	c.traversals.Add(1)

	set := make(ancestorSet)
	visited := map[string]struct{}{root.ID: {}}
	stack := make([]*Term, 0, 8)
	stack = pushReversed(stack, c.graph.parentsOf(root.ID))

	for len(stack) > 0 {
		t := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if _, seen := visited[t.ID]; seen {
			continue
		}
		visited[t.ID] = struct{}{}
		set[t.ID] = struct{}{}
		c.visits.Add(1)

		if known, ok := c.sets.Peek(t.ID); ok {
			for id := range known {
				if id != root.ID {
					set[id] = struct{}{}
					visited[id] = struct{}{}
				}
			}
			continue
		}
		stack = pushReversed(stack, c.graph.parentsOf(t.ID))
	}

	return set
}

// pushReversed keeps the walk in recorded parent order.
func pushReversed(stack, terms []*Term) []*Term {
	for i := len(terms) - 1; i >= 0; i-- {
		stack = append(stack, terms[i])
	}
	return stack
}

// ClosureStats describes closure cache activity.
type ClosureStats struct {
	Traversals   int64              `json:"traversals"`
	NodesVisited int64              `json:"nodes_visited"`
	Cached       int                `json:"cached"`
	Cache        cache.StatsSummary `json:"cache"`
}

func (c *closureIndex) stats() ClosureStats {
	return ClosureStats{
		Traversals:   c.traversals.Load(),
		NodesVisited: c.visits.Load(),
		Cached:       c.sets.Size(),
		Cache:        c.sets.Stats().Summary(),
	}
}
