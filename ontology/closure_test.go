package ontology

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360/sonto/pkg/cache"
)

func newTestClosures(t *testing.T, g *Graph) *closureIndex {
	t.Helper()
	sets, err := cache.New[ancestorSet]()
	require.NoError(t, err)
	return newClosureIndex(g, sets)
}

func mustTerm(t *testing.T, g *Graph, id string) *Term {
	t.Helper()
	tm, ok := g.Term(id)
	require.True(t, ok, "term %s", id)
	return tm
}

func TestClosure_Chain(t *testing.T) {
	g := buildGraph(t,
		[]*Term{term("A", "a"), term("B", "b"), term("C", "c")},
		edge{"A", "B"}, edge{"B", "C"},
	)
	c := newTestClosures(t, g)
	a, b, cc := mustTerm(t, g, "A"), mustTerm(t, g, "B"), mustTerm(t, g, "C")

	assert.True(t, c.isA(a, cc))
	assert.True(t, c.isA(a, b))
	assert.False(t, c.isA(cc, a))
	assert.True(t, c.isA(a, a))
	assert.False(t, c.isA(nil, a))
	assert.False(t, c.isA(a, nil))

	assert.Equal(t, ancestorSet{"B": {}, "C": {}}, c.ancestors(a))
}

func TestClosure_MemoizedPerTerm(t *testing.T) {
	g := buildGraph(t,
		[]*Term{term("A", "a"), term("B", "b"), term("C", "c")},
		edge{"A", "B"}, edge{"B", "C"},
	)
	c := newTestClosures(t, g)
	a, b, cc := mustTerm(t, g, "A"), mustTerm(t, g, "B"), mustTerm(t, g, "C")

	require.True(t, c.isA(a, cc))
	assert.EqualValues(t, 1, c.traversals.Load())

	for i := 0; i < 10; i++ {
		assert.True(t, c.isA(a, cc))
		assert.True(t, c.isA(a, b))
	}
	assert.EqualValues(t, 1, c.traversals.Load(), "repeated queries reuse the stored closure")

	assert.True(t, c.isA(b, cc))
	assert.EqualValues(t, 2, c.traversals.Load())
	assert.Equal(t, 2, c.stats().Cached)
}

func TestClosure_ReusesKnownAncestorClosure(t *testing.T) {
	g := buildGraph(t,
		[]*Term{term("A", "a"), term("B", "b"), term("C", "c"), term("D", "d")},
		edge{"D", "A"}, edge{"A", "B"}, edge{"B", "C"},
	)
	c := newTestClosures(t, g)

	c.ancestors(mustTerm(t, g, "A"))
	visitsBefore := c.visits.Load()

	set := c.ancestors(mustTerm(t, g, "D"))
	assert.Equal(t, ancestorSet{"A": {}, "B": {}, "C": {}}, set)
	assert.EqualValues(t, 1, c.visits.Load()-visitsBefore, "walk stops at A and merges its closure")
}

func TestClosure_CycleTerminates(t *testing.T) {
	g := buildGraph(t,
		[]*Term{term("X", "x"), term("Y", "y"), term("Z", "z"), term("S", "self")},
		edge{"X", "Y"}, edge{"Y", "X"}, edge{"S", "S"},
	)
	c := newTestClosures(t, g)
	x, y, z, s := mustTerm(t, g, "X"), mustTerm(t, g, "Y"), mustTerm(t, g, "Z"), mustTerm(t, g, "S")

	assert.True(t, c.isA(x, y))
	assert.True(t, c.isA(y, x))
	assert.False(t, c.isA(x, z))
	assert.False(t, c.isA(s, z))

	assert.NotContains(t, c.ancestors(x), "X", "a term is never its own ancestor")
	assert.NotContains(t, c.ancestors(y), "Y")
	assert.Empty(t, c.ancestors(s))
}

func TestClosure_DiamondVisitsEachAncestorOnce(t *testing.T) {
	g := buildGraph(t,
		[]*Term{term("A", "a"), term("L", "l"), term("R", "r"), term("T", "top")},
		edge{"A", "L"}, edge{"A", "R"}, edge{"L", "T"}, edge{"R", "T"},
	)
	c := newTestClosures(t, g)

	set := c.ancestors(mustTerm(t, g, "A"))
	assert.Len(t, set, 3)
	assert.EqualValues(t, 3, c.visits.Load())
}

func TestClosure_StatisticsCountTopLevelLookupsOnly(t *testing.T) {
	g := buildGraph(t,
		[]*Term{term("A", "a"), term("B", "b"), term("C", "c"), term("D", "d"), term("E", "e"), term("F", "f")},
		edge{"A", "B"}, edge{"B", "C"}, edge{"C", "D"}, edge{"D", "E"}, edge{"E", "F"},
	)
	c := newTestClosures(t, g)
	a, f := mustTerm(t, g, "A"), mustTerm(t, g, "F")

	require.True(t, c.isA(a, f))
	stats := c.stats()
	assert.EqualValues(t, 1, stats.Traversals)
	assert.Equal(t, 1, stats.Cached)
	assert.Zero(t, stats.Cache.Hits)
	assert.EqualValues(t, 1, stats.Cache.Misses)

	require.True(t, c.isA(a, f))
	stats = c.stats()
	assert.EqualValues(t, 1, stats.Cache.Hits)
	assert.EqualValues(t, 1, stats.Cache.Misses)
}
