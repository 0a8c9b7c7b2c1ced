package ontology

import (
	"bytes"
	stderrors "errors"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360/sonto/errors"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type edge [2]string

// buildGraph builds a graph from terms and child->parent edges (by ID).
func buildGraph(t *testing.T, terms []*Term, edges ...edge) *Graph {
	t.Helper()
	b := NewBuilder(discardLogger())
	for _, tm := range terms {
		require.NoError(t, b.AddTerm(tm))
	}
	for _, e := range edges {
		b.AddIsA(e[0], e[1])
	}
	g, err := b.Build()
	require.NoError(t, err)
	return g
}

func term(id, description string) *Term {
	return NewTerm(id, description, false, nil)
}

func obsolete(id, description string) *Term {
	return NewTerm(id, description, true, map[string][]string{"is_obsolete": {"true"}})
}

func TestGraph_ResolveDescriptionBeforeID(t *testing.T) {
	g := buildGraph(t, []*Term{
		term("foo", "bar"),
		term("bar", "baz"),
	})

	got, ok := g.Resolve("bar")
	require.True(t, ok)
	assert.Equal(t, "foo", got.ID, "description index wins over ID")

	got, ok = g.Resolve("baz")
	require.True(t, ok)
	assert.Equal(t, "bar", got.ID)

	got, ok = g.Resolve("foo")
	require.True(t, ok)
	assert.Equal(t, "foo", got.ID, "falls back to canonical ID")

	_, ok = g.Resolve("missing")
	assert.False(t, ok)
	_, ok = g.Resolve("")
	assert.False(t, ok)
}

func TestGraph_ParentsOfKeepsRecordedOrder(t *testing.T) {
	g := buildGraph(t,
		[]*Term{term("SO:1", "child"), term("SO:2", "first"), term("SO:3", "second")},
		edge{"SO:1", "SO:3"}, edge{"SO:1", "SO:2"}, edge{"SO:1", "SO:3"},
	)

	child, ok := g.Term("SO:1")
	require.True(t, ok)

	parents := g.ParentsOf(child)
	require.Len(t, parents, 2)
	assert.Equal(t, "SO:3", parents[0].ID)
	assert.Equal(t, "SO:2", parents[1].ID)
	assert.Equal(t, 2, g.EdgeCount(), "duplicate edges collapse")

	parents[0] = nil
	assert.NotNil(t, g.ParentsOf(child)[0], "returned slice is a copy")
	assert.Nil(t, g.ParentsOf(nil))
}

func TestGraph_DanglingEdgesSkipped(t *testing.T) {
	g := buildGraph(t,
		[]*Term{term("SO:1", "child"), term("SO:2", "parent")},
		edge{"SO:1", "SO:2"}, edge{"SO:1", "SO:404"}, edge{"SO:405", "SO:2"},
	)

	child, _ := g.Term("SO:1")
	require.Len(t, g.ParentsOf(child), 1)
	assert.Equal(t, 1, g.EdgeCount())
	assert.Equal(t, 2, g.DanglingEdges())
}

func TestGraph_TermsSortedByID(t *testing.T) {
	g := buildGraph(t, []*Term{term("SO:3", "c"), term("SO:1", "a"), term("SO:2", "b")})

	ids := make([]string, 0, g.Len())
	for _, tm := range g.Terms() {
		ids = append(ids, tm.ID)
	}
	assert.Equal(t, []string{"SO:1", "SO:2", "SO:3"}, ids)
	assert.Equal(t, 3, g.Len())
}

func TestBuilder_DuplicateDescriptionPolicy(t *testing.T) {
	tests := []struct {
		name     string
		terms    []*Term
		expected string
		warns    bool
	}{
		{
			name:     "obsolete then current keeps current",
			terms:    []*Term{obsolete("SO:1", "dup"), term("SO:2", "dup")},
			expected: "SO:2",
		},
		{
			name:     "current then obsolete keeps current",
			terms:    []*Term{term("SO:1", "dup"), obsolete("SO:2", "dup")},
			expected: "SO:1",
		},
		{
			name:     "both current later wins",
			terms:    []*Term{term("SO:1", "dup"), term("SO:2", "dup")},
			expected: "SO:2",
			warns:    true,
		},
		{
			name:     "both obsolete later wins",
			terms:    []*Term{obsolete("SO:1", "dup"), obsolete("SO:2", "dup")},
			expected: "SO:2",
			warns:    true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var logs bytes.Buffer
			b := NewBuilder(slog.New(slog.NewTextHandler(&logs, nil)))
			for _, tm := range tt.terms {
				require.NoError(t, b.AddTerm(tm))
			}
			g, err := b.Build()
			require.NoError(t, err)

			got, ok := g.Resolve("dup")
			require.True(t, ok)
			assert.Equal(t, tt.expected, got.ID)
			assert.Equal(t, tt.warns, strings.Contains(logs.String(), "level=WARN"))

			// both terms stay reachable by ID
			for _, tm := range tt.terms {
				_, ok := g.Term(tm.ID)
				assert.True(t, ok)
			}
		})
	}
}

func TestBuilder_Errors(t *testing.T) {
	b := NewBuilder(nil)
	require.NoError(t, b.AddTerm(term("SO:1", "a")))

	err := b.AddTerm(term("SO:1", "again"))
	require.Error(t, err)
	assert.True(t, errors.IsInvalid(err))
	assert.True(t, stderrors.Is(err, errors.ErrDuplicateTerm))

	err = b.AddTerm(term("", "no id"))
	assert.True(t, errors.IsInvalid(err))
	assert.True(t, errors.IsInvalid(b.AddTerm(nil)))

	_, err = NewBuilder(nil).Build()
	assert.True(t, errors.IsInvalid(err), "empty ontology is rejected")
}

func TestTerm_Properties(t *testing.T) {
	props := map[string][]string{"synonym": {"one", "two"}, "def": {"text"}}
	tm := NewTerm("SO:1", "thing", false, props)
	props["synonym"][0] = "mutated"

	v, ok := tm.Property("synonym")
	require.True(t, ok)
	assert.Equal(t, "one", v)
	assert.Equal(t, []string{"one", "two"}, tm.PropertyValues("synonym"))
	assert.Equal(t, []string{"def", "synonym"}, tm.PropertyKeys())

	_, ok = tm.Property("missing")
	assert.False(t, ok)
	assert.Equal(t, "SO:1 (thing)", tm.String())
	assert.Equal(t, "SO:2", NewTerm("SO:2", "", false, nil).String())
}
