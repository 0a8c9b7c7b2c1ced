package obo

import (
	stderrors "errors"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360/sonto/errors"
	"github.com/c360/sonto/ontology"
)

const chainOBO = `format-version: 1.2
data-version: test/1
! a file level comment

[Term]
id: T:A
name: A
def: "Leaf term with a \"quoted\" word and a ! bang" [T:ref]
is_a: T:B ! B

[Term]
id: T:B
name: B
is_a: T:C {source="test"} ! C

[Term]
id: T:C
name: C
synonym: "top" EXACT []
synonym: "root" RELATED []

[Typedef]
id: part_of
name: part_of
`

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestParse_Structure(t *testing.T) {
	doc, err := Parse(strings.NewReader(chainOBO))
	require.NoError(t, err)

	assert.Equal(t, "1.2", doc.HeaderValue("format-version"))
	assert.Equal(t, "test/1", doc.HeaderValue("data-version"))
	assert.Equal(t, "", doc.HeaderValue("missing"))

	require.Len(t, doc.Terms(), 3)
	require.Len(t, doc.Typedefs(), 1)
	assert.Len(t, doc.Stanzas, 4)

	a := doc.Terms()[0]
	assert.Equal(t, 5, a.Line)
	id, ok := a.Get("id")
	require.True(t, ok)
	assert.Equal(t, "T:A", id)
	assert.Equal(t, []string{"T:B"}, a.All("is_a"), "trailing comment stripped")

	def, _ := a.Get("def")
	assert.Equal(t, `"Leaf term with a "quoted" word and a ! bang" [T:ref]`, def)

	b := doc.Terms()[1]
	assert.Equal(t, []string{"T:C"}, b.All("is_a"), "trailing qualifier stripped")

	c := doc.Terms()[2]
	assert.Equal(t, []string{`"top" EXACT []`, `"root" RELATED []`}, c.All("synonym"))
}

func TestParse_Errors(t *testing.T) {
	tests := []struct {
		name  string
		input string
		line  int
	}{
		{"term without id", "[Term]\nname: nameless\n", 1},
		{"second term without id", "[Term]\nid: T:1\n\n[Term]\nname: x\n\n[Term]\nid: T:3\n", 4},
		{"duplicate id tags", "[Term]\nid: T:1\nid: T:2\n", 1},
		{"line without colon", "[Term]\nid: T:1\nnonsense\n", 3},
		{"unterminated header", "[Term\nid: T:1\n", 1},
		{"empty tag", "[Term]\n: value\n", 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(strings.NewReader(tt.input))
			require.Error(t, err)
			assert.True(t, errors.IsInvalid(err))
			assert.True(t, stderrors.Is(err, errors.ErrParsingFailed))

			var pe *ParseError
			require.True(t, stderrors.As(err, &pe))
			assert.Equal(t, tt.line, pe.Line)
		})
	}
}

func TestParse_TypedefWithoutIDAllowed(t *testing.T) {
	doc, err := Parse(strings.NewReader("[Typedef]\nname: loose\n[Term]\nid: T:1\n"))
	require.NoError(t, err)
	assert.Len(t, doc.Terms(), 1)
}

func TestCleanValue(t *testing.T) {
	tests := []struct {
		raw      string
		expected string
	}{
		{" SO:0000001 ! region", "SO:0000001"},
		{" SO:0000001 {is_inferred=\"true\"}", "SO:0000001"},
		{` "a \"b\" c" []`, `"a "b" c" []`},
		{` "keeps ! and {braces}" [] ! comment`, `"keeps ! and {braces}" []`},
		{` escaped\! bang`, `escaped! bang`},
		{` tab\there`, "tab\there"},
		{` space\Where`, "space here"},
		{"   ", ""},
		{" see {curly} note", "see {curly} note"},
		{" SO:0000001 {source=\"x\"} ! region", "SO:0000001"},
		{" unclosed {brace", "unclosed {brace"},
		{" a {b} {c=\"d\"}", "a {b}"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.expected, cleanValue(tt.raw), "raw %q", tt.raw)
	}
}

func TestDocument_Build(t *testing.T) {
	doc, err := Parse(strings.NewReader(chainOBO))
	require.NoError(t, err)

	g, err := doc.Build(quietLogger())
	require.NoError(t, err)
	assert.Equal(t, 3, g.Len())
	assert.Equal(t, 2, g.EdgeCount())

	e, err := ontology.New(g, ontology.WithLogger(quietLogger()))
	require.NoError(t, err)
	assert.True(t, e.IsA("A", "C"))
	assert.False(t, e.IsA("C", "A"))

	c, ok := g.Resolve("C")
	require.True(t, ok)
	assert.Equal(t, []string{`"top" EXACT []`, `"root" RELATED []`}, c.PropertyValues("synonym"))
}

func TestDocument_BuildObsoleteDuplicates(t *testing.T) {
	input := `[Term]
id: SO:1
name: shared
is_obsolete: true

[Term]
id: SO:2
name: shared
`
	doc, err := Parse(strings.NewReader(input))
	require.NoError(t, err)

	g, err := doc.Build(quietLogger())
	require.NoError(t, err)

	got, ok := g.Resolve("shared")
	require.True(t, ok)
	assert.Equal(t, "SO:2", got.ID)

	old, ok := g.Term("SO:1")
	require.True(t, ok)
	assert.True(t, old.Obsolete)
	v, _ := old.Property("is_obsolete")
	assert.Equal(t, "true", v)
}

func TestDocument_BuildDuplicateID(t *testing.T) {
	doc, err := Parse(strings.NewReader("[Term]\nid: SO:1\n\n[Term]\nid: SO:1\n"))
	require.NoError(t, err)

	_, err = doc.Build(quietLogger())
	require.Error(t, err)
	assert.True(t, errors.IsInvalid(err))
	assert.True(t, stderrors.Is(err, errors.ErrDuplicateTerm))
	assert.Contains(t, err.Error(), "line 4")
}
