package testutil

import (
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/c360/sonto/ontology"
	"github.com/c360/sonto/ontology/obo"
)

// FeatureOBO is a small Sequence Ontology excerpt covering the gene model
// plus one variant branch. It includes an obsolete term that shares the
// description "CDS" with the current one.
const FeatureOBO = `format-version: 1.2
data-version: testutil/feature
ontology: so

[Term]
id: SO:0000110
name: sequence_feature

[Term]
id: SO:0000704
name: gene
is_a: SO:0000110 ! sequence_feature

[Term]
id: SO:0000673
name: transcript
is_a: SO:0000110 ! sequence_feature

[Term]
id: SO:0000234
name: mRNA
is_a: SO:0000673 ! transcript

[Term]
id: SO:0000147
name: exon
is_a: SO:0000110 ! sequence_feature

[Term]
id: SO:0000316
name: CDS
is_a: SO:0000110 ! sequence_feature

[Term]
id: SO:9999999
name: CDS
is_obsolete: true

[Term]
id: SO:0001060
name: sequence_variant

[Term]
id: SO:0001583
name: missense_variant
is_a: SO:0001060 ! sequence_variant
`

// NewEngine builds an engine from OBO text, failing the test on any error.
// Logging is discarded.
func NewEngine(t testing.TB, oboText string, opts ...ontology.Option) *ontology.Engine {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	doc, err := obo.Parse(strings.NewReader(oboText))
	if err != nil {
		t.Fatalf("parse OBO fixture: %v", err)
	}
	graph, err := doc.Build(logger)
	if err != nil {
		t.Fatalf("build OBO fixture: %v", err)
	}

	engine, err := ontology.New(graph, append([]ontology.Option{ontology.WithLogger(logger)}, opts...)...)
	if err != nil {
		t.Fatalf("create engine: %v", err)
	}
	return engine
}
