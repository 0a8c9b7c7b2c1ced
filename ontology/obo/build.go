package obo

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/c360/sonto/errors"
	"github.com/c360/sonto/ontology"
)

// Tags read when building terms. Everything except id, name and is_a is also
// kept as a term property.
const (
	tagID         = "id"
	tagName       = "name"
	tagIsObsolete = "is_obsolete"
	tagIsA        = "is_a"
)

// Build turns the document's [Term] stanzas into an is-a graph. Terms and
// edges are fed to the builder in file order so the duplicate-description
// policy sees a deterministic sequence.
func (d *Document) Build(logger *slog.Logger) (*ontology.Graph, error) {
	b := ontology.NewBuilder(logger)

	for _, s := range d.Terms() {
		id, _ := s.Get(tagID)
		name, _ := s.Get(tagName)
		obsoleteValue, _ := s.Get(tagIsObsolete)

		props := make(map[string][]string)
		for _, tv := range s.Tags {
			switch tv.Tag {
			case tagID, tagName, tagIsA:
				continue
			}
			props[tv.Tag] = append(props[tv.Tag], tv.Value)
		}

		t := ontology.NewTerm(id, name, strings.EqualFold(obsoleteValue, "true"), props)
		if err := b.AddTerm(t); err != nil {
			return nil, errors.Wrap(err, "Document", "Build", fmt.Sprintf("add term from line %d", s.Line))
		}
		for _, parent := range s.All(tagIsA) {
			if parent != "" {
				b.AddIsA(id, parent)
			}
		}
	}

	return b.Build()
}
