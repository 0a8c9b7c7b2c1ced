package ontology

import (
	"fmt"
	"sort"
)

// Term is a single Sequence Ontology class.
//
// ID is the canonical identifier (for example "SO:0000316"); Description is
// the human readable name ("CDS") that callers usually query by. Terms are
// immutable once handed to a Builder.
type Term struct {
	ID          string
	Description string
	Obsolete    bool

	properties map[string][]string
}

// NewTerm creates a term. props holds the remaining tag-value annotations
// from the source file; it is copied.
func NewTerm(id, description string, obsolete bool, props map[string][]string) *Term {
	t := &Term{
		ID:          id,
		Description: description,
		Obsolete:    obsolete,
	}
	if len(props) > 0 {
		t.properties = make(map[string][]string, len(props))
		for k, v := range props {
			t.properties[k] = append([]string(nil), v...)
		}
	}
	return t
}

// Property returns the first value recorded for key.
func (t *Term) Property(key string) (string, bool) {
	values := t.properties[key]
	if len(values) == 0 {
		return "", false
	}
	return values[0], true
}

// PropertyValues returns every value recorded for key in file order.
func (t *Term) PropertyValues(key string) []string {
	return append([]string(nil), t.properties[key]...)
}

// PropertyKeys returns the annotation keys in sorted order.
func (t *Term) PropertyKeys() []string {
	keys := make([]string, 0, len(t.properties))
	for k := range t.properties {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// String implements fmt.Stringer
func (t *Term) String() string {
	if t.Description == "" {
		return t.ID
	}
	return fmt.Sprintf("%s (%s)", t.ID, t.Description)
}
