package obo

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/c360/sonto/errors"
)

// Stanza types understood by the parser.
const (
	StanzaTerm     = "Term"
	StanzaTypedef  = "Typedef"
	StanzaInstance = "Instance"
)

const maxLineSize = 1 << 20

// TagValue is one "tag: value" line with comments and trailing qualifiers
// removed and escapes resolved.
type TagValue struct {
	Tag   string
	Value string
}

// Stanza is a bracketed block such as [Term].
type Stanza struct {
	Type string
	Line int
	Tags []TagValue
}

// Get returns the first value for tag.
func (s *Stanza) Get(tag string) (string, bool) {
	for _, tv := range s.Tags {
		if tv.Tag == tag {
			return tv.Value, true
		}
	}
	return "", false
}

// All returns every value for tag in file order.
func (s *Stanza) All(tag string) []string {
	var values []string
	for _, tv := range s.Tags {
		if tv.Tag == tag {
			values = append(values, tv.Value)
		}
	}
	return values
}

// Document is a parsed OBO file.
type Document struct {
	Header  []TagValue
	Stanzas []*Stanza
}

// HeaderValue returns the first header value for tag.
func (d *Document) HeaderValue(tag string) string {
	for _, tv := range d.Header {
		if tv.Tag == tag {
			return tv.Value
		}
	}
	return ""
}

// Terms returns the [Term] stanzas in file order.
func (d *Document) Terms() []*Stanza {
	return d.ofType(StanzaTerm)
}

// Typedefs returns the [Typedef] stanzas in file order.
func (d *Document) Typedefs() []*Stanza {
	return d.ofType(StanzaTypedef)
}

func (d *Document) ofType(kind string) []*Stanza {
	var out []*Stanza
	for _, s := range d.Stanzas {
		if s.Type == kind {
			out = append(out, s)
		}
	}
	return out
}

// ParseError reports malformed OBO input.
type ParseError struct {
	Line int
	Msg  string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("line %d: %s", e.Line, e.Msg)
}

// Unwrap lets callers match errors.ErrParsingFailed.
func (e *ParseError) Unwrap() error {
	return errors.ErrParsingFailed
}

// Parse reads an OBO 1.2/1.4 document. Only the subset needed for the is-a
// hierarchy is interpreted; every other tag is kept verbatim.
func Parse(r io.Reader) (*Document, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), maxLineSize)

	doc := &Document{}
	var current *Stanza
	lineNo := 0

	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if lineNo == 1 {
			line = strings.TrimPrefix(line, "\ufeff")
		}

		if line == "" || line[0] == '!' {
			continue
		}

		if line[0] == '[' {
			if !strings.HasSuffix(line, "]") || len(line) < 3 {
				return nil, parseFailure(lineNo, fmt.Sprintf("malformed stanza header %q", line))
			}
			if err := checkStanza(current); err != nil {
				return nil, err
			}
			current = &Stanza{Type: strings.TrimSpace(line[1 : len(line)-1]), Line: lineNo}
			doc.Stanzas = append(doc.Stanzas, current)
			continue
		}

		tag, rest, ok := strings.Cut(line, ":")
		if !ok {
			return nil, parseFailure(lineNo, fmt.Sprintf("expected tag-value pair, got %q", line))
		}
		tag = strings.TrimSpace(tag)
		if tag == "" {
			return nil, parseFailure(lineNo, "empty tag")
		}

		tv := TagValue{Tag: tag, Value: cleanValue(rest)}
		if current == nil {
			doc.Header = append(doc.Header, tv)
		} else {
			current.Tags = append(current.Tags, tv)
		}
	}

	if err := scanner.Err(); err != nil {
		return nil, errors.WrapInvalid(err, "Parser", "Parse", fmt.Sprintf("read line %d", lineNo+1))
	}
	if err := checkStanza(current); err != nil {
		return nil, err
	}

	return doc, nil
}

// checkStanza validates a finished stanza.
func checkStanza(s *Stanza) error {
	if s == nil || s.Type != StanzaTerm {
		return nil
	}
	ids := s.All("id")
	switch {
	case len(ids) == 0 || ids[0] == "":
		return parseFailure(s.Line, "term stanza has no id")
	case len(ids) > 1:
		return parseFailure(s.Line, fmt.Sprintf("term stanza has %d id tags", len(ids)))
	}
	return nil
}

func parseFailure(line int, msg string) error {
	return errors.WrapInvalid(&ParseError{Line: line, Msg: msg}, "Parser", "Parse", "parse OBO")
}

// cleanValue strips a "! comment" and a trailing "{qualifier=...}" block
// outside quoted text and resolves backslash escapes.
func cleanValue(raw string) string {
	var b strings.Builder
	b.Grow(len(raw))

	inQuote := false
	for i := 0; i < len(raw); i++ {
		c := raw[i]
		switch {
		case c == '\\' && i+1 < len(raw):
			i++
			b.WriteByte(unescape(raw[i]))
			continue
		case c == '"':
			inQuote = !inQuote
		case !inQuote && c == '!':
			return strings.TrimSpace(b.String())
		case !inQuote && c == '{' && trailingQualifier(raw[i:]):
			return strings.TrimSpace(b.String())
		}
		b.WriteByte(c)
	}
	return strings.TrimSpace(b.String())
}

// trailingQualifier reports whether s opens a {...} block that closes at the
// end of the value or right before a "! comment". Braces elsewhere are text.
func trailingQualifier(s string) bool {
	inQuote := false
	for i := 1; i < len(s); i++ {
		switch c := s[i]; {
		case c == '\\':
			i++
		case c == '"':
			inQuote = !inQuote
		case !inQuote && c == '}':
			rest := strings.TrimSpace(s[i+1:])
			return rest == "" || rest[0] == '!'
		}
	}
	return false
}

func unescape(c byte) byte {
	switch c {
	case 'n':
		return '\n'
	case 't':
		return '\t'
	case 'W':
		return ' '
	default:
		return c
	}
}
