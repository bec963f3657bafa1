package filter

import (
	"slices"
	"strings"

	"github.com/cespare/xxhash/v2"

	"github.com/hupe1980/capmatch/internal/value"
)

// Filter is a parsed, immutable filter. It is safe for concurrent use.
type Filter struct {
	root      Node
	canonical string
}

func newFilter(root Node) *Filter {
	return &Filter{root: root, canonical: Render(root)}
}

// Root returns the root node of the parsed tree.
func (f *Filter) Root() Node {
	return f.root
}

// Matches evaluates f against props with case-insensitive attribute lookup.
func (f *Filter) Matches(props value.PropertyMap) bool {
	return Evaluate(f.root, props, false)
}

// MatchesCase evaluates f against props requiring attribute names to match
// the stored keys exactly.
func (f *Filter) MatchesCase(props value.PropertyMap) bool {
	return Evaluate(f.root, props, true)
}

// String returns the canonical rendering of f.
func (f *Filter) String() string {
	return f.canonical
}

// Equal reports whether f and other have the same canonical rendering.
func (f *Filter) Equal(other *Filter) bool {
	if f == nil || other == nil {
		return f == other
	}

	return f.canonical == other.canonical
}

// Hash returns a hash of the canonical rendering. Equal filters have equal
// hashes.
func (f *Filter) Hash() uint64 {
	return xxhash.Sum64String(f.canonical)
}

// Attributes returns the lower-cased attribute names referenced by f,
// sorted and without duplicates.
func (f *Filter) Attributes() []string {
	var attrs []string

	Walk(f.root, func(n Node) bool {
		if a, ok := attrOf(n); ok {
			attrs = append(attrs, strings.ToLower(a))
		}

		return true
	})

	slices.Sort(attrs)

	return slices.Compact(attrs)
}

// Match parses text and evaluates it against props in one step.
func Match(text string, props value.PropertyMap) (bool, error) {
	f, err := Parse(text)
	if err != nil {
		return false, err
	}

	return f.Matches(props), nil
}

// Render returns the canonical text of n. Attribute names are lower-cased,
// insignificant white space is dropped and operand characters that would
// otherwise be read as syntax are escaped. Parsing the result yields a tree
// that matches exactly the same property maps as n.
func Render(n Node) string {
	var b strings.Builder

	render(&b, n)

	return b.String()
}

func render(b *strings.Builder, n Node) {
	b.WriteByte('(')

	switch t := n.(type) {
	case *And:
		b.WriteByte('&')

		for _, c := range t.Children {
			render(b, c)
		}
	case *Or:
		b.WriteByte('|')

		for _, c := range t.Children {
			render(b, c)
		}
	case *Not:
		b.WriteByte('!')
		render(b, t.Child)
	case *Present:
		b.WriteString(canonicalAttr(t.Attr))
		b.WriteString("=*")
	case *Substring:
		b.WriteString(canonicalAttr(t.Attr))
		b.WriteByte('=')

		last := len(t.Parts) - 1
		for i, part := range t.Parts {
			if i > 0 {
				b.WriteByte('*')
			}

			writeEscaped(b, part, i == 0, i == last)
		}
	case *Comparison:
		b.WriteString(canonicalAttr(t.Attr))
		b.WriteString(t.Op.String())
		writeEscaped(b, t.Value, true, true)
	}

	b.WriteByte(')')
}

// Escape returns s escaped for use as a comparison operand, so that
// Parse("(attr=" + Escape(s) + ")") compares against s exactly.
func Escape(s string) string {
	var b strings.Builder

	writeEscaped(&b, s, true, true)

	return b.String()
}

func canonicalAttr(attr string) string {
	return strings.ToLower(attr)
}

// writeEscaped escapes syntax characters in s. White space at the value
// boundaries is escaped as well so the parser does not trim it.
func writeEscaped(b *strings.Builder, s string, first, last bool) {
	lead := 0
	if first {
		for lead < len(s) && isSpace(s[lead]) {
			lead++
		}
	}

	trail := len(s)
	if last {
		for trail > lead && isSpace(s[trail-1]) {
			trail--
		}
	}

	for i := 0; i < len(s); i++ {
		c := s[i]

		switch {
		case c == '\\' || c == '*' || c == '(' || c == ')':
			b.WriteByte('\\')
		case isSpace(c) && (i < lead || i >= trail):
			b.WriteByte('\\')
		}

		b.WriteByte(c)
	}
}
