package filter

import (
	"strings"

	"github.com/hupe1980/capmatch/internal/value"
)

// Evaluate reports whether props satisfy n. With caseSensitive set,
// attribute names must match the stored keys exactly; otherwise they are
// looked up case-insensitively. Evaluation never fails: a comparison whose
// operand cannot be coerced to the property's kind is simply false.
func Evaluate(n Node, props value.PropertyMap, caseSensitive bool) bool {
	switch t := n.(type) {
	case *And:
		for _, c := range t.Children {
			if !Evaluate(c, props, caseSensitive) {
				return false
			}
		}

		return true
	case *Or:
		for _, c := range t.Children {
			if Evaluate(c, props, caseSensitive) {
				return true
			}
		}

		return false
	case *Not:
		return !Evaluate(t.Child, props, caseSensitive)
	case *Present:
		v, ok := props.Lookup(t.Attr, caseSensitive)

		return ok && v.IsValid() && !(v.Kind() == value.KindSeq && v.Len() == 0)
	case *Comparison:
		v, ok := props.Lookup(t.Attr, caseSensitive)
		if !ok {
			return false
		}

		return anyElement(v, func(e value.Value) bool {
			return compare(t.Op, e, t.Value)
		})
	case *Substring:
		v, ok := props.Lookup(t.Attr, caseSensitive)
		if !ok {
			return false
		}

		return anyElement(v, func(e value.Value) bool {
			return matchSubstring(e.String(), t.Parts)
		})
	default:
		return false
	}
}

// anyElement applies fn to v, or to each element when v is a sequence.
func anyElement(v value.Value, fn func(value.Value) bool) bool {
	if v.Kind() != value.KindSeq {
		return v.IsValid() && fn(v)
	}

	for _, e := range v.Elements() {
		if fn(e) {
			return true
		}
	}

	return false
}

func compare(op Op, prop value.Value, operand string) bool {
	want, ok := value.Coerce(prop.Kind(), operand)
	if !ok {
		return false
	}

	switch op {
	case OpEqual:
		return value.Equal(prop, want)
	case OpApprox:
		return value.ApproxEqual(prop, want)
	case OpGreater:
		c, ok := value.Compare(prop, want)

		return ok && c >= 0
	case OpLess:
		c, ok := value.Compare(prop, want)

		return ok && c <= 0
	default:
		return false
	}
}

// matchSubstring matches s against parts separated by wildcards. The first
// part is anchored at the start and the last at the end; empty boundary
// parts leave that end open.
func matchSubstring(s string, parts []string) bool {
	if len(parts) == 0 {
		return false
	}

	if len(parts) == 1 {
		return s == parts[0]
	}

	first, last := parts[0], parts[len(parts)-1]

	if !strings.HasPrefix(s, first) {
		return false
	}

	rest := s[len(first):]

	for _, mid := range parts[1 : len(parts)-1] {
		i := strings.Index(rest, mid)
		if i < 0 {
			return false
		}

		rest = rest[i+len(mid):]
	}

	return strings.HasSuffix(rest, last)
}
