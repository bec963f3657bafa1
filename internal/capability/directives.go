package capability

import (
	"maps"
	"slices"
	"strings"
)

// Directives is a read-only view of a directive map. The zero value is
// empty.
type Directives struct {
	m map[string]string
}

// NewDirectives copies m into a Directives view.
func NewDirectives(m map[string]string) Directives {
	if len(m) == 0 {
		return Directives{}
	}

	return Directives{m: maps.Clone(m)}
}

// Get returns the directive value or "".
func (d Directives) Get(name string) string {
	return d.m[name]
}

// Lookup returns the directive value and whether it is set.
func (d Directives) Lookup(name string) (string, bool) {
	v, ok := d.m[name]

	return v, ok
}

// Len returns the number of directives.
func (d Directives) Len() int {
	return len(d.m)
}

// Keys returns the directive names in sorted order.
func (d Directives) Keys() []string {
	return slices.Sorted(maps.Keys(d.m))
}

// Map returns a copy of the directives.
func (d Directives) Map() map[string]string {
	out := make(map[string]string, len(d.m))
	maps.Copy(out, d.m)

	return out
}

// Filter returns the filter directive.
func (d Directives) Filter() (string, bool) {
	return d.Lookup(DirectiveFilter)
}

// Effective returns the effective directive, defaulting to EffectiveResolve.
func (d Directives) Effective() string {
	if v := strings.TrimSpace(d.m[DirectiveEffective]); v != "" {
		return v
	}

	return EffectiveResolve
}

// Uses splits the comma-separated uses directive.
func (d Directives) Uses() []string {
	return splitList(d.m[DirectiveUses])
}

func splitList(s string) []string {
	var out []string

	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}

	return out
}
