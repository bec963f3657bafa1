package value

import (
	"fmt"
	"sort"
	"strings"
)

// CanonicalKey returns the single-case form under which property names are
// indexed.
func CanonicalKey(name string) string {
	return strings.ToLower(name)
}

type property struct {
	key string
	val Value
}

// PropertyMap is an immutable attribute map with case-insensitive lookup.
// The original spelling of every key is retained for exact lookups and
// rendering. The zero PropertyMap is empty and ready to use.
type PropertyMap struct {
	entries map[string]property
}

// NewPropertyMap builds a PropertyMap from m. Keys that differ only in case
// produce an *AmbiguousMergeError. Invalid values are skipped.
func NewPropertyMap(m map[string]Value) (PropertyMap, error) {
	b := newBuilder(len(m))

	// Sorted iteration keeps the reported conflict deterministic.
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}

	sort.Strings(keys)

	for _, k := range keys {
		if err := b.add(k, m[k], false); err != nil {
			return PropertyMap{}, err
		}
	}

	return PropertyMap{entries: b.entries}, nil
}

// MustPropertyMap is like NewPropertyMap but panics on error.
func MustPropertyMap(m map[string]Value) PropertyMap {
	p, err := NewPropertyMap(m)
	if err != nil {
		panic(err)
	}

	return p
}

// FromNative converts a map of plain Go values (as produced by YAML or JSON
// decoders) into a PropertyMap using FromAny for each value.
func FromNative(m map[string]any) (PropertyMap, error) {
	vals := make(map[string]Value, len(m))

	for k, raw := range m {
		v, err := FromAny(raw)
		if err != nil {
			return PropertyMap{}, fmt.Errorf("property %q: %w", k, err)
		}

		vals[k] = v
	}

	return NewPropertyMap(vals)
}

// Merge combines several maps left to right. A key spelled identically in
// two maps is overridden by the later map; keys that differ only in letter
// case are rejected with an *AmbiguousMergeError.
func Merge(maps ...PropertyMap) (PropertyMap, error) {
	n := 0
	for _, m := range maps {
		n += len(m.entries)
	}

	b := newBuilder(n)

	for _, m := range maps {
		for _, k := range m.Keys() {
			if err := b.add(k, m.entries[CanonicalKey(k)].val, true); err != nil {
				return PropertyMap{}, err
			}
		}
	}

	return PropertyMap{entries: b.entries}, nil
}

// With returns a copy of p with key set to v, subject to the same case
// rules as Merge.
func (p PropertyMap) With(key string, v Value) (PropertyMap, error) {
	single := PropertyMap{entries: map[string]property{CanonicalKey(key): {key: key, val: v}}}

	return Merge(p, single)
}

// Len returns the number of properties.
func (p PropertyMap) Len() int {
	return len(p.entries)
}

// Get looks name up case-insensitively.
func (p PropertyMap) Get(name string) (Value, bool) {
	e, ok := p.entries[CanonicalKey(name)]
	if !ok {
		return Value{}, false
	}

	return e.val, true
}

// GetExact looks name up using the key spelling exactly as stored.
func (p PropertyMap) GetExact(name string) (Value, bool) {
	e, ok := p.entries[CanonicalKey(name)]
	if !ok || e.key != name {
		return Value{}, false
	}

	return e.val, true
}

// Lookup dispatches to GetExact or Get.
func (p PropertyMap) Lookup(name string, caseSensitive bool) (Value, bool) {
	if caseSensitive {
		return p.GetExact(name)
	}

	return p.Get(name)
}

// Keys returns the stored key spellings in sorted order.
func (p PropertyMap) Keys() []string {
	keys := make([]string, 0, len(p.entries))
	for _, e := range p.entries {
		keys = append(keys, e.key)
	}

	sort.Strings(keys)

	return keys
}

// ToMap returns a copy of the properties keyed by their stored spelling.
func (p PropertyMap) ToMap() map[string]Value {
	out := make(map[string]Value, len(p.entries))
	for _, e := range p.entries {
		out[e.key] = e.val
	}

	return out
}

// Native returns the properties as plain Go values for serialization.
func (p PropertyMap) Native() map[string]any {
	out := make(map[string]any, len(p.entries))
	for _, e := range p.entries {
		out[e.key] = e.val.Native()
	}

	return out
}

// String renders the map as "{k1=v1, k2=v2}" in key order.
func (p PropertyMap) String() string {
	keys := p.Keys()
	parts := make([]string, len(keys))

	for i, k := range keys {
		parts[i] = k + "=" + p.entries[CanonicalKey(k)].val.String()
	}

	return "{" + strings.Join(parts, ", ") + "}"
}

type builder struct {
	entries map[string]property
}

func newBuilder(n int) *builder {
	return &builder{entries: make(map[string]property, n)}
}

func (b *builder) add(key string, v Value, allowOverride bool) error {
	if !v.IsValid() {
		return nil
	}

	ck := CanonicalKey(key)
	if existing, ok := b.entries[ck]; ok {
		if existing.key != key || !allowOverride {
			return &AmbiguousMergeError{Key: key, Existing: existing.key}
		}
	}

	b.entries[ck] = property{key: key, val: v}

	return nil
}
