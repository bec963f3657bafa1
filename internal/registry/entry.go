package registry

import (
	"cmp"
	"maps"
	"slices"

	"github.com/hupe1980/capmatch/internal/capability"
	"github.com/hupe1980/capmatch/internal/value"
)

// Entry is a registered capability or service. Entries are values; an
// Entry obtained from a query or snapshot never changes.
type Entry struct {
	ID      uint64
	Ranking int32
	Payload capability.Provider
}

// Namespace returns the payload namespace.
func (e Entry) Namespace() string { return e.Payload.Namespace() }

// Attributes returns the payload attributes.
func (e Entry) Attributes() value.PropertyMap { return e.Payload.Attributes() }

// Directives returns the payload directives.
func (e Entry) Directives() capability.Directives { return e.Payload.Directives() }

// Resource returns the owning resource.
func (e Entry) Resource() capability.ResourceRef { return e.Payload.Resource() }

// compareEntries orders by ranking, highest first, then by id, oldest
// first.
func compareEntries(a, b Entry) int {
	if a.Ranking != b.Ranking {
		return cmp.Compare(b.Ranking, a.Ranking)
	}

	return cmp.Compare(a.ID, b.ID)
}

// snapshot is an immutable view of the registry. Mutations build a new
// snapshot that shares untouched namespace slices with its predecessor.
type snapshot struct {
	byNamespace map[string][]Entry
	byID        map[uint64]Entry
}

var emptySnapshot = &snapshot{
	byNamespace: map[string][]Entry{},
	byID:        map[uint64]Entry{},
}

// with returns a copy of s with e inserted or replaced.
func (s *snapshot) with(e Entry) *snapshot {
	next := s.clone()
	ns := e.Namespace()

	entries := slices.DeleteFunc(slices.Clone(s.byNamespace[ns]), func(x Entry) bool {
		return x.ID == e.ID
	})
	entries = append(entries, e)
	slices.SortFunc(entries, compareEntries)

	next.byNamespace[ns] = entries
	next.byID[e.ID] = e

	return next
}

// without returns a copy of s with the given ids removed.
func (s *snapshot) without(ids ...uint64) *snapshot {
	next := s.clone()

	for _, id := range ids {
		e, ok := next.byID[id]
		if !ok {
			continue
		}

		delete(next.byID, id)

		ns := e.Namespace()

		entries := slices.DeleteFunc(slices.Clone(next.byNamespace[ns]), func(x Entry) bool {
			return x.ID == id
		})
		if len(entries) == 0 {
			delete(next.byNamespace, ns)
		} else {
			next.byNamespace[ns] = entries
		}
	}

	return next
}

func (s *snapshot) clone() *snapshot {
	return &snapshot{
		byNamespace: maps.Clone(s.byNamespace),
		byID:        maps.Clone(s.byID),
	}
}

// Snapshot is a consistent, immutable view of the registry at one instant.
type Snapshot struct {
	s *snapshot
}

// Len returns the number of entries.
func (v Snapshot) Len() int {
	return len(v.s.byID)
}

// Get returns the entry with the given id.
func (v Snapshot) Get(id uint64) (Entry, bool) {
	e, ok := v.s.byID[id]

	return e, ok
}

// Namespaces returns the namespaces that have entries, sorted.
func (v Snapshot) Namespaces() []string {
	return slices.Sorted(maps.Keys(v.s.byNamespace))
}

// Entries returns the entries of ns in ranking order.
func (v Snapshot) Entries(ns string) []Entry {
	return slices.Clone(v.s.byNamespace[ns])
}
