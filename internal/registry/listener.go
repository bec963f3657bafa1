package registry

import (
	"cmp"
	"fmt"
	"slices"
	"sync/atomic"

	"github.com/hupe1980/capmatch/internal/filter"
)

// EventType classifies a registry change.
type EventType int

// Event types.
const (
	EventRegistered EventType = iota + 1
	EventModified
	EventWithdrawn
)

// String returns the lower-case event name.
func (t EventType) String() string {
	switch t {
	case EventRegistered:
		return "registered"
	case EventModified:
		return "modified"
	case EventWithdrawn:
		return "withdrawn"
	default:
		return fmt.Sprintf("event(%d)", int(t))
	}
}

// Event describes a change to one entry. For EventWithdrawn, Entry is the
// entry as it was before removal.
type Event struct {
	Type  EventType
	Entry Entry
}

type listener struct {
	id        uint64
	namespace string
	filter    *filter.Filter
	fn        func(Event)
	removed   atomic.Bool
}

func (l *listener) wants(e Entry) bool {
	if l.removed.Load() {
		return false
	}

	if l.namespace != "" && l.namespace != e.Namespace() {
		return false
	}

	return l.filter == nil || l.filter.Matches(e.Attributes())
}

// Listen calls fn for every change to an entry in ns whose attributes match
// filterText. An empty ns or filterText matches everything. Events are
// delivered synchronously, in mutation order, while the registry's write
// lock is held: fn may query the registry, add listeners or call the
// returned function, but must not register, withdraw or re-rank entries.
// The returned function removes the listener.
func (r *Registry) Listen(ns, filterText string, fn func(Event)) (func(), error) {
	f, err := filterFor(filterText)
	if err != nil {
		return nil, err
	}

	r.lmu.Lock()
	defer r.lmu.Unlock()

	r.lastLID++
	l := &listener{id: r.lastLID, namespace: ns, filter: f, fn: fn}
	r.listeners[l.id] = l

	return func() {
		l.removed.Store(true)

		r.lmu.Lock()
		defer r.lmu.Unlock()

		delete(r.listeners, l.id)
	}, nil
}

// notify must be called with r.mu held. Listeners are called in the order
// they were added, without holding r.lmu.
func (r *Registry) notify(e Event) {
	r.lmu.RLock()
	ls := make([]*listener, 0, len(r.listeners))

	for _, l := range r.listeners {
		ls = append(ls, l)
	}
	r.lmu.RUnlock()

	slices.SortFunc(ls, func(a, b *listener) int { return cmp.Compare(a.id, b.id) })

	for _, l := range ls {
		if l.wants(e.Entry) {
			l.fn(e)
		}
	}
}
