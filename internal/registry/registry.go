// Package registry is a concurrent store of capabilities and services that
// answers filtered queries against consistent snapshots.
//
// Writers are serialized and each mutation publishes a new immutable
// snapshot with a single atomic store. Readers load the current snapshot
// and evaluate filters without taking any lock, so a query never observes
// a partially applied mutation.
package registry

import (
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/hupe1980/capmatch/internal/capability"
	"github.com/hupe1980/capmatch/internal/filter"
	"github.com/hupe1980/capmatch/internal/matcher"
	"github.com/hupe1980/capmatch/internal/value"
)

// ErrNilPayload is returned when registering a nil payload.
var ErrNilPayload = errors.New("registry: nil payload")

// Registry stores entries and answers queries. The zero value is not
// usable; create one with New.
type Registry struct {
	mu      sync.Mutex // serializes writers
	current atomic.Pointer[snapshot]
	lastID  uint64

	lmu       sync.RWMutex // guards listeners
	listeners map[uint64]*listener
	lastLID   uint64

	matcher *matcher.Matcher
	logger  *slog.Logger
	metrics *Metrics
}

// Option configures a Registry.
type Option func(*Registry)

// WithMatcher sets the matcher used for queries.
func WithMatcher(m *matcher.Matcher) Option {
	return func(r *Registry) {
		if m != nil {
			r.matcher = m
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(r *Registry) {
		if l != nil {
			r.logger = l
		}
	}
}

// WithMetrics enables Prometheus instrumentation.
func WithMetrics(m *Metrics) Option {
	return func(r *Registry) {
		r.metrics = m
	}
}

// New returns an empty Registry.
func New(opts ...Option) *Registry {
	r := &Registry{
		listeners: make(map[uint64]*listener),
		logger:    slog.Default(),
	}

	for _, o := range opts {
		o(r)
	}

	if r.matcher == nil {
		r.matcher = matcher.New(matcher.WithLogger(r.logger))
	}

	r.current.Store(emptySnapshot)

	return r
}

// Register adds p with the given ranking and returns its id. Ids are
// assigned in increasing order and never reused. A *capability.Service is
// stored with its service.id and service.ranking properties set.
func (r *Registry) Register(p capability.Provider, ranking int32) (uint64, error) {
	if p == nil {
		return 0, ErrNilPayload
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.lastID++
	id := r.lastID

	e := Entry{ID: id, Ranking: ranking, Payload: withRegistration(p, id, ranking)}

	next := r.current.Load().with(e)
	r.current.Store(next)

	r.metrics.registered()
	r.metrics.setEntries(next, e.Namespace())
	r.logger.Debug("entry registered",
		slog.Uint64("id", id),
		slog.String("namespace", e.Namespace()),
		slog.Int("ranking", int(ranking)),
	)

	r.notify(Event{Type: EventRegistered, Entry: e})

	return id, nil
}

// Withdraw removes the entry with the given id. It reports false when no
// such entry exists. Snapshots taken before the call still contain it.
func (r *Registry) Withdraw(id uint64) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	cur := r.current.Load()

	e, ok := cur.byID[id]
	if !ok {
		return false
	}

	next := cur.without(id)
	r.current.Store(next)

	r.metrics.withdrawn(1)
	r.metrics.setEntries(next, e.Namespace())
	r.logger.Debug("entry withdrawn", slog.Uint64("id", id), slog.String("namespace", e.Namespace()))

	r.notify(Event{Type: EventWithdrawn, Entry: e})

	return true
}

// WithdrawResource removes every entry owned by the resource with the given
// id and returns how many were removed.
func (r *Registry) WithdrawResource(resourceID string) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	cur := r.current.Load()

	var (
		ids        []uint64
		removed    []Entry
		namespaces []string
	)

	for _, ns := range (Snapshot{s: cur}).Namespaces() {
		for _, e := range cur.byNamespace[ns] {
			if e.Resource().ID == resourceID {
				ids = append(ids, e.ID)
				removed = append(removed, e)
			}
		}

		namespaces = append(namespaces, ns)
	}

	if len(ids) == 0 {
		return 0
	}

	next := cur.without(ids...)
	r.current.Store(next)

	r.metrics.withdrawn(len(ids))
	r.metrics.setEntries(next, namespaces...)
	r.logger.Debug("resource withdrawn", slog.String("resource", resourceID), slog.Int("entries", len(ids)))

	for _, e := range removed {
		r.notify(Event{Type: EventWithdrawn, Entry: e})
	}

	return len(ids)
}

// UpdateRanking changes the ranking of an entry, keeping its id and
// attributes. It reports false when no such entry exists.
func (r *Registry) UpdateRanking(id uint64, ranking int32) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	cur := r.current.Load()

	e, ok := cur.byID[id]
	if !ok {
		return false
	}

	e.Ranking = ranking
	e.Payload = withRegistration(e.Payload, id, ranking)

	r.current.Store(cur.with(e))
	r.logger.Debug("ranking updated", slog.Uint64("id", id), slog.Int("ranking", int(ranking)))

	r.notify(Event{Type: EventModified, Entry: e})

	return true
}

// Snapshot returns the current immutable view.
func (r *Registry) Snapshot() Snapshot {
	return Snapshot{s: r.current.Load()}
}

// Get returns the entry with the given id.
func (r *Registry) Get(id uint64) (Entry, bool) {
	return r.Snapshot().Get(id)
}

// Query returns the entries in ns matching filterText in ranking order. An
// empty filterText matches every entry of the namespace.
func (r *Registry) Query(ns, filterText string) ([]Entry, error) {
	var dirs map[string]string
	if filterText != "" {
		dirs = map[string]string{capability.DirectiveFilter: filterText}
	}

	return r.QueryRequirement(capability.NewRequirement(ns, value.PropertyMap{}, dirs, capability.ResourceRef{}))
}

// QueryRequirement returns the entries satisfying req in ranking order. A
// malformed filter directive is reported as a *filter.SyntaxError.
func (r *Registry) QueryRequirement(req *capability.Requirement) (entries []Entry, err error) {
	start := time.Now()
	defer func() { r.metrics.observeQuery(start, err) }()

	snap := r.current.Load()

	return matcher.Select(r.matcher, req, snap.byNamespace[req.Namespace()])
}

// FindProviders returns the payloads satisfying req in ranking order.
func (r *Registry) FindProviders(req *capability.Requirement) ([]capability.Provider, error) {
	entries, err := r.QueryRequirement(req)
	if err != nil {
		return nil, err
	}

	out := make([]capability.Provider, len(entries))
	for i, e := range entries {
		out[i] = e.Payload
	}

	return out, nil
}

func withRegistration(p capability.Provider, id uint64, ranking int32) capability.Provider {
	if s, ok := p.(*capability.Service); ok {
		return s.WithRegistration(id, ranking)
	}

	return p
}

var _ capability.Provider = Entry{}

func filterFor(text string) (*filter.Filter, error) {
	if text == "" {
		return nil, nil //nolint:nilnil // no filter matches everything
	}

	return filter.Parse(text)
}
