// Package matcher selects the capabilities that satisfy a requirement.
package matcher

import (
	"log/slog"

	"github.com/hupe1980/capmatch/internal/capability"
	"github.com/hupe1980/capmatch/internal/filter"
)

// DefaultCacheSize is the number of parsed filters a Matcher keeps when no
// cache is supplied.
const DefaultCacheSize = 256

// Matcher applies namespace, effective-phase, filter and self-exclusion
// rules. It is safe for concurrent use.
type Matcher struct {
	cache  *filter.Cache
	logger *slog.Logger
}

// Option configures a Matcher.
type Option func(*Matcher)

// WithCache sets the filter cache. A nil cache disables caching.
func WithCache(c *filter.Cache) Option {
	return func(m *Matcher) {
		m.cache = c
	}
}

// WithLogger sets the logger used for debug output.
func WithLogger(l *slog.Logger) Option {
	return func(m *Matcher) {
		if l != nil {
			m.logger = l
		}
	}
}

// New returns a Matcher.
func New(opts ...Option) *Matcher {
	m := &Matcher{
		cache:  filter.NewCache(DefaultCacheSize),
		logger: slog.Default(),
	}

	for _, o := range opts {
		o(m)
	}

	return m
}

// Compile resolves the requirement's filter directive. A nil Filter means
// the requirement has no filter.
func (m *Matcher) Compile(req *capability.Requirement) (*filter.Filter, error) {
	text, ok := req.Filter()
	if !ok {
		return nil, nil //nolint:nilnil // absent filter is not an error
	}

	return m.cache.Parse(text)
}

// Matches reports whether a single candidate satisfies req.
func (m *Matcher) Matches(req *capability.Requirement, cand capability.Provider) (bool, error) {
	f, err := m.Compile(req)
	if err != nil {
		return false, err
	}

	return accepts(req, f, cand), nil
}

// FindProviders returns the capabilities satisfying req in input order.
func (m *Matcher) FindProviders(req *capability.Requirement, candidates []*capability.Capability) ([]*capability.Capability, error) {
	return Select(m, req, candidates)
}

// Select returns the candidates satisfying req, preserving their order. A
// malformed filter directive aborts the selection with a *filter.SyntaxError.
func Select[C capability.Provider](m *Matcher, req *capability.Requirement, candidates []C) ([]C, error) {
	f, err := m.Compile(req)
	if err != nil {
		m.logger.Debug("requirement filter rejected",
			slog.String("requirement", req.String()),
			slog.String("error", err.Error()),
		)

		return nil, err
	}

	var out []C

	for _, c := range candidates {
		if accepts(req, f, c) {
			out = append(out, c)
		}
	}

	m.logger.Debug("providers selected",
		slog.String("namespace", req.Namespace()),
		slog.Int("candidates", len(candidates)),
		slog.Int("matched", len(out)),
	)

	return out, nil
}

func accepts(req *capability.Requirement, f *filter.Filter, c capability.Provider) bool {
	if c.Namespace() != req.Namespace() {
		return false
	}

	if phase := req.Effective(); phase != capability.EffectiveResolve {
		if c.Directives().Effective() != phase {
			return false
		}
	}

	if f != nil && !f.Matches(c.Attributes()) {
		return false
	}

	if !req.AllowSelf() && isSelf(req.Resource(), c.Resource()) {
		return false
	}

	return true
}

func isSelf(a, b capability.ResourceRef) bool {
	return !a.IsZero() && a.ID == b.ID
}
