// Package capmatch provides a public Go API for filter matching and
// capability resolution.
//
// This package exposes the capmatch registry and filter language as a
// library, allowing programmatic use without the CLI.
//
// Matching a filter against properties:
//
//	ok, err := capmatch.Match("(&(level>=3)(name=con*))", map[string]any{
//	    "Level": 4,
//	    "name":  "console",
//	})
//
// Resolving manifests:
//
//	reports, err := capmatch.Resolve(ctx, []string{"app.yaml", "providers.yaml"},
//	    capmatch.WithFilterCacheSize(512),
//	)
package capmatch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/hupe1980/capmatch/internal/capability"
	"github.com/hupe1980/capmatch/internal/config"
	"github.com/hupe1980/capmatch/internal/filter"
	"github.com/hupe1980/capmatch/internal/logging"
	"github.com/hupe1980/capmatch/internal/manifest"
	"github.com/hupe1980/capmatch/internal/matcher"
	"github.com/hupe1980/capmatch/internal/output"
	"github.com/hupe1980/capmatch/internal/registry"
	"github.com/hupe1980/capmatch/internal/value"
)

// Re-exported types.
type (
	Value       = value.Value
	PropertyMap = value.PropertyMap
	Filter      = filter.Filter
	Capability  = capability.Capability
	Requirement = capability.Requirement
	Service     = capability.Service
	ResourceRef = capability.ResourceRef
	Registry    = registry.Registry
	Entry       = registry.Entry
	Event       = registry.Event
	Report      = output.Report
)

// Re-exported sentinel errors.
var (
	ErrInvalidSyntax     = filter.ErrInvalidSyntax
	ErrReservedNamespace = capability.ErrReservedNamespace
	ErrAmbiguousMerge    = value.ErrAmbiguousMerge
	ErrInvalidManifest   = manifest.ErrInvalidManifest
)

// Option configures registries created by this package.
// Use the With* functions to create Options.
type Option func(*options)

type options struct {
	cacheSize  int
	logger     *slog.Logger
	registerer prometheus.Registerer
}

// WithFilterCacheSize bounds the parsed-filter cache. Zero disables it.
func WithFilterCacheSize(n int) Option { return func(o *options) { o.cacheSize = n } }

// WithLogger sets the logger used by the matcher and registry.
func WithLogger(l *slog.Logger) Option { return func(o *options) { o.logger = l } }

// WithMetrics registers registry metrics with reg.
func WithMetrics(reg prometheus.Registerer) Option { return func(o *options) { o.registerer = reg } }

func buildOptions(opts []Option) *options {
	o := &options{
		cacheSize: config.DefaultFilterCacheSize,
		logger:    slog.New(slog.NewTextHandler(io.Discard, nil)),
	}

	for _, fn := range opts {
		fn(o)
	}

	return o
}

// ParseFilter parses filter text.
func ParseFilter(text string) (*Filter, error) {
	return filter.Parse(text)
}

// Match reports whether the filter text matches props. Property names are
// matched case-insensitively; two names differing only in case are an error.
func Match(text string, props map[string]any) (bool, error) {
	pm, err := value.FromNative(props)
	if err != nil {
		return false, fmt.Errorf("converting properties: %w", err)
	}

	return filter.Match(text, pm)
}

// NewRequirement starts building a requirement in namespace ns.
func NewRequirement(ns string) *capability.RequirementBuilder {
	return capability.NewRequirementBuilder(ns)
}

// NewCapability creates a capability declared by res.
func NewCapability(ns string, attrs map[string]any, dirs map[string]string, res ResourceRef) (*Capability, error) {
	pm, err := value.FromNative(attrs)
	if err != nil {
		return nil, fmt.Errorf("converting attributes: %w", err)
	}

	return capability.NewCapability(ns, pm, dirs, res)
}

// NewRegistry creates an empty registry.
func NewRegistry(opts ...Option) *Registry {
	o := buildOptions(opts)

	ropts := []registry.Option{
		registry.WithMatcher(matcher.New(
			matcher.WithCache(filter.NewCache(o.cacheSize)),
			matcher.WithLogger(logging.ForComponent(o.logger, "matcher")),
		)),
		registry.WithLogger(logging.ForComponent(o.logger, "registry")),
	}

	if o.registerer != nil {
		ropts = append(ropts, registry.WithMetrics(registry.NewMetrics(o.registerer)))
	}

	return registry.New(ropts...)
}

// Load reads the manifest files in paths into a new registry.
func Load(ctx context.Context, paths []string, opts ...Option) (*Registry, error) {
	reg, _, err := load(ctx, paths, opts)

	return reg, err
}

// Resolve loads the manifest files in paths and matches every declared
// requirement against the loaded capabilities, in declaration order.
func Resolve(ctx context.Context, paths []string, opts ...Option) ([]Report, error) {
	reg, ms, err := load(ctx, paths, opts)
	if err != nil {
		return nil, err
	}

	var reports []Report

	for _, m := range ms {
		for _, req := range m.Requirements {
			entries, err := reg.QueryRequirement(req)
			if err != nil {
				return nil, fmt.Errorf("resolving %s: %w", m.Source, err)
			}

			reports = append(reports, output.ForRequirement(m.Source, req, entries))
		}
	}

	return reports, nil
}

func load(ctx context.Context, paths []string, opts []Option) (*Registry, []*manifest.Manifest, error) {
	if len(paths) == 0 {
		return nil, nil, errors.New("at least one manifest path is required")
	}

	ms, err := manifest.LoadFiles(ctx, paths...)
	if err != nil {
		return nil, nil, fmt.Errorf("loading manifests: %w", err)
	}

	reg := NewRegistry(opts...)

	if err := manifest.Register(reg, ms...); err != nil {
		return nil, nil, err
	}

	return reg, ms, nil
}
