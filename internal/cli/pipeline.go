package cli

import (
	"context"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/common/expfmt"

	"github.com/hupe1980/capmatch/internal/config"
	"github.com/hupe1980/capmatch/internal/filter"
	"github.com/hupe1980/capmatch/internal/logging"
	"github.com/hupe1980/capmatch/internal/manifest"
	"github.com/hupe1980/capmatch/internal/matcher"
	"github.com/hupe1980/capmatch/internal/output"
	"github.com/hupe1980/capmatch/internal/registry"
)

// session is a registry populated from manifest files.
type session struct {
	cfg       *config.Config
	logger    *slog.Logger
	gatherer  *prometheus.Registry
	registry  *registry.Registry
	manifests []*manifest.Manifest
}

// newMatcher builds a matcher honouring the configured cache size.
func newMatcher(cfg *config.Config, logger *slog.Logger) *matcher.Matcher {
	return matcher.New(
		matcher.WithCache(filter.NewCache(cfg.FilterCacheSize)),
		matcher.WithLogger(logging.ForComponent(logger, "matcher")),
	)
}

// loadSession loads every manifest under paths into a fresh registry.
func loadSession(ctx context.Context, paths []string) (*session, error) {
	cfg := config.FromContext(ctx)
	logger := logging.FromContext(ctx)

	files, err := expandPaths(paths)
	if err != nil {
		return nil, err
	}

	ms, err := manifest.LoadFiles(ctx, files...)
	if err != nil {
		return nil, err
	}

	gatherer := prometheus.NewRegistry()

	reg := registry.New(
		registry.WithMatcher(newMatcher(cfg, logger)),
		registry.WithLogger(logging.ForComponent(logger, "registry")),
		registry.WithMetrics(registry.NewMetrics(gatherer)),
	)

	if err := manifest.Register(reg, ms...); err != nil {
		return nil, err
	}

	logger.Debug("manifests loaded",
		slog.Int("files", len(files)),
		slog.Int("resources", len(ms)),
		slog.Int("entries", reg.Snapshot().Len()),
	)

	return &session{cfg: cfg, logger: logger, gatherer: gatherer, registry: reg, manifests: ms}, nil
}

// requirementCount returns the number of declared requirements.
func (s *session) requirementCount() int {
	n := 0
	for _, m := range s.manifests {
		n += len(m.Requirements)
	}

	return n
}

// writeMetrics dumps the registry metrics in the Prometheus text format.
func (s *session) writeMetrics(w io.Writer) error {
	families, err := s.gatherer.Gather()
	if err != nil {
		return fmt.Errorf("gathering metrics: %w", err)
	}

	for _, mf := range families {
		if _, err := expfmt.MetricFamilyToText(w, mf); err != nil {
			return fmt.Errorf("writing metrics: %w", err)
		}
	}

	return nil
}

// render prints reports in the configured format, to outPath when set.
func render(ctx context.Context, stdout io.Writer, outPath string, reports []output.Report) error {
	cfg := config.FromContext(ctx)

	f, err := output.DefaultRegistry(cfg.NoColor).Formatter(cfg.Output)
	if err != nil {
		return &ExitError{Code: exitUsage, Err: err}
	}

	w := output.NewWriter(outPath, stdout, output.WithLogger(logging.FromContext(ctx)))

	return output.Render(w, f, reports)
}

// expandPaths replaces directories with the manifest files below them.
// Files named explicitly are kept regardless of extension.
func expandPaths(paths []string) ([]string, error) {
	var files []string

	for _, p := range paths {
		info, err := os.Stat(p)
		if err != nil {
			return nil, fmt.Errorf("reading manifest path %q: %w", p, err)
		}

		if !info.IsDir() {
			files = append(files, p)
			continue
		}

		var found []string

		err = filepath.WalkDir(p, func(path string, d fs.DirEntry, walkErr error) error {
			if walkErr != nil {
				return walkErr
			}

			if d.IsDir() {
				if strings.HasPrefix(d.Name(), ".") && path != p {
					return filepath.SkipDir
				}

				return nil
			}

			if isManifestFile(path) {
				found = append(found, path)
			}

			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("walking %q: %w", p, err)
		}

		sort.Strings(found)
		files = append(files, found...)
	}

	return files, nil
}

func isManifestFile(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml", ".toml":
		return !strings.HasPrefix(filepath.Base(path), ".")
	default:
		return false
	}
}
