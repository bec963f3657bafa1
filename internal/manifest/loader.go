package manifest

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"golang.org/x/sync/errgroup"
	"gopkg.in/yaml.v3"

	"github.com/hupe1980/capmatch/internal/registry"
)

// Format is a manifest file format.
type Format string

// Supported formats.
const (
	FormatYAML Format = "yaml"
	FormatTOML Format = "toml"
)

// FormatFor picks the format from a file extension. Anything other than
// ".toml" is read as YAML.
func FormatFor(path string) Format {
	if strings.EqualFold(filepath.Ext(path), ".toml") {
		return FormatTOML
	}

	return FormatYAML
}

// Decode reads every resource declaration from r. YAML input may hold
// several documents; TOML input holds exactly one.
func Decode(r io.Reader, format Format, source string) ([]*Manifest, error) {
	var docs []Document

	switch format {
	case FormatTOML:
		var doc Document

		dec := toml.NewDecoder(r)
		dec.DisallowUnknownFields()

		if err := dec.Decode(&doc); err != nil {
			return nil, fmt.Errorf("%w: %s: decoding TOML: %w", ErrInvalidManifest, source, err)
		}

		docs = append(docs, doc)
	default:
		dec := yaml.NewDecoder(r)
		dec.KnownFields(true)

		for {
			var doc Document

			err := dec.Decode(&doc)
			if errors.Is(err, io.EOF) {
				break
			}

			if err != nil {
				return nil, fmt.Errorf("%w: %s: decoding YAML: %w", ErrInvalidManifest, source, err)
			}

			docs = append(docs, doc)
		}
	}

	out := make([]*Manifest, 0, len(docs))

	for i, doc := range docs {
		name := source
		if len(docs) > 1 {
			name = fmt.Sprintf("%s#%d", source, i)
		}

		m, err := Build(doc, name)
		if err != nil {
			return nil, err
		}

		out = append(out, m)
	}

	return out, nil
}

// LoadFile reads the manifests in path.
func LoadFile(path string) ([]*Manifest, error) {
	data, err := os.ReadFile(path) //nolint:gosec // user-provided manifest path
	if err != nil {
		return nil, fmt.Errorf("reading manifest %q: %w", path, err)
	}

	return Decode(bytes.NewReader(data), FormatFor(path), path)
}

// LoadFiles reads several files concurrently. The result keeps the order of
// paths, and of documents within each file.
func LoadFiles(ctx context.Context, paths ...string) ([]*Manifest, error) {
	results := make([][]*Manifest, len(paths))

	g, ctx := errgroup.WithContext(ctx)

	for i, p := range paths {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}

			ms, err := LoadFile(p)
			if err != nil {
				return err
			}

			results[i] = ms

			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	var out []*Manifest
	for _, ms := range results {
		out = append(out, ms...)
	}

	return out, nil
}

// Register publishes the identity, capabilities and services of every
// manifest into reg.
func Register(reg *registry.Registry, manifests ...*Manifest) error {
	for _, m := range manifests {
		if m.Identity != nil {
			if _, err := reg.Register(m.Identity, 0); err != nil {
				return fmt.Errorf("registering %s: %w", m.Source, err)
			}
		}

		for _, c := range m.Capabilities {
			if _, err := reg.Register(c.Payload, c.Ranking); err != nil {
				return fmt.Errorf("registering %s: %w", m.Source, err)
			}
		}

		for _, s := range m.Services {
			if _, err := reg.Register(s.Payload, s.Ranking); err != nil {
				return fmt.Errorf("registering %s: %w", m.Source, err)
			}
		}
	}

	return nil
}
