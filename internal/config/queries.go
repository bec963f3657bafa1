package config

import (
	"fmt"
	"os"
	"regexp"
	"sort"

	sigsyaml "sigs.k8s.io/yaml"

	"github.com/hupe1980/capmatch/internal/filter"
)

// QueryConfig holds the named queries declared in the config file
// (.capmatch.yaml) under the "queries" key.
type QueryConfig struct {
	// Queries maps a query name to its namespace and filter.
	Queries map[string]NamedQuery `json:"queries,omitempty"`
}

// NamedQuery is a saved registry query.
type NamedQuery struct {
	// Namespace is the namespace to query.
	Namespace string `json:"namespace"`

	// Filter is optional filter text.
	Filter string `json:"filter,omitempty"`

	// Description documents the query for humans.
	Description string `json:"description,omitempty"`
}

// ParseQueryConfig parses the queries section from raw config file bytes.
func ParseQueryConfig(data []byte) (*QueryConfig, error) {
	var raw struct {
		Queries map[string]NamedQuery `json:"queries,omitempty"`
	}

	if err := sigsyaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parsing query config: %w", err)
	}

	cfg := &QueryConfig{Queries: raw.Queries}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// LoadQueryConfig reads the queries section of the config file at path. An
// empty path yields an empty QueryConfig.
func LoadQueryConfig(path string) (*QueryConfig, error) {
	if path == "" {
		return &QueryConfig{}, nil
	}

	data, err := os.ReadFile(path) //nolint:gosec // path is the resolved config file
	if err != nil {
		return nil, fmt.Errorf("reading config file %q: %w", path, err)
	}

	return ParseQueryConfig(data)
}

// queryNamePattern validates query names.
var queryNamePattern = regexp.MustCompile(`^[a-zA-Z][a-zA-Z0-9_-]*$`)

// Validate checks names, namespaces and filter syntax.
func (c *QueryConfig) Validate() error {
	for _, name := range c.Names() {
		q := c.Queries[name]

		if !queryNamePattern.MatchString(name) {
			return fmt.Errorf("queries[%s]: invalid name (must match %s)", name, queryNamePattern.String())
		}

		if q.Namespace == "" {
			return fmt.Errorf("queries[%s]: namespace is required", name)
		}

		if q.Filter != "" {
			if _, err := filter.Parse(q.Filter); err != nil {
				return fmt.Errorf("queries[%s]: %w", name, err)
			}
		}
	}

	return nil
}

// Lookup returns the named query.
func (c *QueryConfig) Lookup(name string) (NamedQuery, bool) {
	q, ok := c.Queries[name]

	return q, ok
}

// Names returns the query names in sorted order.
func (c *QueryConfig) Names() []string {
	names := make([]string, 0, len(c.Queries))
	for n := range c.Queries {
		names = append(names, n)
	}

	sort.Strings(names)

	return names
}

// IsEmpty returns true if no queries are declared.
func (c *QueryConfig) IsEmpty() bool {
	return len(c.Queries) == 0
}
