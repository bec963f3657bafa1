package output

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"
)

// Formatter renders reports to w.
type Formatter interface {
	Format(w io.Writer, reports []Report) error
}

// FormatterFunc adapts a function to the Formatter interface.
type FormatterFunc func(w io.Writer, reports []Report) error

// Format calls f.
func (f FormatterFunc) Format(w io.Writer, reports []Report) error {
	return f(w, reports)
}

// Registry maps format names to formatters, enabling pluggable output
// formats for the match and resolve commands.
type Registry struct {
	mu         sync.RWMutex
	formatters map[string]Formatter
}

// NewRegistry creates an empty formatter registry.
func NewRegistry() *Registry {
	return &Registry{
		formatters: make(map[string]Formatter),
	}
}

// Register adds a formatter under the given format name.
// Existing entries for the same name are overwritten.
func (r *Registry) Register(name string, f Formatter) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.formatters[name] = f
}

// Formatter returns the formatter for the given format, or an error if not found.
func (r *Registry) Formatter(name string) (Formatter, error) {
	r.mu.RLock()
	f, ok := r.formatters[name]
	r.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("unknown output format %q (available: %s)", name, r.AvailableFormats())
	}

	return f, nil
}

// Formats returns the sorted list of registered format names.
func (r *Registry) Formats() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.formatters))
	for name := range r.formatters {
		names = append(names, name)
	}

	sort.Strings(names)

	return names
}

// AvailableFormats returns a comma-separated string of registered format names.
func (r *Registry) AvailableFormats() string {
	formats := r.Formats()
	if len(formats) == 0 {
		return "none"
	}

	return strings.Join(formats, ", ")
}

// DefaultRegistry returns a registry pre-populated with the built-in
// output formats: table, json, yaml. noColor disables table styling.
func DefaultRegistry(noColor bool) *Registry {
	r := NewRegistry()

	r.Register("table", NewTableFormatter(noColor))
	r.Register("json", FormatterFunc(formatJSON))
	r.Register("yaml", FormatterFunc(formatYAML))

	return r
}
