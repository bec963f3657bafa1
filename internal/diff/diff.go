// Package diff compares two resolutions of the same manifests, either as a
// unified text diff of their rendered output or as a list of per-requirement
// changes.
package diff

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/pmezard/go-difflib/difflib"
)

// Result holds the result of a unified diff computation.
type Result struct {
	Unified        string
	HasDifferences bool
	Hunks          []string
	OldLabel       string
	NewLabel       string
}

// Options configures diff computation.
type Options struct {
	OldLabel string
	NewLabel string
	Context  int
}

// DefaultOptions returns sensible default diff options.
func DefaultOptions() Options {
	return Options{
		OldLabel: "previous",
		NewLabel: "current",
		Context:  3,
	}
}

// Compute computes a unified diff between two rendered documents.
func Compute(oldDoc, newDoc string, opts Options) (*Result, error) {
	ud := difflib.UnifiedDiff{
		A:        splitLines(oldDoc),
		B:        splitLines(newDoc),
		FromFile: opts.OldLabel,
		ToFile:   opts.NewLabel,
		Context:  opts.Context,
	}

	unified, err := difflib.GetUnifiedDiffString(ud)
	if err != nil {
		return nil, fmt.Errorf("computing diff: %w", err)
	}

	res := &Result{
		Unified:        unified,
		HasDifferences: unified != "",
		OldLabel:       opts.OldLabel,
		NewLabel:       opts.NewLabel,
	}

	if res.HasDifferences {
		res.Hunks = extractHunks(unified)
	}

	return res, nil
}

// extractHunks splits unified diff output into individual hunks. The file
// header lines are dropped.
func extractHunks(unified string) []string {
	var (
		hunks   []string
		current strings.Builder
	)

	for _, line := range strings.Split(unified, "\n") {
		if strings.HasPrefix(line, "@@") && current.Len() > 0 {
			hunks = append(hunks, current.String())
			current.Reset()
		}

		if current.Len() == 0 && !strings.HasPrefix(line, "@@") {
			continue
		}

		current.WriteString(line)
		current.WriteString("\n")
	}

	if current.Len() > 0 {
		hunks = append(hunks, current.String())
	}

	return hunks
}

var (
	headerStyle  = lipgloss.NewStyle().Bold(true)
	hunkStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("36"))
	removedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	addedStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("34"))
)

// Write writes a formatted diff to w, styling lines when color is set.
func Write(w io.Writer, result *Result, color bool) {
	if !result.HasDifferences {
		_, _ = fmt.Fprintln(w, "No differences found.")
		return
	}

	for _, line := range strings.Split(strings.TrimSuffix(result.Unified, "\n"), "\n") {
		if color {
			line = styleLine(line)
		}

		_, _ = fmt.Fprintln(w, line)
	}
}

func styleLine(line string) string {
	switch {
	case strings.HasPrefix(line, "---"), strings.HasPrefix(line, "+++"):
		return headerStyle.Render(line)
	case strings.HasPrefix(line, "@@"):
		return hunkStyle.Render(line)
	case strings.HasPrefix(line, "-"):
		return removedStyle.Render(line)
	case strings.HasPrefix(line, "+"):
		return addedStyle.Render(line)
	default:
		return line
	}
}

// splitLines splits a string into lines for diff processing.
// Each element includes a trailing newline for difflib compatibility.
func splitLines(s string) []string {
	if s == "" {
		return []string{""}
	}

	return strings.SplitAfter(s, "\n")
}
