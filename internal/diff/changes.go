package diff

import (
	"fmt"
	"io"
	"slices"
	"sort"

	"github.com/hupe1980/capmatch/internal/output"
)

// ChangeType classifies a per-requirement change.
type ChangeType string

// Change types.
const (
	ChangeAdded       ChangeType = "added"
	ChangeRemoved     ChangeType = "removed"
	ChangeSatisfied   ChangeType = "satisfied"
	ChangeUnsatisfied ChangeType = "unsatisfied"
	ChangeProviders   ChangeType = "providers"
)

// Change describes how the resolution of one requirement changed.
type Change struct {
	Type     ChangeType `json:"type"`
	Key      string     `json:"key"`
	Details  string     `json:"details"`
	Breaking bool       `json:"breaking"`
}

// Compare matches reports by source and requirement and lists what changed.
// Breaking changes (a requirement losing all providers) sort first.
func Compare(oldReports, newReports []output.Report) []Change {
	oldIdx := index(oldReports)
	newIdx := index(newReports)

	var changes []Change

	for _, k := range sortedKeys(oldIdx) {
		if _, ok := newIdx[k]; !ok {
			changes = append(changes, Change{Type: ChangeRemoved, Key: k, Details: "requirement removed"})
		}
	}

	for _, k := range sortedKeys(newIdx) {
		nr := newIdx[k]

		or, ok := oldIdx[k]
		if !ok {
			changes = append(changes, Change{
				Type:     ChangeAdded,
				Key:      k,
				Details:  fmt.Sprintf("requirement added with %d providers", len(nr.Results)),
				Breaking: !nr.Satisfied(),
			})

			continue
		}

		switch {
		case or.Satisfied() && !nr.Satisfied():
			changes = append(changes, Change{Type: ChangeUnsatisfied, Key: k, Details: "no providers left", Breaking: true})
		case !or.Satisfied() && nr.Satisfied():
			changes = append(changes, Change{
				Type:    ChangeSatisfied,
				Key:     k,
				Details: fmt.Sprintf("now satisfied by %d providers", len(nr.Results)),
			})
		case !slices.Equal(providers(or), providers(nr)):
			changes = append(changes, Change{
				Type:    ChangeProviders,
				Key:     k,
				Details: fmt.Sprintf("providers %v -> %v", providers(or), providers(nr)),
			})
		}
	}

	sort.SliceStable(changes, func(i, j int) bool {
		if changes[i].Breaking != changes[j].Breaking {
			return changes[i].Breaking
		}

		return changes[i].Key < changes[j].Key
	})

	return changes
}

// HasBreaking reports whether any change is breaking.
func HasBreaking(changes []Change) bool {
	return slices.ContainsFunc(changes, func(c Change) bool { return c.Breaking })
}

// WriteChanges prints one line per change.
func WriteChanges(w io.Writer, changes []Change) {
	if len(changes) == 0 {
		_, _ = fmt.Fprintln(w, "No resolution changes.")
		return
	}

	for _, c := range changes {
		marker := " "
		if c.Breaking {
			marker = "!"
		}

		_, _ = fmt.Fprintf(w, "%s %-11s %s: %s\n", marker, c.Type, c.Key, c.Details)
	}
}

func key(r output.Report) string {
	req := r.Requirement
	if req == "" {
		req = r.Namespace + r.Filter
	}

	if r.Source == "" {
		return req
	}

	return r.Source + ": " + req
}

func index(reports []output.Report) map[string]output.Report {
	idx := make(map[string]output.Report, len(reports))
	for _, r := range reports {
		idx[key(r)] = r
	}

	return idx
}

// providers lists the resource ids of a report's results in ranking order.
func providers(r output.Report) []string {
	out := make([]string, 0, len(r.Results))

	for _, res := range r.Results {
		id := fmt.Sprintf("#%d", res.ID)
		if res.Resource != nil {
			id = res.Resource.ID
		}

		out = append(out, id)
	}

	return out
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}

	sort.Strings(keys)

	return keys
}
