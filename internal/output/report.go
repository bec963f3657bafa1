package output

import (
	"github.com/hupe1980/capmatch/internal/capability"
	"github.com/hupe1980/capmatch/internal/registry"
)

// Result is one matched registry entry in plain form.
type Result struct {
	ID         uint64                  `json:"id"`
	Namespace  string                  `json:"namespace"`
	Ranking    int32                   `json:"ranking"`
	Resource   *capability.ResourceRef `json:"resource,omitempty"`
	Attributes map[string]any          `json:"attributes,omitempty"`
	Directives map[string]string       `json:"directives,omitempty"`
}

// Report is the outcome of one query or requirement.
type Report struct {
	// Source names where the requirement was declared, if anywhere.
	Source string `json:"source,omitempty"`

	Namespace string `json:"namespace"`
	Filter    string `json:"filter,omitempty"`

	// Requirement is the requirement's display form; empty for ad-hoc queries.
	Requirement string `json:"requirement,omitempty"`

	Results []Result `json:"results"`
}

// Satisfied reports whether at least one entry matched.
func (r Report) Satisfied() bool {
	return len(r.Results) > 0
}

// FromEntry converts a registry entry.
func FromEntry(e registry.Entry) Result {
	res := Result{
		ID:        e.ID,
		Namespace: e.Namespace(),
		Ranking:   e.Ranking,
	}

	if ref := e.Resource(); !ref.IsZero() {
		res.Resource = &ref
	}

	if attrs := e.Attributes(); attrs.Len() > 0 {
		res.Attributes = attrs.Native()
	}

	if dirs := e.Directives(); dirs.Len() > 0 {
		res.Directives = dirs.Map()
	}

	return res
}

// FromEntries converts entries, keeping their order.
func FromEntries(entries []registry.Entry) []Result {
	out := make([]Result, len(entries))
	for i, e := range entries {
		out[i] = FromEntry(e)
	}

	return out
}

// ForRequirement builds the report for req from the entries that satisfied it.
func ForRequirement(source string, req *capability.Requirement, entries []registry.Entry) Report {
	f, _ := req.Filter()

	return Report{
		Source:      source,
		Namespace:   req.Namespace(),
		Filter:      f,
		Requirement: req.String(),
		Results:     FromEntries(entries),
	}
}

// Unsatisfied returns the reports without any result.
func Unsatisfied(reports []Report) []Report {
	var out []Report

	for _, r := range reports {
		if !r.Satisfied() {
			out = append(out, r)
		}
	}

	return out
}
