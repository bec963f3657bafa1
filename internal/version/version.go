// Package version reports how the capmatch binary was built and which
// attribute types and filter operators it understands.
//
// Release builds set version, commit and build date with -ldflags. Other
// builds fall back to the module and VCS data the Go toolchain embeds.
package version

import (
	"encoding/json"
	"fmt"
	"runtime"
	"runtime/debug"

	sigsyaml "sigs.k8s.io/yaml"

	"github.com/hupe1980/capmatch/internal/filter"
	"github.com/hupe1980/capmatch/internal/semver"
	"github.com/hupe1980/capmatch/internal/value"
)

// Set with -ldflags "-X github.com/hupe1980/capmatch/internal/version.version=...".
var (
	version   string
	gitCommit string
	buildDate string
)

// Info describes a capmatch build.
type Info struct {
	Version        string   `json:"version"`
	Commit         string   `json:"commit"`
	BuildDate      string   `json:"buildDate"`
	Modified       bool     `json:"modified,omitempty"`
	Go             string   `json:"go"`
	Platform       string   `json:"platform"`
	AttributeTypes []string `json:"attributeTypes"`
	Operators      []string `json:"filterOperators"`
}

// Current returns the Info of the running binary.
func Current() Info {
	info := Info{
		Version:        "dev",
		Commit:         "none",
		BuildDate:      "unknown",
		Go:             runtime.Version(),
		Platform:       runtime.GOOS + "/" + runtime.GOARCH,
		AttributeTypes: value.TypeNames(),
		Operators:      operatorTokens(),
	}

	if bi, ok := debug.ReadBuildInfo(); ok {
		applyBuildInfo(&info, bi)
	}

	applyLinkerFlags(&info, version, gitCommit, buildDate)

	return info
}

// applyBuildInfo fills info from embedded module and VCS data.
func applyBuildInfo(info *Info, bi *debug.BuildInfo) {
	if v := bi.Main.Version; v != "" && v != "(devel)" {
		info.Version = v
	}

	for _, s := range bi.Settings {
		switch s.Key {
		case "vcs.revision":
			info.Commit = abbreviate(s.Value)
		case "vcs.time":
			info.BuildDate = s.Value
		case "vcs.modified":
			info.Modified = s.Value == "true"
		}
	}
}

// applyLinkerFlags overrides info with the non-empty -ldflags values.
func applyLinkerFlags(info *Info, ver, commit, date string) {
	if ver != "" {
		info.Version = ver
	}

	if commit != "" {
		info.Commit = abbreviate(commit)
	}

	if date != "" {
		info.BuildDate = date
	}
}

func operatorTokens() []string {
	ops := []filter.Op{filter.OpEqual, filter.OpApprox, filter.OpGreater, filter.OpLess}

	out := make([]string, len(ops))
	for i, op := range ops {
		out[i] = op.String()
	}

	return out
}

// String renders a one-line summary such as
// "capmatch v1.2.0 (3f2a9c1, 2025-01-02) go1.25.6 linux/amd64".
func (i Info) String() string {
	commit := i.Commit
	if i.Modified {
		commit += "-dirty"
	}

	return fmt.Sprintf("capmatch %s (%s, %s) %s %s", i.Version, commit, i.BuildDate, i.Go, i.Platform)
}

// Semver parses Version. Development builds ("dev") report ok=false.
func (i Info) Semver() (semver.Version, bool) {
	v, err := semver.ParseVersion(i.Version)
	if err != nil {
		return semver.Version{}, false
	}

	return v, true
}

// JSON returns the info as indented JSON.
func (i Info) JSON() (string, error) {
	data, err := json.MarshalIndent(i, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encoding build info: %w", err)
	}

	return string(data), nil
}

// YAML returns the info as YAML.
func (i Info) YAML() (string, error) {
	data, err := sigsyaml.Marshal(i)
	if err != nil {
		return "", fmt.Errorf("encoding build info: %w", err)
	}

	return string(data), nil
}

func abbreviate(commit string) string {
	if len(commit) > 7 {
		return commit[:7]
	}

	return commit
}
