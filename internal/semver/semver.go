// Package semver is a thin wrapper around github.com/Masterminds/semver/v3
// providing the version type used by attribute values and version ranges.
package semver

import (
	"fmt"
	"strings"

	mm "github.com/Masterminds/semver/v3"
)

// Version is a semantic version. The zero Version is "unset" and sorts
// before every parsed version.
type Version struct {
	v *mm.Version
}

// ParseVersion parses raw leniently: "1", "1.2" and "v1.2.3" are accepted
// and normalised to three numeric components.
func ParseVersion(raw string) (Version, error) {
	v, err := mm.NewVersion(strings.TrimSpace(raw))
	if err != nil {
		return Version{}, fmt.Errorf("semver: parse version %q: %w", raw, err)
	}

	return Version{v: v}, nil
}

// MustParseVersion is like ParseVersion but panics on error.
func MustParseVersion(raw string) Version {
	v, err := ParseVersion(raw)
	if err != nil {
		panic(err)
	}

	return v
}

// IsZero reports whether v was never parsed.
func (v Version) IsZero() bool {
	return v.v == nil
}

// String returns the normalised "major.minor.patch[-pre][+meta]" form.
func (v Version) String() string {
	if v.v == nil {
		return ""
	}

	return v.v.String()
}

// Compare returns -1, 0 or 1 as a is less than, equal to or greater than b.
func Compare(a, b Version) int {
	if a.v == nil && b.v == nil {
		return 0
	}

	if a.v == nil {
		return -1
	}

	if b.v == nil {
		return 1
	}

	return a.v.Compare(b.v)
}
