package capability

import (
	"errors"
	"fmt"
	"strings"

	"github.com/hupe1980/capmatch/internal/semver"
)

// ErrInvalidRange is returned by ParseVersionRange for malformed input.
var ErrInvalidRange = errors.New("invalid version range")

// VersionRange is an interval of versions. The lower bound is inclusive
// unless LowerExclusive is set; the upper bound is exclusive unless
// UpperInclusive is set. A zero Upper means the range is unbounded above.
type VersionRange struct {
	Lower          semver.Version
	Upper          semver.Version
	LowerExclusive bool
	UpperInclusive bool
}

// AtLeast returns the range [v, infinity).
func AtLeast(v semver.Version) VersionRange {
	return VersionRange{Lower: v}
}

// Between returns the range [lower, upper).
func Between(lower, upper semver.Version) VersionRange {
	return VersionRange{Lower: lower, Upper: upper}
}

// ParseVersionRange parses interval notation such as "[1.0.0,2.0.0)" or
// "(1.0,2.0]". A bare version "1.2" means at least that version.
func ParseVersionRange(s string) (VersionRange, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return VersionRange{}, fmt.Errorf("%w: empty", ErrInvalidRange)
	}

	if s[0] != '[' && s[0] != '(' {
		v, err := semver.ParseVersion(s)
		if err != nil {
			return VersionRange{}, fmt.Errorf("%w: %w", ErrInvalidRange, err)
		}

		return AtLeast(v), nil
	}

	last := s[len(s)-1]
	if last != ']' && last != ')' {
		return VersionRange{}, fmt.Errorf("%w: %q must end with ']' or ')'", ErrInvalidRange, s)
	}

	lo, hi, ok := strings.Cut(s[1:len(s)-1], ",")
	if !ok {
		return VersionRange{}, fmt.Errorf("%w: %q has no ','", ErrInvalidRange, s)
	}

	lower, err := semver.ParseVersion(lo)
	if err != nil {
		return VersionRange{}, fmt.Errorf("%w: %w", ErrInvalidRange, err)
	}

	upper, err := semver.ParseVersion(hi)
	if err != nil {
		return VersionRange{}, fmt.Errorf("%w: %w", ErrInvalidRange, err)
	}

	r := VersionRange{
		Lower:          lower,
		Upper:          upper,
		LowerExclusive: s[0] == '(',
		UpperInclusive: last == ']',
	}

	if r.IsEmpty() {
		return VersionRange{}, fmt.Errorf("%w: %q is empty", ErrInvalidRange, s)
	}

	return r, nil
}

// IsEmpty reports whether no version can satisfy r.
func (r VersionRange) IsEmpty() bool {
	if r.Upper.IsZero() {
		return false
	}

	c := semver.Compare(r.Lower, r.Upper)
	if c == 0 {
		return r.LowerExclusive || !r.UpperInclusive
	}

	return c > 0
}

// Includes reports whether v lies in r.
func (r VersionRange) Includes(v semver.Version) bool {
	c := semver.Compare(v, r.Lower)
	if c < 0 || (c == 0 && r.LowerExclusive) {
		return false
	}

	if r.Upper.IsZero() {
		return true
	}

	c = semver.Compare(v, r.Upper)

	return c < 0 || (c == 0 && r.UpperInclusive)
}

// Filter renders r as a filter fragment over attr. The grammar has no
// strict operators, so an exclusive bound negates the opposite inclusive
// comparison. The lower bound is always asserted positively, which makes the
// fragment false when attr is absent.
func (r VersionRange) Filter(attr string) string {
	lower := r.Lower.String()
	if lower == "" {
		lower = "0.0.0"
	}

	parts := []string{"(" + attr + ">=" + lower + ")"}

	if r.LowerExclusive {
		parts = append(parts, "(!("+attr+"<="+lower+"))")
	}

	if !r.Upper.IsZero() {
		if r.UpperInclusive {
			parts = append(parts, "("+attr+"<="+r.Upper.String()+")")
		} else {
			parts = append(parts, "(!("+attr+">="+r.Upper.String()+"))")
		}
	}

	return combine(parts)
}

// String renders r in interval notation.
func (r VersionRange) String() string {
	lower := r.Lower.String()
	if lower == "" {
		lower = "0.0.0"
	}

	if r.Upper.IsZero() {
		return lower
	}

	open, closing := "[", ")"
	if r.LowerExclusive {
		open = "("
	}

	if r.UpperInclusive {
		closing = "]"
	}

	return open + lower + "," + r.Upper.String() + closing
}
