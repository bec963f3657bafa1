package value

import (
	"errors"
	"fmt"
)

var (
	// ErrAmbiguousMerge is returned when two property sources define keys
	// that differ only in letter case.
	ErrAmbiguousMerge = errors.New("ambiguous property merge")

	// ErrUnsupportedType is returned when a Go value or a declared attribute
	// type has no Value representation.
	ErrUnsupportedType = errors.New("unsupported value type")

	// ErrHeterogeneousSeq is returned when a sequence mixes element kinds or
	// contains nested sequences.
	ErrHeterogeneousSeq = errors.New("heterogeneous sequence")
)

// AmbiguousMergeError names the conflicting spellings of a property key.
type AmbiguousMergeError struct {
	// Key is the spelling that was being added.
	Key string
	// Existing is the spelling already present.
	Existing string
}

func (e *AmbiguousMergeError) Error() string {
	return fmt.Sprintf("%s: key %q collides with %q", ErrAmbiguousMerge, e.Key, e.Existing)
}

// Is makes errors.Is(err, ErrAmbiguousMerge) succeed.
func (e *AmbiguousMergeError) Is(target error) bool {
	return target == ErrAmbiguousMerge
}
