package filter

import (
	"errors"
	"fmt"
)

// ErrInvalidSyntax is matched by every *SyntaxError via errors.Is.
var ErrInvalidSyntax = errors.New("invalid filter syntax")

// SyntaxError describes malformed filter text.
type SyntaxError struct {
	// Message is a short description of the problem.
	Message string
	// Offending is the fragment of the input where parsing stopped.
	Offending string
	// Offset is the byte offset of Offending within the input.
	Offset int
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("%s: %s at offset %d: %q", ErrInvalidSyntax, e.Message, e.Offset, e.Offending)
}

// Is makes errors.Is(err, ErrInvalidSyntax) succeed.
func (e *SyntaxError) Is(target error) bool {
	return target == ErrInvalidSyntax
}
