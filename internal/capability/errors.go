package capability

import (
	"errors"
	"fmt"
)

var (
	// ErrReservedNamespace is matched by every *ReservedNamespaceError.
	ErrReservedNamespace = errors.New("reserved namespace")

	// ErrEmptyNamespace is returned when a capability or requirement has no
	// namespace.
	ErrEmptyNamespace = errors.New("empty namespace")

	// ErrNoObjectClass is returned when a service is registered without any
	// object class.
	ErrNoObjectClass = errors.New("service has no object class")
)

// ReservedNamespaceError reports an attempt to declare a capability in a
// reserved namespace.
type ReservedNamespaceError struct {
	Namespace string
}

func (e *ReservedNamespaceError) Error() string {
	return fmt.Sprintf("%s: %q cannot be declared", ErrReservedNamespace, e.Namespace)
}

// Is makes errors.Is(err, ErrReservedNamespace) succeed.
func (e *ReservedNamespaceError) Is(target error) bool {
	return target == ErrReservedNamespace
}
