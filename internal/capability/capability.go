// Package capability defines capabilities, requirements and services: the
// namespaced, attributed facts that resources offer and need.
package capability

import (
	"fmt"
	"slices"
	"strings"

	"github.com/hupe1980/capmatch/internal/value"
)

// Well-known namespaces. The identity, host, package and bundle namespaces
// are reserved: their capabilities are derived from resource metadata and
// cannot be declared through NewCapability.
const (
	NamespaceIdentity = "osgi.identity"
	NamespaceHost     = "osgi.wiring.host"
	NamespacePackage  = "osgi.wiring.package"
	NamespaceBundle   = "osgi.wiring.bundle"
	NamespaceService  = "osgi.service"
)

// Directive names.
const (
	DirectiveFilter    = "filter"
	DirectiveEffective = "effective"
	DirectiveUses      = "uses"
)

// Effective phases. A missing effective directive means EffectiveResolve.
const (
	EffectiveResolve = "resolve"
	EffectiveActive  = "active"
)

var reservedNamespaces = []string{
	NamespaceIdentity,
	NamespaceHost,
	NamespacePackage,
	NamespaceBundle,
}

// IsReserved reports whether ns may only carry intrinsic capabilities.
func IsReserved(ns string) bool {
	return slices.Contains(reservedNamespaces, ns)
}

// ReservedNamespaces returns the reserved namespaces.
func ReservedNamespaces() []string {
	return slices.Clone(reservedNamespaces)
}

// ResourceRef identifies the resource that owns a capability, requirement
// or service.
type ResourceRef struct {
	ID      string `json:"id"`
	Name    string `json:"name,omitempty"`
	Version string `json:"version,omitempty"`
}

// IsZero reports whether r identifies no resource.
func (r ResourceRef) IsZero() bool {
	return r.ID == ""
}

// String returns "name@version" or the id when no name is set.
func (r ResourceRef) String() string {
	switch {
	case r.Name == "":
		return r.ID
	case r.Version == "":
		return r.Name
	default:
		return r.Name + "@" + r.Version
	}
}

// Provider is what the matcher and registry need from a capability-like
// value. *Capability and *Service implement it.
type Provider interface {
	Namespace() string
	Attributes() value.PropertyMap
	Directives() Directives
	Resource() ResourceRef
}

// Capability is an immutable fact offered by a resource.
type Capability struct {
	namespace  string
	attributes value.PropertyMap
	directives Directives
	resource   ResourceRef
}

// NewCapability declares a capability in ns. Reserved namespaces are
// rejected with a *ReservedNamespaceError.
func NewCapability(ns string, attrs value.PropertyMap, dirs map[string]string, res ResourceRef) (*Capability, error) {
	ns = strings.TrimSpace(ns)
	if ns == "" {
		return nil, ErrEmptyNamespace
	}

	if IsReserved(ns) {
		return nil, &ReservedNamespaceError{Namespace: ns}
	}

	return newCapability(ns, attrs, dirs, res), nil
}

// MustCapability is like NewCapability but panics on error.
func MustCapability(ns string, attrs value.PropertyMap, dirs map[string]string, res ResourceRef) *Capability {
	c, err := NewCapability(ns, attrs, dirs, res)
	if err != nil {
		panic(err)
	}

	return c
}

// NewIntrinsicCapability creates a capability without the reserved
// namespace check. It is meant for collaborators that own those namespaces,
// such as code deriving identity capabilities from resource metadata.
func NewIntrinsicCapability(ns string, attrs value.PropertyMap, dirs map[string]string, res ResourceRef) *Capability {
	return newCapability(ns, attrs, dirs, res)
}

func newCapability(ns string, attrs value.PropertyMap, dirs map[string]string, res ResourceRef) *Capability {
	return &Capability{
		namespace:  ns,
		attributes: attrs,
		directives: NewDirectives(dirs),
		resource:   res,
	}
}

// IdentityCapability returns the intrinsic identity capability of res,
// with "osgi.identity", "type" and "version" attributes.
func IdentityCapability(res ResourceRef, typ string) (*Capability, error) {
	attrs := map[string]value.Value{
		NamespaceIdentity: value.String(res.Name),
	}

	if typ != "" {
		attrs["type"] = value.String(typ)
	}

	if res.Version != "" {
		v, err := value.ParseVersion(res.Version)
		if err != nil {
			return nil, fmt.Errorf("identity of %s: %w", res, err)
		}

		attrs["version"] = v
	}

	props, err := value.NewPropertyMap(attrs)
	if err != nil {
		return nil, err
	}

	return NewIntrinsicCapability(NamespaceIdentity, props, nil, res), nil
}

// Namespace returns the capability namespace.
func (c *Capability) Namespace() string { return c.namespace }

// Attributes returns the matchable attributes.
func (c *Capability) Attributes() value.PropertyMap { return c.attributes }

// Directives returns a read-only view of the directives.
func (c *Capability) Directives() Directives { return c.directives }

// Resource returns the owning resource.
func (c *Capability) Resource() ResourceRef { return c.resource }

// Effective returns the phase in which the capability is available.
func (c *Capability) Effective() string { return c.directives.Effective() }

// Uses returns the namespaces listed in the uses directive.
func (c *Capability) Uses() []string { return c.directives.Uses() }

// String renders the capability for diagnostics.
func (c *Capability) String() string {
	return fmt.Sprintf("[%s] %s %s", c.resource, c.namespace, c.attributes)
}
