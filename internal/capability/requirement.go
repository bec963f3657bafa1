package capability

import (
	"fmt"
	"strings"

	"github.com/hupe1980/capmatch/internal/filter"
	"github.com/hupe1980/capmatch/internal/value"
)

// Requirement is an immutable, filter-constrained need of a resource.
type Requirement struct {
	namespace  string
	attributes value.PropertyMap
	directives Directives
	resource   ResourceRef
	allowSelf  bool
}

// NewRequirement creates a requirement. The filter directive is not
// validated here; the matcher reports a malformed filter when the
// requirement is used. Use RequirementBuilder for validated construction.
func NewRequirement(ns string, attrs value.PropertyMap, dirs map[string]string, res ResourceRef) *Requirement {
	return &Requirement{
		namespace:  strings.TrimSpace(ns),
		attributes: attrs,
		directives: NewDirectives(dirs),
		resource:   res,
	}
}

// Namespace returns the namespace the requirement is matched in.
func (r *Requirement) Namespace() string { return r.namespace }

// Attributes returns the requirement attributes.
func (r *Requirement) Attributes() value.PropertyMap { return r.attributes }

// Directives returns a read-only view of the directives.
func (r *Requirement) Directives() Directives { return r.directives }

// Resource returns the declaring resource.
func (r *Requirement) Resource() ResourceRef { return r.resource }

// Filter returns the filter directive text, if any.
func (r *Requirement) Filter() (string, bool) { return r.directives.Filter() }

// Effective returns the phase the requirement is resolved in.
func (r *Requirement) Effective() string { return r.directives.Effective() }

// Uses returns the namespaces listed in the uses directive.
func (r *Requirement) Uses() []string { return r.directives.Uses() }

// AllowSelf reports whether capabilities of the declaring resource may
// satisfy the requirement.
func (r *Requirement) AllowSelf() bool { return r.allowSelf }

// String renders the requirement for diagnostics.
func (r *Requirement) String() string {
	f, ok := r.Filter()
	if !ok {
		return fmt.Sprintf("[%s] %s", r.resource, r.namespace)
	}

	return fmt.Sprintf("[%s] %s %s", r.resource, r.namespace, f)
}

// RequirementBuilder assembles a Requirement. Filter fragments added with
// And are combined into a single conjunctive filter directive.
type RequirementBuilder struct {
	namespace  string
	attributes map[string]value.Value
	directives map[string]string
	fragments  []string
	resource   ResourceRef
	allowSelf  bool
}

// NewRequirementBuilder starts a requirement in ns.
func NewRequirementBuilder(ns string) *RequirementBuilder {
	return &RequirementBuilder{
		namespace:  ns,
		attributes: make(map[string]value.Value),
		directives: make(map[string]string),
	}
}

// Resource sets the declaring resource.
func (b *RequirementBuilder) Resource(res ResourceRef) *RequirementBuilder {
	b.resource = res
	return b
}

// Attribute sets an attribute.
func (b *RequirementBuilder) Attribute(name string, v value.Value) *RequirementBuilder {
	b.attributes[name] = v
	return b
}

// Directive sets a directive. Setting the filter directive replaces any
// fragments added so far.
func (b *RequirementBuilder) Directive(name, v string) *RequirementBuilder {
	if name == DirectiveFilter {
		b.fragments = nil
		return b.And(v)
	}

	b.directives[name] = v

	return b
}

// And adds a filter fragment. Empty fragments are ignored.
func (b *RequirementBuilder) And(fragment string) *RequirementBuilder {
	if f := strings.TrimSpace(fragment); f != "" {
		b.fragments = append(b.fragments, f)
	}

	return b
}

// Effective sets the phase the requirement is resolved in.
func (b *RequirementBuilder) Effective(phase string) *RequirementBuilder {
	return b.Directive(DirectiveEffective, phase)
}

// Uses sets the uses directive.
func (b *RequirementBuilder) Uses(namespaces ...string) *RequirementBuilder {
	return b.Directive(DirectiveUses, strings.Join(namespaces, ","))
}

// AllowSelf lets capabilities of the declaring resource satisfy the
// requirement.
func (b *RequirementBuilder) AllowSelf() *RequirementBuilder {
	b.allowSelf = true
	return b
}

// Build validates the accumulated filter and returns the requirement.
func (b *RequirementBuilder) Build() (*Requirement, error) {
	ns := strings.TrimSpace(b.namespace)
	if ns == "" {
		return nil, ErrEmptyNamespace
	}

	attrs, err := value.NewPropertyMap(b.attributes)
	if err != nil {
		return nil, fmt.Errorf("requirement attributes: %w", err)
	}

	dirs := make(map[string]string, len(b.directives)+1)
	for k, v := range b.directives {
		dirs[k] = v
	}

	if text := combine(b.fragments); text != "" {
		if _, err := filter.Parse(text); err != nil {
			return nil, fmt.Errorf("requirement filter: %w", err)
		}

		dirs[DirectiveFilter] = text
	}

	req := NewRequirement(ns, attrs, dirs, b.resource)
	req.allowSelf = b.allowSelf

	return req, nil
}

// combine joins fragments into one conjunction.
func combine(fragments []string) string {
	switch len(fragments) {
	case 0:
		return ""
	case 1:
		return fragments[0]
	default:
		return "(&" + strings.Join(fragments, "") + ")"
	}
}

// Eq returns an equality fragment matching literal exactly.
func Eq(attr, literal string) string {
	return "(" + attr + "=" + filter.Escape(literal) + ")"
}

// IdentityTypes returns a fragment matching any of the given identity types.
func IdentityTypes(types ...string) string {
	switch len(types) {
	case 0:
		return ""
	case 1:
		return Eq("type", types[0])
	}

	var b strings.Builder

	b.WriteString("(|")

	for _, t := range types {
		b.WriteString(Eq("type", t))
	}

	b.WriteString(")")

	return b.String()
}
