// Package manifest loads resource declarations (capabilities, requirements
// and services) from YAML or TOML files.
//
// A YAML file may contain several documents separated by "---"; each
// document describes one resource:
//
//	resource:
//	  name: com.example.app
//	  version: 1.2.0
//	capabilities:
//	  - namespace: com.example.log
//	    attributes:
//	      level:Long: 3
//	requirements:
//	  - namespace: com.example.db
//	    filter: (driver=postgres)
//	    version: "[1.0,2.0)"
//
// Attribute keys may carry a type suffix ("name:Type") understood by
// value.ParseTyped; untyped values keep the type the decoder produced.
package manifest

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/google/uuid"

	"github.com/hupe1980/capmatch/internal/capability"
	"github.com/hupe1980/capmatch/internal/value"
)

// ErrInvalidManifest wraps every validation error reported by this package.
var ErrInvalidManifest = errors.New("invalid manifest")

// Document is the decoded form of one resource declaration.
type Document struct {
	Resource     ResourceSpec      `yaml:"resource" toml:"resource"`
	Capabilities []CapabilitySpec  `yaml:"capabilities" toml:"capabilities"`
	Requirements []RequirementSpec `yaml:"requirements" toml:"requirements"`
	Services     []ServiceSpec     `yaml:"services" toml:"services"`
}

// ResourceSpec identifies the declaring resource. A missing id is generated.
type ResourceSpec struct {
	ID      string `yaml:"id" toml:"id"`
	Name    string `yaml:"name" toml:"name"`
	Version string `yaml:"version" toml:"version"`
	Type    string `yaml:"type" toml:"type"`
}

// CapabilitySpec declares a capability.
type CapabilitySpec struct {
	Namespace  string            `yaml:"namespace" toml:"namespace"`
	Attributes Attributes        `yaml:"attributes" toml:"attributes"`
	Directives map[string]string `yaml:"directives" toml:"directives"`
	Ranking    int32             `yaml:"ranking" toml:"ranking"`
}

// RequirementSpec declares a requirement. Filter, Version and the filter
// directive are combined into one conjunctive filter.
type RequirementSpec struct {
	Namespace  string            `yaml:"namespace" toml:"namespace"`
	Filter     string            `yaml:"filter" toml:"filter"`
	Version    string            `yaml:"version" toml:"version"`
	Attributes Attributes        `yaml:"attributes" toml:"attributes"`
	Directives map[string]string `yaml:"directives" toml:"directives"`
	AllowSelf  bool              `yaml:"allowSelf" toml:"allowSelf"`
}

// ServiceSpec declares a service.
type ServiceSpec struct {
	ObjectClass []string   `yaml:"objectClass" toml:"objectClass"`
	Properties  Attributes `yaml:"properties" toml:"properties"`
	Ranking     int32      `yaml:"ranking" toml:"ranking"`
}

// Ranked pairs a payload with the ranking it is registered under.
type Ranked[T capability.Provider] struct {
	Payload T
	Ranking int32
}

// Manifest is a validated resource declaration.
type Manifest struct {
	Source       string
	Resource     capability.ResourceRef
	Identity     *capability.Capability
	Capabilities []Ranked[*capability.Capability]
	Requirements []*capability.Requirement
	Services     []Ranked[*capability.Service]
}

// Build validates doc and converts it into a Manifest. source names the
// origin in error messages.
func Build(doc Document, source string) (*Manifest, error) {
	res := capability.ResourceRef{
		ID:      strings.TrimSpace(doc.Resource.ID),
		Name:    strings.TrimSpace(doc.Resource.Name),
		Version: strings.TrimSpace(doc.Resource.Version),
	}

	if res.ID == "" {
		res.ID = uuid.NewString()
	}

	m := &Manifest{Source: source, Resource: res}

	if res.Name != "" {
		id, err := capability.IdentityCapability(res, doc.Resource.Type)
		if err != nil {
			return nil, invalid(source, "resource", err)
		}

		m.Identity = id
	}

	for i, spec := range doc.Capabilities {
		c, err := buildCapability(spec, res)
		if err != nil {
			return nil, invalid(source, fmt.Sprintf("capabilities[%d]", i), err)
		}

		m.Capabilities = append(m.Capabilities, Ranked[*capability.Capability]{Payload: c, Ranking: spec.Ranking})
	}

	for i, spec := range doc.Requirements {
		r, err := buildRequirement(spec, res)
		if err != nil {
			return nil, invalid(source, fmt.Sprintf("requirements[%d]", i), err)
		}

		m.Requirements = append(m.Requirements, r)
	}

	for i, spec := range doc.Services {
		props, err := ParseProperties(spec.Properties)
		if err != nil {
			return nil, invalid(source, fmt.Sprintf("services[%d]", i), err)
		}

		s, err := capability.NewService(spec.ObjectClass, props, nil, res)
		if err != nil {
			return nil, invalid(source, fmt.Sprintf("services[%d]", i), err)
		}

		m.Services = append(m.Services, Ranked[*capability.Service]{Payload: s, Ranking: spec.Ranking})
	}

	return m, nil
}

func invalid(source, where string, err error) error {
	return fmt.Errorf("%w: %s: %s: %w", ErrInvalidManifest, source, where, err)
}

func buildCapability(spec CapabilitySpec, res capability.ResourceRef) (*capability.Capability, error) {
	attrs, err := ParseProperties(spec.Attributes)
	if err != nil {
		return nil, err
	}

	return capability.NewCapability(spec.Namespace, attrs, spec.Directives, res)
}

func buildRequirement(spec RequirementSpec, res capability.ResourceRef) (*capability.Requirement, error) {
	b := capability.NewRequirementBuilder(spec.Namespace).Resource(res)

	for _, k := range sortedKeys(spec.Directives) {
		b.Directive(k, spec.Directives[k])
	}

	b.And(spec.Filter)

	if spec.Version != "" {
		vr, err := capability.ParseVersionRange(spec.Version)
		if err != nil {
			return nil, err
		}

		b.And(vr.Filter("version"))
	}

	attrs, err := ParseProperties(spec.Attributes)
	if err != nil {
		return nil, err
	}

	for _, k := range attrs.Keys() {
		v, _ := attrs.GetExact(k)
		b.Attribute(k, v)
	}

	if spec.AllowSelf {
		b.AllowSelf()
	}

	return b.Build()
}

// ParseProperties converts decoded attributes into a PropertyMap. Keys of
// the form "name:Type" are converted with value.ParseTyped from the source
// text of the value when it was kept (see Attributes).
func ParseProperties(raw map[string]any) (value.PropertyMap, error) {
	vals := make(map[string]value.Value, len(raw))

	for _, key := range sortedKeys(raw) {
		name, typ, typed := strings.Cut(key, ":")
		name = strings.TrimSpace(name)

		if name == "" {
			return value.PropertyMap{}, fmt.Errorf("attribute %q: empty name", key)
		}

		var (
			v   value.Value
			err error
		)

		if typed {
			v, err = value.ParseTyped(typ, typedText(raw[key]))
		} else {
			v, err = value.FromAny(plain(raw[key]))
		}

		if err != nil {
			return value.PropertyMap{}, fmt.Errorf("attribute %q: %w", name, err)
		}

		if _, dup := vals[name]; dup {
			return value.PropertyMap{}, fmt.Errorf("attribute %q declared twice", name)
		}

		vals[name] = v
	}

	return value.NewPropertyMap(vals)
}

// typedText renders a decoded value as the text form ParseTyped expects.
// Sequence elements are joined with commas, escaping commas inside them.
func typedText(raw any) string {
	items, ok := raw.([]any)
	if !ok {
		return sourceText(raw)
	}

	parts := make([]string, len(items))
	for i, it := range items {
		s := sourceText(it)
		s = strings.ReplaceAll(s, `\`, `\\`)
		parts[i] = strings.ReplaceAll(s, ",", `\,`)
	}

	return strings.Join(parts, ",")
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}

	sort.Strings(keys)

	return keys
}
