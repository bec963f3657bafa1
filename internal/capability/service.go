package capability

import (
	"fmt"
	"strings"

	"github.com/hupe1980/capmatch/internal/value"
)

// Service property names maintained by the registry.
const (
	PropObjectClass    = "objectClass"
	PropServiceID      = "service.id"
	PropServiceRanking = "service.ranking"
)

// Service is a published service object with its lookup properties. Its
// attributes always include objectClass; the registry adds service.id and
// service.ranking on registration.
type Service struct {
	objectClass []string
	properties  value.PropertyMap
	object      any
	resource    ResourceRef
}

// NewService creates a service published under the given object classes.
// Properties named objectClass, service.id or service.ranking are replaced.
func NewService(objectClass []string, props value.PropertyMap, object any, res ResourceRef) (*Service, error) {
	classes := make([]string, 0, len(objectClass))

	for _, c := range objectClass {
		if c = strings.TrimSpace(c); c != "" {
			classes = append(classes, c)
		}
	}

	if len(classes) == 0 {
		return nil, ErrNoObjectClass
	}

	base := make(map[string]value.Value, props.Len()+1)

	for _, k := range props.Keys() {
		if isManagedProp(k) {
			continue
		}

		v, _ := props.GetExact(k)
		base[k] = v
	}

	base[PropObjectClass] = value.Strings(classes...)

	attrs, err := value.NewPropertyMap(base)
	if err != nil {
		return nil, fmt.Errorf("service properties: %w", err)
	}

	return &Service{
		objectClass: classes,
		properties:  attrs,
		object:      object,
		resource:    res,
	}, nil
}

func isManagedProp(k string) bool {
	return strings.EqualFold(k, PropObjectClass) ||
		strings.EqualFold(k, PropServiceID) ||
		strings.EqualFold(k, PropServiceRanking)
}

// WithRegistration returns a copy of s whose attributes carry the given
// registry id and ranking.
func (s *Service) WithRegistration(id uint64, ranking int32) *Service {
	m := s.properties.ToMap()
	m[PropServiceID] = value.Uint64(id)
	m[PropServiceRanking] = value.Int32(ranking)

	cp := *s
	// The managed keys were stripped in NewService, so no case collision
	// is possible.
	cp.properties = value.MustPropertyMap(m)

	return &cp
}

// Namespace returns NamespaceService.
func (s *Service) Namespace() string { return NamespaceService }

// Attributes returns the service properties.
func (s *Service) Attributes() value.PropertyMap { return s.properties }

// Directives returns an empty view; services carry no directives.
func (s *Service) Directives() Directives { return Directives{} }

// Resource returns the publishing resource.
func (s *Service) Resource() ResourceRef { return s.resource }

// ObjectClass returns the names the service is published under.
func (s *Service) ObjectClass() []string {
	out := make([]string, len(s.objectClass))
	copy(out, s.objectClass)

	return out
}

// Object returns the service object.
func (s *Service) Object() any { return s.object }

// ID returns the registry-assigned service id, or 0 before registration.
func (s *Service) ID() uint64 {
	v, ok := s.properties.Get(PropServiceID)
	if !ok {
		return 0
	}

	id, _ := v.Native().(uint64)

	return id
}

// String renders the service for diagnostics.
func (s *Service) String() string {
	return fmt.Sprintf("[%s] %s %s", s.resource, strings.Join(s.objectClass, ","), s.properties)
}
