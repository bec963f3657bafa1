package capability

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/capmatch/internal/filter"
	"github.com/hupe1980/capmatch/internal/semver"
	"github.com/hupe1980/capmatch/internal/value"
)

var testRes = ResourceRef{ID: "r1", Name: "com.example.app", Version: "1.2.0"}

// ---------------------------------------------------------------------------
// Capability
// ---------------------------------------------------------------------------

func TestNewCapability_ReservedNamespaces(t *testing.T) {
	for _, ns := range ReservedNamespaces() {
		t.Run(ns, func(t *testing.T) {
			_, err := NewCapability(ns, value.PropertyMap{}, nil, testRes)
			require.ErrorIs(t, err, ErrReservedNamespace)

			var rn *ReservedNamespaceError
			require.ErrorAs(t, err, &rn)
			assert.Equal(t, ns, rn.Namespace)
			assert.Contains(t, err.Error(), ns)
		})
	}
}

func TestNewCapability_EmptyNamespace(t *testing.T) {
	_, err := NewCapability("  ", value.PropertyMap{}, nil, testRes)
	require.ErrorIs(t, err, ErrEmptyNamespace)
}

func TestNewIntrinsicCapability_AllowsReserved(t *testing.T) {
	c := NewIntrinsicCapability(NamespacePackage, value.PropertyMap{}, nil, testRes)
	assert.Equal(t, NamespacePackage, c.Namespace())
}

func TestCapability_DirectivesAreCopied(t *testing.T) {
	dirs := map[string]string{DirectiveEffective: EffectiveActive, DirectiveUses: "a, b,,c "}

	c, err := NewCapability("com.example.log", value.PropertyMap{}, dirs, testRes)
	require.NoError(t, err)

	dirs[DirectiveEffective] = "changed"

	assert.Equal(t, EffectiveActive, c.Effective())
	assert.Equal(t, []string{"a", "b", "c"}, c.Uses())

	view := c.Directives().Map()
	view[DirectiveEffective] = "mutated"
	assert.Equal(t, EffectiveActive, c.Directives().Get(DirectiveEffective))
	assert.Equal(t, []string{DirectiveEffective, DirectiveUses}, c.Directives().Keys())
}

func TestDirectives_EffectiveDefault(t *testing.T) {
	assert.Equal(t, EffectiveResolve, Directives{}.Effective())
	assert.Empty(t, Directives{}.Uses())
	assert.Equal(t, 0, Directives{}.Len())
}

func TestIdentityCapability(t *testing.T) {
	c, err := IdentityCapability(testRes, "osgi.bundle")
	require.NoError(t, err)

	assert.Equal(t, NamespaceIdentity, c.Namespace())

	f := filter.MustParse("(&(osgi.identity=com.example.app)(type=osgi.bundle)(version>=1.0.0))")
	assert.True(t, f.Matches(c.Attributes()))

	_, err = IdentityCapability(ResourceRef{ID: "x", Name: "x", Version: "not-a-version"}, "")
	require.Error(t, err)
}

func TestResourceRef_String(t *testing.T) {
	assert.Equal(t, "com.example.app@1.2.0", testRes.String())
	assert.Equal(t, "n", ResourceRef{ID: "1", Name: "n"}.String())
	assert.Equal(t, "1", ResourceRef{ID: "1"}.String())
	assert.True(t, ResourceRef{}.IsZero())
}

// ---------------------------------------------------------------------------
// Requirement builder
// ---------------------------------------------------------------------------

func TestRequirementBuilder_AndCombinesFragments(t *testing.T) {
	req, err := NewRequirementBuilder(NamespaceIdentity).
		Resource(testRes).
		And(IdentityTypes("osgi.bundle", "osgi.fragment")).
		And(Between(semver.MustParseVersion("1.0.0"), semver.MustParseVersion("2.0.0")).Filter("version")).
		Build()
	require.NoError(t, err)

	text, ok := req.Filter()
	require.True(t, ok)
	assert.Equal(t,
		"(&(|(type=osgi.bundle)(type=osgi.fragment))(&(version>=1.0.0)(!(version>=2.0.0))))",
		text)

	f := filter.MustParse(text)

	match := value.MustPropertyMap(map[string]value.Value{
		"type":    value.String("osgi.fragment"),
		"version": value.Version(semver.MustParseVersion("1.5.0")),
	})
	assert.True(t, f.Matches(match))

	tooNew := value.MustPropertyMap(map[string]value.Value{
		"type":    value.String("osgi.bundle"),
		"version": value.Version(semver.MustParseVersion("2.0.0")),
	})
	assert.False(t, f.Matches(tooNew))
}

func TestRequirementBuilder_SingleFragment(t *testing.T) {
	req, err := NewRequirementBuilder("com.example.log").And(Eq("level", "debug")).Build()
	require.NoError(t, err)

	text, _ := req.Filter()
	assert.Equal(t, "(level=debug)", text)
}

func TestRequirementBuilder_DirectiveFilterReplacesFragments(t *testing.T) {
	req, err := NewRequirementBuilder("ns").
		And("(a=1)").
		Directive(DirectiveFilter, "(b=2)").
		And("(c=3)").
		Build()
	require.NoError(t, err)

	text, _ := req.Filter()
	assert.Equal(t, "(&(b=2)(c=3))", text)
}

func TestRequirementBuilder_InvalidFilter(t *testing.T) {
	_, err := NewRequirementBuilder("ns").And("(a=1").Build()
	require.ErrorIs(t, err, filter.ErrInvalidSyntax)
}

func TestRequirementBuilder_AttributeCaseCollision(t *testing.T) {
	_, err := NewRequirementBuilder("ns").
		Attribute("Key", value.String("a")).
		Attribute("key", value.String("b")).
		Build()
	require.ErrorIs(t, err, value.ErrAmbiguousMerge)
}

func TestRequirementBuilder_Options(t *testing.T) {
	req, err := NewRequirementBuilder("ns").
		Effective(EffectiveActive).
		Uses("a", "b").
		AllowSelf().
		Build()
	require.NoError(t, err)

	assert.Equal(t, EffectiveActive, req.Effective())
	assert.Equal(t, []string{"a", "b"}, req.Uses())
	assert.True(t, req.AllowSelf())

	_, ok := req.Filter()
	assert.False(t, ok)
}

func TestRequirementBuilder_EmptyNamespace(t *testing.T) {
	_, err := NewRequirementBuilder("").Build()
	require.ErrorIs(t, err, ErrEmptyNamespace)
}

func TestNewRequirement_DoesNotValidateFilter(t *testing.T) {
	req := NewRequirement("ns", value.PropertyMap{}, map[string]string{DirectiveFilter: "(broken"}, testRes)

	text, ok := req.Filter()
	assert.True(t, ok)
	assert.Equal(t, "(broken", text)
	assert.False(t, req.AllowSelf())
}

func TestEq_EscapesLiteral(t *testing.T) {
	assert.Equal(t, `(name=a\*b\(c\))`, Eq("name", "a*b(c)"))
	assert.Equal(t, "(type=x)", IdentityTypes("x"))
	assert.Empty(t, IdentityTypes())
}

// ---------------------------------------------------------------------------
// Service
// ---------------------------------------------------------------------------

func TestNewService(t *testing.T) {
	props := value.MustPropertyMap(map[string]value.Value{
		"level":      value.Int64(3),
		"service.id": value.Int64(99),
	})

	s, err := NewService([]string{"com.example.Log", " "}, props, "impl", testRes)
	require.NoError(t, err)

	assert.Equal(t, NamespaceService, s.Namespace())
	assert.Equal(t, []string{"com.example.Log"}, s.ObjectClass())
	assert.Equal(t, "impl", s.Object())
	assert.Equal(t, uint64(0), s.ID())

	_, ok := s.Attributes().Get(PropServiceID)
	assert.False(t, ok, "caller-supplied service.id is dropped")

	assert.True(t, filter.MustParse("(objectclass=com.example.Log)").Matches(s.Attributes()))
}

func TestNewService_NoObjectClass(t *testing.T) {
	_, err := NewService(nil, value.PropertyMap{}, nil, testRes)
	require.ErrorIs(t, err, ErrNoObjectClass)
}

func TestService_WithRegistration(t *testing.T) {
	s, err := NewService([]string{"A"}, value.PropertyMap{}, nil, testRes)
	require.NoError(t, err)

	reg := s.WithRegistration(7, 5)
	assert.Equal(t, uint64(7), reg.ID())
	assert.Equal(t, uint64(0), s.ID(), "original is unchanged")

	assert.True(t, filter.MustParse("(&(service.id=7)(service.ranking>=5))").Matches(reg.Attributes()))

	again := reg.WithRegistration(7, -1)
	assert.True(t, filter.MustParse("(service.ranking<=-1)").Matches(again.Attributes()))
}
