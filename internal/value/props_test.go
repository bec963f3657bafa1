package value

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPropertyMap_CaseInsensitiveGet(t *testing.T) {
	p := MustPropertyMap(map[string]Value{"String": String("test")})

	v, ok := p.Get("string")
	require.True(t, ok)
	assert.Equal(t, "test", v.String())

	_, ok = p.Get("STRING")
	assert.True(t, ok)
}

func TestPropertyMap_GetExact(t *testing.T) {
	p := MustPropertyMap(map[string]Value{"String": String("test")})

	_, ok := p.GetExact("String")
	assert.True(t, ok)

	_, ok = p.GetExact("string")
	assert.False(t, ok)

	_, ok = p.Lookup("string", true)
	assert.False(t, ok)

	_, ok = p.Lookup("string", false)
	assert.True(t, ok)
}

func TestNewPropertyMap_CaseCollision(t *testing.T) {
	_, err := NewPropertyMap(map[string]Value{
		"key": String("a"),
		"KEY": String("b"),
	})
	require.ErrorIs(t, err, ErrAmbiguousMerge)

	var amb *AmbiguousMergeError
	require.ErrorAs(t, err, &amb)
	assert.Equal(t, "key", amb.Key)
	assert.Equal(t, "KEY", amb.Existing)
}

func TestMerge_CaseOnlyCollisionFails(t *testing.T) {
	a := MustPropertyMap(map[string]Value{"Version": String("1")})
	b := MustPropertyMap(map[string]Value{"version": String("2")})

	_, err := Merge(a, b)
	require.ErrorIs(t, err, ErrAmbiguousMerge)
}

func TestMerge_IdenticalKeyOverrides(t *testing.T) {
	a := MustPropertyMap(map[string]Value{"name": String("a"), "x": Int64(1)})
	b := MustPropertyMap(map[string]Value{"name": String("b")})

	m, err := Merge(a, b)
	require.NoError(t, err)

	v, _ := m.Get("name")
	assert.Equal(t, "b", v.String())
	assert.Equal(t, 2, m.Len())
}

func TestPropertyMap_With(t *testing.T) {
	p := MustPropertyMap(map[string]Value{"a": Int64(1)})

	q, err := p.With("b", Int64(2))
	require.NoError(t, err)
	assert.Equal(t, 1, p.Len(), "original is unchanged")
	assert.Equal(t, []string{"a", "b"}, q.Keys())

	_, err = p.With("A", Int64(3))
	require.ErrorIs(t, err, ErrAmbiguousMerge)
}

func TestPropertyMap_ZeroValue(t *testing.T) {
	var p PropertyMap

	_, ok := p.Get("anything")
	assert.False(t, ok)
	assert.Equal(t, 0, p.Len())
	assert.Equal(t, "{}", p.String())
}

func TestPropertyMap_SkipsInvalidValues(t *testing.T) {
	p := MustPropertyMap(map[string]Value{"a": {}, "b": Int64(1)})
	assert.Equal(t, []string{"b"}, p.Keys())
}

func TestPropertyMap_Native(t *testing.T) {
	p := MustPropertyMap(map[string]Value{
		"name": String("x"),
		"list": Int64s(1, 2),
	})

	assert.Equal(t, map[string]any{"name": "x", "list": []any{int64(1), int64(2)}}, p.Native())
	assert.Equal(t, "{list=[1, 2], name=x}", p.String())
}
