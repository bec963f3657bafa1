package value

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromAny(t *testing.T) {
	v, err := FromAny(42)
	require.NoError(t, err)
	assert.Equal(t, KindInt64, v.Kind())

	v, err = FromAny([]any{"a", "b"})
	require.NoError(t, err)
	assert.Equal(t, KindSeq, v.Kind())
	assert.Equal(t, 2, v.Len())

	_, err = FromAny(map[string]any{})
	require.ErrorIs(t, err, ErrUnsupportedType)

	_, err = FromAny([]any{"a", 1})
	require.ErrorIs(t, err, ErrHeterogeneousSeq)
}

func TestFromNative(t *testing.T) {
	p, err := FromNative(map[string]any{"Size": 3, "name": "x"})
	require.NoError(t, err)

	v, ok := p.Get("size")
	require.True(t, ok)
	assert.Equal(t, "3", v.String())

	_, err = FromNative(map[string]any{"a": 1, "A": 2})
	require.ErrorIs(t, err, ErrAmbiguousMerge)
}

func TestParseTyped(t *testing.T) {
	tests := []struct {
		typ      string
		raw      string
		wantKind Kind
		want     string
	}{
		{"", "plain", KindString, "plain"},
		{"String", " keep ", KindString, " keep "},
		{"Long", "10", KindInt64, "10"},
		{"Integer", "7", KindInt32, "7"},
		{"Double", "2.5", KindFloat64, "2.5"},
		{"Version", "1.2", KindVersion, "1.2.0"},
		{"boolean", "TRUE", KindBool, "true"},
		{"BigInteger", "99999999999999999999", KindBigInt, "99999999999999999999"},
		{"List<Long>", "1, 2,3", KindSeq, "[1, 2, 3]"},
		{"List", `a\,b,c`, KindSeq, "[a,b, c]"},
		{"List<Version>", "1.0,2.0", KindSeq, "[1.0.0, 2.0.0]"},
	}

	for _, tt := range tests {
		t.Run(tt.typ+"/"+tt.raw, func(t *testing.T) {
			v, err := ParseTyped(tt.typ, tt.raw)
			require.NoError(t, err)
			assert.Equal(t, tt.wantKind, v.Kind())
			assert.Equal(t, tt.want, v.String())
		})
	}
}

func TestParseTyped_Errors(t *testing.T) {
	_, err := ParseTyped("Long", "ten")
	require.Error(t, err)

	_, err = ParseTyped("Map", "x")
	require.ErrorIs(t, err, ErrUnsupportedType)

	_, err = ParseTyped("List<Map>", "x")
	require.ErrorIs(t, err, ErrUnsupportedType)
}

func TestTypeNames(t *testing.T) {
	for _, name := range TypeNames() {
		_, known := scalarTypes[strings.ToLower(name)]
		assert.True(t, known, name)
	}

	assert.Len(t, TypeNames(), 12)
}
