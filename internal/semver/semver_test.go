package semver

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseVersion_Lenient(t *testing.T) {
	for raw, want := range map[string]string{
		"1":       "1.0.0",
		"1.2":     "1.2.0",
		"v1.2.3":  "1.2.3",
		" 2.0.0 ": "2.0.0",
	} {
		v, err := ParseVersion(raw)
		require.NoError(t, err, raw)
		assert.Equal(t, want, v.String(), raw)
	}
}

func TestParseVersion_Invalid(t *testing.T) {
	_, err := ParseVersion("not-a-version")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not-a-version")
}

func TestCompare(t *testing.T) {
	assert.Equal(t, -1, Compare(MustParseVersion("1.0.0"), MustParseVersion("1.5.0")))
	assert.Equal(t, 0, Compare(MustParseVersion("1.5"), MustParseVersion("1.5.0")))
	assert.Equal(t, 1, Compare(MustParseVersion("2.0.0"), MustParseVersion("1.99.0")))
	assert.Equal(t, -1, Compare(Version{}, MustParseVersion("0.0.1")))
	assert.Equal(t, 0, Compare(Version{}, Version{}))
}

func TestZeroVersion(t *testing.T) {
	var v Version
	assert.True(t, v.IsZero())
	assert.Empty(t, v.String())
	assert.False(t, MustParseVersion("1.0.0").IsZero())
}
