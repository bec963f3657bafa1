package manifest

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/capmatch/internal/capability"
	"github.com/hupe1980/capmatch/internal/filter"
	"github.com/hupe1980/capmatch/internal/registry"
	"github.com/hupe1980/capmatch/internal/value"
)

const twoResources = `
resource:
  id: app
  name: com.example.app
  version: 1.2.0
  type: osgi.bundle
capabilities:
  - namespace: com.example.log
    ranking: 5
    attributes:
      name: console
      level:Long: 3
      tags:List<String>: [a, "b,c"]
      version:Version: 2.1.0
    directives:
      effective: active
requirements:
  - namespace: com.example.db
    filter: (driver=postgres)
    version: "[1.0,2.0)"
    directives:
      uses: com.example.log
services:
  - objectClass: [com.example.Log]
    ranking: 2
    properties:
      lang: go
---
resource:
  id: db
  name: com.example.db
capabilities:
  - namespace: com.example.db
    attributes:
      driver: postgres
      version:Version: 1.4.0
`

const tomlResource = `
[resource]
name = "com.example.cache"
version = "0.3.0"

[[capabilities]]
namespace = "com.example.cache"
ranking = 1

[capabilities.attributes]
size = 128
"ratio:Double" = "0.5"
regions = ["eu", "us"]
`

// ---------------------------------------------------------------------------
// Decoding
// ---------------------------------------------------------------------------

func TestDecode_YAMLMultiDocument(t *testing.T) {
	ms, err := Decode(strings.NewReader(twoResources), FormatYAML, "test.yaml")
	require.NoError(t, err)
	require.Len(t, ms, 2)

	app := ms[0]
	assert.Equal(t, "test.yaml#0", app.Source)
	assert.Equal(t, capability.ResourceRef{ID: "app", Name: "com.example.app", Version: "1.2.0"}, app.Resource)
	require.NotNil(t, app.Identity)
	assert.Equal(t, capability.NamespaceIdentity, app.Identity.Namespace())

	require.Len(t, app.Capabilities, 1)
	c := app.Capabilities[0]
	assert.Equal(t, int32(5), c.Ranking)
	assert.Equal(t, capability.EffectiveActive, c.Payload.Effective())

	level, ok := c.Payload.Attributes().Get("level")
	require.True(t, ok)
	assert.Equal(t, value.KindInt64, level.Kind())

	tags, _ := c.Payload.Attributes().Get("tags")
	assert.Equal(t, "[a, b,c]", tags.String())

	ver, _ := c.Payload.Attributes().Get("version")
	assert.Equal(t, value.KindVersion, ver.Kind())

	require.Len(t, app.Requirements, 1)
	req := app.Requirements[0]
	text, ok := req.Filter()
	require.True(t, ok)
	assert.Equal(t, "(&(driver=postgres)(&(version>=1.0.0)(!(version>=2.0.0))))", text)
	assert.Equal(t, []string{"com.example.log"}, req.Uses())

	require.Len(t, app.Services, 1)
	assert.Equal(t, []string{"com.example.Log"}, app.Services[0].Payload.ObjectClass())
	assert.Equal(t, int32(2), app.Services[0].Ranking)

	assert.Equal(t, "db", ms[1].Resource.ID)
}

func TestDecode_TOML(t *testing.T) {
	ms, err := Decode(strings.NewReader(tomlResource), FormatTOML, "cache.toml")
	require.NoError(t, err)
	require.Len(t, ms, 1)

	m := ms[0]
	assert.NotEmpty(t, m.Resource.ID, "missing id is generated")
	require.Len(t, m.Capabilities, 1)

	attrs := m.Capabilities[0].Payload.Attributes()

	size, _ := attrs.Get("size")
	assert.Equal(t, value.KindInt64, size.Kind())

	ratio, _ := attrs.Get("ratio")
	assert.Equal(t, value.KindFloat64, ratio.Kind())

	regions, _ := attrs.Get("regions")
	assert.Equal(t, value.KindSeq, regions.Kind())
	assert.Equal(t, 2, regions.Len())
}

func TestDecode_TypedKeysUseSourceText(t *testing.T) {
	const doc = `
capabilities:
  - namespace: com.example.lib
    attributes:
      version:Version: 1.10
      label:String: 0x10
      n:BigInteger: 123456789012345678901234567890
      ids:List<String>: [007, 1.50]
      plain: 0x10
`

	ms, err := Decode(strings.NewReader(doc), FormatYAML, "typed.yaml")
	require.NoError(t, err)
	require.Len(t, ms, 1)

	attrs := ms[0].Capabilities[0].Payload.Attributes()

	ver, _ := attrs.Get("version")
	assert.Equal(t, value.KindVersion, ver.Kind())
	assert.Equal(t, "1.10.0", ver.String())

	label, _ := attrs.Get("label")
	assert.Equal(t, value.KindString, label.Kind())
	assert.Equal(t, "0x10", label.String())

	n, _ := attrs.Get("n")
	assert.Equal(t, value.KindBigInt, n.Kind())
	assert.Equal(t, "123456789012345678901234567890", n.String())

	ids, _ := attrs.Get("ids")
	assert.Equal(t, "[007, 1.50]", ids.String())

	plain, _ := attrs.Get("plain")
	assert.Equal(t, value.KindInt64, plain.Kind(), "untyped values keep the decoder's type")

	ok, err := filter.Match("(&(version>=1.9)(label=0x*))", attrs)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestDecodeAttributesYAML(t *testing.T) {
	attrs, err := DecodeAttributesYAML([]byte("long: -9876543210\nv:Version: 1.10\n"))
	require.NoError(t, err)

	p, err := ParseProperties(attrs)
	require.NoError(t, err)

	long, _ := p.Get("long")
	assert.Equal(t, value.KindInt64, long.Kind())
	assert.Equal(t, "-9876543210", long.String())

	v, _ := p.Get("v")
	assert.Equal(t, "1.10.0", v.String())

	empty, err := DecodeAttributesYAML(nil)
	require.NoError(t, err)
	assert.Empty(t, empty)

	_, err = DecodeAttributesYAML([]byte("- a\n- b\n"))
	require.Error(t, err)

	_, err = DecodeAttributesYAML([]byte("a: 1\na: 2\n"))
	require.Error(t, err)
}

func TestDecode_Errors(t *testing.T) {
	tests := []struct {
		name   string
		input  string
		format Format
	}{
		{"reserved namespace", "capabilities:\n  - namespace: osgi.wiring.package\n", FormatYAML},
		{"bad filter", "requirements:\n  - namespace: x\n    filter: (a=\n", FormatYAML},
		{"bad version range", "requirements:\n  - namespace: x\n    version: \"[2,1]\"\n", FormatYAML},
		{"bad typed value", "capabilities:\n  - namespace: x\n    attributes:\n      n:Long: abc\n", FormatYAML},
		{"case collision", "capabilities:\n  - namespace: x\n    attributes:\n      Key: a\n      key: b\n", FormatYAML},
		{"unknown field", "resource:\n  name: x\nbogus: 1\n", FormatYAML},
		{"service without class", "services:\n  - ranking: 1\n", FormatYAML},
		{"malformed yaml", "resource: [\n", FormatYAML},
		{"malformed toml", "[resource\n", FormatTOML},
		{"unknown toml field", "bogus = 1\n", FormatTOML},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Decode(strings.NewReader(tt.input), tt.format, "bad")
			require.ErrorIs(t, err, ErrInvalidManifest)
		})
	}
}

func TestDecode_ReservedNamespaceIsTyped(t *testing.T) {
	_, err := Decode(strings.NewReader("capabilities:\n  - namespace: osgi.identity\n"), FormatYAML, "bad")
	require.ErrorIs(t, err, capability.ErrReservedNamespace)
}

func TestParseProperties(t *testing.T) {
	p, err := ParseProperties(map[string]any{
		"plain":            "x",
		"count:Integer":    7,
		"flag:Boolean":     "TRUE",
		"items:List<Long>": []any{1, 2, 3},
	})
	require.NoError(t, err)

	count, _ := p.Get("count")
	assert.Equal(t, value.KindInt32, count.Kind())

	flag, _ := p.Get("flag")
	assert.Equal(t, "true", flag.String())

	items, _ := p.Get("items")
	assert.Equal(t, "[1, 2, 3]", items.String())

	_, err = ParseProperties(map[string]any{"a": 1, "a:Long": 2})
	require.Error(t, err)

	_, err = ParseProperties(map[string]any{":Long": 2})
	require.Error(t, err)
}

func TestFormatFor(t *testing.T) {
	assert.Equal(t, FormatTOML, FormatFor("x.toml"))
	assert.Equal(t, FormatTOML, FormatFor("X.TOML"))
	assert.Equal(t, FormatYAML, FormatFor("x.yaml"))
	assert.Equal(t, FormatYAML, FormatFor("x"))
}

// ---------------------------------------------------------------------------
// Files and registration
// ---------------------------------------------------------------------------

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()

	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	return path
}

func TestLoadFiles_KeepsOrder(t *testing.T) {
	dir := t.TempDir()
	a := writeFile(t, dir, "a.yaml", twoResources)
	b := writeFile(t, dir, "b.toml", tomlResource)

	ms, err := LoadFiles(context.Background(), b, a)
	require.NoError(t, err)
	require.Len(t, ms, 3)
	assert.Equal(t, b, ms[0].Source)
	assert.Equal(t, a+"#0", ms[1].Source)
	assert.Equal(t, a+"#1", ms[2].Source)
}

func TestLoadFiles_MissingFile(t *testing.T) {
	_, err := LoadFiles(context.Background(), filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "reading manifest")
}

func TestRegister(t *testing.T) {
	ms, err := Decode(strings.NewReader(twoResources), FormatYAML, "test.yaml")
	require.NoError(t, err)

	reg := registry.New()
	require.NoError(t, Register(reg, ms...))

	// 2 identities, 2 capabilities, 1 service
	assert.Equal(t, 5, reg.Snapshot().Len())

	providers, err := reg.FindProviders(ms[0].Requirements[0])
	require.NoError(t, err)
	require.Len(t, providers, 1)
	assert.Equal(t, "db", providers[0].Resource().ID)
}
