package output

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sigsyaml "sigs.k8s.io/yaml"

	"github.com/hupe1980/capmatch/internal/capability"
	"github.com/hupe1980/capmatch/internal/registry"
	"github.com/hupe1980/capmatch/internal/value"
)

func sampleReports(t *testing.T) []Report {
	t.Helper()

	reg := registry.New()

	c, err := capability.NewCapability("com.example.db",
		value.MustPropertyMap(map[string]value.Value{
			"driver": value.String("postgres"),
			"port":   value.Int64(5432),
		}),
		map[string]string{"effective": "active"},
		capability.ResourceRef{ID: "db", Name: "com.example.db", Version: "1.0.0"})
	require.NoError(t, err)

	_, err = reg.Register(c, 3)
	require.NoError(t, err)

	req, err := capability.NewRequirementBuilder("com.example.db").And("(driver=postgres)").Build()
	require.NoError(t, err)

	entries, err := reg.QueryRequirement(req)
	require.NoError(t, err)

	missing, err := capability.NewRequirementBuilder("com.example.cache").Build()
	require.NoError(t, err)

	return []Report{
		ForRequirement("app.yaml", req, entries),
		ForRequirement("app.yaml", missing, nil),
	}
}

// ---------------------------------------------------------------------------
// Reports
// ---------------------------------------------------------------------------

func TestForRequirement(t *testing.T) {
	reports := sampleReports(t)

	r := reports[0]
	assert.Equal(t, "com.example.db", r.Namespace)
	assert.Equal(t, "(driver=postgres)", r.Filter)
	assert.True(t, r.Satisfied())
	require.Len(t, r.Results, 1)

	res := r.Results[0]
	assert.Equal(t, int32(3), res.Ranking)
	require.NotNil(t, res.Resource)
	assert.Equal(t, "db", res.Resource.ID)
	assert.Equal(t, "postgres", res.Attributes["driver"])
	assert.Equal(t, map[string]string{"effective": "active"}, res.Directives)

	assert.False(t, reports[1].Satisfied())
	assert.Equal(t, []Report{reports[1]}, Unsatisfied(reports))
}

func TestFromEntry_OmitsEmptyParts(t *testing.T) {
	c := capability.MustCapability("x", value.PropertyMap{}, nil, capability.ResourceRef{})

	res := FromEntry(registry.Entry{ID: 4, Payload: c})
	assert.Nil(t, res.Resource)
	assert.Nil(t, res.Attributes)
	assert.Nil(t, res.Directives)
}

// ---------------------------------------------------------------------------
// Serialization
// ---------------------------------------------------------------------------

func TestSerializeJSON(t *testing.T) {
	data, err := SerializeJSON(sampleReports(t), "")
	require.NoError(t, err)
	assert.Equal(t, byte('\n'), data[len(data)-1])

	var got []map[string]any
	require.NoError(t, json.Unmarshal(data, &got))
	require.Len(t, got, 2)
	assert.Equal(t, "com.example.db", got[0]["namespace"])
	assert.Equal(t, []any{}, got[1]["results"], "empty results render as a list")
}

func TestSerializeYAML(t *testing.T) {
	data, err := SerializeYAML(sampleReports(t))
	require.NoError(t, err)

	s := string(data)
	assert.Contains(t, s, "namespace: com.example.db")
	assert.Contains(t, s, "driver: postgres")
	assert.Contains(t, s, "results: []")

	var got []Report
	require.NoError(t, sigsyaml.Unmarshal(data, &got))
	assert.Len(t, got, 2)
}

func TestTableFormatter(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, NewTableFormatter(true).Format(&buf, sampleReports(t)))

	out := buf.String()
	assert.Contains(t, out, "app.yaml: com.example.db (driver=postgres) (1 match)")
	assert.Contains(t, out, "RANKING")
	assert.Contains(t, out, "com.example.db@1.0.0")
	assert.Contains(t, out, "driver=postgres, port=5432")
	assert.Contains(t, out, "com.example.cache (0 matches)")
	assert.Contains(t, out, "no matching capabilities")
}

// ---------------------------------------------------------------------------
// Registry
// ---------------------------------------------------------------------------

func TestDefaultRegistry(t *testing.T) {
	r := DefaultRegistry(true)
	assert.Equal(t, []string{"json", "table", "yaml"}, r.Formats())

	_, err := r.Formatter("csv")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "available: json, table, yaml")

	f, err := r.Formatter("json")
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, f.Format(&buf, nil))
	assert.Equal(t, "[]\n", buf.String())
}

func TestRegistry_Override(t *testing.T) {
	r := NewRegistry()
	assert.Equal(t, "none", r.AvailableFormats())

	called := 0
	r.Register("x", FormatterFunc(func(io.Writer, []Report) error { called++; return nil }))
	r.Register("x", FormatterFunc(func(io.Writer, []Report) error { called += 10; return nil }))

	f, err := r.Formatter("x")
	require.NoError(t, err)
	require.NoError(t, f.Format(io.Discard, nil))
	assert.Equal(t, 10, called)
}

// ---------------------------------------------------------------------------
// Writers
// ---------------------------------------------------------------------------

func TestStdoutWriter(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, NewStdoutWriter(&buf).Write([]byte("hello")))
	assert.Equal(t, "hello", buf.String())
}

func TestFileWriter_CreatesDirs(t *testing.T) {
	path := filepath.Join(t.TempDir(), "a", "b", "out.json")

	fw := NewFileWriter(path, WithPermissions(0o600))
	require.NoError(t, fw.Write([]byte("{}")))
	assert.Equal(t, path, fw.Path())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "{}", string(data))
}

func TestNewWriter(t *testing.T) {
	var buf bytes.Buffer
	assert.IsType(t, &StdoutWriter{}, NewWriter("", &buf))
	assert.IsType(t, &FileWriter{}, NewWriter("out.yaml", &buf))
}

func TestRender(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Render(NewStdoutWriter(&buf), FormatterFunc(formatYAML), nil))
	assert.Equal(t, "[]\n", buf.String())

	boom := errors.New("boom")
	err := Render(NewStdoutWriter(&buf), FormatterFunc(func(io.Writer, []Report) error { return boom }), nil)
	require.ErrorIs(t, err, boom)
}
