package output

import (
	"encoding/json"
	"fmt"
	"io"

	sigsyaml "sigs.k8s.io/yaml"
)

// SerializeYAML converts reports to YAML bytes. Map keys are sorted, so the
// output is deterministic.
func SerializeYAML(reports []Report) ([]byte, error) {
	data, err := sigsyaml.Marshal(normalize(reports))
	if err != nil {
		return nil, fmt.Errorf("serializing YAML: %w", err)
	}

	return ensureNewline(data), nil
}

// SerializeJSON converts reports to indented JSON bytes.
func SerializeJSON(reports []Report, indent string) ([]byte, error) {
	if indent == "" {
		indent = "  "
	}

	data, err := json.MarshalIndent(normalize(reports), "", indent)
	if err != nil {
		return nil, fmt.Errorf("serializing JSON: %w", err)
	}

	return ensureNewline(data), nil
}

// normalize replaces nil result slices so that empty reports serialize as
// "results: []" rather than null.
func normalize(reports []Report) []Report {
	out := make([]Report, len(reports))

	for i, r := range reports {
		if r.Results == nil {
			r.Results = []Result{}
		}

		out[i] = r
	}

	return out
}

func ensureNewline(b []byte) []byte {
	if len(b) > 0 && b[len(b)-1] != '\n' {
		b = append(b, '\n')
	}

	return b
}

func formatYAML(w io.Writer, reports []Report) error {
	data, err := SerializeYAML(reports)
	if err != nil {
		return err
	}

	_, err = w.Write(data)

	return err
}

func formatJSON(w io.Writer, reports []Report) error {
	data, err := SerializeJSON(reports, "")
	if err != nil {
		return err
	}

	_, err = w.Write(data)

	return err
}
