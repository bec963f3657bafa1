package manifest

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

// Attributes holds decoded attribute values. When decoded from YAML, scalars
// also keep their source text so that typed keys ("name:Type") are parsed
// from what the author wrote rather than from the decoder's guess.
type Attributes map[string]any

// scalar is a YAML scalar together with its source text.
type scalar struct {
	text  string
	value any
}

// UnmarshalYAML implements yaml.Unmarshaler.
func (a *Attributes) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind == yaml.ScalarNode && node.Tag == "!!null" {
		*a = nil
		return nil
	}

	if node.Kind != yaml.MappingNode {
		return fmt.Errorf("line %d: attributes must be a mapping", node.Line)
	}

	out := make(Attributes, len(node.Content)/2)

	for i := 0; i+1 < len(node.Content); i += 2 {
		key, val := node.Content[i], node.Content[i+1]

		if key.Kind != yaml.ScalarNode {
			return fmt.Errorf("line %d: attribute name must be a scalar", key.Line)
		}

		if _, dup := out[key.Value]; dup {
			return fmt.Errorf("line %d: attribute %q declared twice", key.Line, key.Value)
		}

		v, err := decodeNode(val)
		if err != nil {
			return fmt.Errorf("attribute %q: %w", key.Value, err)
		}

		out[key.Value] = v
	}

	*a = out

	return nil
}

// decodeNode decodes n, wrapping scalars and the scalar elements of
// sequences with their source text.
func decodeNode(n *yaml.Node) (any, error) {
	switch n.Kind {
	case yaml.AliasNode:
		return decodeNode(n.Alias)
	case yaml.ScalarNode:
		var v any
		if err := n.Decode(&v); err != nil {
			return nil, err
		}

		if v == nil {
			return nil, nil
		}

		return scalar{text: n.Value, value: v}, nil
	case yaml.SequenceNode:
		items := make([]any, len(n.Content))

		for i, c := range n.Content {
			v, err := decodeNode(c)
			if err != nil {
				return nil, err
			}

			items[i] = v
		}

		return items, nil
	default:
		var v any
		if err := n.Decode(&v); err != nil {
			return nil, err
		}

		return v, nil
	}
}

// plain strips source text, returning what the YAML decoder produced.
func plain(raw any) any {
	switch v := raw.(type) {
	case scalar:
		return v.value
	case []any:
		out := make([]any, len(v))
		for i, it := range v {
			out[i] = plain(it)
		}

		return out
	default:
		return raw
	}
}

// sourceText returns the text of a scalar as written, or its formatted
// value when no source text was kept.
func sourceText(raw any) string {
	if s, ok := raw.(scalar); ok {
		return s.text
	}

	return fmt.Sprint(raw)
}

// DecodeAttributesYAML decodes a YAML mapping of attributes, keeping the
// source text of scalars for typed keys.
func DecodeAttributesYAML(data []byte) (Attributes, error) {
	var attrs Attributes
	if err := yaml.Unmarshal(data, &attrs); err != nil {
		return nil, err
	}

	if attrs == nil {
		attrs = Attributes{}
	}

	return attrs, nil
}
