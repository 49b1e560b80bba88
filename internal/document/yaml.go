package document

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// ParseYAML parses data into a Node, keeping mapping order.
func ParseYAML(data []byte) (Node, error) {
	var root yaml.Node
	if err := yaml.Unmarshal(data, &root); err != nil {
		return nil, fmt.Errorf("document: parse yaml: %w", err)
	}
	return FromYAML(&root)
}

// ReadYAMLFile parses the YAML document stored at path.
func ReadYAMLFile(path string) (Node, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("document: read %s: %w", path, err)
	}
	return ParseYAML(data)
}

// FromYAML converts a decoded yaml.Node tree.
func FromYAML(n *yaml.Node) (Node, error) {
	if n == nil || n.Kind == 0 {
		return Null{}, nil
	}
	switch n.Kind {
	case yaml.DocumentNode:
		if len(n.Content) == 0 {
			return Null{}, nil
		}
		return FromYAML(n.Content[0])
	case yaml.AliasNode:
		return FromYAML(n.Alias)
	case yaml.MappingNode:
		out := make(Map, 0, len(n.Content)/2)
		for i := 0; i+1 < len(n.Content); i += 2 {
			key, err := FromYAML(n.Content[i])
			if err != nil {
				return nil, err
			}
			value, err := FromYAML(n.Content[i+1])
			if err != nil {
				return nil, err
			}
			out = append(out, Entry{Key: key, Value: value})
		}
		return out, nil
	case yaml.SequenceNode:
		out := make(List, 0, len(n.Content))
		for _, item := range n.Content {
			v, err := FromYAML(item)
			if err != nil {
				return nil, err
			}
			out = append(out, v)
		}
		return out, nil
	case yaml.ScalarNode:
		return fromScalar(n)
	default:
		return nil, fmt.Errorf("document: line %d: unsupported yaml node kind %d", n.Line, n.Kind)
	}
}

func fromScalar(n *yaml.Node) (Node, error) {
	switch n.ShortTag() {
	case "!!null":
		return Null{}, nil
	case "!!str":
		return String(n.Value), nil
	case "!!int":
		var v int64
		if err := n.Decode(&v); err != nil {
			// Out of int64 range; keep the text so the caller can reject it.
			return Scalar{Tag: n.ShortTag(), Value: n.Value}, nil
		}
		return Int(v), nil
	default:
		return Scalar{Tag: n.ShortTag(), Value: n.Value}, nil
	}
}
