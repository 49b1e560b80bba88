package schema

import (
	"fmt"
	"math"
	"regexp"
	"strconv"

	"github.com/danmuck/wirectl/internal/document"
	"github.com/danmuck/wirectl/internal/protocol"
	"github.com/danmuck/wirectl/internal/protocol/wire"
)

var arrayPattern = regexp.MustCompile(`^\[(.*); (\d+)\]$`)

// ParseType parses a parameter type: a primitive keyword, "[<inner>; <N>]" or a
// list of strings for a choice.
func ParseType(node document.Node) (wire.Type, error) {
	switch n := node.(type) {
	case document.String:
		return ParseTypeString(string(n))
	case document.List:
		return parseChoice(n)
	default:
		return nil, unsupported(fmt.Sprintf("parameter type must be a string or a list of strings, got %s", node))
	}
}

// ParseTypeString parses the textual part of the type grammar.
func ParseTypeString(s string) (wire.Type, error) {
	if p, ok := wire.ParsePrimitive(s); ok {
		return p, nil
	}
	if m := arrayPattern.FindStringSubmatch(s); m != nil {
		n, err := strconv.Atoi(m[2])
		if err != nil {
			return nil, unsupported(fmt.Sprintf("array length %s out of range", m[2]))
		}
		elem, err := ParseTypeString(m[1])
		if err != nil {
			return nil, err
		}
		arr := wire.Array{Elem: elem, Len: n}
		if err := wire.Check(arr); err != nil {
			return nil, unsupported(fmt.Sprintf("%q exceeds array bounds (%d elements, %d bytes)", s, wire.MaxArrayLen, wire.MaxSize))
		}
		return arr, nil
	}
	return nil, unsupported(fmt.Sprintf("unsupported type %q", s))
}

func parseChoice(items document.List) (wire.Type, error) {
	if len(items) == 0 {
		return nil, unsupported("choice needs at least one variant")
	}
	if len(items) > math.MaxUint8+1 {
		return nil, unsupported(fmt.Sprintf("choice has %d variants, at most %d fit a u8", len(items), math.MaxUint8+1))
	}
	variants := make([]string, len(items))
	seen := make(map[string]struct{}, len(items))
	for i, item := range items {
		s, ok := item.(document.String)
		if !ok {
			if _, nested := item.(document.List); nested {
				return nil, unsupported("nested choices are not supported")
			}
			return nil, unsupported(fmt.Sprintf("choice value must be a string, got %s", item))
		}
		if _, dup := seen[string(s)]; dup {
			return nil, unsupported(fmt.Sprintf("duplicate choice value %q", string(s)))
		}
		seen[string(s)] = struct{}{}
		variants[i] = string(s)
	}
	return wire.Choice{Variants: variants}, nil
}

func unsupported(reason string) error {
	return protocol.SchemaError{Reason: reason, Err: protocol.ErrUnsupportedType}
}
