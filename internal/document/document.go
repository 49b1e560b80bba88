// Package document is the generic parsed tree consumed by the schema loader:
// ordered maps with integer or string keys, lists, strings, integers and null.
package document

import (
	"fmt"
	"strings"
)

// Node is one value of a parsed document.
// Implementations are Null, Int, String, List, Map and Scalar.
type Node interface {
	fmt.Stringer
	node()
}

type Null struct{}

type Int int64

type String string

// Scalar holds any other scalar (float, bool, timestamp) with its resolved tag.
type Scalar struct {
	Tag   string
	Value string
}

type List []Node

// Map keeps entries in document order.
type Map []Entry

type Entry struct {
	Key   Node
	Value Node
}

func (Null) node()   {}
func (Int) node()    {}
func (String) node() {}
func (Scalar) node() {}
func (List) node()   {}
func (Map) node()    {}

func (Null) String() string     { return "null" }
func (n Int) String() string    { return fmt.Sprintf("%d", int64(n)) }
func (s String) String() string { return fmt.Sprintf("%q", string(s)) }
func (s Scalar) String() string { return s.Value }

func (l List) String() string {
	parts := make([]string, len(l))
	for i, item := range l {
		parts[i] = item.String()
	}
	return "[" + strings.Join(parts, ", ") + "]"
}

func (m Map) String() string {
	parts := make([]string, len(m))
	for i, e := range m {
		parts[i] = e.Key.String() + ": " + e.Value.String()
	}
	return "{" + strings.Join(parts, ", ") + "}"
}

// Get returns the first value stored under key.
func (m Map) Get(key Node) (Node, bool) {
	for _, e := range m {
		if scalarEqual(e.Key, key) {
			return e.Value, true
		}
	}
	return nil, false
}

// scalarEqual compares keys; lists and maps never match since they are not comparable.
func scalarEqual(a, b Node) bool {
	switch a.(type) {
	case Null, Int, String, Scalar:
		return a == b
	default:
		return false
	}
}
