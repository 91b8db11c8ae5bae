package jsonschema

import (
	"strconv"
	"strings"
)

// Node is one schema of a reference-free JSON Schema document, restricted to the
// keywords the Avro mapping understands.
type Node struct {
	Type       Type
	Properties map[string]*Node
	Required   []string
	Items      *Node
	OneOf      []*Node
	AllOf      []*Node
	Title      string
}

// Type is the value of the "type" keyword. List distinguishes ["string"] from "string".
type Type struct {
	Names []string
	List  bool
}

func TypeOf(name string) Type {
	return Type{Names: []string{name}}
}

func TypeList(names ...string) Type {
	if names == nil {
		names = []string{}
	}
	return Type{Names: names, List: true}
}

// IsZero reports whether the keyword was absent.
func (t Type) IsZero() bool {
	return !t.List && len(t.Names) == 0
}

// Is reports whether t is exactly the single string name.
func (t Type) Is(name string) bool {
	return !t.List && len(t.Names) == 1 && t.Names[0] == name
}

func (t Type) String() string {
	if !t.List {
		if len(t.Names) == 0 {
			return "<none>"
		}
		return t.Names[0]
	}
	quoted := make([]string, len(t.Names))
	for i, n := range t.Names {
		quoted[i] = strconv.Quote(n)
	}
	return "[" + strings.Join(quoted, ",") + "]"
}

func (n *Node) IsRequired(key string) bool {
	for _, r := range n.Required {
		if r == key {
			return true
		}
	}
	return false
}

// HasComposition reports whether oneOf or allOf is present, even when empty.
func (n *Node) HasComposition() bool {
	return n.OneOf != nil || n.AllOf != nil
}
