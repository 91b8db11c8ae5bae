package mapper

import (
	"github.com/siegeai/javro/avro"
	"github.com/siegeai/javro/jsonschema"
	"sort"
)

// MaxDepth bounds how many schema levels a property may be nested below the root.
const MaxDepth = 256

// MapSchema converts a reference-free object schema into an Avro record called name
// in namespace. Nested records are named after the property holding them and live in
// "<namespace>.<name>Package". With allowMultipleTypes a "type" list of a property of
// the root record, or of the array items under it, becomes a union of every entry;
// otherwise, and always inside nested records, only its last entry is mapped.
func MapSchema(node *jsonschema.Node, namespace, name string, allowMultipleTypes bool) (*avro.Record, error) {
	if node == nil {
		return nil, &NotAnObjectError{}
	}
	if !node.Type.Is("object") {
		return nil, &NotAnObjectError{Type: node.Type}
	}

	m := typeMapper{allowMultipleTypes: allowMultipleTypes}
	return m.mapRecord(node, namespace, name, 0)
}

type typeMapper struct {
	allowMultipleTypes bool
}

func (m *typeMapper) mapRecord(node *jsonschema.Node, namespace, name string, depth int) (*avro.Record, error) {
	nested := nestedNamespace(namespace, name)

	keys := make([]string, 0, len(node.Properties))
	for k := range node.Properties {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	fields := make([]avro.Field, 0, len(keys))
	for _, k := range keys {
		f, err := m.mapField(nested, k, node.Properties[k], node.IsRequired(k), depth+1)
		if err != nil {
			return nil, err
		}
		fields = append(fields, f)
	}

	return &avro.Record{Namespace: namespace, Name: name, Fields: fields}, nil
}

func nestedNamespace(namespace, name string) string {
	if namespace == "" {
		return name + "Package"
	}
	return namespace + "." + name + "Package"
}

func (m *typeMapper) mapField(namespace, key string, prop *jsonschema.Node, required bool, depth int) (avro.Field, error) {
	t, err := m.mapProperty(namespace, key, prop, depth)
	if err != nil {
		return avro.Field{}, err
	}
	if required {
		return avro.Field{Name: key, Type: t}, nil
	}
	return avro.Field{Name: key, Type: avro.Optional(t), Default: avro.NullLiteral}, nil
}

func (m *typeMapper) mapProperty(namespace, key string, prop *jsonschema.Node, depth int) (avro.Schema, error) {
	if depth > MaxDepth {
		return nil, &DepthExceededError{Key: key, Namespace: namespace, Depth: MaxDepth}
	}
	if prop == nil {
		return nil, &UndeterminedTypeError{Key: key, Namespace: namespace}
	}

	if prop.HasComposition() {
		return m.mapProperty(namespace, key, flatten(prop), depth)
	}

	if prop.Type.List {
		if m.allowMultipleTypes {
			types := make([]avro.Schema, 0, len(prop.Type.Names))
			seen := make(map[string]bool, len(prop.Type.Names))
			for _, name := range prop.Type.Names {
				// an Avro union may not hold the same type twice
				if seen[name] {
					continue
				}
				seen[name] = true
				t, err := m.mapType(namespace, key, name, prop, depth)
				if err != nil {
					return nil, err
				}
				types = append(types, t)
			}
			return avro.NewUnion(types...), nil
		}

		last := ""
		if n := len(prop.Type.Names); n > 0 {
			last = prop.Type.Names[n-1]
		}
		return m.mapType(namespace, key, last, prop, depth)
	}

	if !prop.Type.IsZero() {
		return m.mapType(namespace, key, prop.Type.Names[0], prop, depth)
	}

	return nil, &UndeterminedTypeError{Key: key, Namespace: namespace}
}

func (m *typeMapper) mapType(namespace, key, name string, prop *jsonschema.Node, depth int) (avro.Schema, error) {
	switch name {
	case "string":
		return avro.String, nil
	case "number":
		return avro.Double, nil
	case "integer":
		return avro.Long, nil
	case "boolean":
		return avro.Boolean, nil
	case "object":
		// type lists inside nested records always keep their last entry
		nested := typeMapper{}
		return nested.mapRecord(prop, namespace, key, depth)
	case "array":
		if prop.Items == nil {
			return nil, &MissingItemsError{Key: key, Namespace: namespace}
		}
		items, err := m.mapProperty(namespace, key, prop.Items, depth+1)
		if err != nil {
			return nil, err
		}
		return &avro.Array{Items: items}, nil
	}

	return nil, &UnknownTypeError{Key: key, Namespace: namespace, Type: name}
}

// flatten merges the properties of every oneOf then allOf branch into one object
// schema. Later branches win on name clashes; no branch's required list survives.
func flatten(prop *jsonschema.Node) *jsonschema.Node {
	props := make(map[string]*jsonschema.Node)
	for _, b := range prop.OneOf {
		if b == nil {
			continue
		}
		for k, v := range b.Properties {
			props[k] = v
		}
	}
	for _, b := range prop.AllOf {
		if b == nil {
			continue
		}
		for k, v := range b.Properties {
			props[k] = v
		}
	}
	return &jsonschema.Node{Type: jsonschema.TypeOf("object"), Properties: props}
}
