package avro

import (
	"fmt"
	"github.com/valyala/fastjson"
)

// UnsupportedTypeError is returned for valid Avro types outside the record, array,
// union and primitive subset this package models.
type UnsupportedTypeError struct {
	Type string
}

func (e *UnsupportedTypeError) Error() string {
	return fmt.Sprintf("unsupported avro type %q", e.Type)
}

func Parse(s string) (Schema, error) {
	v, err := fastjson.Parse(s)
	if err != nil {
		return nil, err
	}
	return ParseFastJson(v)
}

func ParseBytes(b []byte) (Schema, error) {
	v, err := fastjson.ParseBytes(b)
	if err != nil {
		return nil, err
	}
	return ParseFastJson(v)
}

// ParseRecord parses a schema document whose top level must be a record.
func ParseRecord(s string) (*Record, error) {
	sch, err := Parse(s)
	if err != nil {
		return nil, err
	}
	if sch.Kind() != SchemaKindRecord {
		return nil, fmt.Errorf("expected a record schema, got %s", sch.Kind())
	}
	return sch.AsRecord(), nil
}

func ParseFastJson(v *fastjson.Value) (Schema, error) {
	return parseFastJsonValue(v)
}

func parseFastJsonValue(v *fastjson.Value) (Schema, error) {
	switch v.Type() {
	case fastjson.TypeString:
		return Primitive(v.GetStringBytes()), nil
	case fastjson.TypeArray:
		a, err := v.Array()
		if err != nil {
			return nil, err
		}
		return parseFastJsonUnion(a)
	case fastjson.TypeObject:
		return parseFastJsonObject(v)
	}
	return nil, fmt.Errorf("unexpected %s in avro schema", v.Type())
}

func parseFastJsonUnion(vs []*fastjson.Value) (Schema, error) {
	u := Union{Types: make([]Schema, 0, len(vs))}
	for _, v := range vs {
		s, err := parseFastJsonValue(v)
		if err != nil {
			return nil, err
		}
		u.Types = append(u.Types, s)
	}
	return &u, nil
}

func parseFastJsonObject(v *fastjson.Value) (Schema, error) {
	t := v.Get("type")
	if t == nil {
		return nil, fmt.Errorf("avro schema object without type")
	}
	if t.Type() != fastjson.TypeString {
		// {"type": {...}} and {"type": [...]} wrap a complete schema
		return parseFastJsonValue(t)
	}

	name := string(t.GetStringBytes())
	switch name {
	case "record", "error":
		return parseFastJsonRecord(v)
	case "array":
		items := v.Get("items")
		if items == nil {
			return nil, fmt.Errorf("avro array without items")
		}
		s, err := parseFastJsonValue(items)
		if err != nil {
			return nil, err
		}
		return &Array{Items: s}, nil
	case "enum", "map", "fixed":
		return nil, &UnsupportedTypeError{Type: name}
	}

	// primitives with attributes, e.g. {"type": "long", "logicalType": "timestamp-millis"}
	return Primitive(name), nil
}

func parseFastJsonRecord(v *fastjson.Value) (Schema, error) {
	r := Record{
		Namespace: string(v.GetStringBytes("namespace")),
		Name:      string(v.GetStringBytes("name")),
	}

	fs := v.GetArray("fields")
	r.Fields = make([]Field, 0, len(fs))
	for _, f := range fs {
		name := f.GetStringBytes("name")
		if name == nil {
			return nil, fmt.Errorf("field without name in record %q", r.Name)
		}
		t := f.Get("type")
		if t == nil {
			return nil, fmt.Errorf("field %q in record %q has no type", name, r.Name)
		}
		s, err := parseFastJsonValue(t)
		if err != nil {
			return nil, fmt.Errorf("field %q in record %q: %w", name, r.Name, err)
		}

		field := Field{Name: string(name), Type: s}
		if d := f.Get("default"); d != nil {
			field.Default = Literal(d.MarshalTo(nil))
		}
		r.Fields = append(r.Fields, field)
	}

	return &r, nil
}
