package avro

type SchemaKind int

const (
	SchemaKindPrimitive SchemaKind = 1
	SchemaKindRecord    SchemaKind = 2
	SchemaKindArray     SchemaKind = 3
	SchemaKindUnion     SchemaKind = 4
)

func (k SchemaKind) String() string {
	switch k {
	case SchemaKindPrimitive:
		return "primitive"
	case SchemaKindRecord:
		return "record"
	case SchemaKindArray:
		return "array"
	case SchemaKindUnion:
		return "union"
	}
	return "unknown"
}

// Schema is one node of an Avro schema tree. The set of implementations is closed:
// Primitive, *Record, *Array and *Union. Callers switch on Kind and use the matching
// accessor; the other accessors panic.
type Schema interface {
	Kind() SchemaKind
	AsPrimitive() Primitive
	AsRecord() *Record
	AsArray() *Array
	AsUnion() *Union
}

// Primitive is a primitive type name. Parsed schemas may also carry named type
// references here, e.g. "com.example.Address".
type Primitive string

const (
	Null    Primitive = "null"
	Boolean Primitive = "boolean"
	Int     Primitive = "int"
	Long    Primitive = "long"
	Float   Primitive = "float"
	Double  Primitive = "double"
	Bytes   Primitive = "bytes"
	String  Primitive = "string"
)

func (p Primitive) Kind() SchemaKind {
	return SchemaKindPrimitive
}

func (p Primitive) AsPrimitive() Primitive {
	return p
}

func (p Primitive) AsRecord() *Record {
	panic("primitive is not a record")
}

func (p Primitive) AsArray() *Array {
	panic("primitive is not an array")
}

func (p Primitive) AsUnion() *Union {
	panic("primitive is not a union")
}

type Record struct {
	Namespace string
	Name      string
	Fields    []Field
}

// Literal is a raw JSON value used as a field default. The zero value means the field
// has no default.
type Literal string

const NullLiteral Literal = "null"

type Field struct {
	Name    string
	Type    Schema
	Default Literal
}

func (f Field) HasDefault() bool {
	return f.Default != ""
}

func (r *Record) Kind() SchemaKind {
	return SchemaKindRecord
}

func (r *Record) AsPrimitive() Primitive {
	panic("record is not a primitive")
}

func (r *Record) AsRecord() *Record {
	return r
}

func (r *Record) AsArray() *Array {
	panic("record is not an array")
}

func (r *Record) AsUnion() *Union {
	panic("record is not a union")
}

// Field returns the field called name.
func (r *Record) Field(name string) (Field, bool) {
	for _, f := range r.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return Field{}, false
}

// FullName joins namespace and name the way Avro resolves named types.
func (r *Record) FullName() string {
	if r.Namespace == "" {
		return r.Name
	}
	return r.Namespace + "." + r.Name
}

type Array struct {
	Items Schema
}

func (a *Array) Kind() SchemaKind {
	return SchemaKindArray
}

func (a *Array) AsPrimitive() Primitive {
	panic("array is not a primitive")
}

func (a *Array) AsRecord() *Record {
	panic("array is not a record")
}

func (a *Array) AsArray() *Array {
	return a
}

func (a *Array) AsUnion() *Union {
	panic("array is not a union")
}

type Union struct {
	Types []Schema
}

func NewUnion(types ...Schema) *Union {
	return &Union{Types: types}
}

func (u *Union) Kind() SchemaKind {
	return SchemaKindUnion
}

func (u *Union) AsPrimitive() Primitive {
	panic("union is not a primitive")
}

func (u *Union) AsRecord() *Record {
	panic("union is not a record")
}

func (u *Union) AsArray() *Array {
	panic("union is not an array")
}

func (u *Union) AsUnion() *Union {
	return u
}

// Optional prepends null to s. A union is widened in place of being nested, since Avro
// unions may not contain unions.
func Optional(s Schema) *Union {
	if s.Kind() == SchemaKindUnion {
		members := s.AsUnion().Types
		types := make([]Schema, 0, len(members)+1)
		types = append(types, Null)
		types = append(types, members...)
		return &Union{Types: types}
	}
	return &Union{Types: []Schema{Null, s}}
}
