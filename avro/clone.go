package avro

// Clone returns a deep copy of s.
func Clone(s Schema) Schema {
	if s == nil {
		return nil
	}
	switch s.Kind() {
	case SchemaKindPrimitive:
		return s.AsPrimitive()
	case SchemaKindRecord:
		return CloneRecord(s.AsRecord())
	case SchemaKindArray:
		return &Array{Items: Clone(s.AsArray().Items)}
	case SchemaKindUnion:
		members := s.AsUnion().Types
		types := make([]Schema, len(members))
		for i, t := range members {
			types[i] = Clone(t)
		}
		return &Union{Types: types}
	}

	panic("should be unreachable")
}

func CloneRecord(r *Record) *Record {
	if r == nil {
		return nil
	}
	return &Record{
		Namespace: r.Namespace,
		Name:      r.Name,
		Fields:    CloneFields(r.Fields),
	}
}

func CloneFields(fs []Field) []Field {
	if fs == nil {
		return nil
	}
	res := make([]Field, len(fs))
	for i, f := range fs {
		res[i] = Field{Name: f.Name, Type: Clone(f.Type), Default: f.Default}
	}
	return res
}
