package merge

import "github.com/siegeai/javro/avro"

// Schema reconciles a freshly generated record against the previously published one so
// that fields keep their published order. Neither input is modified.
func Schema(a, b *avro.Record) *avro.Record {
	if b == nil {
		return nil
	}

	res := avro.CloneRecord(b)
	if a == nil {
		return res
	}
	res.Fields = Fields(a.Fields, res.Fields)
	return res
}

// Fields orders b after a: fields of a that survive in b keep their position, fields
// only in a are dropped and fields only in b are appended in their order in b. Nested
// records, held directly or as the single record of a union, are reconciled the same
// way. Records under array items are left as generated.
func Fields(a, b []avro.Field) []avro.Field {
	res := reorder(a, b)
	for i, f := range res {
		next, ok := nestedRecord(f.Type)
		if !ok {
			continue
		}

		var prev []avro.Field
		if old, found := findField(a, f.Name); found {
			if r, ok := nestedRecord(old.Type); ok {
				prev = r.Fields
			}
		}

		res[i].Type = replaceRecord(f.Type, &avro.Record{
			Namespace: next.Namespace,
			Name:      next.Name,
			Fields:    Fields(prev, next.Fields),
		})
	}
	return res
}

func reorder(a, b []avro.Field) []avro.Field {
	res := make([]avro.Field, 0, len(b))

	visited := make(map[string]struct{}, len(b))
	for _, f := range a {
		if _, in := visited[f.Name]; in {
			continue
		}
		if g, in := findField(b, f.Name); in {
			visited[f.Name] = struct{}{}
			res = append(res, avro.Field{Name: g.Name, Type: avro.Clone(g.Type), Default: g.Default})
		}
	}

	for _, g := range b {
		if _, in := visited[g.Name]; in {
			continue
		}
		visited[g.Name] = struct{}{}
		res = append(res, avro.Field{Name: g.Name, Type: avro.Clone(g.Type), Default: g.Default})
	}

	return res
}

// nestedRecord returns the record held by s, either directly or as the only record
// member of a union.
func nestedRecord(s avro.Schema) (*avro.Record, bool) {
	if s == nil {
		return nil, false
	}
	switch s.Kind() {
	case avro.SchemaKindRecord:
		return s.AsRecord(), true
	case avro.SchemaKindUnion:
		var found *avro.Record
		for _, t := range s.AsUnion().Types {
			if t.Kind() != avro.SchemaKindRecord {
				continue
			}
			if found != nil {
				return nil, false
			}
			found = t.AsRecord()
		}
		return found, found != nil
	}
	return nil, false
}

// replaceRecord swaps the record found by nestedRecord for r.
func replaceRecord(s avro.Schema, r *avro.Record) avro.Schema {
	if s.Kind() == avro.SchemaKindRecord {
		return r
	}

	members := s.AsUnion().Types
	types := make([]avro.Schema, len(members))
	for i, t := range members {
		if t.Kind() == avro.SchemaKindRecord {
			types[i] = r
		} else {
			types[i] = t
		}
	}
	return &avro.Union{Types: types}
}

func findField(fs []avro.Field, name string) (avro.Field, bool) {
	for _, f := range fs {
		if f.Name == name {
			return f, true
		}
	}
	return avro.Field{}, false
}
