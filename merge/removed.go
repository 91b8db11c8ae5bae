package merge

import "github.com/siegeai/javro/avro"

// Removed lists the dotted paths of fields in a that no longer exist in b, following
// the same nested records Fields reconciles.
func Removed(a, b []avro.Field) []string {
	return removed("", a, b)
}

func removed(prefix string, a, b []avro.Field) []string {
	var res []string
	for _, f := range a {
		g, in := findField(b, f.Name)
		if !in {
			res = append(res, prefix+f.Name)
			continue
		}

		prev, ok := nestedRecord(f.Type)
		if !ok {
			continue
		}
		next, ok := nestedRecord(g.Type)
		if !ok {
			continue
		}
		res = append(res, removed(prefix+f.Name+".", prev.Fields, next.Fields)...)
	}
	return res
}
