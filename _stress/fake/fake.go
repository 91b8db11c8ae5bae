package fake

import "math/rand"

var primitives = []string{"string", "integer", "number", "boolean"}

// Schema returns a random object schema nested at most five levels deep.
func Schema() map[string]any {
	s := objectRecursive(0, 5)
	s["title"] = "r" + String(8)
	return s
}

func objectRecursive(depth, maxDepth int) map[string]any {
	if depth >= maxDepth {
		panic("max depth exceeded")
	}

	nkeys := 1 + rand.Intn(12)
	props := make(map[string]any, nkeys)
	var required []any

	for i := 0; i < nkeys; i++ {
		key := String(1 + rand.Intn(32))
		switch n := rand.Intn(100); {
		case n < 60 || depth+1 >= maxDepth:
			props[key] = primitive()
		case n < 75:
			props[key] = map[string]any{"type": "array", "items": primitive()}
		case n < 85:
			props[key] = map[string]any{"oneOf": []any{objectRecursive(depth+1, maxDepth), objectRecursive(depth+1, maxDepth)}}
		default:
			props[key] = objectRecursive(depth+1, maxDepth)
		}
		if rand.Intn(3) == 0 {
			required = append(required, key)
		}
	}

	obj := map[string]any{"type": "object", "properties": props}
	if len(required) > 0 {
		obj["required"] = required
	}
	return obj
}

func primitive() map[string]any {
	if rand.Intn(10) == 0 {
		return map[string]any{"type": []any{primitives[rand.Intn(len(primitives))], primitives[rand.Intn(len(primitives))]}}
	}
	return map[string]any{"type": primitives[rand.Intn(len(primitives))]}
}

const letters = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ"

func String(n int) string {
	b := make([]byte, n)
	for i := range b {
		b[i] = letters[rand.Intn(len(letters))]
	}
	return string(b)
}
