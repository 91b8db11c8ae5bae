package resolve

import (
	"fmt"
	"strconv"
	"strings"
)

type PointerError struct {
	Location string
	Pointer  string
	Reason   string
}

func (e *PointerError) Error() string {
	return fmt.Sprintf("cannot resolve %s#%s: %s", e.Location, e.Pointer, e.Reason)
}

// evalPointer follows an RFC 6901 JSON pointer through a decoded document.
func evalPointer(doc any, location, ptr string) (any, error) {
	if ptr == "" {
		return doc, nil
	}
	if !strings.HasPrefix(ptr, "/") {
		return nil, &PointerError{Location: location, Pointer: ptr, Reason: "anchors are not supported, only json pointers"}
	}

	cur := doc
	for _, tok := range strings.Split(ptr[1:], "/") {
		tok = strings.ReplaceAll(tok, "~1", "/")
		tok = strings.ReplaceAll(tok, "~0", "~")

		switch v := cur.(type) {
		case map[string]any:
			next, in := v[tok]
			if !in {
				return nil, &PointerError{Location: location, Pointer: ptr, Reason: fmt.Sprintf("no member %q", tok)}
			}
			cur = next
		case []any:
			i, err := strconv.Atoi(tok)
			if err != nil || i < 0 || i >= len(v) {
				return nil, &PointerError{Location: location, Pointer: ptr, Reason: fmt.Sprintf("bad index %q", tok)}
			}
			cur = v[i]
		default:
			return nil, &PointerError{Location: location, Pointer: ptr, Reason: fmt.Sprintf("cannot index %T with %q", cur, tok)}
		}
	}
	return cur, nil
}
