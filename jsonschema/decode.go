package jsonschema

import (
	"bytes"
	"fmt"
	"github.com/goccy/go-json"
	jsv "github.com/santhosh-tekuri/jsonschema/v6"
	"gopkg.in/yaml.v3"
	"path"
	"strconv"
	"strings"
)

type Format int

const (
	FormatJSON Format = 0
	FormatYAML Format = 1
)

// FormatOf guesses the document format from a file name or url.
func FormatOf(location string) Format {
	if i := strings.IndexAny(location, "?#"); i >= 0 {
		location = location[:i]
	}
	switch strings.ToLower(path.Ext(location)) {
	case ".yaml", ".yml":
		return FormatYAML
	}
	return FormatJSON
}

// Unmarshal decodes a document into the generic form used by the santhosh-tekuri
// loaders: map[string]any, []any, json.Number, string, bool and nil.
func Unmarshal(data []byte, f Format) (any, error) {
	if f == FormatYAML {
		return unmarshalYAML(data)
	}
	return jsv.UnmarshalJSON(bytes.NewReader(data))
}

func unmarshalYAML(data []byte) (any, error) {
	var v any
	if err := yaml.Unmarshal(data, &v); err != nil {
		return nil, err
	}
	// round trip through json so numbers and maps look like a json document
	bs, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return jsv.UnmarshalJSON(bytes.NewReader(bs))
}

func Parse(data []byte, f Format) (*Node, error) {
	v, err := Unmarshal(data, f)
	if err != nil {
		return nil, err
	}
	return FromValue(v)
}

// InvalidNodeError reports a keyword whose value has the wrong shape.
type InvalidNodeError struct {
	Path    string
	Keyword string
	Reason  string
}

func (e *InvalidNodeError) Error() string {
	return fmt.Sprintf("invalid %q at %s: %s", e.Keyword, e.Path, e.Reason)
}

// FromValue builds a Node from a decoded document. Keywords outside the supported
// subset are ignored.
func FromValue(v any) (*Node, error) {
	return fromValue(v, "#")
}

func fromValue(v any, ptr string) (*Node, error) {
	// boolean schemas carry no keywords
	if _, ok := v.(bool); ok {
		return &Node{}, nil
	}

	m, ok := v.(map[string]any)
	if !ok {
		return nil, &InvalidNodeError{Path: ptr, Keyword: "schema", Reason: fmt.Sprintf("expected an object, got %T", v)}
	}

	n := Node{}
	var err error

	if t, in := keyword(m, "type"); in {
		if n.Type, err = decodeType(t, ptr); err != nil {
			return nil, err
		}
	}

	if t, in := keyword(m, "title"); in {
		s, ok := t.(string)
		if !ok {
			return nil, &InvalidNodeError{Path: ptr, Keyword: "title", Reason: "expected a string"}
		}
		n.Title = s
	}

	if p, in := keyword(m, "properties"); in {
		if n.Properties, err = decodeProperties(p, ptr); err != nil {
			return nil, err
		}
	}

	if r, in := keyword(m, "required"); in {
		if n.Required, err = decodeRequired(r, ptr); err != nil {
			return nil, err
		}
	}

	if i, in := keyword(m, "items"); in {
		if n.Items, err = fromValue(i, ptr+"/items"); err != nil {
			return nil, err
		}
	}

	if o, in := keyword(m, "oneOf"); in {
		if n.OneOf, err = decodeBranches(o, ptr, "oneOf"); err != nil {
			return nil, err
		}
	}

	if a, in := keyword(m, "allOf"); in {
		if n.AllOf, err = decodeBranches(a, ptr, "allOf"); err != nil {
			return nil, err
		}
	}

	return &n, nil
}

// keyword looks up k in m. A null value counts as absent.
func keyword(m map[string]any, k string) (any, bool) {
	v, in := m[k]
	return v, in && v != nil
}

func decodeType(v any, ptr string) (Type, error) {
	switch t := v.(type) {
	case string:
		return TypeOf(t), nil
	case []any:
		names := make([]string, len(t))
		for i, e := range t {
			s, ok := e.(string)
			if !ok {
				return Type{}, &InvalidNodeError{Path: ptr, Keyword: "type", Reason: fmt.Sprintf("entry %d is not a string", i)}
			}
			names[i] = s
		}
		return TypeList(names...), nil
	}
	return Type{}, &InvalidNodeError{Path: ptr, Keyword: "type", Reason: "expected a string or a list of strings"}
}

func decodeProperties(v any, ptr string) (map[string]*Node, error) {
	m, ok := v.(map[string]any)
	if !ok {
		return nil, &InvalidNodeError{Path: ptr, Keyword: "properties", Reason: "expected an object"}
	}
	res := make(map[string]*Node, len(m))
	for k, p := range m {
		child, err := fromValue(p, ptr+"/properties/"+escapeToken(k))
		if err != nil {
			return nil, err
		}
		res[k] = child
	}
	return res, nil
}

func decodeRequired(v any, ptr string) ([]string, error) {
	a, ok := v.([]any)
	if !ok {
		return nil, &InvalidNodeError{Path: ptr, Keyword: "required", Reason: "expected a list"}
	}
	res := make([]string, len(a))
	for i, e := range a {
		s, ok := e.(string)
		if !ok {
			return nil, &InvalidNodeError{Path: ptr, Keyword: "required", Reason: fmt.Sprintf("entry %d is not a string", i)}
		}
		res[i] = s
	}
	return res, nil
}

func decodeBranches(v any, ptr, keyword string) ([]*Node, error) {
	a, ok := v.([]any)
	if !ok {
		return nil, &InvalidNodeError{Path: ptr, Keyword: keyword, Reason: "expected a list"}
	}
	res := make([]*Node, len(a))
	for i, e := range a {
		child, err := fromValue(e, ptr+"/"+keyword+"/"+strconv.Itoa(i))
		if err != nil {
			return nil, err
		}
		res[i] = child
	}
	return res, nil
}

func escapeToken(s string) string {
	s = strings.ReplaceAll(s, "~", "~0")
	return strings.ReplaceAll(s, "/", "~1")
}
