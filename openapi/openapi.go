package openapi

import (
	"context"
	"fmt"
	"github.com/getkin/kin-openapi/openapi3"
	"github.com/goccy/go-json"
	"github.com/pkg/errors"
	"github.com/siegeai/javro/jsonschema"
	"log/slog"
	"net/url"
	"sort"
)

var ErrComponentNotFound = errors.New("component schema not found")

type RecursiveSchemaError struct {
	Ref string
}

func (e *RecursiveSchemaError) Error() string {
	if e.Ref == "" {
		return "schema refers to itself"
	}
	return fmt.Sprintf("schema %s refers to itself", e.Ref)
}

func newLoader(ctx context.Context) *openapi3.Loader {
	loader := openapi3.NewLoader()
	loader.IsExternalRefsAllowed = true
	loader.Context = ctx
	return loader
}

// Load reads an OpenAPI 3 document from a file or an http(s) url. References, including
// ones into other documents, are resolved by the loader.
func Load(ctx context.Context, location string) (*openapi3.T, error) {
	loader := newLoader(ctx)

	if u, err := url.Parse(location); err == nil && (u.Scheme == "http" || u.Scheme == "https") {
		doc, err := loader.LoadFromURI(u)
		return doc, errors.Wrapf(err, "loading %s", location)
	}

	doc, err := loader.LoadFromFile(location)
	return doc, errors.Wrapf(err, "loading %s", location)
}

// LoadData reads an OpenAPI 3 document from memory. Relative references are resolved
// against location when it is not empty.
func LoadData(ctx context.Context, data []byte, location string) (*openapi3.T, error) {
	loader := newLoader(ctx)

	if location == "" {
		doc, err := loader.LoadFromData(data)
		return doc, errors.Wrap(err, "loading document")
	}

	u, err := url.Parse(location)
	if err != nil {
		return nil, errors.Wrapf(err, "invalid location %q", location)
	}
	doc, err := loader.LoadFromDataWithPath(data, u)
	return doc, errors.Wrapf(err, "loading %s", location)
}

// ComponentNames lists the schemas under components in name order.
func ComponentNames(doc *openapi3.T) []string {
	if doc == nil || doc.Components == nil {
		return nil
	}
	names := make([]string, 0, len(doc.Components.Schemas))
	for k := range doc.Components.Schemas {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

// Component converts the component schema called name.
func Component(doc *openapi3.T, name string) (*jsonschema.Node, error) {
	if doc == nil || doc.Components == nil {
		return nil, errors.Wrap(ErrComponentNotFound, name)
	}
	ref, in := doc.Components.Schemas[name]
	if !in || ref == nil {
		return nil, errors.Wrap(ErrComponentNotFound, name)
	}
	return FromSchema(ref)
}

// FromSchema converts a loaded schema into a node. OpenAPI only extensions such as
// nullable and discriminator are ignored.
func FromSchema(ref *openapi3.SchemaRef) (*jsonschema.Node, error) {
	c := converter{active: make(map[*openapi3.Schema]struct{})}
	return c.schemaRef(ref)
}

type converter struct {
	active map[*openapi3.Schema]struct{}
}

func (c *converter) schemaRef(ref *openapi3.SchemaRef) (*jsonschema.Node, error) {
	if ref == nil || ref.Value == nil {
		return nil, nil
	}

	s := ref.Value
	if _, in := c.active[s]; in {
		return nil, &RecursiveSchemaError{Ref: ref.Ref}
	}
	c.active[s] = struct{}{}
	defer delete(c.active, s)

	n := jsonschema.Node{Title: s.Title}
	if s.Type != "" {
		n.Type = jsonschema.TypeOf(s.Type)
	}
	if s.Required != nil {
		n.Required = append([]string{}, s.Required...)
	}

	var err error
	if s.Properties != nil {
		n.Properties = make(map[string]*jsonschema.Node, len(s.Properties))
		for k, p := range s.Properties {
			if n.Properties[k], err = c.schemaRef(p); err != nil {
				return nil, err
			}
		}
	}

	if n.Items, err = c.schemaRef(s.Items); err != nil {
		return nil, err
	}
	if n.OneOf, err = c.schemaRefs(s.OneOf); err != nil {
		return nil, err
	}
	if n.AllOf, err = c.schemaRefs(s.AllOf); err != nil {
		return nil, err
	}

	return &n, nil
}

func (c *converter) schemaRefs(refs openapi3.SchemaRefs) ([]*jsonschema.Node, error) {
	if refs == nil {
		return nil, nil
	}
	res := make([]*jsonschema.Node, len(refs))
	for i, r := range refs {
		n, err := c.schemaRef(r)
		if err != nil {
			return nil, err
		}
		res[i] = n
	}
	return res, nil
}

// ComponentResolver reads the input document as OpenAPI 3 and picks one component
// schema from it.
type ComponentResolver struct {
	Component string
	Logger    *slog.Logger
}

func (r *ComponentResolver) Resolve(ctx context.Context, locator string, document any) (*jsonschema.Node, error) {
	var (
		doc *openapi3.T
		err error
	)
	if document == nil {
		doc, err = Load(ctx, locator)
	} else {
		var bs []byte
		if bs, err = json.Marshal(document); err != nil {
			return nil, err
		}
		doc, err = LoadData(ctx, bs, locator)
	}
	if err != nil {
		return nil, err
	}

	if r.Logger != nil {
		r.Logger.Debug("loaded openapi document", "location", locator, "components", len(ComponentNames(doc)))
	}
	return Component(doc, r.Component)
}
