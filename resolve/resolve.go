package resolve

import (
	"context"
	"github.com/pkg/errors"
	jsv "github.com/santhosh-tekuri/jsonschema/v6"
	"github.com/siegeai/javro/jsonschema"
	"log/slog"
	"net/url"
	"path/filepath"
	"strings"
)

// DocumentLocation names documents that were handed over in memory without a locator.
const DocumentLocation = "mem:///document.json"

type CycleError struct {
	Chain []string
}

func (e *CycleError) Error() string {
	return "circular $ref: " + strings.Join(e.Chain, " -> ")
}

// Resolver inlines every $ref of a JSON Schema document so the result can be mapped
// without further lookups.
type Resolver struct {
	Loader jsv.URLLoader

	// Validate compiles the document first, checking it against its meta-schema.
	Validate bool

	Logger *slog.Logger
}

func NewResolver(loader jsv.URLLoader) *Resolver {
	if loader == nil {
		loader = DefaultLoader()
	}
	return &Resolver{Loader: loader, Logger: slog.Default()}
}

// Resolve returns the reference-free node for the document at locator. A nil
// document is loaded from locator; otherwise locator is only the base that relative
// references are resolved against.
func (r *Resolver) Resolve(ctx context.Context, locator string, document any) (*jsonschema.Node, error) {
	v, err := r.ResolveValue(ctx, locator, document)
	if err != nil {
		return nil, err
	}
	return jsonschema.FromValue(v)
}

// ResolveValue is Resolve without the conversion to a node.
func (r *Resolver) ResolveValue(ctx context.Context, locator string, document any) (any, error) {
	loc, err := toURL(locator)
	if err != nil {
		return nil, err
	}
	base, err := url.Parse(loc)
	if err != nil {
		return nil, errors.Wrapf(err, "invalid location %q", locator)
	}

	if document == nil {
		r.logger().Debug("loading schema document", "url", loc)
		document, err = load(ctx, r.Loader, loc)
		if err != nil {
			return nil, errors.Wrapf(err, "loading %s", loc)
		}
	}

	if r.Validate {
		if err := r.validate(loc, document); err != nil {
			return nil, err
		}
	}

	in := inliner{
		ctx:  ctx,
		r:    r,
		docs: map[string]any{documentKey(base): document},
	}
	return in.schema(document, base)
}

func (r *Resolver) validate(loc string, document any) error {
	c := jsv.NewCompiler()
	c.UseLoader(r.Loader)
	if err := c.AddResource(loc, document); err != nil {
		return errors.Wrapf(err, "adding %s", loc)
	}
	if _, err := c.Compile(loc); err != nil {
		return errors.Wrap(err, "schema is invalid")
	}
	return nil
}

func (r *Resolver) logger() *slog.Logger {
	if r.Logger == nil {
		return slog.Default()
	}
	return r.Logger
}

func toURL(locator string) (string, error) {
	if locator == "" {
		return DocumentLocation, nil
	}
	// single letter schemes are windows drive letters
	if u, err := url.Parse(locator); err == nil && len(u.Scheme) > 1 {
		return locator, nil
	}
	abs, err := filepath.Abs(locator)
	if err != nil {
		return "", err
	}
	u := url.URL{Scheme: "file", Path: filepath.ToSlash(abs)}
	return u.String(), nil
}

func documentKey(u *url.URL) string {
	v := *u
	v.Fragment = ""
	v.RawFragment = ""
	return v.String()
}

type inliner struct {
	ctx    context.Context
	r      *Resolver
	docs   map[string]any
	active []string
}

// schema inlines the subschemas of v that the mapper reads. Other keywords are copied
// as they are.
func (in *inliner) schema(v any, base *url.URL) (any, error) {
	m, ok := v.(map[string]any)
	if !ok {
		return v, nil
	}
	if ref, ok := m["$ref"].(string); ok {
		return in.ref(m, ref, base)
	}

	res := make(map[string]any, len(m))
	for k, e := range m {
		res[k] = e
	}

	var err error
	if p, ok := m["properties"].(map[string]any); ok {
		props := make(map[string]any, len(p))
		for k, e := range p {
			if props[k], err = in.schema(e, base); err != nil {
				return nil, err
			}
		}
		res["properties"] = props
	}

	for _, k := range []string{"items", "additionalProperties", "not"} {
		if e, present := m[k]; present {
			if _, isList := e.([]any); isList {
				continue
			}
			if res[k], err = in.schema(e, base); err != nil {
				return nil, err
			}
		}
	}

	for _, k := range []string{"oneOf", "allOf", "anyOf"} {
		if bs, ok := m[k].([]any); ok {
			branches := make([]any, len(bs))
			for i, b := range bs {
				if branches[i], err = in.schema(b, base); err != nil {
					return nil, err
				}
			}
			res[k] = branches
		}
	}

	return res, nil
}

func (in *inliner) ref(m map[string]any, ref string, base *url.URL) (any, error) {
	u, err := base.Parse(ref)
	if err != nil {
		return nil, errors.Wrapf(err, "invalid $ref %q", ref)
	}

	docURL, err := url.Parse(documentKey(u))
	if err != nil {
		return nil, err
	}
	doc, err := in.document(docURL)
	if err != nil {
		return nil, err
	}

	key := docURL.String() + "#" + u.Fragment
	for i, a := range in.active {
		if a == key {
			chain := append([]string{}, in.active[i:]...)
			return nil, &CycleError{Chain: append(chain, key)}
		}
	}

	target, err := evalPointer(doc, docURL.String(), u.Fragment)
	if err != nil {
		return nil, err
	}

	in.active = append(in.active, key)
	resolved, err := in.schema(target, docURL)
	in.active = in.active[:len(in.active)-1]
	if err != nil {
		return nil, err
	}

	if len(m) == 1 {
		return resolved, nil
	}

	// keywords next to $ref override the ones of the target
	siblings := make(map[string]any, len(m)-1)
	for k, v := range m {
		if k != "$ref" {
			siblings[k] = v
		}
	}
	overlay, err := in.schema(siblings, base)
	if err != nil {
		return nil, err
	}

	res := make(map[string]any)
	if rm, ok := resolved.(map[string]any); ok {
		for k, v := range rm {
			res[k] = v
		}
	}
	for k, v := range overlay.(map[string]any) {
		res[k] = v
	}
	return res, nil
}

func (in *inliner) document(u *url.URL) (any, error) {
	key := u.String()
	if doc, ok := in.docs[key]; ok {
		return doc, nil
	}

	in.r.logger().Debug("loading referenced document", "url", key)
	doc, err := load(in.ctx, in.r.Loader, key)
	if err != nil {
		return nil, errors.Wrapf(err, "loading %s", key)
	}
	in.docs[key] = doc
	return doc, nil
}
