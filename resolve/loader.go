package resolve

import (
	"context"
	"fmt"
	"github.com/pkg/errors"
	jsv "github.com/santhosh-tekuri/jsonschema/v6"
	"github.com/siegeai/javro/jsonschema"
	"io"
	"net/http"
	"os"
	"strings"
	"time"
)

var ErrExternalRef = errors.New("references to other documents are not allowed")

// ContextLoader is implemented by loaders whose requests can be cancelled.
type ContextLoader interface {
	LoadContext(ctx context.Context, url string) (any, error)
}

// DefaultLoader loads file, http and https urls. Documents named *.yaml or *.yml, or
// served with a yaml content type, are decoded as YAML.
func DefaultLoader() jsv.URLLoader {
	httpLoader := HTTPLoader(http.Client{
		Timeout: 15 * time.Second,
	})
	return jsv.SchemeURLLoader{
		"file":  FileLoader{},
		"http":  &httpLoader,
		"https": &httpLoader,
	}
}

type FileLoader struct{}

func (l FileLoader) Load(url string) (any, error) {
	path, err := jsv.FileLoader{}.ToFile(url)
	if err != nil {
		return nil, err
	}
	bs, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return jsonschema.Unmarshal(bs, jsonschema.FormatOf(path))
}

type HTTPLoader http.Client

func (l *HTTPLoader) Load(url string) (any, error) {
	return l.LoadContext(context.Background(), url)
}

func (l *HTTPLoader) LoadContext(ctx context.Context, url string) (any, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/schema+json, application/json, application/yaml")

	client := (*http.Client)(l)
	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%s returned status code %d", url, resp.StatusCode)
	}

	bs, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	format := jsonschema.FormatOf(url)
	if format != jsonschema.FormatYAML {
		ctype := resp.Header.Get("Content-Type")
		if i := strings.IndexByte(ctype, ';'); i >= 0 {
			ctype = ctype[:i]
		}
		ctype = strings.TrimSpace(ctype)
		if strings.HasSuffix(ctype, "/yaml") || strings.HasSuffix(ctype, "-yaml") {
			format = jsonschema.FormatYAML
		}
	}
	return jsonschema.Unmarshal(bs, format)
}

// LocalOnly refuses every url, so only references inside the document being resolved
// can be followed.
type LocalOnly struct{}

func (LocalOnly) Load(url string) (any, error) {
	return nil, errors.Wrapf(ErrExternalRef, "loading %s", url)
}

func load(ctx context.Context, l jsv.URLLoader, url string) (any, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s, ok := l.(jsv.SchemeURLLoader); ok {
		scheme, _, found := strings.Cut(url, ":")
		if inner, in := s[scheme]; found && in {
			l = inner
		}
	}
	if cl, ok := l.(ContextLoader); ok {
		return cl.LoadContext(ctx, url)
	}
	return l.Load(url)
}
