package registry

import (
	"bytes"
	"context"
	"fmt"
	"github.com/goccy/go-json"
	"github.com/pkg/errors"
	"github.com/valyala/fastjson"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
)

const (
	DefaultAcceptHeader = "application/vnd.schemaregistry.v1+json, application/vnd.schemaregistry+json, application/json"
	ContentType         = "application/vnd.schemaregistry.v1+json"
)

// Error codes returned in the body of failed registry responses.
const (
	CodeSubjectNotFound    = 40401
	CodeVersionNotFound    = 40402
	CodeInvalidSchema      = 42201
	CodeIncompatibleSchema = 409
)

var (
	ErrUnexpectedResponse = errors.New("unexpected response code")
	ErrSubjectNotFound    = errors.New("subject not found")
	ErrVersionNotFound    = errors.New("version not found")
	ErrInvalidSchema      = errors.New("invalid schema")
	ErrIncompatible       = errors.New("schema is incompatible")
	ErrUnavailable        = errors.New("schema registry unavailable")
)

// UnavailableError is a registry call that got no response. It matches
// ErrUnavailable and unwraps to the transport error.
type UnavailableError struct {
	Method string
	Path   string
	Err    error
}

func (e *UnavailableError) Error() string {
	return fmt.Sprintf("%s %s: %v: %v", e.Method, e.Path, ErrUnavailable, e.Err)
}

func (e *UnavailableError) Is(target error) bool { return target == ErrUnavailable }

func (e *UnavailableError) Unwrap() error { return e.Err }

// ResponseError is a failed registry call. It unwraps to the sentinel matching Code.
type ResponseError struct {
	StatusCode int
	Code       int
	Message    string
}

func (e *ResponseError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("schema registry returned %d", e.StatusCode)
	}
	return fmt.Sprintf("schema registry returned %d (error code %d): %s", e.StatusCode, e.Code, e.Message)
}

func (e *ResponseError) Unwrap() error {
	switch e.Code {
	case CodeSubjectNotFound:
		return ErrSubjectNotFound
	case CodeVersionNotFound:
		return ErrVersionNotFound
	case CodeInvalidSchema:
		return ErrInvalidSchema
	case CodeIncompatibleSchema:
		return ErrIncompatible
	}
	return ErrUnexpectedResponse
}

// Client talks to a Confluent compatible schema registry.
type Client struct {
	Server       string
	AcceptHeader string
	HTTPClient   *http.Client
	Logger       *slog.Logger
}

func NewClient(server string) (*Client, error) {
	u, err := url.Parse(server)
	if err != nil {
		return nil, errors.Wrapf(err, "invalid registry url %q", server)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("invalid registry url %q: scheme must be http or https", server)
	}

	client := &Client{
		Server:       strings.TrimSuffix(server, "/"),
		AcceptHeader: DefaultAcceptHeader,
		HTTPClient:   http.DefaultClient,
		Logger:       slog.Default(),
	}
	return client, nil
}

type SchemaVersion struct {
	Subject string
	Version int
	ID      int
	Schema  string
}

func (c *Client) Subjects(ctx context.Context) ([]string, error) {
	v, err := c.do(ctx, http.MethodGet, "/subjects", nil)
	if err != nil {
		return nil, err
	}

	vs, err := v.Array()
	if err != nil {
		return nil, errors.Wrap(err, "decoding subjects")
	}
	res := make([]string, len(vs))
	for i, s := range vs {
		bs, err := s.StringBytes()
		if err != nil {
			return nil, errors.Wrap(err, "decoding subjects")
		}
		res[i] = string(bs)
	}
	return res, nil
}

func (c *Client) Versions(ctx context.Context, subject string) ([]int, error) {
	v, err := c.do(ctx, http.MethodGet, "/subjects/"+url.PathEscape(subject)+"/versions", nil)
	if err != nil {
		return nil, err
	}

	vs, err := v.Array()
	if err != nil {
		return nil, errors.Wrap(err, "decoding versions")
	}
	res := make([]int, len(vs))
	for i, n := range vs {
		if res[i], err = n.Int(); err != nil {
			return nil, errors.Wrap(err, "decoding versions")
		}
	}
	return res, nil
}

// Version fetches one version of subject; version is a number or "latest".
func (c *Client) Version(ctx context.Context, subject, version string) (*SchemaVersion, error) {
	p := "/subjects/" + url.PathEscape(subject) + "/versions/" + url.PathEscape(version)
	v, err := c.do(ctx, http.MethodGet, p, nil)
	if err != nil {
		return nil, err
	}

	res := SchemaVersion{
		Subject: string(v.GetStringBytes("subject")),
		Version: v.GetInt("version"),
		ID:      v.GetInt("id"),
		Schema:  string(v.GetStringBytes("schema")),
	}
	if res.Schema == "" {
		return nil, errors.Wrapf(ErrUnexpectedResponse, "version %s of %s has no schema", version, subject)
	}
	return &res, nil
}

func (c *Client) LatestSchema(ctx context.Context, subject string) (*SchemaVersion, error) {
	return c.Version(ctx, subject, "latest")
}

type schemaRequest struct {
	Schema     string `json:"schema"`
	SchemaType string `json:"schemaType,omitempty"`
}

// Register publishes schema under subject and returns its global id. Registering a
// schema that already exists returns the existing id.
func (c *Client) Register(ctx context.Context, subject, schema string) (int, error) {
	bs, err := json.Marshal(&schemaRequest{Schema: schema})
	if err != nil {
		return 0, err
	}

	v, err := c.do(ctx, http.MethodPost, "/subjects/"+url.PathEscape(subject)+"/versions", bs)
	if err != nil {
		return 0, err
	}
	return v.GetInt("id"), nil
}

// IsCompatible asks whether schema could be registered after the given version of
// subject under the subject's compatibility level.
func (c *Client) IsCompatible(ctx context.Context, subject, version, schema string) (bool, error) {
	bs, err := json.Marshal(&schemaRequest{Schema: schema})
	if err != nil {
		return false, err
	}

	p := "/compatibility/subjects/" + url.PathEscape(subject) + "/versions/" + url.PathEscape(version)
	v, err := c.do(ctx, http.MethodPost, p, bs)
	if err != nil {
		return false, err
	}
	return v.GetBool("is_compatible"), nil
}

func (c *Client) do(ctx context.Context, method, path string, body []byte) (*fastjson.Value, error) {
	var r io.Reader
	if body != nil {
		r = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.Server+path, r)
	if err != nil {
		return nil, err
	}
	accept := c.AcceptHeader
	if accept == "" {
		accept = DefaultAcceptHeader
	}
	req.Header.Set("Accept", accept)
	if body != nil {
		req.Header.Set("Content-Type", ContentType)
	}

	client := c.HTTPClient
	if client == nil {
		client = http.DefaultClient
	}
	res, err := client.Do(req)
	if err != nil {
		return nil, &UnavailableError{Method: method, Path: path, Err: err}
	}
	defer res.Body.Close()

	// gzip bodies are decoded by the transport
	bs, err := io.ReadAll(res.Body)
	if err != nil {
		return nil, errors.Wrapf(err, "reading %s %s", method, path)
	}
	c.logger().Debug("schema registry response", "method", method, "path", path, "status", res.StatusCode)

	if res.StatusCode < 200 || res.StatusCode > 299 {
		return nil, decodeError(res.StatusCode, bs)
	}

	v, err := fastjson.ParseBytes(bs)
	if err != nil {
		return nil, errors.Wrapf(err, "decoding %s %s", method, path)
	}
	return v, nil
}

func decodeError(status int, bs []byte) error {
	e := ResponseError{StatusCode: status}
	if v, err := fastjson.ParseBytes(bs); err == nil {
		e.Code = v.GetInt("error_code")
		e.Message = string(v.GetStringBytes("message"))
	} else if len(bs) > 0 {
		e.Message = strconv.Quote(string(bs))
	}
	return &e
}

func (c *Client) logger() *slog.Logger {
	if c.Logger == nil {
		return slog.Default()
	}
	return c.Logger
}
