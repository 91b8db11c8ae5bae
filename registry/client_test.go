package registry

import (
	"context"
	"github.com/pkg/errors"
	"github.com/siegeai/javro/javro"
	"github.com/siegeai/javro/registry/registrytest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"net/http"
	"net/http/httptest"
	"testing"
)

const personV1 = `{"type": "record", "name": "person", "namespace": "com.example", "fields": [
	{"name": "name", "type": "string"}
]}`

const personV2 = `{"type": "record", "name": "person", "namespace": "com.example", "fields": [
	{"name": "name", "type": "string"},
	{"name": "age", "type": ["null", "long"], "default": null}
]}`

const personRequiredAge = `{"type": "record", "name": "person", "namespace": "com.example", "fields": [
	{"name": "name", "type": "string"},
	{"name": "age", "type": "long"}
]}`

func newTestClient(t *testing.T, opts ...registrytest.Option) *Client {
	t.Helper()
	srv, _ := registrytest.NewServer(opts...)
	t.Cleanup(srv.Close)

	c, err := NewClient(srv.URL + "/")
	require.NoError(t, err)
	return c
}

func TestNewClient(t *testing.T) {
	c, err := NewClient("http://localhost:8081/")
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:8081", c.Server)
	assert.Equal(t, DefaultAcceptHeader, c.AcceptHeader)

	_, err = NewClient("localhost:8081")
	assert.Error(t, err)
}

func TestRegisterAndFetch(t *testing.T) {
	ctx := context.Background()
	c := newTestClient(t)

	subjects, err := c.Subjects(ctx)
	require.NoError(t, err)
	assert.Empty(t, subjects)

	id, err := c.Register(ctx, "person-value", personV1)
	require.NoError(t, err)
	assert.Equal(t, 1, id)

	again, err := c.Register(ctx, "person-value", personV1)
	require.NoError(t, err)
	assert.Equal(t, id, again)

	id, err = c.Register(ctx, "person-value", personV2)
	require.NoError(t, err)
	assert.Equal(t, 2, id)

	subjects, err = c.Subjects(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"person-value"}, subjects)

	versions, err := c.Versions(ctx, "person-value")
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2}, versions)

	latest, err := c.LatestSchema(ctx, "person-value")
	require.NoError(t, err)
	assert.Equal(t, "person-value", latest.Subject)
	assert.Equal(t, 2, latest.Version)
	assert.Equal(t, 2, latest.ID)
	assert.JSONEq(t, personV2, latest.Schema)

	first, err := c.Version(ctx, "person-value", "1")
	require.NoError(t, err)
	assert.JSONEq(t, personV1, first.Schema)
}

func TestRegisterIncompatible(t *testing.T) {
	ctx := context.Background()
	c := newTestClient(t)

	_, err := c.Register(ctx, "person-value", personV1)
	require.NoError(t, err)

	_, err = c.Register(ctx, "person-value", personRequiredAge)
	assert.True(t, errors.Is(err, ErrIncompatible), "%v", err)

	var re *ResponseError
	require.ErrorAs(t, err, &re)
	assert.Equal(t, http.StatusConflict, re.StatusCode)
	assert.Equal(t, CodeIncompatibleSchema, re.Code)
	assert.Contains(t, re.Message, "age")
}

func TestRegisterInvalid(t *testing.T) {
	c := newTestClient(t)
	_, err := c.Register(context.Background(), "person-value", `{"type": "enum", "name": "e", "symbols": ["A"]}`)
	assert.True(t, errors.Is(err, ErrInvalidSchema), "%v", err)

	var re *ResponseError
	require.ErrorAs(t, err, &re)
	assert.Equal(t, http.StatusUnprocessableEntity, re.StatusCode)
}

func TestNotFound(t *testing.T) {
	ctx := context.Background()
	c := newTestClient(t)

	_, err := c.LatestSchema(ctx, "nobody")
	assert.True(t, errors.Is(err, ErrSubjectNotFound), "%v", err)

	_, err = c.Versions(ctx, "nobody")
	assert.True(t, errors.Is(err, ErrSubjectNotFound), "%v", err)

	_, err = c.Register(ctx, "person-value", personV1)
	require.NoError(t, err)

	_, err = c.Version(ctx, "person-value", "7")
	assert.True(t, errors.Is(err, ErrVersionNotFound), "%v", err)
}

func TestIsCompatible(t *testing.T) {
	ctx := context.Background()
	c := newTestClient(t)

	_, err := c.Register(ctx, "person-value", personV1)
	require.NoError(t, err)

	ok, err := c.IsCompatible(ctx, "person-value", "latest", personV2)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = c.IsCompatible(ctx, "person-value", "latest", personRequiredAge)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestGzipResponses(t *testing.T) {
	ctx := context.Background()
	c := newTestClient(t, registrytest.WithGzip())

	_, err := c.Register(ctx, "person-value", personV1)
	require.NoError(t, err)

	latest, err := c.LatestSchema(ctx, "person-value")
	require.NoError(t, err)
	assert.JSONEq(t, personV1, latest.Schema)
}

func TestHeadersAndUnexpectedResponses(t *testing.T) {
	var accept, encoding string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		accept = r.Header.Get("Accept")
		encoding = r.Header.Get("Accept-Encoding")
		w.WriteHeader(http.StatusBadGateway)
		_, _ = w.Write([]byte("upstream down"))
	}))
	defer srv.Close()

	c, err := NewClient(srv.URL)
	require.NoError(t, err)

	_, err = c.Subjects(context.Background())
	assert.Equal(t, DefaultAcceptHeader, accept)
	assert.Equal(t, "gzip", encoding)

	assert.True(t, errors.Is(err, ErrUnexpectedResponse), "%v", err)
	var re *ResponseError
	require.ErrorAs(t, err, &re)
	assert.Equal(t, http.StatusBadGateway, re.StatusCode)
	assert.Equal(t, `"upstream down"`, re.Message)
}

func TestUnavailable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	srv.Close()

	c, err := NewClient(srv.URL)
	require.NoError(t, err)

	_, err = c.LatestSchema(context.Background(), "person-value")
	assert.True(t, errors.Is(err, ErrUnavailable), "%v", err)
	assert.False(t, errors.Is(err, ErrSubjectNotFound))
	var unavailable *UnavailableError
	require.ErrorAs(t, err, &unavailable)
	assert.Equal(t, http.MethodGet, unavailable.Method)
	assert.Equal(t, "/subjects/person-value/versions/latest", unavailable.Path)

	// a fetcher does not mistake a missing registry for a missing subject
	_, err = NewAvroFetcher(c, "person-value").FetchPreviousAvro(context.Background())
	assert.True(t, errors.Is(err, ErrUnavailable), "%v", err)
	assert.False(t, errors.Is(err, javro.ErrNoPreviousSchema))
}

func TestAvroFetcher(t *testing.T) {
	ctx := context.Background()
	c := newTestClient(t)
	f := NewAvroFetcher(c, "person-value")

	_, err := f.FetchPreviousAvro(ctx)
	assert.ErrorIs(t, err, javro.ErrNoPreviousSchema)

	ok, err := f.CheckCompatibility(ctx, personRequiredAge)
	require.NoError(t, err)
	assert.True(t, ok)

	_, err = c.Register(ctx, "person-value", personV1)
	require.NoError(t, err)

	prev, err := f.FetchPreviousAvro(ctx)
	require.NoError(t, err)
	assert.JSONEq(t, personV1, prev)

	ok, err = f.CheckCompatibility(ctx, personRequiredAge)
	require.NoError(t, err)
	assert.False(t, ok)
}
