package server

import (
	"github.com/goccy/go-json"
	"github.com/siegeai/javro/registry"
	"github.com/siegeai/javro/registry/registrytest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

const personSchema = `{
	"title": "person",
	"type": "object",
	"required": ["name"],
	"properties": {
		"name": {"type": "string"},
		"age": {"$ref": "#/definitions/age"}
	},
	"definitions": {"age": {"type": ["integer", "string"]}}
}`

func post(t *testing.T, h http.Handler, target, contentType, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, target, strings.NewReader(body))
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var v map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v))
	return v
}

func TestConvert(t *testing.T) {
	s := New(Options{Namespace: "com.example"})

	rec := post(t, s, "/v1/convert", "application/json", personSchema)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.NotEmpty(t, rec.Header().Get("X-Request-Id"))

	assert.JSONEq(t, `{
		"isCompatible": "AVRO_FETCHER_NOT_FOUND",
		"avsc": {
			"namespace": "com.example",
			"name": "person",
			"type": "record",
			"fields": [
				{"name": "age", "type": ["null", "string"], "default": null},
				{"name": "name", "type": "string"}
			]
		}
	}`, rec.Body.String())
}

func TestConvertQueryParameters(t *testing.T) {
	s := New(Options{Namespace: "com.example"})

	rec := post(t, s, "/v1/convert?namespace=org.other&name=human&allowMultipleTypes=true", "application/json", personSchema)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	avsc := decodeBody(t, rec)["avsc"].(map[string]any)
	assert.Equal(t, "org.other", avsc["namespace"])
	assert.Equal(t, "human", avsc["name"])

	age := avsc["fields"].([]any)[0].(map[string]any)
	assert.Equal(t, []any{"null", "long", "string"}, age["type"])

	rec = post(t, s, "/v1/convert?allowMultipleTypes=maybe", "application/json", personSchema)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestConvertYAML(t *testing.T) {
	s := New(Options{})
	body := "title: thing\ntype: object\nproperties:\n  id:\n    type: integer\n"

	rec := post(t, s, "/v1/convert", "application/yaml", body)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "thing", decodeBody(t, rec)["avsc"].(map[string]any)["name"])
}

func TestConvertErrors(t *testing.T) {
	s := New(Options{})

	cases := []struct {
		body   string
		status int
	}{
		{`{"title": "x", "type": "object", "properties": {"list": {"type": "array"}}}`, http.StatusUnprocessableEntity},
		{`{"title": "x", "type": "string"}`, http.StatusUnprocessableEntity},
		{`{"title": "x", "type": "object", "properties": {"a": {"$ref": "other.json"}}}`, http.StatusBadRequest},
		{`{"title": `, http.StatusBadRequest},
	}

	for _, c := range cases {
		req := httptest.NewRequest(http.MethodPost, "/v1/convert", strings.NewReader(c.body))
		req.Header.Set("X-Request-Id", "req-1")
		rec := httptest.NewRecorder()
		s.ServeHTTP(rec, req)

		assert.Equal(t, c.status, rec.Code, c.body)
		body := decodeBody(t, rec)
		assert.NotEmpty(t, body["error"], c.body)
		assert.Equal(t, "req-1", body["requestId"], c.body)
	}
}

func TestConvertAgainstRegistry(t *testing.T) {
	srv, reg := registrytest.NewServer()
	defer srv.Close()
	_, _, err := reg.Register("person-value", `{"name": "person", "namespace": "com.example", "type": "record", "fields": [
		{"name": "name", "type": "string"},
		{"name": "age", "type": ["null", "string"], "default": null}
	]}`)
	require.NoError(t, err)

	client, err := registry.NewClient(srv.URL)
	require.NoError(t, err)
	s := New(Options{Namespace: "com.example", Registry: client})

	rec := post(t, s, "/v1/convert?subject=person-value", "application/json", personSchema)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	body := decodeBody(t, rec)
	assert.Equal(t, true, body["isCompatible"])
	fields := body["avsc"].(map[string]any)["fields"].([]any)
	assert.Equal(t, "name", fields[0].(map[string]any)["name"])
	assert.Equal(t, "age", fields[1].(map[string]any)["name"])
}

func TestConvertRegistryUnavailable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	srv.Close()

	client, err := registry.NewClient(srv.URL)
	require.NoError(t, err)
	s := New(Options{Namespace: "com.example", Registry: client})

	rec := post(t, s, "/v1/convert?subject=person-value", "application/json", personSchema)
	assert.Equal(t, http.StatusBadGateway, rec.Code, rec.Body.String())
	assert.Contains(t, decodeBody(t, rec)["error"], "schema registry unavailable")

	// without a subject the registry is never called
	rec = post(t, s, "/v1/convert", "application/json", personSchema)
	assert.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
}

func TestHealthAndMetrics(t *testing.T) {
	s := New(Options{})
	post(t, s, "/v1/convert", "application/json", personSchema)

	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok\n", rec.Body.String())

	rec = httptest.NewRecorder()
	s.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	bs, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Contains(t, string(bs), `javro_conversions_total{outcome="unchecked"} 1`)
}
