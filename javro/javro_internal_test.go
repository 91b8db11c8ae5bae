package javro

import (
	"github.com/goccy/go-json"
	"github.com/siegeai/javro/jsonschema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"testing"
)

func TestAvroName(t *testing.T) {
	titled := &jsonschema.Node{Title: "Titled"}
	untitled := &jsonschema.Node{}

	assert.Equal(t, "explicit", avroName("explicit", "schemas/person.json", titled))
	assert.Equal(t, "Titled", avroName("", "schemas/person.json", titled))
	assert.Equal(t, "person", avroName("", "schemas/person.json", untitled))
	assert.Equal(t, "person", avroName("", "schemas/person.json.bak", untitled))
	assert.Equal(t, "person", avroName("", `C:\schemas\person.yaml`, untitled))
	assert.Equal(t, "order", avroName("", "https://example.com/schemas/order.json", untitled))
	assert.Equal(t, "", avroName("", "", untitled))
}

func TestCompatibilityJSON(t *testing.T) {
	cases := map[Compatibility]string{
		CompatibilityUnknown: `"AVRO_FETCHER_NOT_FOUND"`,
		Compatible:           `true`,
		Incompatible:         `false`,
	}
	for c, want := range cases {
		bs, err := json.Marshal(c)
		require.NoError(t, err)
		assert.Equal(t, want, string(bs))
	}

	assert.Equal(t, Compatible, CompatibilityOf(true))
	assert.Equal(t, Incompatible, CompatibilityOf(false))
	assert.Equal(t, FetcherNotFound, CompatibilityUnknown.String())
}

func TestNilMetricsRecordNothing(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() { m.observe(nil, assert.AnError, 0) })
}
