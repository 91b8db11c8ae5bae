package jsonschema

import (
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"testing"
)

func TestParseObject(t *testing.T) {
	bs := []byte(`{
		"title": "Person",
		"type": "object",
		"required": ["name"],
		"properties": {
			"name": {"type": "string", "minLength": 1},
			"tags": {"type": "array", "items": {"type": "string"}},
			"contact": {"oneOf": [{"properties": {"email": {"type": "string"}}}]},
			"score": {"type": ["number", "null"]}
		}
	}`)
	n, err := Parse(bs, FormatJSON)
	require.NoError(t, err)

	assert.Equal(t, "Person", n.Title)
	assert.True(t, n.Type.Is("object"))
	assert.True(t, n.IsRequired("name"))
	assert.False(t, n.IsRequired("tags"))
	require.Len(t, n.Properties, 4)

	assert.NotNil(t, n.Properties["tags"].Items)
	assert.True(t, n.Properties["tags"].Items.Type.Is("string"))

	contact := n.Properties["contact"]
	assert.True(t, contact.HasComposition())
	assert.True(t, contact.Type.IsZero())
	require.Len(t, contact.OneOf, 1)
	assert.Contains(t, contact.OneOf[0].Properties, "email")

	assert.Equal(t, TypeList("number", "null"), n.Properties["score"].Type)
	assert.Equal(t, `["number","null"]`, n.Properties["score"].Type.String())
}

func TestParseYAML(t *testing.T) {
	bs := []byte(`
type: object
required: [id]
properties:
  id:
    type: integer
  labels:
    type: array
    items:
      type: string
`)
	n, err := Parse(bs, FormatYAML)
	require.NoError(t, err)
	assert.True(t, n.Type.Is("object"))
	assert.Equal(t, []string{"id"}, n.Required)
	assert.True(t, n.Properties["labels"].Items.Type.Is("string"))
}

func TestEmptyCompositionIsPresent(t *testing.T) {
	n, err := Parse([]byte(`{"allOf": []}`), FormatJSON)
	require.NoError(t, err)
	assert.True(t, n.HasComposition())
	assert.Empty(t, n.AllOf)
}

func TestBooleanAndNullSubschemas(t *testing.T) {
	n, err := Parse([]byte(`{
		"type": "object",
		"properties": {
			"anything": true,
			"nothing": false,
			"plain": {"type": "string", "oneOf": null, "allOf": null},
			"untyped": {"type": null, "items": null}
		}
	}`), FormatJSON)
	require.NoError(t, err)

	assert.Equal(t, &Node{}, n.Properties["anything"])
	assert.Equal(t, &Node{}, n.Properties["nothing"])
	assert.Equal(t, &Node{Type: TypeOf("string")}, n.Properties["plain"])
	assert.False(t, n.Properties["plain"].HasComposition())
	assert.Equal(t, &Node{}, n.Properties["untyped"])

	_, err = Parse([]byte(`{"allOf": [true, {"type": "object"}]}`), FormatJSON)
	assert.NoError(t, err)
}

func TestInvalidNodes(t *testing.T) {
	cases := map[string]string{
		`{"type": 5}`:                                       "#",
		`{"type": ["string", 1]}`:                           "#",
		`{"properties": []}`:                                "#",
		`{"properties": {"a/b": {"items": "string"}}}`:      "#/properties/a~1b/items",
		`{"required": "name"}`:                              "#",
		`{"allOf": [{"properties": {"x": {"title": 1}}}]}`: "#/allOf/0/properties/x",
	}

	for doc, ptr := range cases {
		_, err := Parse([]byte(doc), FormatJSON)
		var invalid *InvalidNodeError
		if assert.ErrorAs(t, err, &invalid, doc) {
			assert.Equal(t, ptr, invalid.Path, doc)
		}
	}
}

func TestFormatOf(t *testing.T) {
	assert.Equal(t, FormatYAML, FormatOf("schemas/person.yaml"))
	assert.Equal(t, FormatYAML, FormatOf("https://example.com/a.YML#/definitions/x"))
	assert.Equal(t, FormatJSON, FormatOf("person.json"))
	assert.Equal(t, FormatJSON, FormatOf("person"))
}

func TestTypeString(t *testing.T) {
	assert.Equal(t, "<none>", Type{}.String())
	assert.Equal(t, "object", TypeOf("object").String())
	assert.Equal(t, "[]", TypeList().String())
}
