package avro

import (
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"testing"
)

func makeAddressRecord() *Record {
	return &Record{
		Namespace: "com.example.PersonPackage",
		Name:      "address",
		Fields: []Field{
			{Name: "city", Type: String},
			{Name: "zip", Type: Optional(Long), Default: NullLiteral},
		},
	}
}

func makePersonRecord() *Record {
	return &Record{
		Namespace: "com.example",
		Name:      "Person",
		Fields: []Field{
			{Name: "address", Type: Optional(makeAddressRecord()), Default: NullLiteral},
			{Name: "age", Type: Long},
			{Name: "tags", Type: &Array{Items: String}},
			{Name: "value", Type: NewUnion(String, Double)},
		},
	}
}

func TestMarshalRecord(t *testing.T) {
	bs, err := Marshal(makePersonRecord())
	require.NoError(t, err)

	want := `{"namespace":"com.example","name":"Person","type":"record","fields":[` +
		`{"name":"address","type":["null",{"namespace":"com.example.PersonPackage","name":"address","type":"record","fields":[` +
		`{"name":"city","type":"string"},{"name":"zip","type":["null","long"],"default":null}]}],"default":null},` +
		`{"name":"age","type":"long"},` +
		`{"name":"tags","type":{"type":"array","items":"string"}},` +
		`{"name":"value","type":["string","double"]}]}`
	assert.JSONEq(t, want, string(bs))
}

func TestMarshalEmptyRecordHasFields(t *testing.T) {
	bs, err := Marshal(&Record{Name: "empty"})
	require.NoError(t, err)
	assert.JSONEq(t, `{"name":"empty","type":"record","fields":[]}`, string(bs))
}

func TestParseRoundTrip(t *testing.T) {
	r := makePersonRecord()
	bs, err := Marshal(r)
	require.NoError(t, err)

	parsed, err := ParseRecord(string(bs))
	require.NoError(t, err)
	assert.Empty(t, cmp.Diff(r, parsed))
}

func TestParseLogicalTypeAndWrappedTypes(t *testing.T) {
	s, err := Parse(`{"type": "record", "name": "Event", "fields": [
		{"name": "at", "type": {"type": "long", "logicalType": "timestamp-millis"}},
		{"name": "nested", "type": {"type": {"type": "array", "items": "int"}}},
		{"name": "ref", "type": "com.example.Address", "default": {"city": "x"}}
	]}`)
	require.NoError(t, err)
	require.Equal(t, SchemaKindRecord, s.Kind())

	r := s.AsRecord()
	require.Len(t, r.Fields, 3)
	assert.Equal(t, Long, r.Fields[0].Type)
	assert.Equal(t, &Array{Items: Int}, r.Fields[1].Type)
	assert.Equal(t, Primitive("com.example.Address"), r.Fields[2].Type)
	assert.True(t, r.Fields[2].HasDefault())
	assert.JSONEq(t, `{"city":"x"}`, string(r.Fields[2].Default))
}

func TestParseUnsupported(t *testing.T) {
	_, err := Parse(`{"type": "enum", "name": "Suit", "symbols": ["SPADES"]}`)
	var unsupported *UnsupportedTypeError
	require.ErrorAs(t, err, &unsupported)
	assert.Equal(t, "enum", unsupported.Type)

	_, err = Parse(`{"name": "x"}`)
	assert.Error(t, err)

	_, err = ParseRecord(`"string"`)
	assert.Error(t, err)
}

func TestOptionalWidensUnion(t *testing.T) {
	u := Optional(NewUnion(String, Long))
	assert.Equal(t, []Schema{Null, String, Long}, u.Types)

	u = Optional(Boolean)
	assert.Equal(t, []Schema{Null, Boolean}, u.Types)
}

func TestCloneIsDeep(t *testing.T) {
	r := makePersonRecord()
	c := CloneRecord(r)
	assert.Empty(t, cmp.Diff(r, c))

	c.Fields[0].Type.AsUnion().Types[1].AsRecord().Fields[0].Name = "town"
	c.Fields = c.Fields[:1]

	assert.Equal(t, "city", r.Fields[0].Type.AsUnion().Types[1].AsRecord().Fields[0].Name)
	assert.Len(t, r.Fields, 4)
}

func TestAccessorsPanicOnWrongKind(t *testing.T) {
	assert.Panics(t, func() { String.AsRecord() })
	assert.Panics(t, func() { makeAddressRecord().AsUnion() })
	assert.Panics(t, func() { (&Array{Items: Long}).AsPrimitive() })
	assert.Panics(t, func() { NewUnion().AsArray() })
}
