package avro

import (
	"github.com/goccy/go-json"
)

type recordJSON struct {
	Namespace string      `json:"namespace,omitempty"`
	Name      string      `json:"name"`
	Type      string      `json:"type"`
	Fields    []fieldJSON `json:"fields"`
}

type fieldJSON struct {
	Name    string          `json:"name"`
	Type    Schema          `json:"type"`
	Default json.RawMessage `json:"default,omitempty"`
}

type arrayJSON struct {
	Type  string `json:"type"`
	Items Schema `json:"items"`
}

// Marshal encodes s as an Avro schema document.
func Marshal(s Schema) ([]byte, error) {
	return json.Marshal(s)
}

func MarshalIndent(s Schema, prefix, indent string) ([]byte, error) {
	return json.MarshalIndent(s, prefix, indent)
}

func (p Primitive) MarshalJSON() ([]byte, error) {
	return json.Marshal(string(p))
}

func (r *Record) MarshalJSON() ([]byte, error) {
	fields := make([]fieldJSON, len(r.Fields))
	for i, f := range r.Fields {
		fields[i] = fieldJSON{Name: f.Name, Type: f.Type}
		if f.HasDefault() {
			fields[i].Default = json.RawMessage(f.Default)
		}
	}
	return json.Marshal(recordJSON{
		Namespace: r.Namespace,
		Name:      r.Name,
		Type:      "record",
		Fields:    fields,
	})
}

func (a *Array) MarshalJSON() ([]byte, error) {
	return json.Marshal(arrayJSON{Type: "array", Items: a.Items})
}

func (u *Union) MarshalJSON() ([]byte, error) {
	types := u.Types
	if types == nil {
		types = []Schema{}
	}
	return json.Marshal(types)
}
