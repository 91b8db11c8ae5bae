// Package registrytest serves an in-memory schema registry speaking the Confluent REST
// API, for tests and local runs.
package registrytest

import (
	"fmt"
	hamba "github.com/hamba/avro/v2"
	"github.com/siegeai/javro/avro"
	"sort"
	"sync"
)

const (
	codeSubjectNotFound    = 40401
	codeVersionNotFound    = 40402
	codeInvalidSchema      = 42201
	codeIncompatibleSchema = 409
)

type registryError struct {
	code    int
	message string
}

func (e *registryError) Error() string {
	return e.message
}

// Registry stores schemas by subject. Every subject uses BACKWARD compatibility.
type Registry struct {
	mu       sync.RWMutex
	schemas  []string
	subjects map[string][]int
}

func NewRegistry() *Registry {
	return &Registry{
		subjects: make(map[string][]int),
	}
}

// Register adds schema as the next version of subject. Re-registering the latest
// version is a no-op returning its id.
func (r *Registry) Register(subject, schema string) (id, version int, err error) {
	canonical, parsed, err := validate(schema)
	if err != nil {
		return 0, 0, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	versions := r.subjects[subject]
	if n := len(versions); n > 0 {
		latestID := versions[n-1]
		if r.schemas[latestID-1] == canonical {
			return latestID, n, nil
		}
		if msgs := r.incompatibilities(parsed, latestID); len(msgs) > 0 {
			return 0, 0, &registryError{
				code:    codeIncompatibleSchema,
				message: "schema being registered is incompatible with an earlier schema: " + msgs[0],
			}
		}
	}

	id = r.idOf(canonical)
	if id == 0 {
		r.schemas = append(r.schemas, canonical)
		id = len(r.schemas)
	}
	r.subjects[subject] = append(versions, id)
	return id, len(r.subjects[subject]), nil
}

// validate checks schema with a full Avro parser, then reduces it to the record
// grammar the converter emits. The stored form keeps defaults and field order.
func validate(schema string) (string, hamba.Schema, error) {
	parsed, err := hamba.ParseWithCache(schema, "", &hamba.SchemaCache{})
	if err != nil {
		return "", nil, &registryError{code: codeInvalidSchema, message: fmt.Sprintf("invalid schema: %v", err)}
	}
	s, err := avro.Parse(schema)
	if err != nil {
		return "", nil, &registryError{code: codeInvalidSchema, message: fmt.Sprintf("invalid schema: %v", err)}
	}
	canonical, err := avro.Marshal(s)
	if err != nil {
		return "", nil, &registryError{code: codeInvalidSchema, message: fmt.Sprintf("invalid schema: %v", err)}
	}
	return string(canonical), parsed, nil
}

func (r *Registry) idOf(canonical string) int {
	for i, s := range r.schemas {
		if s == canonical {
			return i + 1
		}
	}
	return 0
}

// incompatibilities checks that reader can read data written with writerID.
func (r *Registry) incompatibilities(reader hamba.Schema, writerID int) []string {
	writer, err := hamba.ParseWithCache(r.schemas[writerID-1], "", &hamba.SchemaCache{})
	if err != nil {
		return []string{err.Error()}
	}
	if err := hamba.NewSchemaCompatibility().Compatible(reader, writer); err != nil {
		return []string{err.Error()}
	}
	return nil
}

func (r *Registry) Subjects() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	res := make([]string, 0, len(r.subjects))
	for s := range r.subjects {
		res = append(res, s)
	}
	sort.Strings(res)
	return res
}

func (r *Registry) Versions(subject string) ([]int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	versions, in := r.subjects[subject]
	if !in {
		return nil, subjectNotFound(subject)
	}
	res := make([]int, len(versions))
	for i := range versions {
		res[i] = i + 1
	}
	return res, nil
}

// Schema returns the id and schema of a version; version 0 means the latest one.
func (r *Registry) Schema(subject string, version int) (id int, schema string, err error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	versions, in := r.subjects[subject]
	if !in {
		return 0, "", subjectNotFound(subject)
	}
	if version == 0 {
		version = len(versions)
	}
	if version < 1 || version > len(versions) {
		return 0, "", &registryError{code: codeVersionNotFound, message: fmt.Sprintf("version %d of subject %s not found", version, subject)}
	}
	id = versions[version-1]
	return id, r.schemas[id-1], nil
}

// Compatible checks schema against one version of subject.
func (r *Registry) Compatible(subject string, version int, schema string) ([]string, error) {
	_, parsed, err := validate(schema)
	if err != nil {
		return nil, err
	}

	id, _, err := r.Schema(subject, version)
	if err != nil {
		return nil, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.incompatibilities(parsed, id), nil
}

func subjectNotFound(subject string) error {
	return &registryError{code: codeSubjectNotFound, message: fmt.Sprintf("subject %s not found", subject)}
}
