package mapper

import (
	"errors"
	"fmt"
	"github.com/siegeai/javro/jsonschema"
)

// NotAnObjectError is returned when the document root is not an object schema.
type NotAnObjectError struct {
	Type jsonschema.Type
}

func (e *NotAnObjectError) Error() string {
	return fmt.Sprintf("can only convert objects to records (got type '%s')", e.Type)
}

type MissingItemsError struct {
	Key       string
	Namespace string
}

func (e *MissingItemsError) Error() string {
	return fmt.Sprintf("array for key '%s' in namespace '%s' must specify what type its 'items' are", e.Key, e.Namespace)
}

// UndeterminedTypeError is returned for a property with neither type nor oneOf/allOf.
type UndeterminedTypeError struct {
	Key       string
	Namespace string
}

func (e *UndeterminedTypeError) Error() string {
	return fmt.Sprintf("unable to determine avro type(s) for property '%s' with namespace '%s'", e.Key, e.Namespace)
}

type UnknownTypeError struct {
	Key       string
	Namespace string
	Type      string
}

func (e *UnknownTypeError) Error() string {
	return fmt.Sprintf("can't work out what type '%s' for key '%s' in namespace '%s' should be in avro", e.Type, e.Key, e.Namespace)
}

type DepthExceededError struct {
	Key       string
	Namespace string
	Depth     int
}

func (e *DepthExceededError) Error() string {
	return fmt.Sprintf("schema for key '%s' in namespace '%s' is nested deeper than %d levels", e.Key, e.Namespace, e.Depth)
}

// IsMappingError reports whether err, or anything it wraps, comes from the schema
// content rather than from loading it.
func IsMappingError(err error) bool {
	var (
		notAnObject  *NotAnObjectError
		missingItems *MissingItemsError
		undetermined *UndeterminedTypeError
		unknown      *UnknownTypeError
		tooDeep      *DepthExceededError
	)
	return errors.As(err, &notAnObject) ||
		errors.As(err, &missingItems) ||
		errors.As(err, &undetermined) ||
		errors.As(err, &unknown) ||
		errors.As(err, &tooDeep)
}
