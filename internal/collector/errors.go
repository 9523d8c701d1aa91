package collector

import (
	"encoding/json"
	"fmt"
)

// MissingFieldError reports an expected key absent from an API response.
type MissingFieldError struct {
	Resource string
	Field    string
}

func (e *MissingFieldError) Error() string {
	return fmt.Sprintf("%s: missing field %q", e.Resource, e.Field)
}

// FieldTypeError reports a response field whose JSON type does not fit the
// expected Go type.
type FieldTypeError struct {
	Resource string
	Field    string
	Err      error
}

func (e *FieldTypeError) Error() string {
	return fmt.Sprintf("%s: decode field %q: %v", e.Resource, e.Field, e.Err)
}

func (e *FieldTypeError) Unwrap() error { return e.Err }

type field struct {
	name string
	dest any
}

// decodeFields requires every named key to be present in obj and decodes
// each into its destination. A key holding JSON null counts as present.
func decodeFields(resource string, obj map[string]json.RawMessage, fields ...field) error {
	for _, f := range fields {
		raw, ok := obj[f.name]
		if !ok {
			return &MissingFieldError{Resource: resource, Field: f.name}
		}
		if err := json.Unmarshal(raw, f.dest); err != nil {
			return &FieldTypeError{Resource: resource, Field: f.name, Err: err}
		}
	}
	return nil
}
