package mapper

import (
	"errors"
	"fmt"
)

var (
	// ErrSchemaViolation is the cause of every FieldError.
	ErrSchemaViolation = errors.New("schema violation")

	// ErrTableNameCollision is returned when the multiplexed table-name field
	// is already declared by the schema.
	ErrTableNameCollision = errors.New("table name field already defined by schema")
)

// FieldError reports a raw value that does not fit its declared type.
type FieldError struct {
	Object string

	// Field is the path of the value: "status", "via.channel", "tags[2]".
	Field string

	Reason string
}

// Error implements the error interface.
func (e *FieldError) Error() string {
	return fmt.Sprintf("%s: field %q: %s", e.Object, e.Field, e.Reason)
}

// Unwrap returns ErrSchemaViolation.
func (e *FieldError) Unwrap() error {
	return ErrSchemaViolation
}
