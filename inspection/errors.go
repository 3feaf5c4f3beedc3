/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package inspection

import (
	"errors"
	"strings"
)

// ErrUnknownKind is returned when a kind is not one of Kinds.
var ErrUnknownKind = errors.New("unknown record kind")

// ErrNotFound is returned when a record does not exist.
var ErrNotFound = errors.New("record not found")

// FieldError describes a problem with one input field.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationError is returned when input data is not acceptable.
type ValidationError struct {
	Fields []FieldError
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		parts = append(parts, f.Field+": "+f.Message)
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

func (e *ValidationError) add(field, message string) {
	e.Fields = append(e.Fields, FieldError{Field: field, Message: message})
}

func (e *ValidationError) errOrNil() error {
	if len(e.Fields) == 0 {
		return nil
	}
	return e
}
