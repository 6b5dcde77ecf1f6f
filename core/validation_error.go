package core

import (
	"fmt"
	"sort"
	"strings"
)

// ValidationError collects per-field validation failures. The zero
// value is not usable; construct with NewValidationError.
type ValidationError map[string][]string

// NewValidationError creates an empty validation error.
func NewValidationError() ValidationError {
	return make(ValidationError)
}

// Error implements the error interface with a deterministic summary of
// the first failure per field.
func (e ValidationError) Error() string {
	if len(e) == 0 {
		return "validation failed"
	}

	fields := make([]string, 0, len(e))
	for field := range e {
		fields = append(fields, field)
	}
	sort.Strings(fields)

	parts := make([]string, 0, len(fields))
	for _, field := range fields {
		if msgs := e[field]; len(msgs) > 0 {
			parts = append(parts, fmt.Sprintf("%s: %s", field, msgs[0]))
		}
	}

	return "validation error: " + strings.Join(parts, ", ")
}

// Add records an error message for a field.
func (e ValidationError) Add(field, message string) {
	e[field] = append(e[field], message)
}

// Has reports whether a field has any recorded errors.
func (e ValidationError) Has(field string) bool {
	return len(e[field]) > 0
}

// IsEmpty reports whether no errors were recorded.
func (e ValidationError) IsEmpty() bool {
	return len(e) == 0
}
