package study

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is wrapped by stores when a course, topic or dependency id
	// does not exist.
	ErrNotFound = errors.New("not found")
	// ErrConflict is wrapped when a write would violate a uniqueness or
	// acyclicity constraint.
	ErrConflict = errors.New("conflict")
)

// ValidationError reports a rejected input value. No state is changed when it
// is returned.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Invalid builds a ValidationError.
func Invalid(field, format string, args ...any) error {
	return &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)}
}

// NotFound wraps ErrNotFound with the kind and id of the missing record.
func NotFound(kind string, id int64) error {
	return fmt.Errorf("%s %d: %w", kind, id, ErrNotFound)
}

// Conflict wraps ErrConflict with a description.
func Conflict(format string, args ...any) error {
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), ErrConflict)
}
