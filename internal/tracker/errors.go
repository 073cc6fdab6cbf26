package tracker

import (
	"errors"
	"fmt"

	"github.com/nhle/task-tracker/internal/access"
	"github.com/nhle/task-tracker/internal/store"
)

// Error kinds returned by Service operations. Test with errors.Is.
var (
	// ErrValidation marks a missing or malformed input field.
	ErrValidation = errors.New("validation failed")

	// ErrNotFound marks a task, checklist item, or user that does not exist.
	ErrNotFound = store.ErrNotFound

	// ErrForbidden marks a caller lacking the required role or ownership.
	ErrForbidden = access.ErrForbidden

	// ErrConflict is reserved for optimistic concurrency. Nothing raises it yet.
	ErrConflict = errors.New("conflict")

	// ErrStorage marks an attachment read or write failure.
	ErrStorage = errors.New("attachment storage failed")
)

// ValidationError names the offending field of a rejected input.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Is makes errors.Is(err, ErrValidation) hold for every ValidationError.
func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

func invalid(field, message string) error {
	return &ValidationError{Field: field, Message: message}
}
