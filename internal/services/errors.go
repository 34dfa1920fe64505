package services

import (
	"errors"
	"fmt"
)

// ErrNotFound reports that the targeted task or user does not exist. It is
// one of the two error kinds (with ValidationError) that task mutations are
// allowed to surface to callers; side-effect failures are logged and swallowed.
var ErrNotFound = errors.New("record not found")

// ErrVersionConflict reports a lost optimistic-concurrency race: the update
// carried a version that no longer matches the stored row.
var ErrVersionConflict = errors.New("version conflict")

type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed on %s: %s", e.Field, e.Message)
}

func IsValidationError(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
