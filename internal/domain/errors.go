package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound — the referenced post, comment or user does not exist.
	ErrNotFound = errors.New("not found")
	// ErrNotOwner — the acting user does not own the resource it tries to mutate.
	ErrNotOwner = errors.New("acting user is not the owner")
	// ErrAlreadyExists — uniqueness conflict, e.g. seeding a user twice.
	ErrAlreadyExists = errors.New("already exists")
)

// ValidationError reports a missing or malformed input field. It is never
// retried; callers map it to a client error.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// IsValidation reports whether err is (or wraps) a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
