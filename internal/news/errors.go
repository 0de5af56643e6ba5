package news

import (
	"errors"
	"strings"
)

var (
	ErrStoreUnavailable = errors.New("news store unavailable")
	ErrStoreCorrupt     = errors.New("news store corrupt")
	ErrInvalidID        = errors.New("invalid news id")
	ErrNotFound         = errors.New("news record not found")
	ErrMissingField     = errors.New("missing required field")
	ErrAlreadySeeded    = errors.New("news store already exists")
)

// MissingFieldError names the fields that were empty after sanitization.
// It matches ErrMissingField with errors.Is.
type MissingFieldError struct {
	Fields []string
}

func (e *MissingFieldError) Error() string {
	return ErrMissingField.Error() + ": " + strings.Join(e.Fields, ", ")
}

func (e *MissingFieldError) Is(target error) bool {
	return target == ErrMissingField
}
