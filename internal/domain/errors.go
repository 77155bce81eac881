// internal/domain/errors.go
package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrOrderNotFound is returned when a referenced order does not exist.
	ErrOrderNotFound = errors.New("order not found")
	// ErrBookNotFound is returned when a referenced book does not exist.
	ErrBookNotFound = errors.New("book not found")
	// ErrLineNotFound is returned when an order has no line for the given book.
	ErrLineNotFound = errors.New("order line not found")
	// ErrConflict is returned when a concurrent modification was detected via a
	// version mismatch. The caller may re-fetch and retry the whole operation.
	ErrConflict = errors.New("concurrent modification conflict")
)

// ValidationError reports input that is structurally valid but violates a
// business rule, e.g. insufficient stock. The message carries the numeric
// quantities involved.
type ValidationError struct {
	msg string
}

func (e *ValidationError) Error() string { return e.msg }

// Validationf builds a ValidationError from a format string.
func Validationf(format string, args ...any) error {
	return &ValidationError{msg: fmt.Sprintf(format, args...)}
}

// Class is the error taxonomy surfaced to callers of the services.
type Class int

const (
	ClassInternal Class = iota
	ClassNotFound
	ClassValidation
	ClassConflict
)

// Classify maps an error onto the taxonomy. Anything unrecognized is internal.
func Classify(err error) Class {
	var ve *ValidationError
	switch {
	case err == nil:
		return ClassInternal
	case errors.Is(err, ErrOrderNotFound),
		errors.Is(err, ErrBookNotFound),
		errors.Is(err, ErrLineNotFound):
		return ClassNotFound
	case errors.As(err, &ve):
		return ClassValidation
	case errors.Is(err, ErrConflict):
		return ClassConflict
	default:
		return ClassInternal
	}
}
