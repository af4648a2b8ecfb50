// Package shared provides domain types used across all record families.
package shared

import (
	"errors"
	"fmt"
)

// Domain errors.
var (
	ErrNotFound           = errors.New("not found")
	ErrAlreadyExists      = errors.New("already exists")
	ErrInvalidInput       = errors.New("invalid input")
	ErrUnauthorized       = errors.New("unauthorized")
	ErrForbidden          = errors.New("forbidden")
	ErrInternal           = errors.New("internal error")
	ErrValidation         = errors.New("validation error")
	ErrMalformedInput     = errors.New("malformed input")
	ErrUnrecognizedFormat = errors.New("unrecognized format")
)

// DomainError carries a machine-readable code next to the wrapped cause.
type DomainError struct {
	Code    string
	Message string
	Err     error
}

// Error implements the error interface.
func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying error.
func (e *DomainError) Unwrap() error {
	return e.Err
}

// NewDomainError creates a new DomainError.
func NewDomainError(code, message string, err error) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// IsNotFound checks if the error is a not found error.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsMalformedInput checks if the error indicates an unparseable upload.
func IsMalformedInput(err error) bool {
	return errors.Is(err, ErrMalformedInput)
}

// IsUnrecognizedFormat checks if the error indicates an unknown source format.
func IsUnrecognizedFormat(err error) bool {
	return errors.Is(err, ErrUnrecognizedFormat)
}
