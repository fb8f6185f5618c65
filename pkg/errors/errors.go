package errors

import (
	stderrors "errors"
	"fmt"
)

// ErrorType classifies application errors so transports can map them to status codes
type ErrorType string

const (
	// ErrorTypeNotFound indicates a resource was not found
	ErrorTypeNotFound ErrorType = "NOT_FOUND"

	// ErrorTypeValidation indicates a validation error
	ErrorTypeValidation ErrorType = "VALIDATION"

	// ErrorTypeInternal indicates a failure inside this service or its database
	ErrorTypeInternal ErrorType = "INTERNAL"

	// ErrorTypeExternal indicates a failure of an external dependency (search, cache, bus)
	ErrorTypeExternal ErrorType = "EXTERNAL"

	// ErrorTypeUnavailable indicates an optional dependency is not configured
	ErrorTypeUnavailable ErrorType = "UNAVAILABLE"
)

// AppError represents an application error
type AppError struct {
	Type    ErrorType
	Message string
	Err     error
}

// Error implements the error interface
func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Type, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// Unwrap implements the unwrap interface
func (e *AppError) Unwrap() error {
	return e.Err
}

func newAppError(t ErrorType, message string, err error) *AppError {
	return &AppError{Type: t, Message: message, Err: err}
}

// NewNotFoundError creates a new not found error
func NewNotFoundError(message string) *AppError {
	return newAppError(ErrorTypeNotFound, message, nil)
}

// NewValidationError creates a new validation error
func NewValidationError(message string) *AppError {
	return newAppError(ErrorTypeValidation, message, nil)
}

// NewInternalError creates a new internal error
func NewInternalError(message string, err error) *AppError {
	return newAppError(ErrorTypeInternal, message, err)
}

// NewExternalError creates a new external service error
func NewExternalError(message string, err error) *AppError {
	return newAppError(ErrorTypeExternal, message, err)
}

// NewUnavailableError reports that an optional capability is switched off
func NewUnavailableError(message string) *AppError {
	return newAppError(ErrorTypeUnavailable, message, nil)
}

// TypeOf returns the ErrorType of the first AppError in err's chain, or "" if there is none.
func TypeOf(err error) ErrorType {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr.Type
	}
	return ""
}

// IsType reports whether err carries an AppError of type t.
func IsType(err error, t ErrorType) bool {
	return err != nil && TypeOf(err) == t
}
