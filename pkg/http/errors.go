package http

import (
	"fmt"
	"net/http"
)

// AppError represents an application-level error with a stable code and HTTP status.
type AppError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Status  int    `json:"-"`
	Err     error  `json:"-"`
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap returns the underlying error.
func (e *AppError) Unwrap() error {
	return e.Err
}

// NewAppError creates a new application error.
func NewAppError(code, message string, status int) *AppError {
	return &AppError{Code: code, Message: message, Status: status}
}

// WithError wraps an underlying error.
func (e *AppError) WithError(err error) *AppError {
	e.Err = err
	return e
}

// InvalidInputError creates a 400 error for malformed or non-finite input.
func InvalidInputError(message string) *AppError {
	return NewAppError("ERR_INVALID_INPUT", message, http.StatusBadRequest)
}

// InvalidInputErrorf creates a 400 invalid-input error with formatting.
func InvalidInputErrorf(format string, a ...interface{}) *AppError {
	return InvalidInputError(fmt.Sprintf(format, a...))
}

// ModelUnavailableError creates a 503 error for instruments with no active bundle.
func ModelUnavailableError(message string) *AppError {
	return NewAppError("ERR_MODEL_UNAVAILABLE", message, http.StatusServiceUnavailable)
}

// NotFoundError creates a 404 error.
func NotFoundError(message string) *AppError {
	return NewAppError("ERR_NOT_FOUND", message, http.StatusNotFound)
}

// StoreWriteError creates a 500 error for failed durable writes.
func StoreWriteError(message string) *AppError {
	return NewAppError("ERR_STORE_WRITE", message, http.StatusInternalServerError)
}

// InternalError creates a 500 error.
func InternalError(message string) *AppError {
	return NewAppError("ERR_INTERNAL", message, http.StatusInternalServerError)
}
