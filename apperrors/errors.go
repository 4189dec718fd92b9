package apperrors

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrorType classifies an AppError for callers and the API boundary.
type ErrorType string

const (
	ErrorTypeValidation    ErrorType = "validation"
	ErrorTypeInputShape    ErrorType = "input_shape"
	ErrorTypeConfiguration ErrorType = "configuration"
	ErrorTypeModel         ErrorType = "model"
	ErrorTypeStorage       ErrorType = "storage"
)

// AppError is a structured application error.
type AppError struct {
	Type    ErrorType `json:"type"`
	Code    string    `json:"code"`
	Message string    `json:"message"`
	Field   string    `json:"field,omitempty"`
	Cause   error     `json:"-"`
}

func (e *AppError) Error() string {
	msg := e.Message
	if e.Field != "" {
		msg = fmt.Sprintf("%s (field: %s)", msg, e.Field)
	}
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, msg, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, msg)
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

// WithCause attaches the underlying error.
func (e *AppError) WithCause(cause error) *AppError {
	e.Cause = cause
	return e
}

// WithField names the offending input field.
func (e *AppError) WithField(field string) *AppError {
	e.Field = field
	return e
}

// NewValidationError reports malformed or out-of-range input rejected at the boundary.
func NewValidationError(code, message string) *AppError {
	return &AppError{Type: ErrorTypeValidation, Code: code, Message: message}
}

// NewInputShapeError reports a listing the feature engine cannot default.
func NewInputShapeError(code, message string) *AppError {
	return &AppError{Type: ErrorTypeInputShape, Code: code, Message: message}
}

// NewConfigurationError reports empty or malformed policy tables and model artifacts.
func NewConfigurationError(code, message string) *AppError {
	return &AppError{Type: ErrorTypeConfiguration, Code: code, Message: message}
}

func NewModelError(code, message string) *AppError {
	return &AppError{Type: ErrorTypeModel, Code: code, Message: message}
}

func NewStorageError(code, message string) *AppError {
	return &AppError{Type: ErrorTypeStorage, Code: code, Message: message}
}

// TypeOf returns the ErrorType of the first AppError in err's chain, or "".
func TypeOf(err error) ErrorType {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Type
	}
	return ""
}

func IsValidation(err error) bool    { return TypeOf(err) == ErrorTypeValidation }
func IsInputShape(err error) bool    { return TypeOf(err) == ErrorTypeInputShape }
func IsConfiguration(err error) bool { return TypeOf(err) == ErrorTypeConfiguration }
func IsModel(err error) bool         { return TypeOf(err) == ErrorTypeModel }

// HTTPStatus maps an error to the status code the API responds with.
func HTTPStatus(err error) int {
	switch TypeOf(err) {
	case ErrorTypeValidation:
		return http.StatusUnprocessableEntity
	case ErrorTypeInputShape:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
