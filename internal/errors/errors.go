package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrorType represents different categories of errors
type ErrorType string

const (
	ErrorTypeValidation       ErrorType = "validation"
	ErrorTypeImageResolution  ErrorType = "image_resolution"
	ErrorTypeEngine           ErrorType = "engine_failure"
	ErrorTypeNoDetections     ErrorType = "no_detections"
	ErrorTypeNoConfidentLabel ErrorType = "no_confident_label"
	ErrorTypeCancelled        ErrorType = "cancelled"
	ErrorTypeTimeout          ErrorType = "timeout"
	ErrorTypeInternal         ErrorType = "internal"
)

// AppError represents a structured application error
type AppError struct {
	Type       ErrorType `json:"type"`
	Message    string    `json:"message"`
	Details    string    `json:"details,omitempty"`
	StatusCode int       `json:"status_code"`
	Cause      error     `json:"-"`
}

// Error implements the error interface
func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Type, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// Unwrap returns the underlying error
func (e *AppError) Unwrap() error {
	return e.Cause
}

func newAppError(t ErrorType, status int, message string, cause error) *AppError {
	appErr := &AppError{
		Type:       t,
		Message:    message,
		StatusCode: status,
		Cause:      cause,
	}
	if cause != nil {
		appErr.Details = cause.Error()
	}
	return appErr
}

// NewValidationError creates a new validation error
func NewValidationError(message string, cause error) *AppError {
	return newAppError(ErrorTypeValidation, http.StatusBadRequest, message, cause)
}

// NewImageResolutionError reports that the source image could not be loaded or decoded
func NewImageResolutionError(message string, cause error) *AppError {
	return newAppError(ErrorTypeImageResolution, http.StatusUnprocessableEntity, message, cause)
}

// NewEngineError reports a failure inside the detection engine. The cause is kept for diagnostics.
func NewEngineError(message string, cause error) *AppError {
	return newAppError(ErrorTypeEngine, http.StatusBadGateway, message, cause)
}

// NewNoDetectionsError reports that the engine found zero objects
func NewNoDetectionsError() *AppError {
	return newAppError(ErrorTypeNoDetections, http.StatusNotFound, "No Objects Detected", nil)
}

// NewNoConfidentLabelError reports that objects were found but none produced a label
func NewNoConfidentLabelError(detections int) *AppError {
	appErr := newAppError(ErrorTypeNoConfidentLabel, http.StatusNotFound, "No Label Found", nil)
	appErr.Details = fmt.Sprintf("%d object(s) detected, none met the label selection policy", detections)
	return appErr
}

// NewCancelledError reports that the caller cancelled the call before it resolved
func NewCancelledError(cause error) *AppError {
	return newAppError(ErrorTypeCancelled, http.StatusRequestTimeout, "Detection cancelled", cause)
}

// NewTimeoutError creates a new timeout error
func NewTimeoutError(message string, cause error) *AppError {
	return newAppError(ErrorTypeTimeout, http.StatusGatewayTimeout, message, cause)
}

// NewInternalError creates a new internal error
func NewInternalError(message string, cause error) *AppError {
	return newAppError(ErrorTypeInternal, http.StatusInternalServerError, message, cause)
}

// IsType checks if the error (or any error it wraps) is of a specific type
func IsType(err error, errorType ErrorType) bool {
	return TypeOf(err) == errorType
}

// TypeOf returns the ErrorType of err, or ErrorTypeInternal for foreign errors
func TypeOf(err error) ErrorType {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Type
	}
	return ErrorTypeInternal
}

// GetStatusCode extracts the HTTP status code from an error
func GetStatusCode(err error) int {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.StatusCode
	}
	return http.StatusInternalServerError
}
