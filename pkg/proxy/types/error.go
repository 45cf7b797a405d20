package types

import (
	"fmt"
	"net/http"
)

// ErrorResponse is the JSON body returned for every error condition.
type ErrorResponse struct {
	// Error is a human-readable message.
	Error string `json:"error"`

	// Type categorizes the error.
	Type string `json:"type,omitempty"`

	// Param names the offending request field, if any.
	Param string `json:"param,omitempty"`

	// Status is the HTTP status written with the body.
	Status int `json:"-"`
}

// Error type constants.
const (
	// ErrorTypeInvalidRequest indicates a client-side error (400).
	ErrorTypeInvalidRequest = "invalid_request_error"

	// ErrorTypeBackend indicates the backend failed or answered non-2xx.
	ErrorTypeBackend = "backend_error"

	// ErrorTypeStorage indicates history persistence failed.
	ErrorTypeStorage = "storage_error"

	// ErrorTypeServerError indicates an internal server error (500).
	ErrorTypeServerError = "server_error"

	// ErrorTypeNotImplemented indicates an optional capability is missing (501).
	ErrorTypeNotImplemented = "not_implemented"
)

// NewErrorResponse creates an error response.
func NewErrorResponse(status int, message, errorType, param string) *ErrorResponse {
	return &ErrorResponse{
		Error:  message,
		Type:   errorType,
		Param:  param,
		Status: status,
	}
}

// NewInvalidRequestError creates an error response for invalid requests (400).
func NewInvalidRequestError(message, param string) *ErrorResponse {
	return NewErrorResponse(http.StatusBadRequest, message, ErrorTypeInvalidRequest, param)
}

// NewServerError creates an error response for internal server errors (500).
func NewServerError(message string) *ErrorResponse {
	return NewErrorResponse(http.StatusInternalServerError, message, ErrorTypeServerError, "")
}

// HTTPStatusCode returns the status to write, defaulting to 500.
func (e *ErrorResponse) HTTPStatusCode() int {
	if e.Status < 400 || e.Status > 599 {
		return http.StatusInternalServerError
	}
	return e.Status
}

// ValidationError reports a malformed request. It never reaches the backend.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// NewValidationError creates a ValidationError.
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Field: field, Message: message}
}

// BackendError reports a failed backend call. StatusCode is the backend's
// status, or 0 when the backend could not be reached.
type BackendError struct {
	StatusCode int
	Body       string
	Cause      error
}

func (e *BackendError) Error() string {
	if e.StatusCode == 0 {
		return fmt.Sprintf("backend unreachable: %v", e.Cause)
	}
	return fmt.Sprintf("API request failed: %s", e.Body)
}

func (e *BackendError) Unwrap() error {
	return e.Cause
}

// HTTPStatus is the status relayed to the client: the backend's own status,
// or 502 when no response was received.
func (e *BackendError) HTTPStatus() int {
	if e.StatusCode == 0 {
		return http.StatusBadGateway
	}
	return e.StatusCode
}

// InternalError wraps an unexpected failure. Only Message is shown to clients.
type InternalError struct {
	Message string
	Cause   error
}

func (e *InternalError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *InternalError) Unwrap() error {
	return e.Cause
}

// NewInternalError creates an InternalError.
func NewInternalError(message string, cause error) *InternalError {
	return &InternalError{Message: message, Cause: cause}
}
