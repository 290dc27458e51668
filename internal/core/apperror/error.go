// Package apperror provides structured error handling following RFC 7807 Problem Details.
// All business errors must use AppError for consistent API responses.
package apperror

import (
	"errors"
	"fmt"
	"net/http"
)

// Error codes following domain-driven design
const (
	// Infrastructure errors (5xx)
	CodeInternal = "INTERNAL_ERROR"
	CodeDatabase = "DATABASE_ERROR"
	CodeTimeout  = "TIMEOUT_ERROR"

	// Validation errors (400)
	CodeValidation   = "VALIDATION_ERROR"
	CodeInvalidInput = "INVALID_INPUT"

	// Distribution rule violations (422)
	CodeCapacityExceeded = "TANK_CAPACITY_EXCEEDED"
	CodeQuantityMismatch = "QUANTITY_MISMATCH"

	// ERP session and remote errors
	CodeAuth           = "AUTH_FAILED"
	CodeSessionExpired = "SESSION_EXPIRED"
	CodeRemoteBusiness = "ERP_REJECTED"
	CodeRemoteNetwork  = "ERP_UNAVAILABLE"

	// Not found (404)
	CodeNotFound = "NOT_FOUND"

	// Conflict (409)
	CodeConflict            = "CONFLICT"
	CodeDuplicate           = "DUPLICATE_ENTRY"
	CodeDuplicateConversion = "DUPLICATE_CONVERSION"
)

// AppError is the standard error type for the platform.
// It implements error interface and provides structured details for API responses.
type AppError struct {
	// Code is a machine-readable error identifier
	Code string `json:"code"`

	// Message is a human-readable error description
	Message string `json:"message"`

	// Details contains additional context (field errors, quantities, remote payloads)
	Details map[string]any `json:"details,omitempty"`

	// HTTPStatus is the suggested HTTP status code
	HTTPStatus int `json:"-"`

	// Err is the underlying error (not exposed in JSON)
	Err error `json:"-"`
}

// Error implements error interface
func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying error for errors.Is/As support
func (e *AppError) Unwrap() error {
	return e.Err
}

// WithDetail adds a key-value pair to error details
func (e *AppError) WithDetail(key string, value any) *AppError {
	if e.Details == nil {
		e.Details = make(map[string]any)
	}
	e.Details[key] = value
	return e
}

// WithCause sets the underlying error
func (e *AppError) WithCause(err error) *AppError {
	e.Err = err
	return e
}

// --- Factory functions for common errors ---

// NewValidation creates a validation error (400)
func NewValidation(message string) *AppError {
	return &AppError{
		Code:       CodeValidation,
		Message:    message,
		HTTPStatus: http.StatusBadRequest,
	}
}

// NewNotFound creates a not found error (404)
func NewNotFound(entity string, id any) *AppError {
	return &AppError{
		Code:       CodeNotFound,
		Message:    fmt.Sprintf("%s not found", entity),
		HTTPStatus: http.StatusNotFound,
		Details:    map[string]any{"entity": entity, "id": id},
	}
}

// NewCapacityExceeded creates a tank capacity violation error (422)
func NewCapacityExceeded(tankID, requested, capacity string) *AppError {
	return &AppError{
		Code:       CodeCapacityExceeded,
		Message:    "Distribution exceeds tank capacity",
		HTTPStatus: http.StatusUnprocessableEntity,
		Details: map[string]any{
			"tank_id":   tankID,
			"requested": requested,
			"capacity":  capacity,
		},
	}
}

// NewQuantityMismatch creates an aggregate liters mismatch error (422)
func NewQuantityMismatch(expected, assigned string) *AppError {
	return &AppError{
		Code:       CodeQuantityMismatch,
		Message:    "Distributed liters do not match invoice total",
		HTTPStatus: http.StatusUnprocessableEntity,
		Details: map[string]any{
			"expected": expected,
			"assigned": assigned,
		},
	}
}

// NewAuth creates an ERP login failure error (502)
func NewAuth(message string) *AppError {
	return &AppError{
		Code:       CodeAuth,
		Message:    message,
		HTTPStatus: http.StatusBadGateway,
	}
}

// NewSessionExpired signals the ERP session-expired status.
// Transient: the session client recovers it once before surfacing.
func NewSessionExpired() *AppError {
	return &AppError{
		Code:       CodeSessionExpired,
		Message:    "ERP session expired",
		HTTPStatus: http.StatusBadGateway,
	}
}

// NewRemoteBusiness creates an error for a document the ERP rejected for
// domain reasons. The remote payload is attached verbatim for operator diagnosis.
func NewRemoteBusiness(message string, payload any) *AppError {
	return &AppError{
		Code:       CodeRemoteBusiness,
		Message:    message,
		HTTPStatus: http.StatusUnprocessableEntity,
		Details:    map[string]any{"remote": payload},
	}
}

// NewRemoteNetwork creates an error for a network-level ERP failure (502).
// Classified separately from business rejections: retryable at the caller's discretion.
func NewRemoteNetwork(err error) *AppError {
	return &AppError{
		Code:       CodeRemoteNetwork,
		Message:    "ERP unreachable",
		HTTPStatus: http.StatusBadGateway,
		Err:        err,
	}
}

// NewDuplicateConversion is returned when a stage transition is re-invoked for
// an invoice whose target stage identifier is already recorded.
func NewDuplicateConversion(stage, number string) *AppError {
	return &AppError{
		Code:       CodeDuplicateConversion,
		Message:    fmt.Sprintf("Stage %s already recorded", stage),
		HTTPStatus: http.StatusConflict,
		Details:    map[string]any{"stage": stage, "number": number},
	}
}

// NewInternal creates an internal server error (hides details from client)
func NewInternal(err error) *AppError {
	return &AppError{
		Code:       CodeInternal,
		Message:    "Internal server error",
		HTTPStatus: http.StatusInternalServerError,
		Err:        err,
	}
}

// NewConflict creates a conflict error (409)
func NewConflict(message string) *AppError {
	return &AppError{
		Code:       CodeConflict,
		Message:    message,
		HTTPStatus: http.StatusConflict,
	}
}

// NewDuplicate creates a duplicate entry error (409)
func NewDuplicate(entity, field, value string) *AppError {
	return &AppError{
		Code:       CodeDuplicate,
		Message:    fmt.Sprintf("%s with this %s already exists", entity, field),
		HTTPStatus: http.StatusConflict,
		Details:    map[string]any{"entity": entity, "field": field, "value": value},
	}
}

// --- Helper functions ---

// IsAppError checks if error is AppError
func IsAppError(err error) bool {
	var appErr *AppError
	return errors.As(err, &appErr)
}

// AsAppError extracts AppError from error chain
func AsAppError(err error) (*AppError, bool) {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// GetHTTPStatus returns appropriate HTTP status for any error
func GetHTTPStatus(err error) int {
	if appErr, ok := AsAppError(err); ok {
		return appErr.HTTPStatus
	}
	return http.StatusInternalServerError
}

// IsNotFound checks if error is CodeNotFound
func IsNotFound(err error) bool {
	if appErr, ok := AsAppError(err); ok {
		return appErr.Code == CodeNotFound
	}
	return false
}

// IsDuplicateConversion checks if error is CodeDuplicateConversion
func IsDuplicateConversion(err error) bool {
	if appErr, ok := AsAppError(err); ok {
		return appErr.Code == CodeDuplicateConversion
	}
	return false
}

// IsRetryable reports whether the error is a transient remote failure.
func IsRetryable(err error) bool {
	if appErr, ok := AsAppError(err); ok {
		return appErr.Code == CodeRemoteNetwork || appErr.Code == CodeTimeout
	}
	return false
}
