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

	// Validation errors (400)
	CodeValidation   = "VALIDATION_ERROR"
	CodeInvalidInput = "INVALID_INPUT"

	// Business rule violations (422)
	CodeBusinessRule           = "BUSINESS_RULE_VIOLATION"
	CodeInsufficientFunds      = "INSUFFICIENT_FUNDS"
	CodeInvalidSplitConfig     = "INVALID_SPLIT_CONFIGURATION"
	CodeContentionExceeded     = "CONTENTION_EXCEEDED"
	CodeConcurrentModification = "CONCURRENT_MODIFICATION"
	CodeAccountArchived        = "ACCOUNT_ARCHIVED"
	CodePeriodClosed           = "PERIOD_CLOSED"

	// Not found (404)
	CodeNotFound = "NOT_FOUND"

	// Conflict (409)
	CodeConflict  = "CONFLICT"
	CodeDuplicate = "DUPLICATE_ENTRY"
)

// AppError is the standard error type for the platform.
// It implements error interface and provides structured details for API responses.
type AppError struct {
	// Code is a machine-readable error identifier
	Code string `json:"code"`

	// Message is a human-readable error description
	Message string `json:"message"`

	// Details contains additional context (field errors, amounts, etc.)
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

// NewBusinessRule creates a business rule violation error (422)
func NewBusinessRule(code, message string) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: http.StatusUnprocessableEntity,
	}
}

// NewInsufficientFunds is returned when a debit would drive a
// non-negative-balance account below zero. Nothing is written.
func NewInsufficientFunds(accountID string, requested, available string) *AppError {
	return &AppError{
		Code:       CodeInsufficientFunds,
		Message:    "Insufficient funds",
		HTTPStatus: http.StatusUnprocessableEntity,
		Details: map[string]any{
			"account_id": accountID,
			"requested":  requested,
			"available":  available,
		},
	}
}

// NewInvalidSplitConfig is a configuration-time error: split percentages do
// not sum to exactly 100. Should fail fast at startup, never at call time.
func NewInvalidSplitConfig(message string) *AppError {
	return &AppError{
		Code:       CodeInvalidSplitConfig,
		Message:    message,
		HTTPStatus: http.StatusUnprocessableEntity,
	}
}

// NewContentionExceeded is returned once the optimistic-retry attempts are
// exhausted. Retryable later by the caller.
func NewContentionExceeded(attempts int) *AppError {
	return &AppError{
		Code:       CodeContentionExceeded,
		Message:    "Too many concurrent updates, try again later",
		HTTPStatus: http.StatusConflict,
		Details:    map[string]any{"attempts": attempts},
	}
}

// NewConcurrentModification creates an optimistic locking error
func NewConcurrentModification(entity string, id any) *AppError {
	return &AppError{
		Code:       CodeConcurrentModification,
		Message:    "Record was modified by another writer",
		HTTPStatus: http.StatusConflict,
		Details:    map[string]any{"entity": entity, "id": id},
	}
}

// NewAccountArchived is returned when posting against a soft-archived account.
func NewAccountArchived(accountID string) *AppError {
	return &AppError{
		Code:       CodeAccountArchived,
		Message:    "Account is archived",
		HTTPStatus: http.StatusUnprocessableEntity,
		Details:    map[string]any{"account_id": accountID},
	}
}

// NewPeriodClosed is returned when a movement is dated at or before the
// account's latest corte. Such a movement would fall outside every
// reconciliation period and silently corrupt subsequent discrepancies.
func NewPeriodClosed(accountID, occurredAt, closedThrough string) *AppError {
	return &AppError{
		Code:       CodePeriodClosed,
		Message:    "Movement dated inside a closed period",
		HTTPStatus: http.StatusUnprocessableEntity,
		Details: map[string]any{
			"account_id":     accountID,
			"occurred_at":    occurredAt,
			"closed_through": closedThrough,
		},
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

// IsInsufficientFunds checks if error is CodeInsufficientFunds
func IsInsufficientFunds(err error) bool {
	if appErr, ok := AsAppError(err); ok {
		return appErr.Code == CodeInsufficientFunds
	}
	return false
}

// IsConcurrentModification checks if error is CodeConcurrentModification
func IsConcurrentModification(err error) bool {
	if appErr, ok := AsAppError(err); ok {
		return appErr.Code == CodeConcurrentModification
	}
	return false
}

// IsContentionExceeded checks if error is CodeContentionExceeded
func IsContentionExceeded(err error) bool {
	if appErr, ok := AsAppError(err); ok {
		return appErr.Code == CodeContentionExceeded
	}
	return false
}

// IsPeriodClosed checks if error is CodePeriodClosed
func IsPeriodClosed(err error) bool {
	if appErr, ok := AsAppError(err); ok {
		return appErr.Code == CodePeriodClosed
	}
	return false
}

// IsDuplicate checks if error is CodeDuplicate
func IsDuplicate(err error) bool {
	if appErr, ok := AsAppError(err); ok {
		return appErr.Code == CodeDuplicate
	}
	return false
}
