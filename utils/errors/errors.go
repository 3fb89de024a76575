package errors

import (
	"fmt"
	"net/http"
)

// APIError represents a custom error type for API responses
type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Status  int    `json:"status"`
	Details string `json:"details,omitempty"`
}

// Error returns the error message
func (e *APIError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func NewAPIError(code, message string, status int, details ...string) *APIError {
	err := &APIError{
		Code:    code,
		Message: message,
		Status:  status,
	}
	if len(details) > 0 {
		err.Details = details[0]
	}
	return err
}

var (
	ErrInvalidInput     = NewAPIError("INVALID_INPUT", "Invalid request data", http.StatusBadRequest)
	ErrUnauthorized     = NewAPIError("UNAUTHORIZED", "Authentication required", http.StatusUnauthorized)
	ErrNotAuthenticated = NewAPIError("NOT_AUTHENTICATED", "Sign in to perform this action", http.StatusUnauthorized)
	ErrForbidden        = NewAPIError("FORBIDDEN", "Insufficient permissions", http.StatusForbidden)
	ErrNotFound         = NewAPIError("NOT_FOUND", "Resource not found", http.StatusNotFound)
	ErrInternal         = NewAPIError("INTERNAL_SERVER_ERROR", "Internal server error", http.StatusInternalServerError)
	ErrConflict         = NewAPIError("CONFLICT", "Resource conflict", http.StatusConflict)
	ErrNotConfigured    = NewAPIError("CONFIG_ERROR", "Backing store is not configured", http.StatusServiceUnavailable)
	ErrStoreUnavailable = NewAPIError("STORE_UNAVAILABLE", "Store operation failed", http.StatusBadGateway)
)

func Wrap(err error, code, message string, status int) *APIError {
	if apiErr, ok := err.(*APIError); ok {
		return apiErr
	}
	return NewAPIError(code, message, status, err.Error())
}

// Is reports whether err carries the same stable code as target. Callers use
// it to map taxonomy kinds to user-facing behavior without string matching.
func Is(err error, target *APIError) bool {
	apiErr, ok := err.(*APIError)
	return ok && target != nil && apiErr.Code == target.Code
}
