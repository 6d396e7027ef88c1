package utils

import "net/http"

type AppError struct {
	Code    string
	Message string
	Origin  error // Original error that caused this error, if any
}

func (appErr *AppError) Error() string {
	if appErr.Origin != nil {
		return appErr.Message + ": " + appErr.Origin.Error()
	}
	return appErr.Message
}

func (appErr *AppError) Unwrap() error {
	return appErr.Origin
}

// Standard error codes for the application
const (
	// Resource errors
	ErrNotFound     = "NOT_FOUND"
	ErrInvalidInput = "INVALID_INPUT"

	// Authentication/Authorization errors
	ErrUnauthorized = "UNAUTHORIZED"
	ErrForbidden    = "FORBIDDEN" // User is authenticated but doesn't have permission
	ErrInvalidToken = "INVALID_TOKEN"

	// Network/server boundary errors
	ErrNetwork = "NETWORK_ERROR"
	ErrServer  = "SERVER_ERROR"
	ErrTimeout = "TIMEOUT"

	// Cache bookkeeping errors
	ErrStaleReference = "STALE_REFERENCE"

	// Rate limiting
	ErrTooManyRequests = "TOO_MANY_REQUESTS"
)

// Error creation helper functions
func NewAppError(code string, message string, originalErr error) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Origin:  originalErr,
	}
}

// Specific error creators for common cases
func NewUnauthorizedError(reason string) *AppError {
	return &AppError{
		Code:    ErrUnauthorized,
		Message: "Unauthorized: " + reason,
	}
}

func NewNetworkError(message string, originalErr error) *AppError {
	return &AppError{
		Code:    ErrNetwork,
		Message: message,
		Origin:  originalErr,
	}
}

func NewNotFoundError(what string) *AppError {
	return &AppError{
		Code:    ErrNotFound,
		Message: what + " not found",
	}
}

// Helper method to check if an error is of a specific type
func IsErrorCode(err error, code string) bool {
	if appErr, ok := err.(*AppError); ok {
		return appErr.Code == code
	}
	return false
}

// Helper method to check if an error is related to authentication
func IsAuthError(err error) bool {
	if appErr, ok := err.(*AppError); ok {
		return appErr.Code == ErrUnauthorized ||
			appErr.Code == ErrForbidden ||
			appErr.Code == ErrInvalidToken
	}
	return false
}

// HTTPStatusToAppError converts a backend HTTP status code into the
// application error taxonomy.
func HTTPStatusToAppError(status int, message string) *AppError {
	switch status {
	case http.StatusUnauthorized:
		return NewAppError(ErrUnauthorized, message, nil)
	case http.StatusForbidden:
		return NewAppError(ErrForbidden, message, nil)
	case http.StatusNotFound:
		return NewAppError(ErrNotFound, message, nil)
	case http.StatusBadRequest:
		return NewAppError(ErrInvalidInput, message, nil)
	case http.StatusTooManyRequests:
		return NewAppError(ErrTooManyRequests, message, nil)
	case http.StatusGatewayTimeout, http.StatusRequestTimeout:
		return NewAppError(ErrTimeout, message, nil)
	default:
		if status >= 500 {
			return NewAppError(ErrServer, message, nil)
		}
		return NewAppError(ErrNetwork, message, nil)
	}
}

// AsAppError wraps an arbitrary error as a NETWORK_ERROR unless it already
// carries an application code.
func AsAppError(err error) *AppError {
	if err == nil {
		return nil
	}
	if appErr, ok := err.(*AppError); ok {
		return appErr
	}
	return NewNetworkError("request failed", err)
}
