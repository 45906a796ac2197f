package apperror

import (
	"fmt"
	"net/http"
)

// AppError is a structured error that maps to HTTP responses.
type AppError struct {
	Code       string `json:"error_code"`
	Message    string `json:"message"`
	HTTPStatus int    `json:"-"`
	Err        error  `json:"-"` // Wrapped internal error (not exposed to client)
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// New creates a new AppError.
func New(code string, message string, httpStatus int) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: httpStatus,
	}
}

// Wrap wraps an internal error with an AppError.
func Wrap(code string, message string, httpStatus int, err error) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: httpStatus,
		Err:        err,
	}
}

// ---- Endpoints (EP) ----

func ErrEndpointNotFound() *AppError {
	return New("EP_001", "Endpoint not found or expired", http.StatusNotFound)
}

func ErrEndpointIDExhausted() *AppError {
	return New("EP_002", "Failed to allocate a unique endpoint ID", http.StatusServiceUnavailable)
}

// ---- Captured requests (REQ) ----

func ErrRequestNotFound() *AppError {
	return New("REQ_001", "Request not found", http.StatusNotFound)
}

func ErrInvalidCursor() *AppError {
	return New("REQ_002", "Invalid pagination cursor", http.StatusBadRequest)
}

func ErrPayloadTooLarge() *AppError {
	return New("REQ_003", "Payload too large", http.StatusRequestEntityTooLarge)
}

func ErrInvalidLimit() *AppError {
	return New("REQ_004", "Limit must be between 1 and 100", http.StatusBadRequest)
}

// Validation returns a generic bad-input error.
func Validation(message string) *AppError {
	return New("REQ_005", message, http.StatusBadRequest)
}

// ---- Rate Limiting (RATE) ----

func ErrRateLimitExceeded() *AppError {
	return New("RATE_001", "Rate limit exceeded", http.StatusTooManyRequests)
}

// ---- System & Infrastructure (SYS) ----

// ErrStorageUnavailable wraps a storage failure. Services never retry these
// internally; the client sees a 503 with no internal detail leaked.
func ErrStorageUnavailable(err error) *AppError {
	return Wrap("SYS_001", "Storage unavailable", http.StatusServiceUnavailable, err)
}

// InternalError wraps an unexpected internal error.
func InternalError(err error) *AppError {
	return Wrap("SYS_002", "Internal server error", http.StatusInternalServerError, err)
}
