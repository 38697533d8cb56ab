package api

import "fmt"

// Status is the canonical status string in a Google-style error envelope.
type Status string

const (
	StatusInvalidArgument   Status = "INVALID_ARGUMENT"
	StatusUnauthenticated   Status = "UNAUTHENTICATED"
	StatusNotFound          Status = "NOT_FOUND"
	StatusResourceExhausted Status = "RESOURCE_EXHAUSTED"
	StatusInternal          Status = "INTERNAL"
	StatusUnavailable       Status = "UNAVAILABLE"
)

// Error is the structured error returned to callers, wire-compatible with
// the generativelanguage error envelope.
type Error struct {
	Code    int    `json:"code"`
	Status  Status `json:"status"`
	Message string `json:"message"`
}

// Error implements the error interface.
func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Status, e.Message)
}

// ErrorResponse wraps an Error for top-level JSON serialization.
type ErrorResponse struct {
	Error *Error `json:"error"`
}

// NewInvalidArgument creates an Error for malformed or invalid requests.
func NewInvalidArgument(message string) *Error {
	return &Error{Code: 400, Status: StatusInvalidArgument, Message: message}
}

// NewUnauthenticated creates an Error for missing or invalid credentials.
func NewUnauthenticated(message string) *Error {
	return &Error{Code: 401, Status: StatusUnauthenticated, Message: message}
}

// NewNotFound creates an Error for unknown models or endpoints.
func NewNotFound(message string) *Error {
	return &Error{Code: 404, Status: StatusNotFound, Message: message}
}

// NewResourceExhausted creates an Error for rate limiting.
func NewResourceExhausted(message string) *Error {
	return &Error{Code: 429, Status: StatusResourceExhausted, Message: message}
}

// NewInternal creates an Error for gateway-side failures.
func NewInternal(message string) *Error {
	return &Error{Code: 500, Status: StatusInternal, Message: message}
}

// NewUnavailable creates an Error for backend outages.
func NewUnavailable(message string) *Error {
	return &Error{Code: 503, Status: StatusUnavailable, Message: message}
}
