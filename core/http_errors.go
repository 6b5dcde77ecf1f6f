package core

import "net/http"

// HTTPError represents an HTTP error with a status code and a
// client-facing message. The message is safe to render in responses;
// upstream detail (gateway errors, signature material) must never be
// placed here.
type HTTPError struct {
	Code    int    // HTTP status code
	Message string // Client-facing message
}

// Error implements the error interface.
func (e HTTPError) Error() string {
	return e.Message
}

var (
	ErrBadRequest          = HTTPError{Code: http.StatusBadRequest, Message: "Bad request"}
	ErrUnauthorized        = HTTPError{Code: http.StatusUnauthorized, Message: "Unauthorized"}
	ErrForbidden           = HTTPError{Code: http.StatusForbidden, Message: "Forbidden"}
	ErrNotFound            = HTTPError{Code: http.StatusNotFound, Message: "Not found"}
	ErrConflict            = HTTPError{Code: http.StatusConflict, Message: "Conflict"}
	ErrTooManyRequests     = HTTPError{Code: http.StatusTooManyRequests, Message: "Too many requests"}
	ErrInternalServerError = HTTPError{Code: http.StatusInternalServerError, Message: "Internal server error"}
)

// NewHTTPError creates an HTTP error with the given status code and
// client-facing message.
//
// Example:
//
//	err := core.NewHTTPError(http.StatusNotFound, "User not found")
func NewHTTPError(code int, message string) HTTPError {
	return HTTPError{Code: code, Message: message}
}
