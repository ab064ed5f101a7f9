// Package apierr defines the error taxonomy shared by every subsystem,
// so the HTTP layer never has to improvise error JSON per handler.
package apierr

import (
	"fmt"
	"net/http"
)

// Code is a stable, client-facing error discriminator.
type Code string

// Client-facing taxonomy (spec.md §7).
const (
	CodeInvalidAddress     Code = "INVALID_ADDRESS"
	CodeInvalidParameters  Code = "INVALID_PARAMETERS"
	CodeInvalidCursor      Code = "INVALID_CURSOR"
	CodeInvalidCursorData  Code = "INVALID_CURSOR_DATA"
	CodeAddressNotFound    Code = "ADDRESS_NOT_FOUND"
	CodeDepthLimitExceeded Code = "DEPTH_LIMIT_EXCEEDED"
	CodeQueryTimeout       Code = "QUERY_TIMEOUT"
	CodeRateLimited        Code = "RATE_LIMITED"
	CodeQueryTooComplex    Code = "QUERY_TOO_COMPLEX"
	CodeUpstreamUnavailable Code = "UPSTREAM_UNAVAILABLE"
	CodeCircuitOpen        Code = "CIRCUIT_OPEN"
	CodeInternalError      Code = "INTERNAL_ERROR"

	// Internal-only taxonomy. Nothing maps these to the codes above:
	// AsAPIError passes them through unchanged and HTTPStatus answers
	// 500 for them.
	CodeConcurrentQuery    Code = "CONCURRENT_QUERY"
	CodeRowLimitExceeded   Code = "ROW_LIMIT_EXCEEDED"
	CodeMemoryLimitExceeded Code = "MEMORY_LIMIT_EXCEEDED"

	// Upstream fetch-fabric taxonomy (spec.md §4.4). CodeRateLimitedUpstream
	// shares the RATE_LIMITED value (429); the others pass through
	// AsAPIError unchanged and HTTPStatus answers 500 for them.
	CodeRateLimitedUpstream Code = "RATE_LIMITED"
	CodeAPIUnavailable     Code = "API_UNAVAILABLE"
	CodeNoData             Code = "NO_DATA"
	CodeNetworkError       Code = "NETWORK_ERROR"
	CodeAPIKeyInvalid      Code = "API_KEY_INVALID"
	CodeCircuitBreakerOpen Code = "CIRCUIT_BREAKER_OPEN"
)

// httpStatus maps a client-facing code to its HTTP status.
var httpStatus = map[Code]int{
	CodeInvalidAddress:      http.StatusBadRequest,
	CodeInvalidParameters:   http.StatusBadRequest,
	CodeInvalidCursor:       http.StatusBadRequest,
	CodeInvalidCursorData:   http.StatusBadRequest,
	CodeAddressNotFound:     http.StatusNotFound,
	CodeDepthLimitExceeded:  http.StatusBadRequest,
	CodeQueryTimeout:        http.StatusGatewayTimeout,
	CodeRateLimited:         http.StatusTooManyRequests,
	CodeQueryTooComplex:     http.StatusBadRequest,
	CodeUpstreamUnavailable: http.StatusBadGateway,
	CodeCircuitOpen:         http.StatusServiceUnavailable,
	CodeInternalError:       http.StatusInternalServerError,
}

// Error is the structured error type threaded through every subsystem.
// It always carries a Code and a user-facing Message; Cause holds the
// underlying error for logging only — it is never serialized to the
// client.
type Error struct {
	Code    Code
	Message string
	Details map[string]interface{}
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.Cause }

// New builds an Error with no underlying cause.
func New(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

// Wrap builds an Error that carries an underlying cause for logging.
func Wrap(code Code, message string, cause error) *Error {
	return &Error{Code: code, Message: message, Cause: cause}
}

// WithDetails attaches field-level detail (used for validation errors).
func (e *Error) WithDetails(d map[string]interface{}) *Error {
	e.Details = d
	return e
}

// HTTPStatus resolves the HTTP status for code, defaulting to 500 for
// any internal-only or unrecognized code.
func HTTPStatus(code Code) int {
	if status, ok := httpStatus[code]; ok {
		return status
	}
	return http.StatusInternalServerError
}

// AsAPIError unwraps err into *Error if possible, otherwise wraps it as
// an opaque INTERNAL_ERROR — callers at the API boundary MUST go
// through this so stack traces never leak into a response body.
func AsAPIError(err error) *Error {
	if err == nil {
		return nil
	}
	if apiErr, ok := err.(*Error); ok {
		return apiErr
	}
	return Wrap(CodeInternalError, "an internal error occurred", err)
}
