// Package errors provides the client's error taxonomy, the retry policy gate
// and the handler that observes every failed request.
package errors

import (
	"encoding/json"
	stderrors "errors"
	"fmt"
	"net/http"
	"time"
)

// Kind is the taxonomy bucket of a failed request.
type Kind int

const (
	KindGeneric Kind = iota
	KindUnauthorized
	KindForbidden
	KindNotFound
	KindConflict
	KindValidation
	KindRateLimited
	KindServer
	KindNetwork
	KindTimeout
)

var kindNames = map[Kind]string{
	KindGeneric:      "Generic",
	KindUnauthorized: "Unauthorized",
	KindForbidden:    "Forbidden",
	KindNotFound:     "NotFound",
	KindConflict:     "Conflict",
	KindValidation:   "ValidationError",
	KindRateLimited:  "RateLimited",
	KindServer:       "ServerError",
	KindNetwork:      "NetworkError",
	KindTimeout:      "Timeout",
}

// String returns a human-readable representation of the kind.
func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return fmt.Sprintf("Unknown(%d)", int(k))
}

// Sentinels matched by (*APIError).Is so callers can write
// errors.Is(err, ErrNotFound) without inspecting status codes.
var (
	ErrUnauthorized = stderrors.New("unauthorized")
	ErrForbidden    = stderrors.New("forbidden")
	ErrNotFound     = stderrors.New("not found")
	ErrConflict     = stderrors.New("conflict")
	ErrValidation   = stderrors.New("validation failed")
	ErrRateLimited  = stderrors.New("rate limited")
	ErrServer       = stderrors.New("server error")
	ErrNetwork      = stderrors.New("network error")
	ErrTimeout      = stderrors.New("request timeout")
)

var kindSentinels = map[Kind]error{
	KindUnauthorized: ErrUnauthorized,
	KindForbidden:    ErrForbidden,
	KindNotFound:     ErrNotFound,
	KindConflict:     ErrConflict,
	KindValidation:   ErrValidation,
	KindRateLimited:  ErrRateLimited,
	KindServer:       ErrServer,
	KindNetwork:      ErrNetwork,
	KindTimeout:      ErrTimeout,
}

// APIError is the single error shape surfaced for network failures, timeouts
// and non-2xx responses.
type APIError struct {
	Message string
	Status  int    // HTTP status code; 0 for transport failures
	Code    string // backend error code, if any
	Details json.RawMessage
	Kind    Kind

	Method    string
	URL       string
	RequestID string
	Header    http.Header

	// Filled in by the handler for 422 and 429 responses.
	Validation json.RawMessage
	RetryAfter time.Duration

	Err error // underlying transport error, if any
}

// Error implements the error interface.
func (e *APIError) Error() string {
	msg := e.Message
	if msg == "" {
		msg = e.Kind.String()
	}
	if e.Status > 0 {
		return fmt.Sprintf("[%s] HTTP %d: %s", e.Kind, e.Status, msg)
	}
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Kind, msg, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Kind, msg)
}

// Unwrap returns the underlying error for error chain compatibility.
func (e *APIError) Unwrap() error { return e.Err }

// Is matches the sentinel for the error's kind.
func (e *APIError) Is(target error) bool {
	s, ok := kindSentinels[e.Kind]
	return ok && s == target
}

// AsAPIError extracts an *APIError from err's chain.
func AsAPIError(err error) (*APIError, bool) {
	var apiErr *APIError
	if stderrors.As(err, &apiErr) {
		return apiErr, true
	}
	return nil, false
}

// StatusOf returns the HTTP status carried by err, or -1 when err is not an
// *APIError.
func StatusOf(err error) int {
	if apiErr, ok := AsAPIError(err); ok {
		return apiErr.Status
	}
	return -1
}
