// Package apierror defines the error taxonomy shared by all SDK packages.
//
// Every failure surfaced by the SDK is an *Error wrapping one of the
// sentinel kinds below, so callers can branch narrowly with
// errors.Is(err, apierror.ErrNotFound) or catch everything the API said
// with errors.As(err, &apiErr).
package apierror

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// Sentinel error kinds. An *Error unwraps to exactly one of these.
var (
	ErrBadRequest     = errors.New("bad request")
	ErrAuthentication = errors.New("authentication failed")
	ErrNotFound       = errors.New("not found")
	ErrConflict       = errors.New("conflict")
	ErrValidation     = errors.New("validation failed")
	ErrRateLimit      = errors.New("rate limited")
	ErrServer         = errors.New("server error")
	ErrNetwork        = errors.New("network error")

	// ErrAPI is the fallback kind for non-2xx statuses outside the table.
	ErrAPI = errors.New("api error")
)

// FieldError is a single entry of a 422 response body, matching the
// {loc, msg, type} shape the offers API produces.
type FieldError struct {
	Loc  []any  `json:"loc"`
	Msg  string `json:"msg"`
	Type string `json:"type"`
}

func (f FieldError) String() string {
	parts := make([]string, 0, len(f.Loc))
	for _, l := range f.Loc {
		parts = append(parts, fmt.Sprint(l))
	}
	return fmt.Sprintf("%s: %s", strings.Join(parts, "."), f.Msg)
}

// ValidationDetail is the wrapper object around field errors in a 422 body.
type ValidationDetail struct {
	Detail []FieldError `json:"detail"`
}

// Error is the base error type for every failure the SDK reports.
type Error struct {
	// StatusCode is the HTTP status that produced the error, or 0 for
	// failures that never reached the server (local validation, transport).
	StatusCode int
	Message    string
	// Body holds the raw response body when one was available.
	Body []byte
	// Detail carries parsed field errors for validation failures.
	Detail *ValidationDetail

	kind  error
	cause error
}

func (e *Error) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("offers api: %d %s", e.StatusCode, e.Message)
	}
	if e.cause != nil {
		return fmt.Sprintf("offers api: %s: %v", e.Message, e.cause)
	}
	return fmt.Sprintf("offers api: %s", e.Message)
}

// Unwrap exposes the sentinel kind and, for network errors, the underlying
// transport error, so both errors.Is chains work.
func (e *Error) Unwrap() []error {
	if e.cause != nil {
		return []error{e.kind, e.cause}
	}
	return []error{e.kind}
}

// Kind returns the sentinel this error wraps.
func (e *Error) Kind() error { return e.kind }

// New builds an *Error of the given kind. Exposed for the few places
// outside this package that synthesize errors (local validation).
func New(kind error, statusCode int, message string) *Error {
	return &Error{kind: kind, StatusCode: statusCode, Message: message}
}

// Network wraps a transport-level failure (connect, timeout, broken
// connection) as an ErrNetwork.
func Network(msg string, cause error) *Error {
	return &Error{kind: ErrNetwork, Message: msg, cause: cause}
}

// Validation builds a local validation failure that never reached the wire.
func Validation(message string, detail *ValidationDetail) *Error {
	return &Error{kind: ErrValidation, Message: message, Detail: detail}
}

// FromResponse maps a non-2xx response to the matching error kind.
// 422 bodies are parsed into Detail when they carry the expected shape.
func FromResponse(statusCode int, header http.Header, body []byte) *Error {
	e := &Error{StatusCode: statusCode, Body: body}

	switch {
	case statusCode == http.StatusBadRequest:
		e.kind, e.Message = ErrBadRequest, "bad request"
	case statusCode == http.StatusUnauthorized || statusCode == http.StatusForbidden:
		e.kind, e.Message = ErrAuthentication, "unauthorized"
	case statusCode == http.StatusNotFound:
		e.kind, e.Message = ErrNotFound, "not found"
	case statusCode == http.StatusConflict:
		e.kind, e.Message = ErrConflict, "conflict"
	case statusCode == http.StatusUnprocessableEntity:
		e.kind, e.Message = ErrValidation, "validation failed"
		e.Detail = parseValidationDetail(header, body)
	case statusCode == http.StatusTooManyRequests:
		e.kind, e.Message = ErrRateLimit, "too many requests"
	case statusCode >= 500 && statusCode < 600:
		e.kind, e.Message = ErrServer, "server error"
	default:
		e.kind, e.Message = ErrAPI, "unexpected response"
	}

	return e
}

func parseValidationDetail(header http.Header, body []byte) *ValidationDetail {
	if !strings.Contains(strings.ToLower(header.Get("Content-Type")), "application/json") {
		return nil
	}
	var d ValidationDetail
	if err := json.Unmarshal(body, &d); err != nil || len(d.Detail) == 0 {
		return nil
	}
	return &d
}
