// Package errors gives every failure the API can report a stable code. The
// code decides the HTTP status, whether the client may retry, and whether the
// message and details are safe to show.
package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
)

type Code string

const (
	CodeValidation    Code = "VALIDATION_ERROR"
	CodeUnauthorized  Code = "UNAUTHORIZED"
	CodeForbidden     Code = "FORBIDDEN"
	CodeNotFound      Code = "NOT_FOUND"
	CodeConflict      Code = "CONFLICT"
	CodeStateConflict Code = "STATE_CONFLICT"
	CodeIdempotency   Code = "IDEMPOTENCY_KEY_REUSED"
	CodeRateLimit     Code = "RATE_LIMIT_EXCEEDED"
	CodeInternal      Code = "INTERNAL_ERROR"
	CodeDependency    Code = "DEPENDENCY_ERROR"
)

// Metadata is the HTTP face of a Code. PublicMessage is shown when the error
// has no message of its own, and always for internal failures.
type Metadata struct {
	HTTPStatus     int
	Retryable      bool
	PublicMessage  string
	DetailsAllowed bool
}

var codes = map[Code]Metadata{
	CodeValidation:    {HTTPStatus: http.StatusBadRequest, PublicMessage: "validation failed", DetailsAllowed: true},
	CodeUnauthorized:  {HTTPStatus: http.StatusUnauthorized, PublicMessage: "authentication required"},
	CodeForbidden:     {HTTPStatus: http.StatusForbidden, PublicMessage: "access denied"},
	CodeNotFound:      {HTTPStatus: http.StatusNotFound, PublicMessage: "resource not found"},
	CodeConflict:      {HTTPStatus: http.StatusConflict, PublicMessage: "conflict detected"},
	CodeStateConflict: {HTTPStatus: http.StatusUnprocessableEntity, PublicMessage: "state transition disallowed", DetailsAllowed: true},
	CodeIdempotency:   {HTTPStatus: http.StatusConflict, PublicMessage: "idempotency key reused", DetailsAllowed: true},
	CodeRateLimit:     {HTTPStatus: http.StatusTooManyRequests, PublicMessage: "rate limit exceeded"},
	CodeInternal:      {HTTPStatus: http.StatusInternalServerError, PublicMessage: "internal server error", Retryable: true},
	CodeDependency:    {HTTPStatus: http.StatusServiceUnavailable, PublicMessage: "dependency unavailable", Retryable: true, DetailsAllowed: true},
}

// MetadataFor treats an unknown code as internal.
func MetadataFor(code Code) Metadata {
	meta, ok := codes[code]
	if !ok {
		return codes[CodeInternal]
	}
	return meta
}

type Error struct {
	code    Code
	msg     string
	details any
	cause   error
}

func New(code Code, msg string) *Error {
	return &Error{code: code, msg: msg}
}

func Newf(code Code, format string, args ...any) *Error {
	return &Error{code: code, msg: fmt.Sprintf(format, args...)}
}

// Wrap keeps err reachable through errors.Is and errors.As. A nil err is the
// same as New.
func Wrap(code Code, err error, msg string) *Error {
	return &Error{code: code, msg: msg, cause: err}
}

// WithDetails attaches a JSON-serializable payload shown to clients when the
// code allows it.
func (e *Error) WithDetails(details any) *Error {
	e.details = details
	return e
}

// Code is CodeInternal on a nil receiver so callers can use As without a check.
func (e *Error) Code() Code {
	if e == nil {
		return CodeInternal
	}
	return e.code
}

func (e *Error) Message() string { return e.msg }

func (e *Error) Details() any { return e.details }

func (e *Error) Error() string { return string(e.code) + ": " + e.msg }

func (e *Error) Unwrap() error { return e.cause }

// As returns the first *Error in err's chain, or nil.
func As(err error) *Error {
	var typed *Error
	if stderrors.As(err, &typed) {
		return typed
	}
	return nil
}

func IsCode(err error, code Code) bool {
	typed := As(err)
	return typed != nil && typed.code == code
}

// CodeOf is CodeInternal for errors that never passed through this package.
func CodeOf(err error) Code {
	return As(err).Code()
}
