// Package errors defines the error taxonomy shared by services and the HTTP
// layer, and the JSON body every failed request returns.
package errors

import (
	stderrors "errors"
	"net/http"

	"github.com/gin-gonic/gin"
)

type Kind int

const (
	KindInternal Kind = iota
	KindValidation
	KindAuth
	KindForbidden
	KindNotFound
	KindConflict
)

// Error codes sent in the "error" field of the response body.
const (
	CodeValidation   = "validation_error"
	CodeUnauthorized = "unauthorized"
	CodeForbidden    = "forbidden"
	CodeNotFound     = "not_found"
	CodeConflict     = "conflict"
	CodeInternal     = "internal_error"
)

type Error struct {
	Kind    Kind
	Message string
	// Reason distinguishes auth failures, e.g. "missing_credential" vs "expired".
	Reason string
	Err    error
}

func (e *Error) Error() string {
	if e.Message != "" {
		return e.Message
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return e.Code()
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches another *Error of the same kind when the target carries no
// message, so errors.Is(err, ErrNotFound) works for any not-found error.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	if t.Message == "" && t.Reason == "" {
		return t.Kind == e.Kind
	}
	return t.Kind == e.Kind && t.Message == e.Message && t.Reason == e.Reason
}

func (e *Error) StatusCode() int {
	switch e.Kind {
	case KindValidation:
		return http.StatusBadRequest
	case KindAuth:
		return http.StatusUnauthorized
	case KindForbidden:
		return http.StatusForbidden
	case KindNotFound:
		return http.StatusNotFound
	case KindConflict:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func (e *Error) Code() string {
	switch e.Kind {
	case KindValidation:
		return CodeValidation
	case KindAuth:
		return CodeUnauthorized
	case KindForbidden:
		return CodeForbidden
	case KindNotFound:
		return CodeNotFound
	case KindConflict:
		return CodeConflict
	default:
		return CodeInternal
	}
}

var (
	ErrValidation = &Error{Kind: KindValidation}
	ErrAuth       = &Error{Kind: KindAuth}
	ErrForbidden  = &Error{Kind: KindForbidden}
	ErrNotFound   = &Error{Kind: KindNotFound}
	ErrConflict   = &Error{Kind: KindConflict}
)

func Validation(message string) *Error {
	return &Error{Kind: KindValidation, Message: message}
}

func Auth(reason, message string) *Error {
	return &Error{Kind: KindAuth, Reason: reason, Message: message}
}

func Forbidden(message string) *Error {
	if message == "" {
		message = "access denied"
	}
	return &Error{Kind: KindForbidden, Message: message}
}

func NotFound(message string) *Error {
	if message == "" {
		message = "resource not found"
	}
	return &Error{Kind: KindNotFound, Message: message}
}

func Conflict(message string) *Error {
	return &Error{Kind: KindConflict, Message: message}
}

func Internal(err error) *Error {
	return &Error{Kind: KindInternal, Message: "internal server error", Err: err}
}

// From returns err as an *Error, treating anything outside the taxonomy as
// internal.
func From(err error) *Error {
	var appErr *Error
	if stderrors.As(err, &appErr) {
		return appErr
	}
	return Internal(err)
}

type Response struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Reason  string `json:"reason,omitempty"`
}

// Respond aborts the request with the error's status and JSON body. Internal
// errors are attached to the gin context for the request logger and their
// text is never sent to the client.
func Respond(c *gin.Context, err error) {
	appErr := From(err)
	if appErr.Kind == KindInternal {
		_ = c.Error(err)
	}
	message := appErr.Message
	if appErr.Kind == KindInternal {
		message = "internal server error"
	}
	c.AbortWithStatusJSON(appErr.StatusCode(), Response{
		Error:   appErr.Code(),
		Message: message,
		Reason:  appErr.Reason,
	})
}
