package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Sentinel errors. Domain code wraps these so HTTPStatus can map any error
// chain to a response status.
var (
	ErrNotFound      = errors.New("resource not found")
	ErrInvalidInput  = errors.New("invalid input")
	ErrUnauthorized  = errors.New("unauthorized")
	ErrConflict      = errors.New("conflict")
	ErrBadGateway    = errors.New("bad gateway")
	ErrNotConfigured = errors.New("not configured")
)

// AppError is an error with a stable code and the status it is served with.
// Message is safe to show to shoppers; Err is not.
type AppError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Status  int    `json:"-"`
	Err     error  `json:"-"`
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func newAppError(code string, status int, message string, err error) *AppError {
	return &AppError{Code: code, Message: message, Status: status, Err: err}
}

// NotFound reports a missing cart, product, order or address.
func NotFound(resource, id string) *AppError {
	return newAppError("NOT_FOUND", http.StatusNotFound, fmt.Sprintf("%s %s not found", resource, id), ErrNotFound)
}

func InvalidInput(message string) *AppError {
	return newAppError("INVALID_INPUT", http.StatusBadRequest, message, ErrInvalidInput)
}

func Unauthorized(message string) *AppError {
	return newAppError("UNAUTHORIZED", http.StatusUnauthorized, message, ErrUnauthorized)
}

// Conflict reports a cart that stayed locked by another request.
func Conflict(message string) *AppError {
	return newAppError("CONFLICT", http.StatusConflict, message, ErrConflict)
}

// Internal hides err behind a generic message.
func Internal(err error) *AppError {
	return newAppError("INTERNAL_ERROR", http.StatusInternalServerError, "an internal error occurred", err)
}

// BadGateway reports a failed call to a commerce API. A nil err still
// matches ErrBadGateway.
func BadGateway(message string, err error) *AppError {
	if err == nil {
		err = ErrBadGateway
	}
	return newAppError("BAD_GATEWAY", http.StatusBadGateway, message, err)
}

// NotConfigured reports a credential or endpoint missing from the
// environment. It is a server fault, so it is served as 500.
func NotConfigured(what string) *AppError {
	return newAppError("NOT_CONFIGURED", http.StatusInternalServerError, what+" is not configured", ErrNotConfigured)
}

var sentinelStatus = []struct {
	err    error
	status int
}{
	{ErrNotFound, http.StatusNotFound},
	{ErrConflict, http.StatusConflict},
	{ErrInvalidInput, http.StatusBadRequest},
	{ErrUnauthorized, http.StatusUnauthorized},
	{ErrBadGateway, http.StatusBadGateway},
}

// HTTPStatus maps err to a response status. The outermost *AppError wins;
// otherwise the first sentinel found in the chain decides, and anything
// else is a 500.
func HTTPStatus(err error) int {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Status
	}
	for _, s := range sentinelStatus {
		if errors.Is(err, s.err) {
			return s.status
		}
	}
	return http.StatusInternalServerError
}
