package shopify

import (
	"fmt"
	"strings"

	apperrors "github.com/utafrali/calm-headless/pkg/errors"
)

// ErrNotConfigured is matched by every error caused by a missing credential
// or endpoint variable.
var ErrNotConfigured = apperrors.ErrNotConfigured

func notConfigured(variable string) error {
	return apperrors.NotConfigured(variable)
}

// UserError is one entry of a mutation's userErrors or customerUserErrors.
type UserError struct {
	Code    string   `json:"code,omitempty"`
	Field   []string `json:"field,omitempty"`
	Message string   `json:"message"`
}

// UserErrors is a mutation that the remote API rejected for its input.
type UserErrors struct {
	Op     string
	Errors []UserError
}

func (e *UserErrors) Error() string {
	msgs := make([]string, 0, len(e.Errors))
	for _, ue := range e.Errors {
		msgs = append(msgs, ue.Message)
	}
	return strings.Join(msgs, ", ")
}

// Unwrap maps user errors to HTTP 400.
func (e *UserErrors) Unwrap() error { return apperrors.ErrInvalidInput }

func userErrors(op string, errs []UserError) error {
	if len(errs) == 0 {
		return nil
	}
	return &UserErrors{Op: op, Errors: errs}
}

// OAuthError is a non-2xx answer from the OAuth token or revoke endpoint.
type OAuthError struct {
	Op          string
	StatusCode  int
	Status      string
	Description string
}

func (e *OAuthError) Error() string {
	msg := fmt.Sprintf("failed to %s: %s", e.Op, e.Status)
	if e.Description != "" {
		msg += " (" + e.Description + ")"
	}
	return msg
}
