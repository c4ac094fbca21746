package graphql

import (
	"fmt"
	"strings"

	apperrors "github.com/utafrali/calm-headless/pkg/errors"
)

// Error is one entry of a GraphQL errors array.
type Error struct {
	Message    string         `json:"message"`
	Path       []any          `json:"path,omitempty"`
	Extensions map[string]any `json:"extensions,omitempty"`
}

// TransportError is a failed exchange with the remote API: the request never
// got an answer, or the answer was not a 2xx GraphQL document.
type TransportError struct {
	API        string
	StatusCode int
	// Status is the reason phrase, e.g. "Service Unavailable".
	Status string
	Body   []byte
	Err    error
}

func (e *TransportError) Error() string {
	if e.StatusCode == 0 {
		return fmt.Sprintf("%s request failed: %v", e.API, e.Err)
	}
	msg := fmt.Sprintf("%s error: %d %s", e.API, e.StatusCode, e.Status)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *TransportError) Unwrap() error { return e.Err }

// Is lets errors.Is(err, apperrors.ErrBadGateway) map remote failures to 502.
func (e *TransportError) Is(target error) bool { return target == apperrors.ErrBadGateway }

// ApplicationError is a GraphQL errors array, which the remote APIs return
// with HTTP 200.
type ApplicationError struct {
	API    string
	Errors []Error
}

func (e *ApplicationError) Error() string {
	return fmt.Sprintf("%s GraphQL Error: %s", e.API, e.Messages())
}

// Messages joins the error messages with ", ".
func (e *ApplicationError) Messages() string {
	msgs := make([]string, 0, len(e.Errors))
	for _, er := range e.Errors {
		msgs = append(msgs, er.Message)
	}
	return strings.Join(msgs, ", ")
}

func (e *ApplicationError) Is(target error) bool { return target == apperrors.ErrBadGateway }
