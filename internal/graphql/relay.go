package graphql

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
)

// Relay forwards req and returns the status and body to hand back to the
// browser: the remote status and payload verbatim on success, otherwise 500
// with a {"errors":[...]} document. Remote GraphQL errors are passed through
// as reported; every other failure becomes a single {message} entry.
func Relay(ctx context.Context, c *Client, req Request) (int, []byte) {
	resp, err := c.Do(ctx, req)
	if err == nil {
		return resp.Status, resp.Body
	}
	return http.StatusInternalServerError, ErrorDocument(err)
}

// ErrorDocument renders err as a GraphQL {"errors":[...]} document.
func ErrorDocument(err error) []byte {
	doc := struct {
		Errors []Error `json:"errors"`
	}{}

	var ae *ApplicationError
	if errors.As(err, &ae) && len(ae.Errors) > 0 {
		doc.Errors = ae.Errors
	} else {
		doc.Errors = []Error{{Message: err.Error()}}
	}

	b, mErr := json.Marshal(doc)
	if mErr != nil {
		return []byte(`{"errors":[{"message":"internal error"}]}`)
	}
	return b
}
