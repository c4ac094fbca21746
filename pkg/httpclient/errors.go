package httpclient

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// maxErrorBody bounds how much of an error response is retained.
const maxErrorBody = 64 << 10

// StatusError is a non-2xx response from an upstream, with its body drained.
type StatusError struct {
	Upstream   string
	StatusCode int
	// Status is the reason phrase, e.g. "Bad Request".
	Status  string
	Message string
	Body    []byte
}

func (e *StatusError) Error() string {
	msg := fmt.Sprintf("%s returned %d %s", e.Upstream, e.StatusCode, e.Status)
	if e.Message != "" {
		msg += ": " + e.Message
	}
	return msg
}

// upstreamErrorBody covers the error shapes seen from the commerce APIs:
// OAuth ({error, error_description}) and GraphQL ({errors:[{message}]}).
type upstreamErrorBody struct {
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description"`
	Errors           []struct {
		Message string `json:"message"`
	} `json:"errors"`
}

// ParseResponseError reads the body of a non-2xx HTTP response into a
// *StatusError. The response body is fully consumed and closed.
func ParseResponseError(resp *http.Response, upstream string) *StatusError {
	defer func() { _ = resp.Body.Close() }()

	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))

	status := http.StatusText(resp.StatusCode)
	if i := strings.IndexByte(resp.Status, ' '); i > 0 {
		status = resp.Status[i+1:]
	}

	se := &StatusError{
		Upstream:   upstream,
		StatusCode: resp.StatusCode,
		Status:     status,
		Body:       body,
	}

	var parsed upstreamErrorBody
	if json.Unmarshal(body, &parsed) == nil {
		switch {
		case parsed.ErrorDescription != "":
			se.Message = parsed.ErrorDescription
		case parsed.Error != "":
			se.Message = parsed.Error
		case len(parsed.Errors) > 0:
			msgs := make([]string, 0, len(parsed.Errors))
			for _, e := range parsed.Errors {
				msgs = append(msgs, e.Message)
			}
			se.Message = strings.Join(msgs, ", ")
		}
	}

	return se
}

// IsClientError returns true if the HTTP status code is a 4xx client error.
func IsClientError(status int) bool {
	return status >= 400 && status < 500
}
