package graphql

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/utafrali/calm-headless/pkg/httpclient"
	"github.com/utafrali/calm-headless/pkg/tracing"
)

// maxResponseBytes bounds a GraphQL response body.
const maxResponseBytes = 10 << 20

// Request is a GraphQL document plus variables.
type Request struct {
	Query         string         `json:"query"`
	Variables     map[string]any `json:"variables,omitempty"`
	OperationName string         `json:"operationName,omitempty"`

	// Operation labels metrics and spans. It defaults to OperationName and
	// must come from a fixed set; never copy client input into it.
	Operation string `json:"-"`
}

// Response is a successful GraphQL exchange. Body is the raw remote payload.
type Response struct {
	Status int
	Body   []byte
	Data   json.RawMessage
}

// Authorizer sets the credential headers of one API. It returns an error
// when the credentials are not configured.
type Authorizer func(ctx context.Context, h http.Header) error

// Config describes one remote GraphQL endpoint.
type Config struct {
	// API is the short metric label, e.g. "storefront".
	API string
	// Name appears in error messages, e.g. "Storefront API".
	Name string
	// Endpoint is resolved on every call.
	Endpoint  func() (string, error)
	Authorize Authorizer
}

// Client posts GraphQL documents to one remote endpoint.
type Client struct {
	cfg    Config
	doer   httpclient.Doer
	tracer trace.Tracer
}

// NewClient creates a client that sends requests through doer.
func NewClient(cfg Config, doer httpclient.Doer) *Client {
	if cfg.Name == "" {
		cfg.Name = cfg.API
	}
	return &Client{
		cfg:    cfg,
		doer:   doer,
		tracer: tracing.Tracer("github.com/utafrali/calm-headless/internal/graphql"),
	}
}

// StaticEndpoint returns an Endpoint func for a fixed URL.
func StaticEndpoint(url string) func() (string, error) {
	return func() (string, error) { return url, nil }
}

// API returns the metric label of the endpoint.
func (c *Client) API() string {
	return c.cfg.API
}

// Do sends req and classifies the result. Errors are *TransportError,
// *ApplicationError, or the Authorizer's configuration error. Mutations are
// sent exactly once.
func (c *Client) Do(ctx context.Context, req Request) (*Response, error) {
	op := req.Operation
	if op == "" {
		op = req.OperationName
	}
	if op == "" {
		op = "anonymous"
	}
	mutation := IsMutation(req.Query)

	ctx, span := c.tracer.Start(ctx, c.cfg.API+" "+op,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("graphql.api", c.cfg.API),
			attribute.String("graphql.operation.name", op),
			attribute.Bool("graphql.operation.mutation", mutation),
		),
	)
	defer span.End()

	start := time.Now()
	resp, err := c.do(ctx, req, mutation)
	upstreamDuration.WithLabelValues(c.cfg.API).Observe(time.Since(start).Seconds())

	outcome := outcomeSuccess
	var te *TransportError
	var ae *ApplicationError
	switch {
	case err == nil:
	case errors.As(err, &ae):
		outcome = outcomeApplication
	case errors.As(err, &te):
		outcome = outcomeTransport
		if te.StatusCode > 0 {
			span.SetAttributes(attribute.Int("http.status_code", te.StatusCode))
		}
	default:
		outcome = outcomeConfig
	}
	upstreamRequests.WithLabelValues(c.cfg.API, op, outcome).Inc()

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, outcome)
		return nil, err
	}
	span.SetAttributes(attribute.Int("http.status_code", resp.Status))
	return resp, nil
}

func (c *Client) do(ctx context.Context, req Request, mutation bool) (*Response, error) {
	endpoint, err := c.cfg.Endpoint()
	if err != nil {
		return nil, err
	}

	payload, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("encode graphql request: %w", err)
	}

	if mutation {
		ctx = httpclient.WithoutRetry(ctx)
	}

	// bytes.Reader lets the retrying client rewind the body.
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("create graphql request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")

	if c.cfg.Authorize != nil {
		if err := c.cfg.Authorize(ctx, httpReq.Header); err != nil {
			return nil, err
		}
	}

	resp, err := c.doer.Do(ctx, httpReq)
	if err != nil {
		var se *httpclient.StatusError
		if errors.As(err, &se) {
			return nil, &TransportError{
				API:        c.cfg.Name,
				StatusCode: se.StatusCode,
				Status:     se.Status,
				Body:       se.Body,
			}
		}
		return nil, &TransportError{API: c.cfg.Name, Err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, &TransportError{API: c.cfg.Name, StatusCode: resp.StatusCode, Status: reason(resp), Err: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &TransportError{
			API:        c.cfg.Name,
			StatusCode: resp.StatusCode,
			Status:     reason(resp),
			Body:       body,
		}
	}

	var envelope struct {
		Data   json.RawMessage `json:"data"`
		Errors []Error         `json:"errors"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, &TransportError{
			API:        c.cfg.Name,
			StatusCode: resp.StatusCode,
			Status:     reason(resp),
			Body:       body,
			Err:        fmt.Errorf("decode response: %w", err),
		}
	}
	if len(envelope.Errors) > 0 {
		return nil, &ApplicationError{API: c.cfg.Name, Errors: envelope.Errors}
	}

	return &Response{Status: resp.StatusCode, Body: body, Data: envelope.Data}, nil
}

// Decode sends req and unmarshals the data member into out.
func (c *Client) Decode(ctx context.Context, req Request, out any) error {
	resp, err := c.Do(ctx, req)
	if err != nil {
		return err
	}
	if out == nil || len(resp.Data) == 0 || string(resp.Data) == "null" {
		return nil
	}
	if err := json.Unmarshal(resp.Data, out); err != nil {
		return &TransportError{
			API:        c.cfg.Name,
			StatusCode: resp.Status,
			Status:     http.StatusText(resp.Status),
			Err:        fmt.Errorf("decode data: %w", err),
		}
	}
	return nil
}

// IsMutation reports whether the first operation of a document is a
// mutation. Leading whitespace and # comments are skipped.
func IsMutation(query string) bool {
	s := query
	for {
		s = strings.TrimLeft(s, " \t\r\n,\ufeff")
		if !strings.HasPrefix(s, "#") {
			break
		}
		if i := strings.IndexByte(s, '\n'); i >= 0 {
			s = s[i+1:]
		} else {
			s = ""
		}
	}
	if !strings.HasPrefix(s, "mutation") {
		return false
	}
	rest := s[len("mutation"):]
	return rest == "" || !isNameChar(rest[0])
}

func isNameChar(b byte) bool {
	return b == '_' || (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z') || (b >= '0' && b <= '9')
}

func reason(resp *http.Response) string {
	if i := strings.IndexByte(resp.Status, ' '); i > 0 {
		return resp.Status[i+1:]
	}
	return http.StatusText(resp.StatusCode)
}
