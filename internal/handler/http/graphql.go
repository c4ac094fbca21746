package http

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/utafrali/calm-headless/internal/graphql"
	"github.com/utafrali/calm-headless/internal/service"
	"github.com/utafrali/calm-headless/internal/session"
	apperrors "github.com/utafrali/calm-headless/pkg/errors"
	"github.com/utafrali/calm-headless/pkg/httputil"
	"github.com/utafrali/calm-headless/pkg/middleware"
)

// Relay targets accepted in the "api" field.
const (
	APIStorefront = "storefront"
	APICustomer   = "customer"
	APIAdmin      = "admin"
)

// relayOperation labels relayed documents in metrics. Client-supplied
// operation names never reach a label.
const relayOperation = "relay"

// GraphQLRequest is the JSON body of POST /api/graphql.
type GraphQLRequest struct {
	Query         string         `json:"query"`
	Variables     map[string]any `json:"variables,omitempty"`
	OperationName string         `json:"operationName,omitempty"`
	API           string         `json:"api,omitempty"`
}

// GraphQLHandler relays browser GraphQL documents to one of the remote APIs.
// Responses are the remote JSON, not the data/error envelope.
type GraphQLHandler struct {
	clients     map[string]*graphql.Client
	auth        *service.AuthService
	sessions    *session.Manager
	operatorKey string
	logger      *slog.Logger
}

// NewGraphQLHandler creates a relay. Keys of clients are the accepted api
// names; a nil client is skipped. Admin documents run with the shop's own
// token and require operatorKey as a bearer credential.
func NewGraphQLHandler(clients map[string]*graphql.Client, auth *service.AuthService, sessions *session.Manager, operatorKey string, logger *slog.Logger) *GraphQLHandler {
	known := make(map[string]*graphql.Client, len(clients))
	for api, c := range clients {
		if c != nil {
			known[api] = c
		}
	}
	return &GraphQLHandler{clients: known, auth: auth, sessions: sessions, operatorKey: operatorKey, logger: logger}
}

// Relay handles POST /api/graphql
func (h *GraphQLHandler) Relay(w http.ResponseWriter, r *http.Request) {
	var req GraphQLRequest
	if err := httputil.DecodeJSON(r, &req, false); err != nil {
		writeGraphQL(w, http.StatusBadRequest, errorDocument(err))
		return
	}
	if strings.TrimSpace(req.Query) == "" {
		writeGraphQL(w, http.StatusBadRequest, graphql.ErrorDocument(errors.New("query is required")))
		return
	}

	api := req.API
	if api == "" {
		api = APIStorefront
	}
	client, ok := h.clients[api]
	if !ok {
		writeGraphQL(w, http.StatusBadRequest, graphql.ErrorDocument(errors.New("unknown api "+api)))
		return
	}

	ctx := r.Context()
	switch api {
	case APICustomer:
		var err error
		ctx, err = h.auth.Authorize(ctx, h.sessions.Jar(w, r))
		if err != nil {
			writeGraphQL(w, apperrors.HTTPStatus(err), errorDocument(err))
			return
		}
	case APIAdmin:
		if status, message := middleware.CheckOperator(r, h.operatorKey); status != http.StatusOK {
			h.logger.WarnContext(ctx, "admin relay rejected", slog.Int("status", status))
			writeGraphQL(w, status, graphql.ErrorDocument(errors.New(message)))
			return
		}
	}

	status, body := graphql.Relay(ctx, client, graphql.Request{
		Query:         req.Query,
		Variables:     req.Variables,
		OperationName: req.OperationName,
		Operation:     relayOperation,
	})
	if status >= http.StatusInternalServerError {
		h.logger.WarnContext(ctx, "graphql relay failed",
			slog.String("api", api),
			slog.Int("status", status),
		)
	}
	writeGraphQL(w, status, body)
}

func writeGraphQL(w http.ResponseWriter, status int, body []byte) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(body)
}

// errorDocument renders err for the browser, using the public message of
// application errors.
func errorDocument(err error) []byte {
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		return graphql.ErrorDocument(errors.New(appErr.Message))
	}
	return graphql.ErrorDocument(err)
}
