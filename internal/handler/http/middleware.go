package http

import (
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/utafrali/calm-headless/internal/service"
	"github.com/utafrali/calm-headless/internal/session"
	apperrors "github.com/utafrali/calm-headless/pkg/errors"
	"github.com/utafrali/calm-headless/pkg/httputil"
	"github.com/utafrali/calm-headless/pkg/pagination"
)

// ContentTypeJSON enforces that requests with a body have Content-Type: application/json.
func ContentTypeJSON(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.ContentLength > 0 || r.Method == http.MethodPost || r.Method == http.MethodPut || r.Method == http.MethodPatch {
			ct := r.Header.Get("Content-Type")
			if ct != "" && !strings.HasPrefix(ct, "application/json") {
				httputil.WriteJSON(w, http.StatusUnsupportedMediaType, httputil.Response{
					Error: &httputil.ErrorResponse{
						Code:    "UNSUPPORTED_MEDIA_TYPE",
						Message: "Content-Type must be application/json",
					},
				})
				return
			}
		}
		next.ServeHTTP(w, r)
	})
}

// RequireSession authorizes the customer session of the request, refreshing
// the access token when a refresh token is held. Downstream handlers see a
// context that carries the access token for the Customer Account API.
func RequireSession(auth *service.AuthService, sessions *session.Manager, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx, err := auth.Authorize(r.Context(), sessions.Jar(w, r))
			if err != nil {
				httputil.WriteError(w, r, err, logger)
				return
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// pageParams reads first/after from the query string. When first is absent
// the remote API's default for that listing applies.
func pageParams(r *http.Request, defaultFirst int) (pagination.Params, error) {
	p, err := pagination.FromRequest(r)
	if err != nil {
		return pagination.Params{}, err
	}
	if r.URL.Query().Get("first") == "" {
		p.First = defaultFirst
	}
	return p, nil
}

// intQuery parses an optional positive integer query parameter.
func intQuery(r *http.Request, name string, def int) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 1 || v > pagination.MaxFirst {
		return 0, apperrors.InvalidInput(name + " must be a number between 1 and " + strconv.Itoa(pagination.MaxFirst))
	}
	return v, nil
}
