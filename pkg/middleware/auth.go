package middleware

import (
	"context"
	"crypto/subtle"
	"net/http"
	"strings"
)

type contextKeyType string

const customerIDKey contextKeyType = "customer_id"

// CustomerSession copies the signed-in customer's id from the idCookie
// cookie into the request context. Requests without the cookie pass through
// unchanged; it identifies, it does not authorize.
func CustomerSession(idCookie string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if c, err := r.Cookie(idCookie); err == nil && c.Value != "" {
				r = r.WithContext(context.WithValue(r.Context(), customerIDKey, c.Value))
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequireCookie rejects requests that do not carry a non-empty cookie with
// the given name, answering 401 with message.
func RequireCookie(name, message string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			c, err := r.Cookie(name)
			if err != nil || c.Value == "" {
				writeJSONError(w, http.StatusUnauthorized, "UNAUTHORIZED", message)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// CustomerIDFromContext returns the customer id set by CustomerSession.
func CustomerIDFromContext(ctx context.Context) string {
	if id, ok := ctx.Value(customerIDKey).(string); ok {
		return id
	}
	return ""
}

// CheckOperator validates an "Authorization: Bearer <key>" header against
// key. It returns http.StatusOK when the caller holds the key, 403 when no
// key is configured and 401 otherwise, with the message to answer with.
func CheckOperator(r *http.Request, key string) (int, string) {
	if key == "" {
		return http.StatusForbidden, "admin access is disabled"
	}
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		return http.StatusUnauthorized, "missing authorization header"
	}
	scheme, token, ok := strings.Cut(authHeader, " ")
	if !ok || !strings.EqualFold(scheme, "bearer") {
		return http.StatusUnauthorized, "invalid authorization header format"
	}
	if subtle.ConstantTimeCompare([]byte(strings.TrimSpace(token)), []byte(key)) != 1 {
		return http.StatusUnauthorized, "invalid operator key"
	}
	return http.StatusOK, ""
}

// RequireOperator guards routes that act with the shop's own credentials.
func RequireOperator(key string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			status, message := CheckOperator(r, key)
			switch status {
			case http.StatusOK:
				next.ServeHTTP(w, r)
			case http.StatusForbidden:
				writeJSONError(w, status, "FORBIDDEN", message)
			default:
				w.Header().Set("WWW-Authenticate", "Bearer")
				writeJSONError(w, status, "UNAUTHORIZED", message)
			}
		})
	}
}
