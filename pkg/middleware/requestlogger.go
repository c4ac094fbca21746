package middleware

import (
	"log/slog"
	"net/http"

	"github.com/utafrali/calm-headless/pkg/logger"
)

// RequestLogger stores a per-request logger in the context. It carries the
// correlation id, the trace and span ids and, for signed-in shoppers, the
// customer id, so handlers log with logger.FromContext(ctx) alone.
//
// It must run after RequestLogging, Tracing and CustomerSession.
func RequestLogger(base *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			if id := CustomerIDFromContext(ctx); id != "" {
				ctx = logger.WithCustomerID(ctx, id)
			}
			ctx = logger.NewContext(ctx, logger.WithContext(ctx, base))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
