package http

import (
	"errors"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/utafrali/calm-headless/internal/service"
	"github.com/utafrali/calm-headless/internal/session"
	apperrors "github.com/utafrali/calm-headless/pkg/errors"
	"github.com/utafrali/calm-headless/pkg/httputil"
)

// loginFailedMessage is shown when a callback fails for a reason the
// browser should not see.
const loginFailedMessage = "Authentication failed"

// AuthHandler runs the OAuth login flow of the customer account.
type AuthHandler struct {
	service  *service.AuthService
	sessions *session.Manager
	origin   string
	logger   *slog.Logger
}

// NewAuthHandler creates a new auth HTTP handler. origin is the storefront
// origin that redirects are resolved against.
func NewAuthHandler(svc *service.AuthService, sessions *session.Manager, origin string, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{
		service:  svc,
		sessions: sessions,
		origin:   origin,
		logger:   logger,
	}
}

// SessionStatus is the body of GET /api/auth/session.
type SessionStatus struct {
	Authenticated bool   `json:"authenticated"`
	CustomerID    string `json:"customer_id,omitempty"`
}

// Login handles GET /api/auth/login?redirect_to=
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	target, err := h.service.InitiateLogin(r.Context(), h.sessions.Jar(w, r), r.URL.Query().Get("redirect_to"))
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	http.Redirect(w, r, target, http.StatusFound)
}

// Callback handles GET /authorize?code=&state=
func (h *AuthHandler) Callback(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	code := q.Get("code")
	if code == "" {
		httputil.WriteError(w, r, apperrors.InvalidInput("No authorization code provided"), h.logger)
		return
	}

	target, err := h.service.HandleAuthCallback(r.Context(), h.sessions.Jar(w, r), code, q.Get("state"))
	if err != nil {
		h.logger.WarnContext(r.Context(), "login callback failed", slog.String("error", err.Error()))
		http.Redirect(w, r, h.origin+"/login?error="+url.QueryEscape(callbackMessage(err)), http.StatusFound)
		return
	}
	http.Redirect(w, r, h.origin+target, http.StatusFound)
}

func callbackMessage(err error) string {
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) && appErr.Status < http.StatusInternalServerError {
		return appErr.Message
	}
	return loginFailedMessage
}

// Logout handles GET /api/auth/logout
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	target := h.service.Logout(r.Context(), h.sessions.Jar(w, r))
	http.Redirect(w, r, h.origin+target, http.StatusFound)
}

// Customer handles GET /api/auth/customer
func (h *AuthHandler) Customer(w http.ResponseWriter, r *http.Request) {
	customer, err := h.service.CurrentCustomer(r.Context(), h.sessions.Jar(w, r))
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteData(w, http.StatusOK, customer)
}

// Session handles GET /api/auth/session. It reads cookies only.
func (h *AuthHandler) Session(w http.ResponseWriter, r *http.Request) {
	jar := h.sessions.Jar(w, r)
	status := SessionStatus{Authenticated: h.service.IsAuthenticated(jar)}
	if status.Authenticated {
		status.CustomerID = jar.CustomerID()
	}
	httputil.WriteData(w, http.StatusOK, status)
}
