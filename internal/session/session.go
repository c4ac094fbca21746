// Package session reads and writes the browser cookies that carry a
// visitor's cart id and customer tokens.
package session

import (
	"net/http"
	"time"

	"github.com/google/uuid"
)

// Cookie names.
const (
	CartCookie         = "cart_id"
	VisitorCookie      = "visitor_id"
	AccessTokenCookie  = "shopify_customer_access_token"
	RefreshTokenCookie = "shopify_customer_refresh_token"
	CustomerIDCookie   = "shopify_customer_id"
	OAuthStateCookie   = "oauth_state"
)

// DefaultMaxAge is the lifetime of the cart and token cookies.
const DefaultMaxAge = 30 * 24 * time.Hour

// StateMaxAge bounds the OAuth state cookie; a login must finish within it.
const StateMaxAge = 10 * time.Minute

// Manager holds the cookie attributes shared by every jar.
type Manager struct {
	Secure bool
	MaxAge time.Duration
}

// NewManager creates a cookie manager. A non-positive maxAge uses
// DefaultMaxAge.
func NewManager(secure bool, maxAge time.Duration) *Manager {
	if maxAge <= 0 {
		maxAge = DefaultMaxAge
	}
	return &Manager{Secure: secure, MaxAge: maxAge}
}

// IssueVisitor gives a request without a visitor cookie a fresh visitor id.
// The cookie goes out on the first response, usually the page's cart GET,
// so tabs opened afterwards share one id and with it one cart. The id is
// also added to the request for the jars of later handlers.
func (m *Manager) IssueVisitor(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if c, err := r.Cookie(VisitorCookie); err != nil || c.Value == "" {
			id := m.Jar(w, r).VisitorID()
			r.AddCookie(&http.Cookie{Name: VisitorCookie, Value: id})
		}
		next.ServeHTTP(w, r)
	})
}

// Jar returns the cookie jar of one request. Writes are sent as Set-Cookie
// headers on w and are visible to later reads through the same jar.
func (m *Manager) Jar(w http.ResponseWriter, r *http.Request) *Jar {
	return &Jar{m: m, w: w, r: r, pending: make(map[string]*string)}
}

// Jar is the per-request view of the session cookies. It is not safe for
// concurrent use; one request owns one jar.
type Jar struct {
	m       *Manager
	w       http.ResponseWriter
	r       *http.Request
	pending map[string]*string
}

func (j *Jar) get(name string) string {
	if v, ok := j.pending[name]; ok {
		if v == nil {
			return ""
		}
		return *v
	}
	c, err := j.r.Cookie(name)
	if err != nil {
		return ""
	}
	return c.Value
}

func (j *Jar) set(name, value string, maxAge time.Duration) {
	j.pending[name] = &value
	http.SetCookie(j.w, &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		MaxAge:   int(maxAge / time.Second),
		HttpOnly: true,
		Secure:   j.m.Secure,
		SameSite: http.SameSiteLaxMode,
	})
}

func (j *Jar) clear(name string) {
	j.pending[name] = nil
	http.SetCookie(j.w, &http.Cookie{
		Name:     name,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   j.m.Secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// CartID returns the persisted cart id, or "".
func (j *Jar) CartID() string { return j.get(CartCookie) }

// SetCartID persists the cart id.
func (j *Jar) SetCartID(id string) { j.set(CartCookie, id, j.m.MaxAge) }

// ClearCartID forgets the cart id.
func (j *Jar) ClearCartID() { j.clear(CartCookie) }

// VisitorID returns the anonymous visitor id, issuing one on first use.
func (j *Jar) VisitorID() string {
	if id := j.get(VisitorCookie); id != "" {
		return id
	}
	id := uuid.NewString()
	j.set(VisitorCookie, id, j.m.MaxAge)
	return id
}

// AccessToken returns the customer access token, or "".
func (j *Jar) AccessToken() string { return j.get(AccessTokenCookie) }

// RefreshToken returns the customer refresh token, or "".
func (j *Jar) RefreshToken() string { return j.get(RefreshTokenCookie) }

// CustomerID returns the signed-in customer id, or "".
func (j *Jar) CustomerID() string { return j.get(CustomerIDCookie) }

// SetTokens stores a token set. Empty values leave the existing cookie in
// place, so a refresh that omits the customer id keeps it.
func (j *Jar) SetTokens(accessToken, refreshToken, customerID string) {
	if accessToken != "" {
		j.set(AccessTokenCookie, accessToken, j.m.MaxAge)
	}
	if refreshToken != "" {
		j.set(RefreshTokenCookie, refreshToken, j.m.MaxAge)
	}
	if customerID != "" {
		j.set(CustomerIDCookie, customerID, j.m.MaxAge)
	}
}

// ClearTokens removes all three customer cookies.
func (j *Jar) ClearTokens() {
	j.clear(AccessTokenCookie)
	j.clear(RefreshTokenCookie)
	j.clear(CustomerIDCookie)
}

// OAuthState returns the state binding cookie of a pending login.
func (j *Jar) OAuthState() string { return j.get(OAuthStateCookie) }

// SetOAuthState binds a pending login to this browser.
func (j *Jar) SetOAuthState(v string) { j.set(OAuthStateCookie, v, StateMaxAge) }

// ClearOAuthState removes the binding once a login completes or fails.
func (j *Jar) ClearOAuthState() { j.clear(OAuthStateCookie) }
