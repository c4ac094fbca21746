package shopify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/utafrali/calm-headless/internal/domain"
	"github.com/utafrali/calm-headless/pkg/httpclient"
)

// OAuthScope is requested on every authorization.
const OAuthScope = "openid email profile"

// OAuthConfig holds the Customer Account API OAuth client settings.
type OAuthConfig struct {
	ClientID string
	// BaseURL is the Customer Account API URL that hosts /auth/oauth/*.
	BaseURL string
	// Origin is the public origin of the storefront; the redirect URI is
	// {Origin}/authorize.
	Origin string
}

func (c OAuthConfig) check() error {
	if c.ClientID == "" {
		return notConfigured("SHOPIFY_CUSTOMER_ACCOUNT_CLIENT_ID")
	}
	if c.BaseURL == "" {
		return notConfigured("SHOPIFY_CUSTOMER_ACCOUNT_API_URL")
	}
	return nil
}

// RedirectURI is the callback registered with the identity provider.
func (c OAuthConfig) RedirectURI() string {
	return strings.TrimRight(c.Origin, "/") + "/authorize"
}

func (c OAuthConfig) endpoint(path string) string {
	return strings.TrimRight(c.BaseURL, "/") + "/auth/oauth/" + path
}

// OAuth is the authorization-code client of the Customer Account API.
type OAuth struct {
	cfg  OAuthConfig
	doer httpclient.Doer
}

// NewOAuth creates an OAuth client.
func NewOAuth(cfg OAuthConfig, doer httpclient.Doer) *OAuth {
	return &OAuth{cfg: cfg, doer: doer}
}

// AuthorizeURL returns the provider URL that starts a login with state.
func (o *OAuth) AuthorizeURL(state string) (string, error) {
	if err := o.cfg.check(); err != nil {
		return "", err
	}
	params := url.Values{}
	params.Set("client_id", o.cfg.ClientID)
	params.Set("response_type", "code")
	params.Set("redirect_uri", o.cfg.RedirectURI())
	params.Set("scope", OAuthScope)
	params.Set("state", state)
	return o.cfg.endpoint("authorize") + "?" + params.Encode(), nil
}

// ExchangeCode trades an authorization code for a token set.
func (o *OAuth) ExchangeCode(ctx context.Context, code string) (*domain.TokenSet, error) {
	form := url.Values{}
	form.Set("grant_type", "authorization_code")
	form.Set("client_id", o.cfg.ClientID)
	form.Set("redirect_uri", o.cfg.RedirectURI())
	form.Set("code", code)
	return o.token(ctx, "exchange code for tokens", form)
}

// Refresh trades a refresh token for a new token set. The provider does not
// repeat the customer id, so CustomerID is usually empty.
func (o *OAuth) Refresh(ctx context.Context, refreshToken string) (*domain.TokenSet, error) {
	form := url.Values{}
	form.Set("grant_type", "refresh_token")
	form.Set("client_id", o.cfg.ClientID)
	form.Set("refresh_token", refreshToken)
	return o.token(ctx, "refresh token", form)
}

// Revoke invalidates an access token at the provider.
func (o *OAuth) Revoke(ctx context.Context, accessToken string) error {
	if err := o.cfg.check(); err != nil {
		return err
	}
	form := url.Values{}
	form.Set("client_id", o.cfg.ClientID)
	form.Set("token", accessToken)

	resp, err := o.post(ctx, "revoke token", o.cfg.endpoint("revoke"), form)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

type tokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int    `json:"expires_in"`
	CustomerID   string `json:"customer_id"`
}

func (o *OAuth) token(ctx context.Context, op string, form url.Values) (*domain.TokenSet, error) {
	if err := o.cfg.check(); err != nil {
		return nil, err
	}

	resp, err := o.post(ctx, op, o.cfg.endpoint("token"), form)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	var tr tokenResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(&tr); err != nil {
		return nil, fmt.Errorf("failed to %s: decode response: %w", op, err)
	}
	if tr.AccessToken == "" {
		return nil, fmt.Errorf("failed to %s: response has no access_token", op)
	}
	return &domain.TokenSet{
		AccessToken:  tr.AccessToken,
		RefreshToken: tr.RefreshToken,
		ExpiresIn:    tr.ExpiresIn,
		CustomerID:   tr.CustomerID,
	}, nil
}

// post sends a form and returns the response only when it is 2xx. The token
// endpoint is never retried: an authorization code is single use.
func (o *OAuth) post(ctx context.Context, op, endpoint string, form url.Values) (*http.Response, error) {
	ctx = httpclient.WithoutRetry(ctx)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("failed to %s: %w", op, err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")

	resp, err := o.doer.Do(ctx, req)
	if err != nil {
		var se *httpclient.StatusError
		if errors.As(err, &se) {
			return nil, &OAuthError{Op: op, StatusCode: se.StatusCode, Status: se.Status, Description: se.Message}
		}
		return nil, fmt.Errorf("failed to %s: %w", op, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		se := httpclient.ParseResponseError(resp, "oauth")
		return nil, &OAuthError{Op: op, StatusCode: se.StatusCode, Status: se.Status, Description: se.Message}
	}
	return resp, nil
}
