package service

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"log/slog"

	"github.com/utafrali/calm-headless/internal/auth"
	"github.com/utafrali/calm-headless/internal/domain"
	"github.com/utafrali/calm-headless/internal/repository"
	"github.com/utafrali/calm-headless/internal/shopify"
	apperrors "github.com/utafrali/calm-headless/pkg/errors"
)

// SessionStore is the per-request view of the customer cookies.
type SessionStore interface {
	AccessToken() string
	RefreshToken() string
	CustomerID() string
	SetTokens(accessToken, refreshToken, customerID string)
	ClearTokens()
	OAuthState() string
	SetOAuthState(v string)
	ClearOAuthState()
}

// OAuthProvider is the Customer Account OAuth surface.
type OAuthProvider interface {
	AuthorizeURL(state string) (string, error)
	ExchangeCode(ctx context.Context, code string) (*domain.TokenSet, error)
	Refresh(ctx context.Context, refreshToken string) (*domain.TokenSet, error)
	Revoke(ctx context.Context, accessToken string) error
}

// CustomerReader fetches the signed-in customer.
type CustomerReader interface {
	Customer(ctx context.Context) (*domain.Customer, error)
}

// ErrNotAuthenticated is returned when no access token cookie is present.
var ErrNotAuthenticated = apperrors.Unauthorized("Not authenticated")

// ErrInvalidState rejects a callback whose state does not belong to a login
// started by this browser.
var ErrInvalidState = apperrors.InvalidInput("Invalid or expired login state")

// AuthService drives the OAuth login and the token cookie lifecycle.
type AuthService struct {
	oauth     OAuthProvider
	customers CustomerReader
	states    repository.StateStore
	signer    *auth.StateSigner
	logger    *slog.Logger
}

// NewAuthService creates a new auth service.
func NewAuthService(oauth OAuthProvider, customers CustomerReader, states repository.StateStore, signer *auth.StateSigner, logger *slog.Logger) *AuthService {
	return &AuthService{
		oauth:     oauth,
		customers: customers,
		states:    states,
		signer:    signer,
		logger:    logger,
	}
}

// InitiateLogin returns the identity provider URL that starts a login. The
// state nonce is bound to the browser; the session tokens are not touched.
func (s *AuthService) InitiateLogin(ctx context.Context, jar SessionStore, redirectTo string) (string, error) {
	nonce, err := auth.NewNonce()
	if err != nil {
		return "", apperrors.Internal(err)
	}
	state, err := s.signer.Sign(nonce, auth.SanitizeRedirect(redirectTo))
	if err != nil {
		return "", apperrors.Internal(err)
	}

	target, err := s.oauth.AuthorizeURL(state)
	if err != nil {
		return "", err
	}
	jar.SetOAuthState(nonce)

	s.logger.DebugContext(ctx, "login initiated")
	return target, nil
}

// HandleAuthCallback completes a login: it checks state, exchanges code for
// tokens and stores them. It returns the path to send the browser to.
func (s *AuthService) HandleAuthCallback(ctx context.Context, jar SessionStore, code, state string) (string, error) {
	if code == "" {
		return "", apperrors.InvalidInput("No authorization code provided")
	}

	bound := jar.OAuthState()
	jar.ClearOAuthState()

	claims, err := s.signer.Verify(state)
	if err != nil {
		s.logger.WarnContext(ctx, "rejected login callback", slog.String("error", err.Error()))
		return "", ErrInvalidState
	}
	if bound == "" || subtle.ConstantTimeCompare([]byte(bound), []byte(claims.Nonce)) != 1 {
		s.logger.WarnContext(ctx, "login callback state is not bound to this browser")
		return "", ErrInvalidState
	}
	fresh, err := s.states.Consume(ctx, claims.Nonce, s.signer.TTL())
	if err != nil {
		return "", fmt.Errorf("consume login state: %w", err)
	}
	if !fresh {
		s.logger.WarnContext(ctx, "login callback state replayed")
		return "", ErrInvalidState
	}

	tokens, err := s.oauth.ExchangeCode(ctx, code)
	if err != nil {
		return "", err
	}
	jar.SetTokens(tokens.AccessToken, tokens.RefreshToken, tokens.CustomerID)

	s.logger.InfoContext(ctx, "login succeeded", slog.String("customer_id", tokens.CustomerID))
	return auth.SanitizeRedirect(claims.RedirectTo), nil
}

// RefreshTokenIfNeeded exchanges the stored refresh token for a new pair.
// It reports false when there is nothing to refresh. A failed refresh ends
// the session.
func (s *AuthService) RefreshTokenIfNeeded(ctx context.Context, jar SessionStore) (bool, error) {
	refreshToken := jar.RefreshToken()
	if refreshToken == "" {
		return false, nil
	}

	tokens, err := s.oauth.Refresh(ctx, refreshToken)
	if err != nil {
		jar.ClearTokens()
		s.logger.WarnContext(ctx, "token refresh failed, session cleared", slog.String("error", err.Error()))
		return false, err
	}

	newRefresh := tokens.RefreshToken
	if newRefresh == "" {
		newRefresh = refreshToken
	}
	jar.SetTokens(tokens.AccessToken, newRefresh, "")
	return true, nil
}

// Logout revokes the access token if it can and always clears the session.
// It returns the path to send the browser to.
func (s *AuthService) Logout(ctx context.Context, jar SessionStore) string {
	if token := jar.AccessToken(); token != "" {
		if err := s.oauth.Revoke(ctx, token); err != nil {
			s.logger.WarnContext(ctx, "token revoke failed", slog.String("error", err.Error()))
		}
	}
	jar.ClearTokens()
	s.logger.InfoContext(ctx, "logged out")
	return "/"
}

// IsAuthenticated reports whether an access token cookie is present. The
// token is not validated.
func (s *AuthService) IsAuthenticated(jar SessionStore) bool {
	return jar.AccessToken() != ""
}

// Authorize returns ctx carrying the customer's access token, refreshing
// the session first when a refresh token is held.
func (s *AuthService) Authorize(ctx context.Context, jar SessionStore) (context.Context, error) {
	if !s.IsAuthenticated(jar) {
		return ctx, ErrNotAuthenticated
	}
	if _, err := s.RefreshTokenIfNeeded(ctx, jar); err != nil {
		if errors.Is(err, shopify.ErrNotConfigured) {
			return ctx, accountError(err)
		}
		return ctx, apperrors.Unauthorized("Session expired. Please log in again.")
	}
	return shopify.WithAccessToken(ctx, jar.AccessToken()), nil
}

// CurrentCustomer returns the signed-in customer.
func (s *AuthService) CurrentCustomer(ctx context.Context, jar SessionStore) (*domain.Customer, error) {
	ctx, err := s.Authorize(ctx, jar)
	if err != nil {
		return nil, err
	}
	customer, err := s.customers.Customer(ctx)
	if err != nil {
		return nil, accountError(err)
	}
	return customer, nil
}
