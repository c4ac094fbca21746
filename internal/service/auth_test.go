package service

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/utafrali/calm-headless/internal/auth"
	"github.com/utafrali/calm-headless/internal/domain"
	"github.com/utafrali/calm-headless/internal/repository/memory"
	"github.com/utafrali/calm-headless/internal/session"
	"github.com/utafrali/calm-headless/internal/shopify"
	apperrors "github.com/utafrali/calm-headless/pkg/errors"
)

// ============================================================================
// Test doubles
// ============================================================================

type mockOAuth struct {
	mock.Mock
}

func (m *mockOAuth) AuthorizeURL(state string) (string, error) {
	args := m.Called(state)
	return args.String(0), args.Error(1)
}

func (m *mockOAuth) ExchangeCode(ctx context.Context, code string) (*domain.TokenSet, error) {
	args := m.Called(ctx, code)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.TokenSet), args.Error(1)
}

func (m *mockOAuth) Refresh(ctx context.Context, refreshToken string) (*domain.TokenSet, error) {
	args := m.Called(ctx, refreshToken)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.TokenSet), args.Error(1)
}

func (m *mockOAuth) Revoke(ctx context.Context, accessToken string) error {
	args := m.Called(ctx, accessToken)
	return args.Error(0)
}

type mockCustomers struct {
	mock.Mock
}

func (m *mockCustomers) Customer(ctx context.Context) (*domain.Customer, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Customer), args.Error(1)
}

const testStateSecret = "state-secret-for-tests-0123456789"

func newTestAuthService(oauth OAuthProvider, customers CustomerReader) *AuthService {
	signer := auth.NewStateSigner([]byte(testStateSecret), session.StateMaxAge)
	return NewAuthService(oauth, customers, memory.NewStateStore(), signer, newTestLogger())
}

func newJar(cookies ...*http.Cookie) (*session.Jar, *httptest.ResponseRecorder) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	for _, c := range cookies {
		req.AddCookie(c)
	}
	rec := httptest.NewRecorder()
	return session.NewManager(false, 0).Jar(rec, req), rec
}

func signedInCookies() []*http.Cookie {
	return []*http.Cookie{
		{Name: session.AccessTokenCookie, Value: "at-1"},
		{Name: session.RefreshTokenCookie, Value: "rt-1"},
		{Name: session.CustomerIDCookie, Value: "cust-1"},
	}
}

// lastCookie returns the final Set-Cookie written for name.
func lastCookie(rec *httptest.ResponseRecorder, name string) *http.Cookie {
	var last *http.Cookie
	for _, c := range rec.Result().Cookies() {
		if c.Name == name {
			last = c
		}
	}
	return last
}

// ============================================================================
// InitiateLogin
// ============================================================================

func TestInitiateLogin(t *testing.T) {
	oauth := new(mockOAuth)
	var state string
	oauth.On("AuthorizeURL", mock.AnythingOfType("string")).
		Run(func(args mock.Arguments) { state = args.String(0) }).
		Return("https://idp.example/auth/oauth/authorize?state=x", nil)
	svc := newTestAuthService(oauth, nil)
	jar, rec := newJar(signedInCookies()...)

	target, err := svc.InitiateLogin(context.Background(), jar, "/account/orders")
	require.NoError(t, err)
	assert.Equal(t, "https://idp.example/auth/oauth/authorize?state=x", target)

	claims, err := svc.signer.Verify(state)
	require.NoError(t, err)
	assert.Equal(t, "/account/orders", claims.RedirectTo)
	assert.Equal(t, claims.Nonce, jar.OAuthState())
	assert.Len(t, claims.Nonce, 43)

	// The session tokens are left alone.
	assert.Equal(t, "at-1", jar.AccessToken())
	assert.Nil(t, lastCookie(rec, session.AccessTokenCookie))
	oauth.AssertExpectations(t)
}

func TestInitiateLogin_UnsafeRedirectFallsBack(t *testing.T) {
	oauth := new(mockOAuth)
	var state string
	oauth.On("AuthorizeURL", mock.Anything).
		Run(func(args mock.Arguments) { state = args.String(0) }).
		Return("https://idp.example/authorize", nil)
	svc := newTestAuthService(oauth, nil)
	jar, _ := newJar()

	_, err := svc.InitiateLogin(context.Background(), jar, "https://evil.example/")
	require.NoError(t, err)

	claims, err := svc.signer.Verify(state)
	require.NoError(t, err)
	assert.Equal(t, auth.DefaultRedirect, claims.RedirectTo)
}

func TestInitiateLogin_StatesAreUnique(t *testing.T) {
	oauth := new(mockOAuth)
	oauth.On("AuthorizeURL", mock.Anything).Return("https://idp.example/authorize", nil)
	svc := newTestAuthService(oauth, nil)

	seen := make(map[string]bool)
	for i := 0; i < 20; i++ {
		jar, _ := newJar()
		_, err := svc.InitiateLogin(context.Background(), jar, "")
		require.NoError(t, err)
		assert.False(t, seen[jar.OAuthState()])
		seen[jar.OAuthState()] = true
	}
}

func TestInitiateLogin_NotConfigured(t *testing.T) {
	oauth := new(mockOAuth)
	oauth.On("AuthorizeURL", mock.Anything).Return("", apperrors.NotConfigured("SHOPIFY_CUSTOMER_ACCOUNT_CLIENT_ID"))
	svc := newTestAuthService(oauth, nil)
	jar, rec := newJar()

	_, err := svc.InitiateLogin(context.Background(), jar, "")
	require.Error(t, err)
	assert.True(t, errors.Is(err, shopify.ErrNotConfigured))
	assert.Empty(t, jar.OAuthState())
	assert.Empty(t, rec.Result().Cookies())
}

// ============================================================================
// HandleAuthCallback
// ============================================================================

// startLogin runs InitiateLogin and returns the state handed to the provider
// plus the state cookie the browser would send back.
func startLogin(t *testing.T, svc *AuthService, oauth *mockOAuth, redirectTo string) (string, *http.Cookie) {
	t.Helper()
	var state string
	oauth.On("AuthorizeURL", mock.Anything).
		Run(func(args mock.Arguments) { state = args.String(0) }).
		Return("https://idp.example/authorize", nil).Once()

	jar, rec := newJar()
	_, err := svc.InitiateLogin(context.Background(), jar, redirectTo)
	require.NoError(t, err)
	c := lastCookie(rec, session.OAuthStateCookie)
	require.NotNil(t, c)
	return state, c
}

func TestHandleAuthCallback_Success(t *testing.T) {
	oauth := new(mockOAuth)
	svc := newTestAuthService(oauth, nil)
	state, stateCookie := startLogin(t, svc, oauth, "/account/orders")

	oauth.On("ExchangeCode", mock.Anything, "code-1").
		Return(&domain.TokenSet{AccessToken: "at", RefreshToken: "rt", CustomerID: "gid://shopify/Customer/1"}, nil).Once()

	jar, rec := newJar(stateCookie)
	assert.False(t, svc.IsAuthenticated(jar))

	target, err := svc.HandleAuthCallback(context.Background(), jar, "code-1", state)
	require.NoError(t, err)
	assert.Equal(t, "/account/orders", target)
	assert.True(t, svc.IsAuthenticated(jar))
	assert.Equal(t, "rt", jar.RefreshToken())
	assert.Equal(t, "gid://shopify/Customer/1", jar.CustomerID())

	for _, name := range []string{session.AccessTokenCookie, session.RefreshTokenCookie, session.CustomerIDCookie} {
		c := lastCookie(rec, name)
		require.NotNil(t, c, name)
		assert.True(t, c.HttpOnly)
		assert.Equal(t, http.SameSiteLaxMode, c.SameSite)
		assert.Equal(t, int((30 * 24 * time.Hour).Seconds()), c.MaxAge)
	}
	assert.Equal(t, -1, lastCookie(rec, session.OAuthStateCookie).MaxAge)
	oauth.AssertExpectations(t)
}

func TestHandleAuthCallback_MissingCode(t *testing.T) {
	oauth := new(mockOAuth)
	svc := newTestAuthService(oauth, nil)
	jar, _ := newJar()

	_, err := svc.HandleAuthCallback(context.Background(), jar, "", "whatever")
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrInvalidInput))
	oauth.AssertNotCalled(t, "ExchangeCode", mock.Anything, mock.Anything)
}

func TestHandleAuthCallback_RejectsState(t *testing.T) {
	oauth := new(mockOAuth)
	svc := newTestAuthService(oauth, nil)
	state, stateCookie := startLogin(t, svc, oauth, "")

	tests := []struct {
		name    string
		state   string
		cookies []*http.Cookie
	}{
		{"not bound to browser", state, nil},
		{"cookie of another login", state, []*http.Cookie{{Name: session.OAuthStateCookie, Value: "other"}}},
		{"tampered token", state + "x", []*http.Cookie{stateCookie}},
		{"garbage", "abc", []*http.Cookie{stateCookie}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			jar, _ := newJar(tt.cookies...)
			_, err := svc.HandleAuthCallback(context.Background(), jar, "code", tt.state)
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrInvalidState)
			assert.False(t, svc.IsAuthenticated(jar))
		})
	}
	oauth.AssertNotCalled(t, "ExchangeCode", mock.Anything, mock.Anything)
}

func TestHandleAuthCallback_StateIsSingleUse(t *testing.T) {
	oauth := new(mockOAuth)
	svc := newTestAuthService(oauth, nil)
	state, stateCookie := startLogin(t, svc, oauth, "")
	oauth.On("ExchangeCode", mock.Anything, "code").Return(&domain.TokenSet{AccessToken: "at"}, nil).Once()

	jar, _ := newJar(stateCookie)
	target, err := svc.HandleAuthCallback(context.Background(), jar, "code", state)
	require.NoError(t, err)
	assert.Equal(t, auth.DefaultRedirect, target)

	replay, _ := newJar(stateCookie)
	_, err = svc.HandleAuthCallback(context.Background(), replay, "code", state)
	assert.ErrorIs(t, err, ErrInvalidState)
	oauth.AssertExpectations(t)
}

func TestHandleAuthCallback_ExchangeFailure(t *testing.T) {
	oauth := new(mockOAuth)
	svc := newTestAuthService(oauth, nil)
	state, stateCookie := startLogin(t, svc, oauth, "")
	oauth.On("ExchangeCode", mock.Anything, "bad-code").
		Return(nil, &shopify.OAuthError{Op: "exchange code for tokens", StatusCode: 400, Status: "Bad Request"})

	jar, _ := newJar(stateCookie)
	_, err := svc.HandleAuthCallback(context.Background(), jar, "bad-code", state)
	require.Error(t, err)
	assert.Equal(t, "failed to exchange code for tokens: Bad Request", err.Error())
	assert.False(t, svc.IsAuthenticated(jar))
}

// ============================================================================
// RefreshTokenIfNeeded
// ============================================================================

func TestRefreshTokenIfNeeded_NoRefreshToken(t *testing.T) {
	oauth := new(mockOAuth)
	svc := newTestAuthService(oauth, nil)
	jar, _ := newJar(&http.Cookie{Name: session.AccessTokenCookie, Value: "at"})

	refreshed, err := svc.RefreshTokenIfNeeded(context.Background(), jar)
	require.NoError(t, err)
	assert.False(t, refreshed)
	oauth.AssertNotCalled(t, "Refresh", mock.Anything, mock.Anything)
}

func TestRefreshTokenIfNeeded_Success(t *testing.T) {
	oauth := new(mockOAuth)
	oauth.On("Refresh", mock.Anything, "rt-1").Return(&domain.TokenSet{AccessToken: "at-2", RefreshToken: "rt-2"}, nil)
	svc := newTestAuthService(oauth, nil)
	jar, _ := newJar(signedInCookies()...)

	refreshed, err := svc.RefreshTokenIfNeeded(context.Background(), jar)
	require.NoError(t, err)
	assert.True(t, refreshed)
	assert.Equal(t, "at-2", jar.AccessToken())
	assert.Equal(t, "rt-2", jar.RefreshToken())
	assert.Equal(t, "cust-1", jar.CustomerID())
}

func TestRefreshTokenIfNeeded_KeepsRefreshTokenWhenNotRotated(t *testing.T) {
	oauth := new(mockOAuth)
	oauth.On("Refresh", mock.Anything, "rt-1").Return(&domain.TokenSet{AccessToken: "at-2"}, nil)
	svc := newTestAuthService(oauth, nil)
	jar, _ := newJar(signedInCookies()...)

	_, err := svc.RefreshTokenIfNeeded(context.Background(), jar)
	require.NoError(t, err)
	assert.Equal(t, "rt-1", jar.RefreshToken())
}

func TestRefreshTokenIfNeeded_FailureClearsSession(t *testing.T) {
	oauth := new(mockOAuth)
	oauth.On("Refresh", mock.Anything, "rt-1").
		Return(nil, &shopify.OAuthError{Op: "refresh token", StatusCode: 400, Status: "Bad Request"})
	svc := newTestAuthService(oauth, nil)
	jar, rec := newJar(signedInCookies()...)

	refreshed, err := svc.RefreshTokenIfNeeded(context.Background(), jar)
	require.Error(t, err)
	assert.False(t, refreshed)
	assert.False(t, svc.IsAuthenticated(jar))
	assert.Empty(t, jar.RefreshToken())
	assert.Empty(t, jar.CustomerID())
	assert.Equal(t, -1, lastCookie(rec, session.AccessTokenCookie).MaxAge)
}

// ============================================================================
// Logout
// ============================================================================

func TestLogout_ClearsCookiesEvenWhenRevokeFails(t *testing.T) {
	oauth := new(mockOAuth)
	oauth.On("Revoke", mock.Anything, "at-1").
		Return(&shopify.OAuthError{Op: "revoke token", StatusCode: 500, Status: "Internal Server Error"})
	svc := newTestAuthService(oauth, nil)
	jar, rec := newJar(signedInCookies()...)
	require.True(t, svc.IsAuthenticated(jar))

	target := svc.Logout(context.Background(), jar)
	assert.Equal(t, "/", target)
	assert.False(t, svc.IsAuthenticated(jar))

	for _, name := range []string{session.AccessTokenCookie, session.RefreshTokenCookie, session.CustomerIDCookie} {
		c := lastCookie(rec, name)
		require.NotNil(t, c, name)
		assert.Equal(t, -1, c.MaxAge, name)
		assert.Empty(t, c.Value, name)
	}
	oauth.AssertExpectations(t)
}

func TestLogout_WithoutTokenSkipsRevoke(t *testing.T) {
	oauth := new(mockOAuth)
	svc := newTestAuthService(oauth, nil)
	jar, _ := newJar()

	assert.Equal(t, "/", svc.Logout(context.Background(), jar))
	oauth.AssertNotCalled(t, "Revoke", mock.Anything, mock.Anything)
}

func TestLoginLogoutCycle(t *testing.T) {
	oauth := new(mockOAuth)
	svc := newTestAuthService(oauth, nil)
	state, stateCookie := startLogin(t, svc, oauth, "")
	oauth.On("ExchangeCode", mock.Anything, "code").Return(&domain.TokenSet{AccessToken: "at", RefreshToken: "rt", CustomerID: "c"}, nil)
	oauth.On("Revoke", mock.Anything, "at").Return(nil)

	jar, _ := newJar(stateCookie)
	_, err := svc.HandleAuthCallback(context.Background(), jar, "code", state)
	require.NoError(t, err)
	assert.True(t, svc.IsAuthenticated(jar))

	svc.Logout(context.Background(), jar)
	assert.False(t, svc.IsAuthenticated(jar))
	assert.Empty(t, jar.RefreshToken())
	assert.Empty(t, jar.CustomerID())
}

// ============================================================================
// CurrentCustomer
// ============================================================================

func TestCurrentCustomer_Unauthenticated(t *testing.T) {
	customers := new(mockCustomers)
	svc := newTestAuthService(new(mockOAuth), customers)
	jar, _ := newJar()

	_, err := svc.CurrentCustomer(context.Background(), jar)
	require.Error(t, err)
	assert.Equal(t, http.StatusUnauthorized, apperrors.HTTPStatus(err))
	customers.AssertNotCalled(t, "Customer", mock.Anything)
}

func TestCurrentCustomer_RefreshesThenReads(t *testing.T) {
	var gotToken string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotToken = r.Header.Get("X-Shopify-Customer-Access-Token")
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"data":{"customer":{"id":"gid://shopify/Customer/1","displayName":"Ada","emailAddress":{"emailAddress":"ada@example.com"}}}}`))
	}))
	defer srv.Close()
	ca := shopify.NewCustomerAccount(shopify.CustomerAccountConfig{Endpoint: srv.URL, APIVersion: "2025-04"}, testDoer())

	oauth := new(mockOAuth)
	oauth.On("Refresh", mock.Anything, "rt-1").Return(&domain.TokenSet{AccessToken: "at-2", RefreshToken: "rt-2"}, nil)
	svc := newTestAuthService(oauth, ca)
	jar, _ := newJar(signedInCookies()...)

	customer, err := svc.CurrentCustomer(context.Background(), jar)
	require.NoError(t, err)
	assert.Equal(t, "ada@example.com", customer.Email)
	assert.Equal(t, "at-2", gotToken)
}

func TestCurrentCustomer_RefreshFailureIs401(t *testing.T) {
	oauth := new(mockOAuth)
	oauth.On("Refresh", mock.Anything, "rt-1").Return(nil, &shopify.OAuthError{Op: "refresh token", StatusCode: 401, Status: "Unauthorized"})
	customers := new(mockCustomers)
	svc := newTestAuthService(oauth, customers)
	jar, _ := newJar(signedInCookies()...)

	_, err := svc.CurrentCustomer(context.Background(), jar)
	require.Error(t, err)
	assert.Equal(t, http.StatusUnauthorized, apperrors.HTTPStatus(err))
	assert.False(t, svc.IsAuthenticated(jar))
	customers.AssertNotCalled(t, "Customer", mock.Anything)
}

func TestCurrentCustomer_NotConfiguredIs401(t *testing.T) {
	customers := new(mockCustomers)
	customers.On("Customer", mock.Anything).Return(nil, apperrors.NotConfigured("SHOPIFY_CUSTOMER_ACCOUNT_API_VERSION"))
	svc := newTestAuthService(new(mockOAuth), customers)
	jar, _ := newJar(&http.Cookie{Name: session.AccessTokenCookie, Value: "at"})

	_, err := svc.CurrentCustomer(context.Background(), jar)
	require.Error(t, err)
	assert.Equal(t, http.StatusUnauthorized, apperrors.HTTPStatus(err))
	assert.Contains(t, err.Error(), "SHOPIFY_CUSTOMER_ACCOUNT_API_VERSION")
}

func TestAuthorizeURL_IsRelayedUnchanged(t *testing.T) {
	o := shopify.NewOAuth(shopify.OAuthConfig{ClientID: "client", BaseURL: "https://shopify.example", Origin: "https://shop.example"}, testDoer())
	svc := newTestAuthService(o, nil)
	jar, _ := newJar()

	target, err := svc.InitiateLogin(context.Background(), jar, "/cart")
	require.NoError(t, err)

	u, err := url.Parse(target)
	require.NoError(t, err)
	assert.Equal(t, "/auth/oauth/authorize", u.Path)
	assert.Equal(t, "https://shop.example/authorize", u.Query().Get("redirect_uri"))

	claims, err := svc.signer.Verify(u.Query().Get("state"))
	require.NoError(t, err)
	assert.Equal(t, "/cart", claims.RedirectTo)
	assert.Equal(t, jar.OAuthState(), claims.Nonce)
}
