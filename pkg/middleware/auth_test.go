package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCustomerSession_SetsCustomerID(t *testing.T) {
	var got string
	handler := CustomerSession("shopify_customer_id")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = CustomerIDFromContext(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/account/orders", nil)
	req.AddCookie(&http.Cookie{Name: "shopify_customer_id", Value: "gid://shopify/Customer/1"})
	handler.ServeHTTP(httptest.NewRecorder(), req)

	assert.Equal(t, "gid://shopify/Customer/1", got)
}

func TestCustomerSession_NoCookie(t *testing.T) {
	got := "unset"
	handler := CustomerSession("shopify_customer_id")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = CustomerIDFromContext(r.Context())
	}))

	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Empty(t, got)
}

func TestRequireOperator(t *testing.T) {
	const key = "operator-key-0123456789abcdef"

	tests := []struct {
		name       string
		key        string
		header     string
		wantStatus int
		wantCode   string
	}{
		{name: "valid key", key: key, header: "Bearer " + key, wantStatus: http.StatusOK},
		{name: "scheme is case insensitive", key: key, header: "bearer " + key, wantStatus: http.StatusOK},
		{name: "missing header", key: key, wantStatus: http.StatusUnauthorized, wantCode: "UNAUTHORIZED"},
		{name: "basic scheme", key: key, header: "Basic " + key, wantStatus: http.StatusUnauthorized, wantCode: "UNAUTHORIZED"},
		{name: "wrong key", key: key, header: "Bearer nope", wantStatus: http.StatusUnauthorized, wantCode: "UNAUTHORIZED"},
		{name: "no key configured", header: "Bearer ", wantStatus: http.StatusForbidden, wantCode: "FORBIDDEN"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/admin/orders", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()

			RequireOperator(tt.key)(okHandler()).ServeHTTP(rec, req)

			assert.Equal(t, tt.wantStatus, rec.Code)
			if tt.wantCode != "" {
				assert.Contains(t, rec.Body.String(), `"code":"`+tt.wantCode+`"`)
			}
		})
	}
}

func TestRequireCookie(t *testing.T) {
	handler := RequireCookie("shopify_customer_access_token", "not authenticated")(okHandler())

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/account/orders", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.JSONEq(t, `{"error":{"code":"UNAUTHORIZED","message":"not authenticated"}}`, rec.Body.String())

	req := httptest.NewRequest(http.MethodGet, "/api/account/orders", nil)
	req.AddCookie(&http.Cookie{Name: "shopify_customer_access_token", Value: "tok"})
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestNoStore(t *testing.T) {
	rec := httptest.NewRecorder()
	NoStore(okHandler()).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/cart", nil))

	assert.Equal(t, "no-store", rec.Header().Get("Cache-Control"))
	assert.Equal(t, "Cookie", rec.Header().Get("Vary"))
}

func TestCacheControl_OnlyGet(t *testing.T) {
	h := CacheControl(60)(okHandler())

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/products", nil))
	assert.Equal(t, "public, max-age=60", rec.Header().Get("Cache-Control"))

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/products", nil))
	assert.Empty(t, rec.Header().Get("Cache-Control"))
}

func TestRecovery_ReturnsEnvelope(t *testing.T) {
	h := Recovery(discardLogger())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.JSONEq(t, `{"error":{"code":"INTERNAL_ERROR","message":"an internal error occurred"}}`, rec.Body.String())
}
