package app

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/utafrali/calm-headless/internal/config"
)

func testConfig() *config.Config {
	return &config.Config{
		ServiceName:               "storefront-bff",
		Environment:               "test",
		HTTPPort:                  8080,
		AppOrigin:                 "http://shop.test",
		StoreDomain:               "calm.myshopify.com",
		StorefrontPublicToken:     "public-token-123456",
		StorefrontAPIVersion:      "2025-04",
		AdminAPIVersion:           "2023-10",
		CustomerAccountGraphQLURL: "https://customer-api.shopify.com/graphql",
		CustomerAccountAPIVersion: "2025-04",
		SessionMaxAge:             time.Hour,
		StoreBackend:              config.BackendMemory,
		CartMirrorTTL:             time.Hour,
		CartLockTTL:               time.Second,
		CartLockWait:              time.Second,
		UpstreamTimeout:           time.Second,
		CBMaxFailures:             5,
		CBTimeout:                 time.Second,
		OTELSampleRate:            1,
		CORSOrigins:               []string{"http://shop.test"},
	}
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func get(t *testing.T, h http.Handler, target string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
	return rec
}

func TestNewApp_MemoryBackend(t *testing.T) {
	a, err := NewApp(testConfig(), testLogger())
	require.NoError(t, err)
	t.Cleanup(a.Close)

	assert.Nil(t, a.rdb)
	assert.Nil(t, a.producer)
	assert.Equal(t, ":8080", a.httpServer.Addr)

	rec := get(t, a.Handler(), "/health/ready")
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = get(t, a.Handler(), "/api/test-env")
	require.Equal(t, http.StatusOK, rec.Code)
	var body struct {
		Data struct {
			Environment string `json:"environment"`
			Shopify     struct {
				StorefrontPublicToken string `json:"storefront_public_token"`
			} `json:"shopify"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "test", body.Data.Environment)
	assert.Equal(t, "publ...3456", body.Data.Shopify.StorefrontPublicToken)
}

func TestNewApp_RedisBackend(t *testing.T) {
	mr := miniredis.RunT(t)
	cfg := testConfig()
	cfg.StoreBackend = config.BackendRedis
	cfg.RedisURL = "redis://" + mr.Addr() + "/0"

	a, err := NewApp(cfg, testLogger())
	require.NoError(t, err)
	t.Cleanup(a.Close)

	require.NotNil(t, a.rdb)
	rec := get(t, a.Handler(), "/health/ready")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"redis"`)
}

func TestNewApp_RedisUnavailable(t *testing.T) {
	cfg := testConfig()
	cfg.StoreBackend = config.BackendRedis
	cfg.RedisURL = "redis://127.0.0.1:1/0"

	a, err := NewApp(cfg, testLogger())

	assert.Nil(t, a)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connect to redis")
}

func TestNewApp_CustomerAPIWithoutSession(t *testing.T) {
	a, err := NewApp(testConfig(), testLogger())
	require.NoError(t, err)
	t.Cleanup(a.Close)

	rec := get(t, a.Handler(), "/api/auth/customer")

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestStateSecret(t *testing.T) {
	cfg := testConfig()
	a := &App{cfg: cfg, logger: testLogger()}

	generated, err := a.stateSecret()
	require.NoError(t, err)
	assert.Len(t, generated, 32)

	cfg.StateSecret = "0123456789abcdef0123456789abcdef"
	configured, err := a.stateSecret()
	require.NoError(t, err)
	assert.Equal(t, []byte(cfg.StateSecret), configured)
}
