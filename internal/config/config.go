package config

import (
	"fmt"
	"time"

	pkgconfig "github.com/utafrali/calm-headless/pkg/config"
)

// Store backends.
const (
	BackendRedis  = "redis"
	BackendMemory = "memory"
)

// minStateSecretLen is the shortest HMAC key accepted for OAuth state.
const minStateSecretLen = 32

// minOperatorKeyLen is the shortest admin operator key accepted.
const minOperatorKeyLen = 24

// Config holds all configuration for the storefront BFF.
type Config struct {
	ServiceName string `env:"SERVICE_NAME" envDefault:"storefront-bff"`
	Environment string `env:"ENVIRONMENT" envDefault:"development"`
	LogLevel    string `env:"LOG_LEVEL" envDefault:"info"`

	// HTTP server
	HTTPPort int `env:"HTTP_PORT" envDefault:"8080"`

	// AppOrigin is the public storefront origin. Login redirects and the
	// OAuth redirect URI are built from it.
	AppOrigin string `env:"APP_ORIGIN" envDefault:"http://localhost:3000"`

	// Storefront API
	StoreDomain            string `env:"SHOPIFY_STORE_DOMAIN"`
	StorefrontPublicToken  string `env:"SHOPIFY_STOREFRONT_PUBLIC_TOKEN"`
	StorefrontPrivateToken string `env:"SHOPIFY_STOREFRONT_PRIVATE_TOKEN"`
	StorefrontAPIVersion   string `env:"SHOPIFY_STOREFRONT_API_VERSION" envDefault:"2025-04"`

	// Admin API. OperatorKey is the bearer credential callers of the admin
	// routes must present; without it those routes are closed.
	AdminAccessToken string `env:"SHOPIFY_ADMIN_API_ACCESS_TOKEN"`
	AdminAPIVersion  string `env:"SHOPIFY_ADMIN_API_VERSION" envDefault:"2023-10"`
	OperatorKey      string `env:"ADMIN_OPERATOR_KEY"`

	// Customer Account API
	CustomerAccountClientID   string `env:"SHOPIFY_CUSTOMER_ACCOUNT_CLIENT_ID"`
	CustomerAccountAPIURL     string `env:"SHOPIFY_CUSTOMER_ACCOUNT_API_URL"`
	CustomerAccountGraphQLURL string `env:"SHOPIFY_CUSTOMER_ACCOUNT_GRAPHQL_URL" envDefault:"https://customer-api.shopify.com/graphql"`
	CustomerAccountAPIVersion string `env:"SHOPIFY_CUSTOMER_ACCOUNT_API_VERSION" envDefault:"2025-04"`

	// Session cookies
	StateSecret   string        `env:"SESSION_STATE_SECRET"`
	CookieSecure  bool          `env:"COOKIE_SECURE" envDefault:"true"`
	SessionMaxAge time.Duration `env:"SESSION_MAX_AGE" envDefault:"720h"`

	// Cart mirror store
	StoreBackend  string        `env:"STORE_BACKEND" envDefault:"redis"`
	RedisURL      string        `env:"REDIS_URL" envDefault:"redis://localhost:6379/0"`
	CartMirrorTTL time.Duration `env:"CART_MIRROR_TTL" envDefault:"720h"`
	CartLockTTL   time.Duration `env:"CART_LOCK_TTL" envDefault:"60s"`
	CartLockWait  time.Duration `env:"CART_LOCK_WAIT" envDefault:"5s"`

	// Upstream HTTP
	UpstreamTimeout    time.Duration `env:"UPSTREAM_TIMEOUT" envDefault:"10s"`
	UpstreamMaxRetries int           `env:"UPSTREAM_MAX_RETRIES" envDefault:"2"`
	UpstreamRetryWait  time.Duration `env:"UPSTREAM_RETRY_WAIT_MAX" envDefault:"2s"`
	CBMaxFailures      uint32        `env:"CB_MAX_FAILURES" envDefault:"5"`
	CBTimeout          time.Duration `env:"CB_TIMEOUT" envDefault:"30s"`

	// Rate limiting per client IP
	RateLimitRPS   float64 `env:"RATE_LIMIT_RPS" envDefault:"20"`
	RateLimitBurst int     `env:"RATE_LIMIT_BURST" envDefault:"40"`

	// Kafka; no brokers disables cart events.
	KafkaBrokers   []string `env:"KAFKA_BROKERS" envSeparator:","`
	KafkaCartTopic string   `env:"KAFKA_CART_TOPIC" envDefault:"storefront.cart.events"`

	// OpenTelemetry; no endpoint disables tracing.
	OTELEndpoint   string  `env:"OTEL_EXPORTER_OTLP_ENDPOINT"`
	OTELSampleRate float64 `env:"OTEL_SAMPLE_RATE" envDefault:"1.0"`

	// CORSOrigins defaults to AppOrigin.
	CORSOrigins       []string `env:"CORS_ALLOWED_ORIGINS" envSeparator:","`
	PprofAllowedCIDRs []string `env:"PPROF_ALLOWED_CIDRS" envDefault:"127.0.0.1/32" envSeparator:","`
}

// Load reads configuration from environment variables. Missing commerce
// credentials are not an error; the calls that need them fail instead.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := pkgconfig.Load(cfg); err != nil {
		return nil, fmt.Errorf("load storefront config: %w", err)
	}
	if len(cfg.CORSOrigins) == 0 {
		cfg.CORSOrigins = []string{cfg.AppOrigin}
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks configuration invariants.
func (c *Config) Validate() error {
	if c.HTTPPort < 1 || c.HTTPPort > 65535 {
		return fmt.Errorf("invalid HTTP port: %d", c.HTTPPort)
	}
	if c.AppOrigin == "" {
		return fmt.Errorf("APP_ORIGIN is required")
	}
	switch c.StoreBackend {
	case BackendRedis, BackendMemory:
	default:
		return fmt.Errorf("STORE_BACKEND must be %q or %q, got %q", BackendRedis, BackendMemory, c.StoreBackend)
	}
	if c.StoreBackend == BackendRedis && c.RedisURL == "" {
		return fmt.Errorf("REDIS_URL is required when STORE_BACKEND=redis")
	}
	if c.StateSecret != "" && len(c.StateSecret) < minStateSecretLen {
		return fmt.Errorf("SESSION_STATE_SECRET must be at least %d bytes", minStateSecretLen)
	}
	if c.CartLockTTL <= 0 || c.CartLockWait <= 0 {
		return fmt.Errorf("CART_LOCK_TTL and CART_LOCK_WAIT must be positive")
	}
	if c.UpstreamMaxRetries < 0 {
		return fmt.Errorf("UPSTREAM_MAX_RETRIES must not be negative")
	}
	if c.StoreBackend == BackendRedis {
		if worst := c.UpstreamWorstCase(); c.CartLockTTL <= worst {
			return fmt.Errorf("CART_LOCK_TTL (%s) must exceed the worst-case upstream call (%s)", c.CartLockTTL, worst)
		}
	}
	if c.OperatorKey != "" && len(c.OperatorKey) < minOperatorKeyLen {
		return fmt.Errorf("ADMIN_OPERATOR_KEY must be at least %d bytes", minOperatorKeyLen)
	}
	if c.RateLimitRPS < 0 || c.RateLimitBurst < 0 {
		return fmt.Errorf("RATE_LIMIT_RPS and RATE_LIMIT_BURST must not be negative")
	}
	if c.OTELSampleRate < 0 || c.OTELSampleRate > 1 {
		return fmt.Errorf("OTEL_SAMPLE_RATE must be between 0.0 and 1.0, got %v", c.OTELSampleRate)
	}
	return nil
}

// UpstreamWorstCase is the longest a cart lock can be held: a read whose
// every retry attempt times out, then one mutation, which is never retried.
func (c *Config) UpstreamWorstCase() time.Duration {
	retries := time.Duration(c.UpstreamMaxRetries)
	read := c.UpstreamTimeout*(retries+1) + c.UpstreamRetryWait*retries
	return read + c.UpstreamTimeout
}

// IsProduction reports whether the service runs in production.
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

// AdminConfigured reports whether an Admin API token was supplied.
func (c *Config) AdminConfigured() bool {
	return c.AdminAccessToken != ""
}
