package app

import (
	"context"
	"crypto/rand"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"

	"github.com/utafrali/calm-headless/internal/auth"
	"github.com/utafrali/calm-headless/internal/config"
	"github.com/utafrali/calm-headless/internal/event"
	"github.com/utafrali/calm-headless/internal/graphql"
	handler "github.com/utafrali/calm-headless/internal/handler/http"
	"github.com/utafrali/calm-headless/internal/repository"
	"github.com/utafrali/calm-headless/internal/repository/memory"
	redisrepo "github.com/utafrali/calm-headless/internal/repository/redis"
	"github.com/utafrali/calm-headless/internal/service"
	"github.com/utafrali/calm-headless/internal/session"
	"github.com/utafrali/calm-headless/internal/shopify"
	"github.com/utafrali/calm-headless/pkg/database"
	"github.com/utafrali/calm-headless/pkg/health"
	"github.com/utafrali/calm-headless/pkg/httpclient"
	pkgkafka "github.com/utafrali/calm-headless/pkg/kafka"
	"github.com/utafrali/calm-headless/pkg/middleware"
	"github.com/utafrali/calm-headless/pkg/tracing"
)

// App wires together all dependencies and runs the storefront BFF.
type App struct {
	cfg            *config.Config
	logger         *slog.Logger
	rdb            *redis.Client
	producer       *pkgkafka.Producer
	httpServer     *http.Server
	tracerShutdown func(context.Context) error
}

// stores are the cart and login state repositories of one backend.
type stores struct {
	mirrors  repository.CartMirrorRepository
	locker   repository.CartLocker
	visitors repository.VisitorCartRepository
	states   repository.StateStore
}

// NewApp creates a new application instance, initializing all dependencies.
func NewApp(cfg *config.Config, logger *slog.Logger) (*App, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	a := &App{cfg: cfg, logger: logger}

	// Initialize tracing. A missing endpoint installs a no-op provider.
	shutdown, err := tracing.InitTracer(ctx, tracing.Config{
		ServiceName:  cfg.ServiceName,
		Environment:  cfg.Environment,
		OTLPEndpoint: cfg.OTELEndpoint,
		SampleRate:   cfg.OTELSampleRate,
	})
	if err != nil {
		return nil, fmt.Errorf("init tracing: %w", err)
	}
	a.tracerShutdown = shutdown

	healthHandler := health.NewHandler()

	st, err := a.openStores(ctx, healthHandler)
	if err != nil {
		a.Close()
		return nil, err
	}

	// Cart events are optional; without brokers nothing is published.
	var publisher event.Publisher = event.NopPublisher{}
	if len(cfg.KafkaBrokers) > 0 {
		a.producer = pkgkafka.NewProducer(pkgkafka.DefaultProducerConfig(cfg.KafkaBrokers), logger)
		publisher = event.NewProducer(a.producer, cfg.KafkaCartTopic, logger)
		healthHandler.RegisterNonCritical("kafka", a.producer.Ping)
		logger.Info("kafka producer initialized",
			slog.Any("brokers", cfg.KafkaBrokers),
			slog.String("topic", cfg.KafkaCartTopic),
		)
	} else {
		logger.Info("kafka brokers not configured, cart events disabled")
	}

	// One HTTP client with retries, one circuit breaker per remote API.
	base := httpclient.New(httpclient.Config{
		Timeout:         cfg.UpstreamTimeout,
		MaxRetries:      cfg.UpstreamMaxRetries,
		RetryWaitMin:    200 * time.Millisecond,
		RetryWaitMax:    cfg.UpstreamRetryWait,
		MaxConnsPerHost: 100,
	})
	breaker := func(name string) *httpclient.CircuitBreakerClient {
		cbCfg := httpclient.DefaultCircuitBreakerConfig(name)
		cbCfg.Timeout = cfg.CBTimeout
		cbCfg.MinRequests = cfg.CBMaxFailures
		return httpclient.NewCircuitBreakerClient(base, cbCfg, logger)
	}

	storefront := shopify.NewStorefront(shopify.StorefrontConfig{
		Domain:       cfg.StoreDomain,
		PublicToken:  cfg.StorefrontPublicToken,
		PrivateToken: cfg.StorefrontPrivateToken,
		APIVersion:   cfg.StorefrontAPIVersion,
	}, breaker("shopify-storefront"))
	customer := shopify.NewCustomerAccount(shopify.CustomerAccountConfig{
		Endpoint:   cfg.CustomerAccountGraphQLURL,
		APIVersion: cfg.CustomerAccountAPIVersion,
	}, breaker("shopify-customer"))
	admin := shopify.NewAdmin(shopify.AdminConfig{
		Domain:      cfg.StoreDomain,
		AccessToken: cfg.AdminAccessToken,
		APIVersion:  cfg.AdminAPIVersion,
	}, breaker("shopify-admin"))
	oauth := shopify.NewOAuth(shopify.OAuthConfig{
		ClientID: cfg.CustomerAccountClientID,
		BaseURL:  cfg.CustomerAccountAPIURL,
		Origin:   cfg.AppOrigin,
	}, breaker("shopify-oauth"))

	secret, err := a.stateSecret()
	if err != nil {
		a.Close()
		return nil, err
	}

	// Build the dependency graph.
	sessions := session.NewManager(cfg.CookieSecure, cfg.SessionMaxAge)
	signer := auth.NewStateSigner(secret, session.StateMaxAge)
	authService := service.NewAuthService(oauth, customer, st.states, signer, logger)

	svc := handler.Services{
		Cart:     service.NewCartService(storefront, st.mirrors, st.locker, st.visitors, publisher, logger),
		Auth:     authService,
		Account:  service.NewAccountService(storefront, customer, logger),
		Catalog:  service.NewCatalogService(storefront),
		Admin:    service.NewAdminService(admin, cfg.AdminConfigured(), logger),
		Env:      service.NewEnvService(envSettings(cfg)),
		Sessions: sessions,
		GraphQL: map[string]*graphql.Client{
			handler.APIStorefront: storefront.GraphQL(),
			handler.APICustomer:   customer.GraphQL(),
			handler.APIAdmin:      admin.GraphQL(),
		},
	}

	// HTTP router.
	router := handler.NewRouter(svc, healthHandler, logger, handler.Options{
		Origin:         cfg.AppOrigin,
		CORS:           middleware.DefaultCORSConfig(cfg.CORSOrigins, cfg.Environment),
		RateLimitRPS:   cfg.RateLimitRPS,
		RateLimitBurst: cfg.RateLimitBurst,
		PprofCIDRs:     cfg.PprofAllowedCIDRs,
		CatalogMaxAge:  60,
		OperatorKey:    cfg.OperatorKey,
	})
	if cfg.AdminConfigured() && cfg.OperatorKey == "" {
		logger.Warn("ADMIN_OPERATOR_KEY not set, admin routes are closed")
	}

	a.httpServer = &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      35 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	return a, nil
}

// openStores connects the configured cart store backend.
func (a *App) openStores(ctx context.Context, healthHandler *health.Handler) (stores, error) {
	cfg := a.cfg
	if cfg.StoreBackend == config.BackendMemory {
		a.logger.Warn("using in-memory cart store; state is lost on restart and not shared between instances")
		return stores{
			mirrors:  memory.NewMirrorRepository(),
			locker:   memory.NewLocker(cfg.CartLockWait),
			visitors: memory.NewVisitorRepository(),
			states:   memory.NewStateStore(),
		}, nil
	}

	redisCfg := database.DefaultRedisConfig()
	redisCfg.URL = cfg.RedisURL
	rdb, err := database.NewRedisClient(ctx, redisCfg, a.logger)
	if err != nil {
		return stores{}, fmt.Errorf("connect to redis: %w", err)
	}
	a.rdb = rdb
	a.logger.Info("connected to Redis")

	if err := database.RegisterPoolMetrics(prometheus.DefaultRegisterer, rdb, cfg.ServiceName); err != nil {
		a.logger.Warn("failed to register redis pool metrics", slog.String("error", err.Error()))
	}
	healthHandler.RegisterCritical("redis", database.RedisChecker(rdb))

	return stores{
		mirrors:  redisrepo.NewMirrorRepository(rdb, cfg.CartMirrorTTL),
		locker:   redisrepo.NewLocker(rdb, cfg.CartLockTTL, cfg.CartLockWait, a.logger),
		visitors: redisrepo.NewVisitorRepository(rdb, cfg.CartMirrorTTL),
		states:   redisrepo.NewStateStore(rdb),
	}, nil
}

// stateSecret returns the OAuth state key. Without a configured secret a
// random one is used; logins then do not survive a restart and only work
// against a single instance.
func (a *App) stateSecret() ([]byte, error) {
	if a.cfg.StateSecret != "" {
		return []byte(a.cfg.StateSecret), nil
	}
	secret := make([]byte, 32)
	if _, err := rand.Read(secret); err != nil {
		return nil, fmt.Errorf("generate state secret: %w", err)
	}
	a.logger.Warn("SESSION_STATE_SECRET not set, using a per-process secret")
	return secret, nil
}

func envSettings(cfg *config.Config) service.EnvSettings {
	return service.EnvSettings{
		Environment:             cfg.Environment,
		StoreDomain:             cfg.StoreDomain,
		StorefrontPublicToken:   cfg.StorefrontPublicToken,
		StorefrontPrivateToken:  cfg.StorefrontPrivateToken,
		AdminAPIToken:           cfg.AdminAccessToken,
		CustomerAccountClientID: cfg.CustomerAccountClientID,
		CustomerAccountAPIURL:   cfg.CustomerAccountAPIURL,
	}
}

// Handler returns the HTTP handler of the application.
func (a *App) Handler() http.Handler {
	return a.httpServer.Handler
}

// Run starts the HTTP server and blocks until the context is canceled.
func (a *App) Run(ctx context.Context) error {
	errCh := make(chan error, 1)

	go func() {
		a.logger.Info("starting HTTP server",
			slog.String("addr", a.httpServer.Addr),
		)
		if err := a.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- fmt.Errorf("http server: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		a.logger.Info("shutdown signal received")
	case err := <-errCh:
		a.Close()
		return err
	}

	return a.Shutdown()
}

// Shutdown gracefully stops all components.
func (a *App) Shutdown() error {
	a.logger.Info("shutting down application...")

	// Graceful HTTP server shutdown with a 10-second deadline.
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := a.httpServer.Shutdown(shutdownCtx); err != nil {
		a.logger.Error("http server shutdown error", slog.String("error", err.Error()))
	}

	a.Close()
	a.logger.Info("application shutdown complete")
	return nil
}

// Close releases the Kafka producer, the Redis client and the tracer.
func (a *App) Close() {
	if a.producer != nil {
		if err := a.producer.Close(); err != nil {
			a.logger.Error("kafka producer close error", slog.String("error", err.Error()))
		}
		a.producer = nil
	}

	if a.rdb != nil {
		if err := a.rdb.Close(); err != nil {
			a.logger.Error("redis close error", slog.String("error", err.Error()))
		}
		a.rdb = nil
	}

	if a.tracerShutdown != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := a.tracerShutdown(ctx); err != nil {
			a.logger.Error("tracer shutdown error", slog.String("error", err.Error()))
		}
		a.tracerShutdown = nil
	}
}
