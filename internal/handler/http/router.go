package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/utafrali/calm-headless/internal/graphql"
	"github.com/utafrali/calm-headless/internal/service"
	"github.com/utafrali/calm-headless/internal/session"
	"github.com/utafrali/calm-headless/pkg/health"
	"github.com/utafrali/calm-headless/pkg/middleware"
)

const serviceName = "storefront-bff"

// Services are the application services the routes dispatch to.
type Services struct {
	Cart     *service.CartService
	Auth     *service.AuthService
	Account  *service.AccountService
	Catalog  *service.CatalogService
	Admin    *service.AdminService
	Env      *service.EnvService
	Sessions *session.Manager

	// GraphQL maps the relay's api names to their remote clients.
	GraphQL map[string]*graphql.Client
}

// Options tune the router's cross-cutting behavior.
type Options struct {
	// Origin is the storefront origin that login redirects resolve against.
	Origin         string
	CORS           middleware.CORSConfig
	RateLimitRPS   float64
	RateLimitBurst int
	PprofCIDRs     []string
	// CatalogMaxAge is the public cache lifetime of catalog responses, in seconds.
	CatalogMaxAge int
	// OperatorKey guards the admin routes and the relay's admin api. Empty
	// disables both.
	OperatorKey string
}

// NewRouter creates a chi router with all storefront routes registered.
func NewRouter(
	svc Services,
	healthHandler *health.Handler,
	logger *slog.Logger,
	opts Options,
) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.Recovery(logger))
	r.Use(chimw.RealIP)
	r.Use(chimw.Compress(5))
	r.Use(chimw.Timeout(30 * time.Second))
	r.Use(middleware.CORS(opts.CORS))
	r.Use(middleware.RequestLogging(logger))
	r.Use(middleware.PrometheusMetrics(serviceName))
	r.Use(middleware.Tracing(serviceName))
	r.Use(middleware.CustomerSession(session.CustomerIDCookie))
	r.Use(middleware.RequestLogger(logger))

	// Health check endpoints
	r.Get("/health/live", healthHandler.LivenessHandler())
	r.Get("/health/ready", healthHandler.ReadinessHandler())
	r.Get("/metrics", func(w http.ResponseWriter, r *http.Request) {
		promhttp.Handler().ServeHTTP(w, r)
	})

	// Pprof debug endpoints with IP allowlist.
	middleware.RegisterPprof(r, opts.PprofCIDRs, logger)

	cartHandler := NewCartHandler(svc.Cart, svc.Sessions, logger)
	graphqlHandler := NewGraphQLHandler(svc.GraphQL, svc.Auth, svc.Sessions, opts.OperatorKey, logger)
	catalogHandler := NewCatalogHandler(svc.Catalog, logger)
	authHandler := NewAuthHandler(svc.Auth, svc.Sessions, opts.Origin, logger)
	accountHandler := NewAccountHandler(svc.Account, logger)
	adminHandler := NewAdminHandler(svc.Admin, svc.Env, logger)

	// One limiter for every client-facing route so /authorize shares the
	// budget of /api.
	limit := middleware.RateLimit(opts.RateLimitRPS, opts.RateLimitBurst, logger)

	r.With(limit, middleware.NoStore).Get("/authorize", authHandler.Callback)

	r.Route("/api", func(r chi.Router) {
		r.Use(limit)
		r.Use(ContentTypeJSON)

		// Catalog responses do not depend on cookies.
		r.Group(func(r chi.Router) {
			r.Use(middleware.CacheControl(opts.CatalogMaxAge))

			r.Get("/products", catalogHandler.ListProducts)
			r.Get("/products/{handle}", catalogHandler.GetProduct)
			r.Get("/collections", catalogHandler.ListCollections)
			r.Get("/collections/{handle}", catalogHandler.GetCollection)
			r.Get("/search", catalogHandler.Search)
		})

		r.Group(func(r chi.Router) {
			r.Use(middleware.NoStore)
			r.Use(svc.Sessions.IssueVisitor)

			r.Route("/cart", func(r chi.Router) {
				r.Get("/", cartHandler.GetCart)
				r.Delete("/", cartHandler.ClearCart)
				r.Post("/create", cartHandler.CreateCart)
				r.Post("/items", cartHandler.AddItem)
				r.Patch("/lines/{lineId}", cartHandler.UpdateItem)
				r.Delete("/lines/{lineId}", cartHandler.RemoveItem)
				r.Put("/drawer", cartHandler.SetDrawer)
				r.Post("/drawer/toggle", cartHandler.ToggleDrawer)

				// Cart ids are percent-encoded gids.
				r.Get("/{id}", cartHandler.GetCartByID)
				r.Post("/{id}", cartHandler.AddLines)
				r.Put("/{id}", cartHandler.UpdateLines)
				r.Delete("/{id}", cartHandler.RemoveLines)
			})

			r.Post("/graphql", graphqlHandler.Relay)

			r.Route("/auth", func(r chi.Router) {
				r.Get("/login", authHandler.Login)
				r.Get("/logout", authHandler.Logout)
				r.Get("/customer", authHandler.Customer)
				r.Get("/session", authHandler.Session)
			})

			r.Route("/account", func(r chi.Router) {
				r.Post("/login", accountHandler.Login)
				r.Post("/register", accountHandler.Register)
				r.Post("/recover", accountHandler.Recover)
				r.Post("/reset", accountHandler.Reset)
				r.Post("/renew", accountHandler.Renew)

				r.Group(func(r chi.Router) {
					r.Use(middleware.RequireCookie(session.AccessTokenCookie, "Not authenticated"))
					r.Use(RequireSession(svc.Auth, svc.Sessions, logger))

					r.Get("/orders", accountHandler.ListOrders)
					r.Get("/orders/{id}", accountHandler.GetOrder)
					r.Get("/addresses", accountHandler.ListAddresses)
					r.Post("/addresses", accountHandler.CreateAddress)
					r.Put("/addresses/{id}", accountHandler.UpdateAddress)
					r.Delete("/addresses/{id}", accountHandler.DeleteAddress)
					r.Put("/addresses/{id}/default", accountHandler.SetDefaultAddress)
					r.Put("/profile", accountHandler.UpdateProfile)
				})
			})

			r.Route("/admin", func(r chi.Router) {
				r.Use(middleware.RequireOperator(opts.OperatorKey))

				r.Get("/status", adminHandler.Status)
				r.Get("/products", adminHandler.ListProducts)
				r.Get("/orders", adminHandler.ListOrders)
			})

			r.Get("/test-env", adminHandler.TestEnv)
		})
	})

	return r
}
