package handler

import (
	"log/slog"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/productcatalog/catalog/internal/metrics"
	"github.com/productcatalog/catalog/internal/middleware"
	"github.com/productcatalog/catalog/internal/service"
)

// Rate limit scopes.
const (
	ScopeProducts = "products"
	ScopeToken    = "token"
)

// RouterConfig carries everything NewRouter wires together.
type RouterConfig struct {
	Logger   *slog.Logger
	Users    *service.UserService
	Products *service.ProductService
	Auth     *service.AuthService
	Metrics  metrics.Recorder
	// Snapshotter backs /metrics; nil answers 503.
	Snapshotter metrics.Snapshotter
	// Health maps dependency names to readiness checks.
	Health map[string]HealthChecker

	Limiter        middleware.IPLimiter
	RateLimitOn    bool
	RateLimitRPS   int
	RateLimitBurst int

	IsDevelopment  bool
	AllowedOrigins []string
	MaxBodySize    int64
}

// NewRouter configures the chi router with all routes and middleware.
func NewRouter(cfg RouterConfig) *chi.Mux {
	if cfg.Metrics == nil {
		cfg.Metrics = metrics.NewNoop()
	}
	if cfg.MaxBodySize <= 0 {
		cfg.MaxBodySize = middleware.DefaultMaxRequestBodySize
	}

	h := New()
	healthHandler := NewHealthHandler(cfg.Health)
	metricsHandler := NewMetricsHandler(cfg.Snapshotter)
	tokenHandler := NewTokenHandler(cfg.Auth, cfg.Logger.With("component", "handler.token"))
	userHandler := NewUserHandler(cfg.Users, cfg.Logger.With("component", "handler.users"))
	productHandler := NewProductHandler(cfg.Products, cfg.Logger.With("component", "handler.products"))

	r := chi.NewRouter()

	// Global middleware
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger(cfg.Logger))
	r.Use(middleware.Recoverer(cfg.Logger))
	r.Use(middleware.Security(cfg.IsDevelopment))
	r.Use(middleware.CORS(cfg.AllowedOrigins))
	r.Use(middleware.MaxBodySize(cfg.MaxBodySize))

	r.Get("/healthz", healthHandler.Healthz)
	r.Get("/readyz", healthHandler.Readyz)
	r.Get("/metrics", metricsHandler.Metrics)
	r.Get("/", h.Hello)

	authCfg := middleware.AuthConfig{
		Logger:        cfg.Logger,
		Authenticator: cfg.Auth,
		Metrics:       cfg.Metrics,
	}
	rateLimitCfg := middleware.RateLimitConfig{
		Logger:  cfg.Logger,
		Limiter: cfg.Limiter,
		Metrics: cfg.Metrics,
		Enabled: cfg.RateLimitOn,
		RPS:     cfg.RateLimitRPS,
		Burst:   cfg.RateLimitBurst,
	}
	requireAuth := middleware.RequireAuth(authCfg)
	requireAdmin := middleware.RequireAdmin(cfg.Logger)

	r.With(middleware.RateLimitIP(rateLimitCfg, ScopeToken)).Post("/token", tokenHandler.Issue)

	r.Route("/users", func(r chi.Router) {
		r.Use(requireAuth)
		r.Get("/", userHandler.List)
		r.Get("/{id}", userHandler.Get)
		r.With(requireAdmin).Post("/", userHandler.Create)
		r.With(requireAdmin).Put("/{id}", userHandler.Update)
		r.With(requireAdmin).Delete("/{id}", userHandler.Delete)
	})

	r.Route("/products", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(middleware.RateLimitIP(rateLimitCfg, ScopeProducts))
			r.Use(middleware.OptionalAuth(authCfg))
			r.Get("/", productHandler.List)
			r.Get("/{id}", productHandler.Get)
		})
		r.Group(func(r chi.Router) {
			r.Use(requireAuth)
			r.Get("/{id}/hits", productHandler.Hits)
			r.With(requireAdmin).Post("/", productHandler.Create)
			r.With(requireAdmin).Put("/{id}", productHandler.Update)
			r.With(requireAdmin).Delete("/{id}", productHandler.Delete)
		})
	})

	r.NotFound(h.NotFound)
	r.MethodNotAllowed(h.MethodNotAllowed)

	return r
}
