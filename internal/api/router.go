// Package api provides the HTTP surface of WeatherLens: the weather page,
// the JSON API and the operational endpoints.
package api

import (
	"io/fs"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/weatherlens/weatherlens/internal/api/handler"
	"github.com/weatherlens/weatherlens/internal/api/middleware"
	"github.com/weatherlens/weatherlens/internal/app"
	"github.com/weatherlens/weatherlens/internal/auth"
	"github.com/weatherlens/weatherlens/internal/featureflags"
	"github.com/weatherlens/weatherlens/internal/lastsearch"
	"github.com/weatherlens/weatherlens/internal/provider/resilience"
	"github.com/weatherlens/weatherlens/internal/render"
)

// RouterConfig holds configuration for the router.
type RouterConfig struct {
	Version    string
	BuildTime  string
	Title      string // page title (default "Weather")
	Logger     zerolog.Logger
	Metrics    *middleware.Metrics
	RequireTLS bool

	// Lookups and Page drive the weather page; usually the Orchestrator
	// and the Screen it renders to.
	Lookups handler.Lookups
	Page    handler.Page

	// Service and Renderer serve /v1/weather.
	Service  app.Querier
	Renderer *render.Renderer
	Store    lastsearch.Store

	Registry    *resilience.Registry
	ReadyChecks map[string]handler.Check

	// FeatureFlagService and Tokens enable the admin routes. Without
	// Tokens every admin request is rejected.
	FeatureFlagService *featureflags.Service
	Tokens             *auth.TokenService
}

// NewRouter creates a new chi router with all routes configured.
func NewRouter(cfg RouterConfig) *chi.Mux {
	r := chi.NewRouter()

	title := cfg.Title
	if title == "" {
		title = "Weather"
	}

	// Global middleware - order matters
	r.Use(middleware.RequestID) // Generate/propagate request ID first
	r.Use(middleware.Tracing()) // Distributed tracing
	if cfg.Metrics != nil {
		r.Use(cfg.Metrics.Middleware()) // HTTP metrics
	}
	r.Use(middleware.Logger(cfg.Logger))         // Structured logging
	r.Use(middleware.Recovery(cfg.Logger))       // Panic recovery
	r.Use(chimiddleware.RealIP)                  // Real IP extraction
	r.Use(middleware.SecurityHeaders)            // Security headers (HSTS, CSP, etc.)
	r.Use(middleware.RequireTLS(cfg.RequireTLS)) // TLS enforcement

	opsHandler := handler.NewOpsHandler(cfg.Version, cfg.BuildTime, cfg.Registry, cfg.ReadyChecks)
	lookupRateLimit := middleware.RateLimitByIP(middleware.LookupRateLimit)

	// Page routes
	if cfg.Lookups != nil && cfg.Page != nil {
		webHandler := handler.NewWebHandler(cfg.Lookups, cfg.Page, title, cfg.Logger)
		r.Get("/", webHandler.Index)
		r.With(lookupRateLimit).Get("/search", webHandler.Search)
		r.With(lookupRateLimit).Get("/locate", webHandler.Locate)
	}

	static, err := fs.Sub(render.Static, "static")
	if err != nil {
		panic(err) // embedded at build time
	}
	r.Handle("/static/*", http.StripPrefix("/static/", http.FileServer(http.FS(static))))

	// API v1 routes
	r.Route("/v1", func(r chi.Router) {
		r.Use(middleware.ContentTypeJSON)

		if cfg.Service != nil && cfg.Renderer != nil {
			weatherHandler := handler.NewWeatherHandler(cfg.Service, cfg.Renderer, cfg.Store)
			r.With(lookupRateLimit).Get("/weather", weatherHandler.GetWeather)
			r.Get("/last-search", weatherHandler.GetLastSearch)
		}

		// Ops endpoints (public)
		r.Route("/ops", func(r chi.Router) {
			r.Get("/health", opsHandler.HealthCheck)
			r.Get("/ready", opsHandler.ReadinessCheck)
			r.Get("/status", opsHandler.SystemStatus)
		})

		// Admin endpoints (admin token)
		if cfg.FeatureFlagService != nil {
			featureFlagsHandler := handler.NewFeatureFlagsHandler(cfg.FeatureFlagService, cfg.Logger)
			r.Route("/admin", func(r chi.Router) {
				r.Use(middleware.RateLimitByIP(middleware.AdminRateLimit))
				r.Use(middleware.Admin(cfg.Tokens))
				r.Use(middleware.RequireJSON)

				r.Route("/feature-flags", func(r chi.Router) {
					r.Get("/", featureFlagsHandler.ListFeatureFlags)
					r.Put("/", featureFlagsHandler.UpsertFeatureFlags)
					r.Post("/invalidate", featureFlagsHandler.InvalidateCache)
					r.Delete("/{key}", featureFlagsHandler.ResetFeatureFlag)
				})
			})
		}
	})

	return r
}
