// Package api provides the HTTP API for ProHealth.
package api

import (
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/trace"

	"github.com/prohealth/prohealth/internal/advice"
	"github.com/prohealth/prohealth/internal/api/handler"
	"github.com/prohealth/prohealth/internal/api/middleware"
	"github.com/prohealth/prohealth/internal/featureflags"
	"github.com/prohealth/prohealth/internal/history"
	"github.com/prohealth/prohealth/internal/provider/resilience"
)

// RouterConfig holds configuration for the router.
type RouterConfig struct {
	Version   string
	BuildTime string
	Logger    zerolog.Logger

	// Metrics records HTTP server metrics (optional).
	Metrics *middleware.Metrics

	// Tracer overrides the global tracer (optional).
	Tracer trace.Tracer

	// RequireTLS rejects requests forwarded over plain HTTP.
	RequireTLS bool

	// History, Advice and FeatureFlags default to in-memory, fallback-only
	// and in-memory implementations respectively.
	History      *history.Store
	Advice       handler.AdviceService
	Tracker      *advice.Tracker
	FeatureFlags *featureflags.Service

	// Tokens validates admin tokens. Leave nil (not a typed nil pointer)
	// to lock the admin API.
	Tokens middleware.TokenValidator

	Registry        *resilience.Registry
	ReadinessChecks []handler.DependencyCheck
}

// NewRouter creates a new chi router with all API routes configured.
func NewRouter(cfg RouterConfig) *chi.Mux {
	r := chi.NewRouter()

	// Global middleware - order matters
	r.Use(middleware.RequestID)                // Generate/propagate request ID first
	r.Use(middleware.Tracing(cfg.Tracer, nil)) // Distributed tracing
	if cfg.Metrics != nil {
		r.Use(cfg.Metrics.Middleware()) // HTTP metrics
	}
	r.Use(middleware.Logger(cfg.Logger))         // Structured logging
	r.Use(middleware.Recovery(cfg.Logger))       // Panic recovery
	r.Use(chimiddleware.RealIP)                  // Real IP extraction
	r.Use(middleware.SecurityHeaders)            // Security headers (HSTS, CSP, etc.)
	r.Use(middleware.RequireTLS(cfg.RequireTLS)) // TLS enforcement
	r.Use(middleware.ContentTypeJSON)            // JSON content type

	tracker := cfg.Tracker
	if tracker == nil {
		tracker = advice.NewTracker()
	}
	store := cfg.History
	if store == nil {
		store = history.NewStore(history.StoreConfig{
			Storage: history.NewInMemoryStorage(),
			Logger:  cfg.Logger,
		})
	}
	flags := cfg.FeatureFlags
	if flags == nil {
		flags = featureflags.NewService(featureflags.ServiceConfig{
			Repository: featureflags.NewInMemoryRepository(),
			Logger:     cfg.Logger,
		})
	}
	adviceService := cfg.Advice
	if adviceService == nil {
		adviceService = advice.NewService(advice.ServiceConfig{Flags: flags, Logger: cfg.Logger})
	}

	opsHandler := handler.NewOpsHandler(handler.OpsHandlerConfig{
		Version:   cfg.Version,
		BuildTime: cfg.BuildTime,
		Checks:    cfg.ReadinessChecks,
		Registry:  cfg.Registry,
		Flags:     flags,
	})
	metricsHandler := handler.NewMetricsHandler(handler.MetricsHandlerConfig{
		History: store,
		Flags:   flags,
		Tracker: tracker,
		Logger:  cfg.Logger,
	})
	historyHandler := handler.NewHistoryHandler(store, cfg.Logger)
	adviceHandler := handler.NewAdviceHandler(adviceService, tracker)
	metadataHandler := handler.NewMetadataHandler()
	featureFlagsHandler := handler.NewFeatureFlagsHandler(flags, cfg.Logger)

	adminAuth := middleware.AdminAuth(cfg.Tokens)

	adviceRateLimit := middleware.RateLimitByIP(middleware.AdviceRateLimit)     // 10 req/min
	computeRateLimit := middleware.RateLimitByIP(middleware.ComputeRateLimit)   // 60 req/min
	standardRateLimit := middleware.RateLimitByIP(middleware.StandardRateLimit) // 100 req/min

	r.Route("/v1", func(r chi.Router) {
		r.Use(middleware.RequireJSON)

		// Ops endpoints (public)
		r.Route("/ops", func(r chi.Router) {
			r.Get("/health", opsHandler.HealthCheck)
			r.Get("/ready", opsHandler.ReadinessCheck)
			r.Get("/status", opsHandler.SystemStatus)
		})

		r.With(computeRateLimit).Post("/metrics:compute", metricsHandler.Compute)

		// Advice calls the remote model - strict rate limiting
		r.With(adviceRateLimit).Post("/advice", adviceHandler.Advise)

		r.Route("/history", func(r chi.Router) {
			r.Use(standardRateLimit)
			r.Get("/", historyHandler.List)
			r.Delete("/", historyHandler.Clear)
		})

		r.Route("/metadata", func(r chi.Router) {
			r.Use(standardRateLimit)
			r.Get("/categories", metadataHandler.Categories)
			r.Get("/defaults", metadataHandler.Defaults)
		})

		// Admin endpoints (admin JWT) - for internal operations
		r.Route("/admin", func(r chi.Router) {
			r.Use(adminAuth)
			r.Use(middleware.RateLimitByAdmin(middleware.AdminRateLimit))

			r.Route("/feature-flags", func(r chi.Router) {
				r.Get("/", featureFlagsHandler.ListFeatureFlags)
				r.Put("/", featureFlagsHandler.UpsertFeatureFlags)
				r.Post("/invalidate", featureFlagsHandler.InvalidateCache)
			})
		})
	})

	return r
}
