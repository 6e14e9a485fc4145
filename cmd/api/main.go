// Package main provides the entrypoint for the ProHealth API server.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/prohealth/prohealth/internal/advice"
	"github.com/prohealth/prohealth/internal/advice/gemini"
	"github.com/prohealth/prohealth/internal/api"
	"github.com/prohealth/prohealth/internal/api/middleware"
	"github.com/prohealth/prohealth/internal/auth"
	"github.com/prohealth/prohealth/internal/config"
	"github.com/prohealth/prohealth/internal/featureflags"
	"github.com/prohealth/prohealth/internal/history"
	"github.com/prohealth/prohealth/internal/provider/resilience"
	"github.com/prohealth/prohealth/internal/telemetry"
)

// Version and BuildTime are set at compile time via ldflags.
var (
	Version   = "dev"
	BuildTime = "unknown"
)

func main() {
	const serviceName = "prohealth-api"

	log := zerolog.New(os.Stdout).
		With().
		Timestamp().
		Str("service", serviceName).
		Str("version", Version).
		Logger()

	log.Info().
		Str("build_time", BuildTime).
		Msg("starting ProHealth API")

	if err := config.LoadDotEnv(); err != nil {
		log.Fatal().Err(err).Msg("failed to load .env")
	}
	cfg, err := config.FromEnv()
	if err != nil {
		log.Fatal().Err(err).Msg("invalid configuration")
	}

	ctx := context.Background()

	tp, err := telemetry.Init(ctx, telemetry.Config{
		ServiceName:    serviceName,
		ServiceVersion: Version,
		Environment:    cfg.Environment,
		OTLPEndpoint:   cfg.OTelEndpoint,
		Insecure:       cfg.OTelInsecure,
		Enabled:        cfg.OTelEnabled,
		SampleRatio:    cfg.OTelSampleRatio,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize telemetry")
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if shutdownErr := tp.Shutdown(shutdownCtx); shutdownErr != nil {
			log.Error().Err(shutdownErr).Msg("failed to shutdown telemetry")
		}
	}()

	if cfg.OTelEnabled {
		log.Info().
			Str("otlp_endpoint", cfg.OTelEndpoint).
			Msg("OpenTelemetry initialized")
	}

	metrics, err := middleware.NewMetrics(tp.Meter)
	if err != nil {
		log.Error().Err(err).Msg("failed to initialize metrics")
		os.Exit(1) //nolint:gocritic // intentional exit, telemetry cleanup is best-effort
	}

	// History storage and feature flag repository
	persistence, err := openBackend(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Str("backend", cfg.HistoryBackend).Msg("failed to open history backend")
	}
	defer persistence.Close()

	store := history.NewStore(history.StoreConfig{
		Storage: persistence.Storage,
		Logger:  log,
	})
	entries := store.Load(ctx)
	log.Info().
		Str("backend", cfg.HistoryBackend).
		Int("entries", len(entries)).
		Msg("history loaded")

	ffService := featureflags.NewService(featureflags.ServiceConfig{
		Repository: persistence.Flags,
		Logger:     log,
		CacheTTL:   cfg.FlagCacheTTL,
	})
	log.Info().Msg("feature flags service initialized")

	// Advice provider
	registry := resilience.NewRegistry()
	geminiClient := gemini.NewClient(gemini.ClientConfig{
		APIKey:   cfg.GeminiAPIKey,
		Model:    cfg.GeminiModel,
		BaseURL:  cfg.GeminiBaseURL,
		Timeout:  cfg.AdviceTimeout,
		Registry: registry,
	})
	if cfg.GeminiAPIKey == "" {
		log.Warn().Msg("GEMINI_API_KEY not set - advice will always use the fallback")
	}

	adviceService := advice.NewService(advice.ServiceConfig{
		Generator: geminiClient,
		Flags:     ffService,
		Logger:    log,
		Timeout:   cfg.AdviceTimeout,
		Meter:     tp.Meter,
	})

	routerCfg := api.RouterConfig{
		Version:         Version,
		BuildTime:       BuildTime,
		Logger:          log,
		Metrics:         metrics,
		Tracer:          tp.Tracer,
		RequireTLS:      cfg.RequireTLS,
		History:         store,
		Advice:          adviceService,
		Tracker:         advice.NewTracker(),
		FeatureFlags:    ffService,
		Registry:        registry,
		ReadinessChecks: persistence.Checks,
	}

	tokens, err := auth.NewTokenService(auth.TokenConfig{
		SigningKey: cfg.AdminSigningKey,
		Issuer:     auth.DefaultIssuer,
		Audience:   auth.DefaultAudience,
	})
	switch {
	case errors.Is(err, auth.ErrSigningDisabled):
		log.Warn().Msg("ADMIN_JWT_SIGNING_KEY not set - admin endpoints are locked")
	case err != nil:
		log.Fatal().Err(err).Msg("invalid admin signing key")
	default:
		routerCfg.Tokens = tokens
		log.Info().Msg("admin token validation enabled")
	}

	router := api.NewRouter(routerCfg)

	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		// Advice calls may take up to the advice timeout.
		WriteTimeout: cfg.AdviceTimeout + 5*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info().
			Str("addr", server.Addr).
			Msg("server listening")

		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server forced to shutdown")
		os.Exit(1)
	}

	log.Info().Msg("server stopped")
}
