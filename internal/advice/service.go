package advice

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"

	"github.com/prohealth/prohealth/internal/provider/resilience"
)

// DefaultTimeout bounds a single advice request.
const DefaultTimeout = 30 * time.Second

// Generator produces raw structured text for a prompt and schema.
type Generator interface {
	Generate(ctx context.Context, prompt string, schema *Schema) (string, error)
}

// FlagChecker reports whether remote advice is switched off.
type FlagChecker interface {
	IsRemoteAdviceDisabled(ctx context.Context) bool
}

// ServiceConfig holds configuration for the advice service.
type ServiceConfig struct {
	// Generator calls the remote provider. A nil generator always falls back.
	Generator Generator

	// Flags is consulted before each remote call (optional).
	Flags FlagChecker

	// Logger for service operations.
	Logger zerolog.Logger

	// Timeout for a single request (default: 30s).
	Timeout time.Duration

	// Meter records request outcomes (optional).
	Meter metric.Meter
}

// Service turns advice requests into Advice, never failing.
type Service struct {
	generator Generator
	flags     FlagChecker
	logger    zerolog.Logger
	timeout   time.Duration
	requests  metric.Int64Counter
	latency   metric.Float64Histogram
}

// NewService creates a new advice service.
func NewService(cfg ServiceConfig) *Service {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	meter := cfg.Meter
	if meter == nil {
		meter = noop.NewMeterProvider().Meter("advice")
	}

	requests, err := meter.Int64Counter("prohealth.advice.requests",
		metric.WithDescription("Advice requests by source and outcome"))
	if err != nil {
		cfg.Logger.Warn().Err(err).Msg("failed to create advice request counter")
		requests, _ = noop.NewMeterProvider().Meter("advice").Int64Counter("prohealth.advice.requests")
	}

	latency, err := meter.Float64Histogram("prohealth.advice.duration",
		metric.WithDescription("Advice request duration"),
		metric.WithUnit("s"))
	if err != nil {
		cfg.Logger.Warn().Err(err).Msg("failed to create advice duration histogram")
		latency, _ = noop.NewMeterProvider().Meter("advice").Float64Histogram("prohealth.advice.duration")
	}

	return &Service{
		generator: cfg.Generator,
		flags:     cfg.Flags,
		logger:    cfg.Logger,
		timeout:   timeout,
		requests:  requests,
		latency:   latency,
	}
}

// RequestAdvice asks the provider for advice. Any failure yields Fallback.
// The call is made exactly once; there is no retry.
func (s *Service) RequestAdvice(ctx context.Context, req Request) *Advice {
	start := time.Now()

	advice, err := s.generate(ctx, req)
	if err != nil {
		reason := failureReason(err)
		s.logger.Warn().
			Err(err).
			Str("reason", reason).
			Dur("duration", time.Since(start)).
			Msg("advice generation failed, using fallback")
		s.record(ctx, SourceFallback, reason, start)
		return Fallback()
	}

	s.logger.Debug().
		Dur("duration", time.Since(start)).
		Int("dietary_tips", len(advice.DietaryTips)).
		Int("exercise_tips", len(advice.ExerciseTips)).
		Msg("advice generated")
	s.record(ctx, SourceRemote, "ok", start)
	return advice
}

func (s *Service) generate(ctx context.Context, req Request) (*Advice, error) {
	if s.flags != nil && s.flags.IsRemoteAdviceDisabled(ctx) {
		return nil, ErrRemoteDisabled
	}
	if s.generator == nil {
		return nil, ErrMissingCredential
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	text, err := s.generator.Generate(ctx, BuildPrompt(req), ResponseSchema())
	if err != nil {
		return nil, err
	}

	return ParseAdvice(text)
}

func (s *Service) record(ctx context.Context, source Source, reason string, start time.Time) {
	attrs := metric.WithAttributes(
		attribute.String("source", string(source)),
		attribute.String("reason", reason),
	)
	s.requests.Add(ctx, 1, attrs)
	s.latency.Record(ctx, time.Since(start).Seconds(), attrs)
}

func failureReason(err error) string {
	switch {
	case errors.Is(err, ErrRemoteDisabled):
		return "disabled"
	case errors.Is(err, ErrMissingCredential):
		return "missing_credential"
	case errors.Is(err, resilience.ErrCircuitOpen):
		return "circuit_open"
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	case errors.Is(err, context.Canceled):
		return "canceled"
	case errors.Is(err, ErrEmptyResponse):
		return "empty_response"
	case errors.Is(err, ErrMalformedResponse):
		return "malformed_response"
	case errors.Is(err, ErrMissingField):
		return "missing_field"
	default:
		return "provider_error"
	}
}
