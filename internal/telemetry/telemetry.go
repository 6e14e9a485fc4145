// Package telemetry sets up OpenTelemetry tracing and metrics exported over
// OTLP/gRPC.
package telemetry

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/propagation"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.24.0"
	"go.opentelemetry.io/otel/trace"
)

// DefaultMetricInterval is how often metrics are pushed to the collector.
const DefaultMetricInterval = 15 * time.Second

// Config holds configuration for telemetry setup.
type Config struct {
	ServiceName    string
	ServiceVersion string
	Environment    string
	Enabled        bool

	// OTLPEndpoint is the collector's host:port.
	OTLPEndpoint string
	// Insecure disables TLS to the collector, e.g. for a local sidecar.
	Insecure bool

	// SampleRatio is the fraction of root traces kept. Values outside
	// (0, 1) keep everything.
	SampleRatio float64

	// MetricInterval overrides DefaultMetricInterval.
	MetricInterval time.Duration
}

// Provider exposes the tracer and meter the service instruments with.
// When telemetry is disabled both come from the otel globals and
// TracerProvider/MeterProvider are nil.
type Provider struct {
	TracerProvider *sdktrace.TracerProvider
	MeterProvider  *sdkmetric.MeterProvider
	Tracer         trace.Tracer
	Meter          metric.Meter
	Propagator     propagation.TextMapPropagator
}

// Shutdown flushes and stops both providers, attempting both even if one fails.
func (p *Provider) Shutdown(ctx context.Context) error {
	var errs []error
	if p.TracerProvider != nil {
		errs = append(errs, p.TracerProvider.Shutdown(ctx))
	}
	if p.MeterProvider != nil {
		errs = append(errs, p.MeterProvider.Shutdown(ctx))
	}
	return errors.Join(errs...)
}

// Init builds the providers and installs them as the otel globals.
// The returned Provider must be shut down on exit.
func Init(ctx context.Context, cfg Config) (*Provider, error) {
	propagator := propagation.NewCompositeTextMapPropagator(propagation.TraceContext{}, propagation.Baggage{})
	if !cfg.Enabled {
		return &Provider{
			Tracer:     otel.Tracer(cfg.ServiceName),
			Meter:      otel.Meter(cfg.ServiceName),
			Propagator: propagator,
		}, nil
	}

	res, err := resource.New(ctx,
		resource.WithFromEnv(),
		resource.WithTelemetrySDK(),
		resource.WithHost(),
		resource.WithAttributes(
			semconv.ServiceName(cfg.ServiceName),
			semconv.ServiceVersion(cfg.ServiceVersion),
			semconv.DeploymentEnvironment(cfg.Environment),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("telemetry resource: %w", err)
	}

	p := &Provider{Propagator: propagator}

	traceOpts := []otlptracegrpc.Option{otlptracegrpc.WithEndpoint(cfg.OTLPEndpoint)}
	metricOpts := []otlpmetricgrpc.Option{otlpmetricgrpc.WithEndpoint(cfg.OTLPEndpoint)}
	if cfg.Insecure {
		traceOpts = append(traceOpts, otlptracegrpc.WithInsecure())
		metricOpts = append(metricOpts, otlpmetricgrpc.WithInsecure())
	}

	spanExporter, err := otlptracegrpc.New(ctx, traceOpts...)
	if err != nil {
		return nil, fmt.Errorf("trace exporter: %w", err)
	}
	p.TracerProvider = sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(spanExporter),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(Sampler(cfg.SampleRatio)),
	)

	metricExporter, err := otlpmetricgrpc.New(ctx, metricOpts...)
	if err != nil {
		_ = p.Shutdown(ctx)
		return nil, fmt.Errorf("metric exporter: %w", err)
	}
	interval := cfg.MetricInterval
	if interval <= 0 {
		interval = DefaultMetricInterval
	}
	p.MeterProvider = sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(metricExporter, sdkmetric.WithInterval(interval))),
		sdkmetric.WithResource(res),
	)

	otel.SetTracerProvider(p.TracerProvider)
	otel.SetMeterProvider(p.MeterProvider)
	otel.SetTextMapPropagator(propagator)

	p.Tracer = p.TracerProvider.Tracer(cfg.ServiceName)
	p.Meter = p.MeterProvider.Meter(cfg.ServiceName)
	return p, nil
}

// Sampler returns a parent-based sampler keeping ratio of root traces.
func Sampler(ratio float64) sdktrace.Sampler {
	if ratio <= 0 || ratio >= 1 {
		return sdktrace.ParentBased(sdktrace.AlwaysSample())
	}
	return sdktrace.ParentBased(sdktrace.TraceIDRatioBased(ratio))
}
