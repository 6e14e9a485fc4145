package middleware

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	semconv "go.opentelemetry.io/otel/semconv/v1.24.0"
)

const meterName = "github.com/prohealth/prohealth/internal/api/middleware"

// durationBuckets reach past the advice timeout so slow provider calls
// land in a real bucket.
var durationBuckets = []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60}

// Metrics holds the HTTP server instruments.
type Metrics struct {
	duration metric.Float64Histogram
	requests metric.Int64Counter
	active   metric.Int64UpDownCounter
	size     metric.Int64Histogram
}

// NewMetrics creates the instruments on meter, or on the global meter
// provider when meter is nil.
func NewMetrics(meter metric.Meter) (*Metrics, error) {
	if meter == nil {
		meter = otel.Meter(meterName)
	}

	var m Metrics
	var errs [4]error
	m.duration, errs[0] = meter.Float64Histogram("http.server.request.duration",
		metric.WithDescription("Time taken to serve a request"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(durationBuckets...))
	m.requests, errs[1] = meter.Int64Counter("http.server.request.total",
		metric.WithDescription("Requests served"),
		metric.WithUnit("{request}"))
	m.active, errs[2] = meter.Int64UpDownCounter("http.server.active_requests",
		metric.WithDescription("Requests currently in progress"),
		metric.WithUnit("{request}"))
	m.size, errs[3] = meter.Int64Histogram("http.server.response.body.size",
		metric.WithDescription("Response body size"),
		metric.WithUnit("By"))

	if err := errors.Join(errs[:]...); err != nil {
		return nil, fmt.Errorf("create http metrics: %w", err)
	}
	return &m, nil
}

// Middleware records each request under its chi route pattern, never the
// raw path, so path parameters cannot blow up cardinality.
func (m *Metrics) Middleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			method := metric.WithAttributes(semconv.HTTPRequestMethodKey.String(r.Method))
			m.active.Add(ctx, 1, method)
			defer m.active.Add(ctx, -1, method)

			rec, elapsed := serve(next, w, r)

			opt := metric.WithAttributes(requestAttributes(r, rec.statusCode)...)
			m.duration.Record(ctx, elapsed.Seconds(), opt)
			m.requests.Add(ctx, 1, opt)
			m.size.Record(ctx, rec.written, opt)
		})
	}
}

func requestAttributes(r *http.Request, status int) []attribute.KeyValue {
	attrs := []attribute.KeyValue{
		semconv.HTTPRequestMethodKey.String(r.Method),
		semconv.HTTPRoute(routePattern(r)),
		semconv.HTTPResponseStatusCode(status),
	}
	if status >= http.StatusInternalServerError {
		attrs = append(attrs, semconv.ErrorTypeKey.String(strconv.Itoa(status)))
	}
	return attrs
}
