package middleware

import (
	"net/http"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	semconv "go.opentelemetry.io/otel/semconv/v1.24.0"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "github.com/prohealth/prohealth/internal/api/middleware"

// Tracing starts a server span per request, continuing any incoming trace
// context. The span is renamed to "METHOD route" once the handler has run
// and chi has matched the route. Nil arguments use the otel globals.
func Tracing(tracer trace.Tracer, propagator propagation.TextMapPropagator) func(http.Handler) http.Handler {
	if tracer == nil {
		tracer = otel.Tracer(tracerName)
	}
	if propagator == nil {
		propagator = otel.GetTextMapPropagator()
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := propagator.Extract(r.Context(), propagation.HeaderCarrier(r.Header))
			ctx, span := tracer.Start(ctx, r.Method,
				trace.WithSpanKind(trace.SpanKindServer),
				trace.WithAttributes(
					semconv.HTTPRequestMethodKey.String(r.Method),
					semconv.URLScheme(scheme(r)),
					semconv.URLPath(r.URL.Path),
					semconv.ServerAddress(r.Host),
					semconv.UserAgentOriginal(r.UserAgent()),
					semconv.ClientAddress(r.RemoteAddr),
				),
			)
			defer span.End()

			if id := GetRequestID(ctx); id != "" {
				span.SetAttributes(attribute.String("request.id", id))
			}

			r = r.WithContext(ctx)
			rec, _ := serve(next, w, r)

			route := routePattern(r)
			span.SetName(r.Method + " " + route)
			span.SetAttributes(
				semconv.HTTPRoute(route),
				semconv.HTTPResponseStatusCode(rec.statusCode),
				semconv.HTTPResponseBodySize(int(rec.written)),
			)
			if rec.statusCode >= http.StatusInternalServerError {
				span.SetStatus(codes.Error, http.StatusText(rec.statusCode))
			}
		})
	}
}

func scheme(r *http.Request) string {
	switch {
	case r.TLS != nil:
		return "https"
	case r.Header.Get("X-Forwarded-Proto") != "":
		return r.Header.Get("X-Forwarded-Proto")
	default:
		return "http"
	}
}
