package observability

import (
	"context"
	"net/http"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"

	"github.com/Alijeyrad/mindcare_backend/config"
)

// FromCentralConfig converts the central config into the telemetry Config.
func FromCentralConfig(c *config.Config) Config {
	return Config{
		ServiceName:    c.Observability.ServiceName,
		ServiceVersion: c.Observability.ServiceVersion,
		Environment:    c.Server.Environment,
		TracingEnabled: c.Observability.Tracing.Enabled,
		OTLPEndpoint:   c.Observability.Tracing.OTLPEndpoint,
		OTLPInsecure:   c.Observability.Tracing.OTLPInsecure,
		SamplingRate:   c.Observability.Tracing.SamplingRate,
		MetricsEnabled: c.Observability.Metrics.Enabled,
	}
}

// StartClientSpan opens a client span for an outbound call.
func StartClientSpan(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return otel.Tracer(tracerName).Start(ctx, name,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(attrs...),
	)
}

// InjectHeaders propagates the trace context of ctx into outgoing headers.
func InjectHeaders(ctx context.Context, h http.Header) {
	otel.GetTextMapPropagator().Inject(ctx, propagation.HeaderCarrier(h))
}

// EndSpan records err on span, if any, and ends it.
func EndSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}
