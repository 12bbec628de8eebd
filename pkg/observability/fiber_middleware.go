package observability

import (
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v3"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"

	"github.com/Alijeyrad/mindcare_backend/pkg/reqctx"
)

const tracerName = "github.com/Alijeyrad/mindcare_backend/pkg/observability"

// HeaderTraceID echoes the trace id so clients can quote it in bug reports.
const HeaderTraceID = "X-Trace-Id"

// FiberMiddleware opens a server span per request, continues any incoming
// W3C trace, and records request count and latency. Paths under one of
// skipPrefixes (probes, /metrics) pass through untouched.
func FiberMiddleware(serviceName string, skipPrefixes ...string) fiber.Handler {
	tracer := otel.Tracer(tracerName)
	meter := otel.Meter(tracerName)

	requests, _ := meter.Int64Counter("http_server_requests",
		metric.WithDescription("HTTP requests served"),
		metric.WithUnit("{request}"),
	)
	latency, _ := meter.Float64Histogram("http_server_duration",
		metric.WithDescription("HTTP request latency"),
		metric.WithUnit("s"),
	)

	return func(c fiber.Ctx) error {
		for _, p := range skipPrefixes {
			if strings.HasPrefix(c.Path(), p) {
				return c.Next()
			}
		}

		ctx := otel.GetTextMapPropagator().Extract(c.Context(), propagation.HeaderCarrier(c.GetReqHeaders()))
		ctx, span := tracer.Start(ctx, c.Method(),
			trace.WithSpanKind(trace.SpanKindServer),
			trace.WithAttributes(
				attribute.String("http.request.method", c.Method()),
				attribute.String("url.path", c.Path()),
				attribute.String("client.address", c.IP()),
				attribute.String("user_agent.original", c.Get(fiber.HeaderUserAgent)),
				attribute.String("service.name", serviceName),
			),
		)
		defer span.End()

		if info := reqctx.TraceInfoFromSpanContext(span.SpanContext()); info != nil {
			ctx = reqctx.WithTrace(ctx, info)
			c.Set(HeaderTraceID, info.TraceID)
		}
		c.SetContext(ctx)

		start := time.Now()
		err := c.Next()

		// The route is only known after routing; the error handler has not
		// run yet, so a returned error decides the status.
		route := c.Route().Path
		status := c.Response().StatusCode()
		if err != nil {
			status = fiber.StatusInternalServerError
			var fe *fiber.Error
			if errors.As(err, &fe) {
				status = fe.Code
			}
		}

		span.SetName(c.Method() + " " + route)
		span.SetAttributes(
			attribute.String("http.route", route),
			attribute.Int("http.response.status_code", status),
		)
		if claims := reqctx.ClaimsFromContext(c.Context()); claims != nil {
			span.SetAttributes(
				attribute.String("enduser.id", claims.GetUserID().String()),
				attribute.String("enduser.role", claims.GetRole()),
			)
		}
		if status >= fiber.StatusInternalServerError {
			span.SetStatus(codes.Error, "HTTP "+strconv.Itoa(status))
			if err != nil {
				span.RecordError(err)
			}
		}

		attrs := metric.WithAttributes(
			attribute.String("http.request.method", c.Method()),
			attribute.String("http.route", route),
			attribute.Int("http.response.status_code", status),
		)
		requests.Add(ctx, 1, attrs)
		latency.Record(ctx, time.Since(start).Seconds(), attrs)
		return err
	}
}
