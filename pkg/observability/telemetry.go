package observability

import (
	"context"
	"errors"
	"fmt"
	"time"

	promclient "github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	"go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.27.0"
)

// Config selects which signals are exported and where.
type Config struct {
	ServiceName    string
	ServiceVersion string
	Environment    string

	// Spans go to an OTLP/HTTP collector when both are set.
	TracingEnabled bool
	OTLPEndpoint   string
	OTLPInsecure   bool
	// SamplingRate is the share of new root traces kept; zero means all.
	// Child spans follow their parent's decision.
	SamplingRate float64

	// Meters are read by the Prometheus exporter behind /metrics.
	MetricsEnabled bool
	// Registerer defaults to the global Prometheus registry.
	Registerer promclient.Registerer
}

// Provider owns the SDK providers installed as otel globals. A nil field
// means that signal is disabled and the otel no-op default stays in place.
type Provider struct {
	TracerProvider     *trace.TracerProvider
	MeterProvider      *metric.MeterProvider
	PrometheusExporter *prometheus.Exporter
}

// InitTelemetry builds the enabled providers and installs them, together
// with the W3C trace-context propagator, as otel globals.
func InitTelemetry(ctx context.Context, cfg Config) (*Provider, error) {
	res, err := resource.Merge(resource.Default(), resource.NewWithAttributes("",
		semconv.ServiceName(cfg.ServiceName),
		semconv.ServiceVersion(cfg.ServiceVersion),
		semconv.DeploymentEnvironmentName(cfg.Environment),
	))
	if err != nil {
		return nil, fmt.Errorf("telemetry resource: %w", err)
	}

	p := &Provider{}
	if cfg.TracingEnabled {
		if p.TracerProvider, err = newTracerProvider(ctx, res, cfg); err != nil {
			return nil, err
		}
		otel.SetTracerProvider(p.TracerProvider)
	}
	if cfg.MetricsEnabled {
		if p.MeterProvider, p.PrometheusExporter, err = newMeterProvider(res, cfg.Registerer); err != nil {
			return nil, errors.Join(err, p.Shutdown(ctx))
		}
		otel.SetMeterProvider(p.MeterProvider)
	}

	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))
	return p, nil
}

func newTracerProvider(ctx context.Context, res *resource.Resource, cfg Config) (*trace.TracerProvider, error) {
	rate := cfg.SamplingRate
	if rate <= 0 || rate > 1 {
		rate = 1
	}
	opts := []trace.TracerProviderOption{
		trace.WithResource(res),
		trace.WithSampler(trace.ParentBased(trace.TraceIDRatioBased(rate))),
	}

	if cfg.OTLPEndpoint != "" {
		expOpts := []otlptracehttp.Option{otlptracehttp.WithEndpoint(cfg.OTLPEndpoint)}
		if cfg.OTLPInsecure {
			expOpts = append(expOpts, otlptracehttp.WithInsecure())
		}
		exp, err := otlptracehttp.New(ctx, expOpts...)
		if err != nil {
			return nil, fmt.Errorf("otlp trace exporter: %w", err)
		}
		opts = append(opts, trace.WithBatcher(exp))
	}
	return trace.NewTracerProvider(opts...), nil
}

func newMeterProvider(res *resource.Resource, reg promclient.Registerer) (*metric.MeterProvider, *prometheus.Exporter, error) {
	var opts []prometheus.Option
	if reg != nil {
		opts = append(opts, prometheus.WithRegisterer(reg))
	}
	exp, err := prometheus.New(opts...)
	if err != nil {
		return nil, nil, fmt.Errorf("prometheus exporter: %w", err)
	}
	return metric.NewMeterProvider(metric.WithResource(res), metric.WithReader(exp)), exp, nil
}

// Shutdown flushes pending spans and stops both providers within five
// seconds.
func (p *Provider) Shutdown(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	var errs []error
	if p.TracerProvider != nil {
		if err := p.TracerProvider.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("tracer provider: %w", err))
		}
	}
	if p.MeterProvider != nil {
		if err := p.MeterProvider.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("meter provider: %w", err))
		}
	}
	return errors.Join(errs...)
}
