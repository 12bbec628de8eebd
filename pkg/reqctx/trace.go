package reqctx

import (
	"context"

	"go.opentelemetry.io/otel/trace"
)

// TraceInfo holds OpenTelemetry-compatible trace context.
type TraceInfo struct {
	// TraceID is a 32-character hex string (128-bit).
	// Identifies the entire distributed trace.
	TraceID string

	// SpanID is a 16-character hex string (64-bit).
	// Identifies this specific operation within the trace.
	SpanID string

	// Sampled indicates whether this trace should be recorded.
	Sampled bool
}

// TraceInfoFromSpanContext converts an OpenTelemetry span context.
// Returns nil when sc carries no trace.
func TraceInfoFromSpanContext(sc trace.SpanContext) *TraceInfo {
	if !sc.HasTraceID() {
		return nil
	}
	return &TraceInfo{
		TraceID: sc.TraceID().String(),
		SpanID:  sc.SpanID().String(),
		Sampled: sc.IsSampled(),
	}
}

// WithTrace stores trace info in the context.
func WithTrace(ctx context.Context, trace *TraceInfo) context.Context {
	return context.WithValue(ctx, keyTrace, trace)
}

// TraceFromContext retrieves trace info from the context.
// Returns nil, false if not set.
func TraceFromContext(ctx context.Context) (*TraceInfo, bool) {
	v := ctx.Value(keyTrace)
	if v == nil {
		return nil, false
	}
	trace, ok := v.(*TraceInfo)
	return trace, ok
}

// TraceIDFromContext returns the trace ID, or empty string if not set.
func TraceIDFromContext(ctx context.Context) string {
	trace, ok := TraceFromContext(ctx)
	if !ok || trace == nil {
		return ""
	}
	return trace.TraceID
}
