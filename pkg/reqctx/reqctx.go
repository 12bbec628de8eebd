package reqctx

import (
	"context"
	"time"
)

type ctxKey int

const (
	keyRequestMeta ctxKey = iota
	keyClaims
	keyTrace
)

// RequestMeta describes the inbound HTTP request. It is attached by the
// request-id middleware before anything else runs.
type RequestMeta struct {
	RequestID   string
	ClientIP    string
	UserAgent   string
	RequestedAt time.Time
}

func WithRequestMeta(ctx context.Context, meta *RequestMeta) context.Context {
	return context.WithValue(ctx, keyRequestMeta, meta)
}

func RequestMetaFromContext(ctx context.Context) (*RequestMeta, bool) {
	meta, ok := ctx.Value(keyRequestMeta).(*RequestMeta)
	return meta, ok && meta != nil
}

// RequestIDFromContext returns "" outside an HTTP request.
func RequestIDFromContext(ctx context.Context) string {
	if meta, ok := RequestMetaFromContext(ctx); ok {
		return meta.RequestID
	}
	return ""
}

// LogArgs returns slog key/value pairs identifying the request, its caller
// and its trace. Keys with no value in ctx are omitted.
func LogArgs(ctx context.Context) []any {
	var args []any
	if rid := RequestIDFromContext(ctx); rid != "" {
		args = append(args, "request_id", rid)
	}
	if claims := ClaimsFromContext(ctx); claims != nil {
		args = append(args, "user_id", claims.GetUserID().String(), "role", claims.GetRole())
	}
	if tid := TraceIDFromContext(ctx); tid != "" {
		args = append(args, "trace_id", tid)
	}
	return args
}
