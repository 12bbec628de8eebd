// Package reqctx carries request-scoped values through context.Context:
// request metadata set by the request-id middleware, token claims set by the
// auth middleware, and the trace of the server span.
//
// Services never read fiber locals; they read these accessors instead:
//
//	c, err := caller.FromContext(ctx) // wraps ClaimsFromContext
//	slog.InfoContext(ctx, "session joined", reqctx.LogArgs(ctx)...)
//
// Claims are present only behind the auth middleware. A TraceInfo is present
// only when tracing is enabled.
package reqctx
