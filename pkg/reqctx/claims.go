package reqctx

import (
	"context"

	"github.com/google/uuid"
)

// AuthClaims is what the auth middleware learns from a verified token.
// GetSessionID is the login session, not a therapy session.
type AuthClaims interface {
	GetUserID() uuid.UUID
	GetRole() string
	GetSessionID() *uuid.UUID
	GetTokenType() string
	IsExpired() bool
}

func WithClaims(ctx context.Context, claims AuthClaims) context.Context {
	return context.WithValue(ctx, keyClaims, claims)
}

// ClaimsFromContext returns nil for anonymous requests.
func ClaimsFromContext(ctx context.Context) AuthClaims {
	claims, _ := ctx.Value(keyClaims).(AuthClaims)
	return claims
}

// IsAuthenticated reports whether ctx carries unexpired claims.
func IsAuthenticated(ctx context.Context) bool {
	claims := ClaimsFromContext(ctx)
	return claims != nil && !claims.IsExpired()
}
