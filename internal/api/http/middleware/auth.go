package middleware

import (
	"context"
	"log/slog"

	"github.com/gofiber/fiber/v3"
	"github.com/google/uuid"

	pasetotoken "github.com/Alijeyrad/mindcare_backend/pkg/paseto"
	"github.com/Alijeyrad/mindcare_backend/pkg/reqctx"
)

// TokenVerifier checks a token's signature and expiry.
type TokenVerifier interface {
	Verify(tokenStr string) (*pasetotoken.Claims, error)
}

// SessionChecker reports whether the login session behind a token is still
// open.
type SessionChecker interface {
	SessionActive(ctx context.Context, sessionID uuid.UUID) (bool, error)
}

// AuthRequired validates a PASETO access token taken from the Authorization
// header or the access token cookie and checks its login session. On
// success the claims are stored in c.Locals(pasetotoken.CtxKeyClaims) and on
// the request context.
func AuthRequired(tokens TokenVerifier, sessions SessionChecker) fiber.Handler {
	return func(c fiber.Ctx) error {
		tok, found := pasetotoken.TokenFromRequest(c)
		if !found {
			return fiber.ErrUnauthorized
		}

		claims, err := tokens.Verify(tok)
		if err != nil {
			return fiber.ErrUnauthorized
		}

		// Only access tokens are accepted on protected routes
		if claims.Type != pasetotoken.TokenTypeAccess {
			return fiber.ErrUnauthorized
		}

		if claims.SessionID != nil {
			active, err := sessions.SessionActive(c.Context(), *claims.SessionID)
			if err != nil {
				slog.WarnContext(c.Context(), "auth: session lookup failed", "session_id", claims.SessionID, "err", err)
				return fiber.ErrServiceUnavailable
			}
			if !active {
				return fiber.ErrUnauthorized
			}
		}

		c.Locals(pasetotoken.CtxKeyClaims, claims)
		c.SetContext(reqctx.WithClaims(c.Context(), claims))
		return c.Next()
	}
}
