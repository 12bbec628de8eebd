package pasetotoken

import (
	"strings"

	"github.com/gofiber/fiber/v3"
)

const (
	// CtxKeyClaims is the fiber local holding *Claims behind the auth
	// middleware.
	CtxKeyClaims = "auth.claims"

	// CookieAccessToken carries the access token for browser clients.
	CookieAccessToken = "access_token"
)

// TokenFromRequest reads a bearer token from the Authorization header and
// falls back to the access token cookie. A malformed header is not retried
// against the cookie.
func TokenFromRequest(c fiber.Ctx) (string, bool) {
	if h := c.Get(fiber.HeaderAuthorization); h != "" {
		scheme, tok, found := strings.Cut(h, " ")
		if !found || !strings.EqualFold(scheme, "Bearer") {
			return "", false
		}
		tok = strings.TrimSpace(tok)
		return tok, tok != ""
	}
	tok := c.Cookies(CookieAccessToken)
	return tok, tok != ""
}

func ClaimsFromFiber(c fiber.Ctx) (*Claims, bool) {
	cl, ok := c.Locals(CtxKeyClaims).(*Claims)
	return cl, ok && cl != nil
}
