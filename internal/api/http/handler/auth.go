package handler

import (
	"errors"
	"time"

	"github.com/gofiber/fiber/v3"

	"github.com/Alijeyrad/mindcare_backend/internal/service/auth"
	"github.com/Alijeyrad/mindcare_backend/internal/service/user"
	pasetotoken "github.com/Alijeyrad/mindcare_backend/pkg/paseto"
)

type AuthHandler struct {
	svc          auth.Service
	cookieSecure bool
}

// NewAuthHandler builds the handler. cookieSecure marks the access token
// cookie as HTTPS-only.
func NewAuthHandler(svc auth.Service, cookieSecure bool) *AuthHandler {
	return &AuthHandler{svc: svc, cookieSecure: cookieSecure}
}

// POST /api/v1/auth/register
func (h *AuthHandler) Register(c fiber.Ctx) error {
	var body struct {
		Name     string `json:"name"`
		LastName string `json:"last_name"`
		Email    string `json:"email"`
		Phone    string `json:"phone"`
		Password string `json:"password"`
	}
	if err := c.Bind().JSON(&body); err != nil {
		return badRequest(c, "invalid request body")
	}

	u, err := h.svc.Register(c.Context(), auth.RegisterRequest{
		Name:     body.Name,
		LastName: body.LastName,
		Email:    body.Email,
		Phone:    body.Phone,
		Password: body.Password,
	})
	if err != nil {
		return mapAuthError(c, err)
	}

	return created(c, newUserView(u))
}

// POST /api/v1/auth/login
func (h *AuthHandler) Login(c fiber.Ctx) error {
	var body struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := c.Bind().JSON(&body); err != nil {
		return badRequest(c, "invalid request body")
	}

	tokens, u, err := h.svc.Login(c.Context(), auth.LoginRequest{
		Email:    body.Email,
		Password: body.Password,
	})
	if err != nil {
		return mapAuthError(c, err)
	}

	h.setAccessCookie(c, tokens.AccessToken, time.Duration(tokens.ExpiresIn)*time.Second)
	return ok(c, fiber.Map{
		"access_token":  tokens.AccessToken,
		"refresh_token": tokens.RefreshToken,
		"expires_in":    tokens.ExpiresIn,
		"user":          newUserView(u),
	})
}

// POST /api/v1/auth/refresh
func (h *AuthHandler) Refresh(c fiber.Ctx) error {
	var body struct {
		RefreshToken string `json:"refresh_token"`
	}
	if err := c.Bind().JSON(&body); err != nil {
		return badRequest(c, "invalid request body")
	}
	if body.RefreshToken == "" {
		return badRequest(c, "refresh_token is required")
	}

	tokens, err := h.svc.RefreshTokens(c.Context(), body.RefreshToken)
	if err != nil {
		return mapAuthError(c, err)
	}

	h.setAccessCookie(c, tokens.AccessToken, time.Duration(tokens.ExpiresIn)*time.Second)
	return ok(c, fiber.Map{
		"access_token":  tokens.AccessToken,
		"refresh_token": tokens.RefreshToken,
		"expires_in":    tokens.ExpiresIn,
	})
}

// POST /api/v1/auth/logout  (requires AuthRequired middleware)
func (h *AuthHandler) Logout(c fiber.Ctx) error {
	claims, valid := pasetotoken.ClaimsFromFiber(c)
	if !valid || claims.SessionID == nil {
		return unauthorized(c)
	}

	if err := h.svc.Logout(c.Context(), *claims.SessionID); err != nil {
		return internalError(c, err)
	}

	c.ClearCookie(pasetotoken.CookieAccessToken)
	return noContent(c)
}

func (h *AuthHandler) setAccessCookie(c fiber.Ctx, token string, ttl time.Duration) {
	c.Cookie(&fiber.Cookie{
		Name:     pasetotoken.CookieAccessToken,
		Value:    token,
		Path:     "/",
		Expires:  time.Now().Add(ttl),
		HTTPOnly: true,
		Secure:   h.cookieSecure,
		SameSite: fiber.CookieSameSiteLaxMode,
	})
}

// ---------------------------------------------------------------------------
// Error mapping
// ---------------------------------------------------------------------------

func mapAuthError(c fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, user.ErrEmailAlreadyExists):
		return conflict(c, err.Error())
	case errors.Is(err, user.ErrInvalidName),
		errors.Is(err, user.ErrInvalidEmail),
		errors.Is(err, user.ErrInvalidPhone),
		errors.Is(err, user.ErrPasswordTooShort):
		return badRequest(c, err.Error())
	case errors.Is(err, auth.ErrInvalidCredentials),
		errors.Is(err, auth.ErrSessionNotFound),
		errors.Is(err, auth.ErrInvalidToken):
		return fail(c, fiber.StatusUnauthorized, codeUnauthorized, err.Error())
	case errors.Is(err, auth.ErrAccountInactive):
		return forbidden(c, err.Error())
	case errors.Is(err, auth.ErrAccountLocked):
		return tooManyRequests(c, err.Error())
	default:
		return internalError(c, err)
	}
}
