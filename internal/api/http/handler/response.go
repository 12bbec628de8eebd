package handler

import (
	"log/slog"

	"github.com/gofiber/fiber/v3"

	"github.com/Alijeyrad/mindcare_backend/internal/service/caller"
	"github.com/Alijeyrad/mindcare_backend/internal/store"
	"github.com/Alijeyrad/mindcare_backend/pkg/reqctx"
)

// Error codes carried next to the message in error bodies.
const (
	codeBadRequest      = "bad_request"
	codeUnauthorized    = "unauthorized"
	codeForbidden       = "forbidden"
	codeNotFound        = "not_found"
	codeProfileNotFound = "profile_not_found"
	codeConflict        = "conflict"
	codeInvalidState    = "invalid_state"
	codeTooManyRequests = "too_many_requests"
	codeUpstream        = "upstream_failed"
	codeUpstreamTimeout = "upstream_timeout"
	codeInternal        = "internal"
)

func ok(c fiber.Ctx, data any) error {
	return c.JSON(fiber.Map{"data": data})
}

func created(c fiber.Ctx, data any) error {
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"data": data})
}

func noContent(c fiber.Ctx) error {
	return c.SendStatus(fiber.StatusNoContent)
}

// paginated wraps a page of items with its position in the full result.
func paginated(c fiber.Ctx, key string, items any, total int, pageReq store.Page) error {
	perPage := pageReq.Limit
	totalPages := 0
	if perPage > 0 {
		totalPages = (total + perPage - 1) / perPage
	}
	return ok(c, fiber.Map{
		key:           items,
		"total":       total,
		"page":        pageReq.Offset/max(perPage, 1) + 1,
		"per_page":    perPage,
		"total_pages": totalPages,
	})
}

func fail(c fiber.Ctx, status int, code, msg string) error {
	return c.Status(status).JSON(fiber.Map{"error": msg, "code": code})
}

func badRequest(c fiber.Ctx, msg string) error {
	return fail(c, fiber.StatusBadRequest, codeBadRequest, msg)
}

func unauthorized(c fiber.Ctx) error {
	return fail(c, fiber.StatusUnauthorized, codeUnauthorized, "unauthorized")
}

func forbidden(c fiber.Ctx, msg string) error {
	return fail(c, fiber.StatusForbidden, codeForbidden, msg)
}

func notFound(c fiber.Ctx, msg string) error {
	return fail(c, fiber.StatusNotFound, codeNotFound, msg)
}

func conflict(c fiber.Ctx, msg string) error {
	return fail(c, fiber.StatusConflict, codeConflict, msg)
}

func tooManyRequests(c fiber.Ctx, msg string) error {
	return fail(c, fiber.StatusTooManyRequests, codeTooManyRequests, msg)
}

func internalError(c fiber.Ctx, err error) error {
	slog.ErrorContext(c.Context(), "http: request failed",
		append(reqctx.LogArgs(c.Context()), "method", c.Method(), "path", c.Path(), "err", err)...)
	return fail(c, fiber.StatusInternalServerError, codeInternal, "internal server error")
}

// callerFrom returns the authenticated principal set up by the auth
// middleware.
func callerFrom(c fiber.Ctx) (caller.Caller, bool) {
	cl, err := caller.FromContext(c.Context())
	return cl, err == nil
}
