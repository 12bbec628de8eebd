package handler

import (
	"errors"
	"log/slog"

	"github.com/gofiber/fiber/v3"

	"github.com/Alijeyrad/mindcare_backend/pkg/reqctx"
)

// ErrorHandler renders errors that escape handlers, such as those returned
// by middleware, in the same JSON shape the handlers use.
func ErrorHandler(c fiber.Ctx, err error) error {
	status := fiber.StatusInternalServerError
	msg := "internal server error"

	var fe *fiber.Error
	if errors.As(err, &fe) {
		status = fe.Code
		msg = fe.Message
	} else {
		slog.ErrorContext(c.Context(), "http: unhandled error",
			append(reqctx.LogArgs(c.Context()), "path", c.Path(), "err", err)...)
	}

	return fail(c, status, codeForStatus(status), msg)
}

func codeForStatus(status int) string {
	switch status {
	case fiber.StatusBadRequest, fiber.StatusRequestEntityTooLarge:
		return codeBadRequest
	case fiber.StatusUnauthorized:
		return codeUnauthorized
	case fiber.StatusForbidden:
		return codeForbidden
	case fiber.StatusNotFound, fiber.StatusMethodNotAllowed:
		return codeNotFound
	case fiber.StatusConflict:
		return codeConflict
	case fiber.StatusTooManyRequests:
		return codeTooManyRequests
	case fiber.StatusBadGateway, fiber.StatusServiceUnavailable:
		return codeUpstream
	case fiber.StatusGatewayTimeout:
		return codeUpstreamTimeout
	}
	return codeInternal
}
