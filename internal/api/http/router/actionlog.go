package router

import (
	"github.com/gofiber/fiber/v3"

	"github.com/Alijeyrad/mindcare_backend/internal/api/http/handler"
	"github.com/Alijeyrad/mindcare_backend/pkg/authorize"
)

func (r *Router) registerActionLogRoutes(
	api fiber.Router,
	h *handler.ActionLogHandler,
	authRequired fiber.Handler,
	requirePerm func(authorize.Resource, authorize.Action) fiber.Handler,
) {
	api.Get("/action-logs", authRequired, requirePerm(authorize.ResourceActionLog, authorize.ActionList), h.List)
}
