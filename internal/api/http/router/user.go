package router

import (
	"github.com/gofiber/fiber/v3"

	"github.com/Alijeyrad/mindcare_backend/internal/api/http/handler"
	"github.com/Alijeyrad/mindcare_backend/pkg/authorize"
)

func (r *Router) registerUserRoutes(
	api fiber.Router,
	h *handler.UserHandler,
	authRequired fiber.Handler,
	requirePerm func(authorize.Resource, authorize.Action) fiber.Handler,
) {
	users := api.Group("/users", authRequired)
	users.Get("/me", h.GetMe)
	users.Patch("/me", h.UpdateMe)
	users.Get("/doctors", h.ListDoctors)

	// Admin management
	users.Get("/", requirePerm(authorize.ResourceUser, authorize.ActionManage), h.List)
	users.Post("/", requirePerm(authorize.ResourceUser, authorize.ActionManage), h.Create)
	users.Get("/:id", h.Get)
	users.Patch("/:id", requirePerm(authorize.ResourceUser, authorize.ActionManage), h.Update)
	users.Delete("/:id", requirePerm(authorize.ResourceUser, authorize.ActionManage), h.Delete)
}
