package router

import (
	"github.com/gofiber/fiber/v3"

	"github.com/Alijeyrad/mindcare_backend/internal/api/http/handler"
	"github.com/Alijeyrad/mindcare_backend/pkg/authorize"
)

func (r *Router) registerReportRoutes(
	api fiber.Router,
	h *handler.ReportHandler,
	authRequired fiber.Handler,
	requirePerm func(authorize.Resource, authorize.Action) fiber.Handler,
) {
	reports := api.Group("/reports", authRequired)

	reports.Post("/", requirePerm(authorize.ResourceReport, authorize.ActionCreate), h.Create)
	reports.Get("/", requirePerm(authorize.ResourceReport, authorize.ActionList), h.List)
	reports.Get("/:id", requirePerm(authorize.ResourceReport, authorize.ActionRead), h.Get)
	reports.Put("/:id", requirePerm(authorize.ResourceReport, authorize.ActionUpdate), h.Update)
	reports.Patch("/:id/notified", requirePerm(authorize.ResourceReport, authorize.ActionUpdate), h.MarkNotified)
	reports.Delete("/:id", requirePerm(authorize.ResourceReport, authorize.ActionDelete), h.Delete)
}
