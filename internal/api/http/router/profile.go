package router

import (
	"github.com/gofiber/fiber/v3"

	"github.com/Alijeyrad/mindcare_backend/internal/api/http/handler"
	"github.com/Alijeyrad/mindcare_backend/pkg/authorize"
)

func (r *Router) registerProfileRoutes(
	api fiber.Router,
	h *handler.ProfileHandler,
	authRequired fiber.Handler,
	requirePerm func(authorize.Resource, authorize.Action) fiber.Handler,
) {
	profiles := api.Group("/profiles", authRequired)

	profiles.Post("/", requirePerm(authorize.ResourcePatientProfile, authorize.ActionCreate), h.Create)
	profiles.Get("/", requirePerm(authorize.ResourcePatientProfile, authorize.ActionList), h.List)
	profiles.Get("/me", requirePerm(authorize.ResourcePatientProfile, authorize.ActionRead), h.GetMe)
	profiles.Get("/:patient_id", requirePerm(authorize.ResourcePatientProfile, authorize.ActionRead), h.Get)
	profiles.Put("/:patient_id", requirePerm(authorize.ResourcePatientProfile, authorize.ActionUpdate), h.Update)
	// Patients delete their own profile; the service checks ownership.
	profiles.Delete("/:patient_id", h.Delete)
}
