package router

import (
	"github.com/gofiber/fiber/v3"

	"github.com/Alijeyrad/mindcare_backend/internal/api/http/handler"
	"github.com/Alijeyrad/mindcare_backend/pkg/authorize"
)

func (r *Router) registerSessionRoutes(
	api fiber.Router,
	sh *handler.SessionHandler,
	rh *handler.ReportHandler,
	authRequired fiber.Handler,
	requirePerm func(authorize.Resource, authorize.Action) fiber.Handler,
) {
	sessions := api.Group("/sessions", authRequired)

	sessions.Post("/", requirePerm(authorize.ResourceSession, authorize.ActionCreate), sh.Create)
	sessions.Get("/", requirePerm(authorize.ResourceSession, authorize.ActionList), sh.List)
	sessions.Get("/:id", requirePerm(authorize.ResourceSession, authorize.ActionRead), sh.Get)
	sessions.Put("/:id", requirePerm(authorize.ResourceSession, authorize.ActionUpdate), sh.Update)
	sessions.Delete("/:id", requirePerm(authorize.ResourceSession, authorize.ActionDelete), sh.Delete)

	// Lifecycle
	sessions.Patch("/:id/accept", requirePerm(authorize.ResourceSession, authorize.ActionAccept), sh.Accept)
	sessions.Patch("/:id/cancel", requirePerm(authorize.ResourceSession, authorize.ActionCancel), sh.Cancel)
	sessions.Patch("/:id/complete", requirePerm(authorize.ResourceSession, authorize.ActionComplete), sh.Complete)
	sessions.Post("/:id/join", requirePerm(authorize.ResourceSession, authorize.ActionJoin), sh.Join)

	// Transcript & report
	sessions.Put("/:id/transcript", requirePerm(authorize.ResourceTranscript, authorize.ActionUpdate), sh.SaveTranscript)
	sessions.Get("/:id/transcript", requirePerm(authorize.ResourceTranscript, authorize.ActionRead), sh.Transcript)
	sessions.Get("/:id/report", requirePerm(authorize.ResourceReport, authorize.ActionRead), rh.GetBySession)
}
