package handler

import (
	"errors"

	"github.com/gofiber/fiber/v3"

	"github.com/Alijeyrad/mindcare_backend/internal/service/actionlog"
	"github.com/Alijeyrad/mindcare_backend/internal/store"
)

type ActionLogHandler struct {
	svc actionlog.Service
}

func NewActionLogHandler(svc actionlog.Service) *ActionLogHandler {
	return &ActionLogHandler{svc: svc}
}

// GET /action-logs
func (h *ActionLogHandler) List(c fiber.Ctx) error {
	cl, valid := callerFrom(c)
	if !valid {
		return unauthorized(c)
	}

	var q struct {
		UserID     string `query:"user_id"`
		ActionType string `query:"action_type"`
		TargetID   string `query:"target_id"`
		From       string `query:"from"`
		To         string `query:"to"`
		Page       int    `query:"page"`
		PerPage    int    `query:"per_page"`
	}
	_ = c.Bind().Query(&q)

	req := actionlog.ListRequest{
		ActionType: q.ActionType,
		TargetID:   q.TargetID,
		Page:       q.Page,
		PerPage:    q.PerPage,
	}
	var err error
	if req.UserID, err = optionalUUID(q.UserID); err != nil {
		return badRequest(c, "invalid user_id")
	}
	if req.From, err = optionalTime(q.From); err != nil {
		return badRequest(c, "invalid from")
	}
	if req.To, err = optionalTime(q.To); err != nil {
		return badRequest(c, "invalid to")
	}

	items, total, err := h.svc.List(c.Context(), cl, req)
	if err != nil {
		if errors.Is(err, actionlog.ErrUnauthorized) {
			return forbidden(c, err.Error())
		}
		return internalError(c, err)
	}
	return paginated(c, "action_logs", views(items, newActionLogView), total, store.NewPage(q.Page, q.PerPage))
}
