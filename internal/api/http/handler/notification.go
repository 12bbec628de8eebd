package handler

import (
	"errors"

	"github.com/gofiber/fiber/v3"
	"github.com/google/uuid"

	"github.com/Alijeyrad/mindcare_backend/internal/service/notification"
	"github.com/Alijeyrad/mindcare_backend/internal/store"
)

type NotificationHandler struct {
	svc notification.Service
}

func NewNotificationHandler(svc notification.Service) *NotificationHandler {
	return &NotificationHandler{svc: svc}
}

func mapNotificationError(c fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, notification.ErrNotFound):
		return notFound(c, err.Error())
	case errors.Is(err, notification.ErrInvalidRequest):
		return badRequest(c, err.Error())
	default:
		return internalError(c, err)
	}
}

// GET /notifications
func (h *NotificationHandler) List(c fiber.Ctx) error {
	cl, valid := callerFrom(c)
	if !valid {
		return unauthorized(c)
	}

	var q struct {
		UnreadOnly bool `query:"unread_only"`
		Page       int  `query:"page"`
		PerPage    int  `query:"per_page"`
	}
	_ = c.Bind().Query(&q)

	items, total, err := h.svc.List(c.Context(), cl.ID, notification.ListRequest{
		UnreadOnly: q.UnreadOnly,
		Page:       q.Page,
		PerPage:    q.PerPage,
	})
	if err != nil {
		return mapNotificationError(c, err)
	}
	return paginated(c, "notifications", views(items, newNotificationView), total, store.NewPage(q.Page, q.PerPage))
}

// GET /notifications/unread-count
func (h *NotificationHandler) UnreadCount(c fiber.Ctx) error {
	cl, valid := callerFrom(c)
	if !valid {
		return unauthorized(c)
	}
	n, err := h.svc.UnreadCount(c.Context(), cl.ID)
	if err != nil {
		return mapNotificationError(c, err)
	}
	return ok(c, fiber.Map{"unread": n})
}

// PATCH /notifications/:id/read
func (h *NotificationHandler) MarkRead(c fiber.Ctx) error {
	cl, valid := callerFrom(c)
	if !valid {
		return unauthorized(c)
	}
	notifID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return badRequest(c, "invalid notification id")
	}
	if err := h.svc.MarkRead(c.Context(), notifID, cl.ID); err != nil {
		return mapNotificationError(c, err)
	}
	return noContent(c)
}

// PATCH /notifications/read-all
func (h *NotificationHandler) MarkAllRead(c fiber.Ctx) error {
	cl, valid := callerFrom(c)
	if !valid {
		return unauthorized(c)
	}
	n, err := h.svc.MarkAllRead(c.Context(), cl.ID)
	if err != nil {
		return mapNotificationError(c, err)
	}
	return ok(c, fiber.Map{"updated": n})
}

// DELETE /notifications/:id
func (h *NotificationHandler) Delete(c fiber.Ctx) error {
	cl, valid := callerFrom(c)
	if !valid {
		return unauthorized(c)
	}
	notifID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return badRequest(c, "invalid notification id")
	}
	if err := h.svc.Delete(c.Context(), notifID, cl.ID); err != nil {
		return mapNotificationError(c, err)
	}
	return noContent(c)
}
