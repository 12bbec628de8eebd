package handler

import (
	"errors"

	"github.com/gofiber/fiber/v3"
	"github.com/google/uuid"

	"github.com/Alijeyrad/mindcare_backend/internal/service/report"
	"github.com/Alijeyrad/mindcare_backend/internal/store"
)

type ReportHandler struct {
	svc report.Service
}

func NewReportHandler(svc report.Service) *ReportHandler {
	return &ReportHandler{svc: svc}
}

// POST /reports
func (h *ReportHandler) Create(c fiber.Ctx) error {
	cl, valid := callerFrom(c)
	if !valid {
		return unauthorized(c)
	}

	var body struct {
		SessionID   string         `json:"session_id"`
		Content     map[string]any `json:"content"`
		Summary     *string        `json:"summary"`
		DoctorNotes *string        `json:"doctor_notes"`
		Summarize   bool           `json:"summarize"`
	}
	if err := c.Bind().JSON(&body); err != nil {
		return badRequest(c, "invalid request body")
	}
	sessionID, err := uuid.Parse(body.SessionID)
	if err != nil {
		return badRequest(c, "invalid session_id")
	}

	r, err := h.svc.Create(c.Context(), cl, report.CreateRequest{
		SessionID:   sessionID,
		Content:     body.Content,
		Summary:     body.Summary,
		DoctorNotes: body.DoctorNotes,
		Summarize:   body.Summarize,
	})
	if err != nil {
		return mapReportError(c, err)
	}
	return created(c, newReportView(r))
}

// GET /reports
func (h *ReportHandler) List(c fiber.Ctx) error {
	cl, valid := callerFrom(c)
	if !valid {
		return unauthorized(c)
	}

	var q struct {
		SessionID string `query:"session_id"`
		Notified  string `query:"notified"`
		Page      int    `query:"page"`
		PerPage   int    `query:"per_page"`
	}
	_ = c.Bind().Query(&q)

	req := report.ListRequest{Page: q.Page, PerPage: q.PerPage}
	var err error
	if req.SessionID, err = optionalUUID(q.SessionID); err != nil {
		return badRequest(c, "invalid session_id")
	}
	if req.Notified, err = optionalBool(q.Notified); err != nil {
		return badRequest(c, "invalid notified")
	}

	items, total, err := h.svc.List(c.Context(), cl, req)
	if err != nil {
		return mapReportError(c, err)
	}
	return paginated(c, "reports", views(items, newReportView), total, store.NewPage(q.Page, q.PerPage))
}

// GET /reports/:id
func (h *ReportHandler) Get(c fiber.Ctx) error {
	cl, valid := callerFrom(c)
	if !valid {
		return unauthorized(c)
	}
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return badRequest(c, "invalid report id")
	}
	r, err := h.svc.Get(c.Context(), cl, id)
	if err != nil {
		return mapReportError(c, err)
	}
	return ok(c, newReportView(r))
}

// GET /sessions/:id/report
func (h *ReportHandler) GetBySession(c fiber.Ctx) error {
	cl, valid := callerFrom(c)
	if !valid {
		return unauthorized(c)
	}
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return badRequest(c, "invalid session id")
	}
	r, err := h.svc.GetBySession(c.Context(), cl, id)
	if err != nil {
		return mapReportError(c, err)
	}
	return ok(c, newReportView(r))
}

// PUT /reports/:id
func (h *ReportHandler) Update(c fiber.Ctx) error {
	cl, valid := callerFrom(c)
	if !valid {
		return unauthorized(c)
	}
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return badRequest(c, "invalid report id")
	}

	var body struct {
		Content     map[string]any `json:"content"`
		Summary     *string        `json:"summary"`
		DoctorNotes *string        `json:"doctor_notes"`
	}
	if err := c.Bind().JSON(&body); err != nil {
		return badRequest(c, "invalid request body")
	}

	r, err := h.svc.Update(c.Context(), cl, id, report.UpdateRequest{
		Content:     body.Content,
		Summary:     body.Summary,
		DoctorNotes: body.DoctorNotes,
	})
	if err != nil {
		return mapReportError(c, err)
	}
	return ok(c, newReportView(r))
}

// PATCH /reports/:id/notified
func (h *ReportHandler) MarkNotified(c fiber.Ctx) error {
	cl, valid := callerFrom(c)
	if !valid {
		return unauthorized(c)
	}
	if cl.IsPatient() {
		return forbidden(c, report.ErrUnauthorized.Error())
	}
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return badRequest(c, "invalid report id")
	}
	// Scope check: doctors may only touch reports of their own sessions.
	if _, err := h.svc.Get(c.Context(), cl, id); err != nil {
		return mapReportError(c, err)
	}
	r, err := h.svc.MarkNotified(c.Context(), id)
	if err != nil {
		return mapReportError(c, err)
	}
	return ok(c, newReportView(r))
}

// DELETE /reports/:id
func (h *ReportHandler) Delete(c fiber.Ctx) error {
	cl, valid := callerFrom(c)
	if !valid {
		return unauthorized(c)
	}
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return badRequest(c, "invalid report id")
	}
	if err := h.svc.Delete(c.Context(), cl, id); err != nil {
		return mapReportError(c, err)
	}
	return noContent(c)
}

func mapReportError(c fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, report.ErrReportNotFound),
		errors.Is(err, report.ErrSessionNotFound):
		return notFound(c, err.Error())
	case errors.Is(err, report.ErrUnauthorized):
		return forbidden(c, err.Error())
	case errors.Is(err, report.ErrInvalidContent):
		return badRequest(c, err.Error())
	default:
		return internalError(c, err)
	}
}
