package handler

import (
	"context"
	"errors"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/google/uuid"

	"github.com/Alijeyrad/mindcare_backend/internal/service/caller"
	"github.com/Alijeyrad/mindcare_backend/internal/service/session"
	"github.com/Alijeyrad/mindcare_backend/internal/store"
)

type SessionHandler struct {
	svc session.Service
}

func NewSessionHandler(svc session.Service) *SessionHandler {
	return &SessionHandler{svc: svc}
}

// POST /sessions
func (h *SessionHandler) Create(c fiber.Ctx) error {
	cl, valid := callerFrom(c)
	if !valid {
		return unauthorized(c)
	}

	var body struct {
		PatientID string    `json:"patient_id"`
		DoctorID  string    `json:"doctor_id"`
		StartTime time.Time `json:"start_time"`
		EndTime   time.Time `json:"end_time"`
	}
	if err := c.Bind().JSON(&body); err != nil {
		return badRequest(c, "invalid request body")
	}

	req := session.CreateRequest{StartTime: body.StartTime, EndTime: body.EndTime}
	var err error
	if body.DoctorID != "" {
		if req.DoctorID, err = uuid.Parse(body.DoctorID); err != nil {
			return badRequest(c, "invalid doctor_id")
		}
	}
	if body.PatientID != "" {
		if req.PatientID, err = uuid.Parse(body.PatientID); err != nil {
			return badRequest(c, "invalid patient_id")
		}
	}

	sess, err := h.svc.Create(c.Context(), cl, req)
	if err != nil {
		return mapSessionError(c, err)
	}
	return created(c, newSessionView(sess))
}

// GET /sessions
func (h *SessionHandler) List(c fiber.Ctx) error {
	cl, valid := callerFrom(c)
	if !valid {
		return unauthorized(c)
	}

	var q struct {
		Status    string `query:"status"`
		PatientID string `query:"patient_id"`
		DoctorID  string `query:"doctor_id"`
		From      string `query:"from"`
		To        string `query:"to"`
		Page      int    `query:"page"`
		PerPage   int    `query:"per_page"`
	}
	_ = c.Bind().Query(&q)

	req := session.ListRequest{Page: q.Page, PerPage: q.PerPage}
	if q.Status != "" {
		st := store.SessionStatus(q.Status)
		if !st.Valid() {
			return badRequest(c, "invalid status")
		}
		req.Status = &st
	}
	var err error
	if req.PatientID, err = optionalUUID(q.PatientID); err != nil {
		return badRequest(c, "invalid patient_id")
	}
	if req.DoctorID, err = optionalUUID(q.DoctorID); err != nil {
		return badRequest(c, "invalid doctor_id")
	}
	if req.From, err = optionalTime(q.From); err != nil {
		return badRequest(c, "invalid from")
	}
	if req.To, err = optionalTime(q.To); err != nil {
		return badRequest(c, "invalid to")
	}

	items, total, err := h.svc.List(c.Context(), cl, req)
	if err != nil {
		return mapSessionError(c, err)
	}
	return paginated(c, "sessions", views(items, newSessionView), total, store.NewPage(q.Page, q.PerPage))
}

// GET /sessions/:id
func (h *SessionHandler) Get(c fiber.Ctx) error {
	return h.withSession(c, h.svc.Get)
}

// PUT /sessions/:id
func (h *SessionHandler) Update(c fiber.Ctx) error {
	cl, valid := callerFrom(c)
	if !valid {
		return unauthorized(c)
	}
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return badRequest(c, "invalid session id")
	}

	var body struct {
		Status string `json:"status"`
	}
	if err := c.Bind().JSON(&body); err != nil {
		return badRequest(c, "invalid request body")
	}
	if body.Status == "" {
		return badRequest(c, "status is required")
	}

	sess, err := h.svc.UpdateStatus(c.Context(), cl, id, store.SessionStatus(body.Status))
	if err != nil {
		return mapSessionError(c, err)
	}
	return ok(c, newSessionView(sess))
}

// PATCH /sessions/:id/accept
func (h *SessionHandler) Accept(c fiber.Ctx) error {
	return h.withSession(c, h.svc.Accept)
}

// PATCH /sessions/:id/cancel
func (h *SessionHandler) Cancel(c fiber.Ctx) error {
	return h.withSession(c, h.svc.Cancel)
}

// PATCH /sessions/:id/complete
func (h *SessionHandler) Complete(c fiber.Ctx) error {
	return h.withSession(c, h.svc.Complete)
}

// DELETE /sessions/:id
func (h *SessionHandler) Delete(c fiber.Ctx) error {
	cl, valid := callerFrom(c)
	if !valid {
		return unauthorized(c)
	}
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return badRequest(c, "invalid session id")
	}
	if err := h.svc.Delete(c.Context(), cl, id); err != nil {
		return mapSessionError(c, err)
	}
	return noContent(c)
}

// POST /sessions/:id/join
func (h *SessionHandler) Join(c fiber.Ctx) error {
	cl, valid := callerFrom(c)
	if !valid {
		return unauthorized(c)
	}
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return badRequest(c, "invalid session id")
	}

	res, err := h.svc.Join(c.Context(), id, cl.ID)
	if err != nil {
		return mapSessionError(c, err)
	}
	return ok(c, fiber.Map{
		"room_name":  res.RoomName,
		"join_token": res.JoinToken,
		"server_url": res.ServerURL,
		"session_id": res.SessionID,
	})
}

// PUT /sessions/:id/transcript
func (h *SessionHandler) SaveTranscript(c fiber.Ctx) error {
	cl, valid := callerFrom(c)
	if !valid {
		return unauthorized(c)
	}
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return badRequest(c, "invalid session id")
	}

	var body struct {
		Transcript string `json:"transcript"`
	}
	if err := c.Bind().JSON(&body); err != nil {
		return badRequest(c, "invalid request body")
	}

	sess, err := h.svc.SaveTranscript(c.Context(), cl, id, body.Transcript)
	if err != nil {
		return mapSessionError(c, err)
	}
	return ok(c, newSessionView(sess))
}

// GET /sessions/:id/transcript
func (h *SessionHandler) Transcript(c fiber.Ctx) error {
	cl, valid := callerFrom(c)
	if !valid {
		return unauthorized(c)
	}
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return badRequest(c, "invalid session id")
	}

	tr, err := h.svc.Transcript(c.Context(), cl, id)
	if err != nil {
		return mapSessionError(c, err)
	}
	if tr.URL != "" {
		return ok(c, fiber.Map{"url": tr.URL})
	}
	return ok(c, fiber.Map{"transcript": tr.Text})
}

func (h *SessionHandler) withSession(c fiber.Ctx, fn func(context.Context, caller.Caller, uuid.UUID) (*store.Session, error)) error {
	cl, valid := callerFrom(c)
	if !valid {
		return unauthorized(c)
	}
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return badRequest(c, "invalid session id")
	}
	sess, err := fn(c.Context(), cl, id)
	if err != nil {
		return mapSessionError(c, err)
	}
	return ok(c, newSessionView(sess))
}

// ---------------------------------------------------------------------------
// Error mapping
// ---------------------------------------------------------------------------

func mapSessionError(c fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, session.ErrInvalidReference),
		errors.Is(err, session.ErrInvalidWindow),
		errors.Is(err, session.ErrInvalidStatus),
		errors.Is(err, session.ErrTranscriptEmpty):
		return badRequest(c, err.Error())
	case errors.Is(err, session.ErrTranscriptTooLarge):
		return fail(c, fiber.StatusRequestEntityTooLarge, codeBadRequest, err.Error())
	case errors.Is(err, session.ErrSessionNotFound),
		errors.Is(err, session.ErrTranscriptNotFound):
		return notFound(c, err.Error())
	case errors.Is(err, session.ErrProfileNotFound):
		return fail(c, fiber.StatusNotFound, codeProfileNotFound, err.Error())
	case errors.Is(err, session.ErrUnauthorized):
		return forbidden(c, err.Error())
	case errors.Is(err, session.ErrInvalidState):
		return fail(c, fiber.StatusConflict, codeInvalidState, err.Error())
	case errors.Is(err, session.ErrRoomProvisioningFailed):
		if errors.Is(err, context.DeadlineExceeded) {
			return fail(c, fiber.StatusGatewayTimeout, codeUpstreamTimeout, err.Error())
		}
		return fail(c, fiber.StatusBadGateway, codeUpstream, err.Error())
	default:
		return internalError(c, err)
	}
}
