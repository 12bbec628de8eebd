package handler

import (
	"errors"

	"github.com/gofiber/fiber/v3"
	"github.com/google/uuid"

	"github.com/Alijeyrad/mindcare_backend/internal/service/profile"
	"github.com/Alijeyrad/mindcare_backend/internal/store"
)

type ProfileHandler struct {
	svc profile.Service
}

func NewProfileHandler(svc profile.Service) *ProfileHandler {
	return &ProfileHandler{svc: svc}
}

// POST /profiles
func (h *ProfileHandler) Create(c fiber.Ctx) error {
	cl, valid := callerFrom(c)
	if !valid {
		return unauthorized(c)
	}

	var body struct {
		PatientID      string  `json:"patient_id"`
		Age            int     `json:"age"`
		Gender         string  `json:"gender"`
		Occupation     string  `json:"occupation"`
		EducationLevel string  `json:"education_level"`
		MaritalStatus  string  `json:"marital_status"`
		Notes          *string `json:"notes"`
	}
	if err := c.Bind().JSON(&body); err != nil {
		return badRequest(c, "invalid request body")
	}

	req := profile.CreateRequest{
		Age:            body.Age,
		Gender:         body.Gender,
		Occupation:     body.Occupation,
		EducationLevel: body.EducationLevel,
		MaritalStatus:  body.MaritalStatus,
		Notes:          body.Notes,
	}
	if body.PatientID != "" {
		id, err := uuid.Parse(body.PatientID)
		if err != nil {
			return badRequest(c, "invalid patient_id")
		}
		req.PatientID = id
	}

	p, err := h.svc.Create(c.Context(), cl, req)
	if err != nil {
		return mapProfileError(c, err)
	}
	return created(c, newProfileView(p))
}

// GET /profiles
func (h *ProfileHandler) List(c fiber.Ctx) error {
	cl, valid := callerFrom(c)
	if !valid {
		return unauthorized(c)
	}
	var q struct {
		Page    int `query:"page"`
		PerPage int `query:"per_page"`
	}
	_ = c.Bind().Query(&q)

	items, total, err := h.svc.List(c.Context(), cl, q.Page, q.PerPage)
	if err != nil {
		return mapProfileError(c, err)
	}
	return paginated(c, "profiles", views(items, newProfileView), total, store.NewPage(q.Page, q.PerPage))
}

// GET /profiles/me
func (h *ProfileHandler) GetMe(c fiber.Ctx) error {
	cl, valid := callerFrom(c)
	if !valid {
		return unauthorized(c)
	}
	p, err := h.svc.Get(c.Context(), cl, cl.ID)
	if err != nil {
		return mapProfileError(c, err)
	}
	return ok(c, newProfileView(p))
}

// GET /profiles/:patient_id
func (h *ProfileHandler) Get(c fiber.Ctx) error {
	cl, valid := callerFrom(c)
	if !valid {
		return unauthorized(c)
	}
	id, err := uuid.Parse(c.Params("patient_id"))
	if err != nil {
		return badRequest(c, "invalid patient id")
	}
	p, err := h.svc.Get(c.Context(), cl, id)
	if err != nil {
		return mapProfileError(c, err)
	}
	return ok(c, newProfileView(p))
}

// PUT /profiles/:patient_id
func (h *ProfileHandler) Update(c fiber.Ctx) error {
	cl, valid := callerFrom(c)
	if !valid {
		return unauthorized(c)
	}
	id, err := uuid.Parse(c.Params("patient_id"))
	if err != nil {
		return badRequest(c, "invalid patient id")
	}

	var body struct {
		Age            *int    `json:"age"`
		Gender         *string `json:"gender"`
		Occupation     *string `json:"occupation"`
		EducationLevel *string `json:"education_level"`
		MaritalStatus  *string `json:"marital_status"`
		Notes          *string `json:"notes"`
	}
	if err := c.Bind().JSON(&body); err != nil {
		return badRequest(c, "invalid request body")
	}

	p, err := h.svc.Update(c.Context(), cl, id, profile.UpdateRequest{
		Age:            body.Age,
		Gender:         body.Gender,
		Occupation:     body.Occupation,
		EducationLevel: body.EducationLevel,
		MaritalStatus:  body.MaritalStatus,
		Notes:          body.Notes,
	})
	if err != nil {
		return mapProfileError(c, err)
	}
	return ok(c, newProfileView(p))
}

// DELETE /profiles/:patient_id
func (h *ProfileHandler) Delete(c fiber.Ctx) error {
	cl, valid := callerFrom(c)
	if !valid {
		return unauthorized(c)
	}
	id, err := uuid.Parse(c.Params("patient_id"))
	if err != nil {
		return badRequest(c, "invalid patient id")
	}
	if err := h.svc.Delete(c.Context(), cl, id); err != nil {
		return mapProfileError(c, err)
	}
	return noContent(c)
}

func mapProfileError(c fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, profile.ErrProfileNotFound):
		return fail(c, fiber.StatusNotFound, codeProfileNotFound, err.Error())
	case errors.Is(err, profile.ErrUnauthorized):
		return forbidden(c, err.Error())
	case errors.Is(err, profile.ErrProfileExists):
		return conflict(c, err.Error())
	case errors.Is(err, profile.ErrInvalidProfile),
		errors.Is(err, profile.ErrNotPatient):
		return badRequest(c, err.Error())
	default:
		return internalError(c, err)
	}
}
