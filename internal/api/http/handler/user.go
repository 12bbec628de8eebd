package handler

import (
	"errors"

	"github.com/gofiber/fiber/v3"
	"github.com/google/uuid"

	"github.com/Alijeyrad/mindcare_backend/internal/service/user"
	"github.com/Alijeyrad/mindcare_backend/internal/store"
)

type UserHandler struct {
	svc user.Service
}

func NewUserHandler(svc user.Service) *UserHandler {
	return &UserHandler{svc: svc}
}

type userBody struct {
	Name     *string `json:"name"`
	LastName *string `json:"last_name"`
	Email    *string `json:"email"`
	Phone    *string `json:"phone"`
	Password *string `json:"password"`
	Role     *string `json:"role"`
	IsActive *bool   `json:"is_active"`
}

func (b userBody) update() user.UpdateRequest {
	req := user.UpdateRequest{
		Name:     b.Name,
		LastName: b.LastName,
		Email:    b.Email,
		Phone:    b.Phone,
		Password: b.Password,
		IsActive: b.IsActive,
	}
	if b.Role != nil {
		r := store.Role(*b.Role)
		req.Role = &r
	}
	return req
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// GET /users/me
func (h *UserHandler) GetMe(c fiber.Ctx) error {
	cl, valid := callerFrom(c)
	if !valid {
		return unauthorized(c)
	}
	u, err := h.svc.Get(c.Context(), cl, cl.ID)
	if err != nil {
		return mapUserError(c, err)
	}
	return ok(c, newUserView(u))
}

// PATCH /users/me
func (h *UserHandler) UpdateMe(c fiber.Ctx) error {
	cl, valid := callerFrom(c)
	if !valid {
		return unauthorized(c)
	}
	var body userBody
	if err := c.Bind().JSON(&body); err != nil {
		return badRequest(c, "invalid request body")
	}
	u, err := h.svc.UpdateMe(c.Context(), cl, body.update())
	if err != nil {
		return mapUserError(c, err)
	}
	return ok(c, newUserView(u))
}

// GET /users/doctors
func (h *UserHandler) ListDoctors(c fiber.Ctx) error {
	var q struct {
		Search  string `query:"search"`
		Page    int    `query:"page"`
		PerPage int    `query:"per_page"`
	}
	_ = c.Bind().Query(&q)

	items, total, err := h.svc.ListDoctors(c.Context(), q.Search, q.Page, q.PerPage)
	if err != nil {
		return mapUserError(c, err)
	}
	return paginated(c, "users", views(items, newUserView), total, store.NewPage(q.Page, q.PerPage))
}

// GET /users
func (h *UserHandler) List(c fiber.Ctx) error {
	cl, valid := callerFrom(c)
	if !valid {
		return unauthorized(c)
	}

	var q struct {
		Role     string `query:"role"`
		IsActive string `query:"is_active"`
		Search   string `query:"search"`
		Page     int    `query:"page"`
		PerPage  int    `query:"per_page"`
	}
	_ = c.Bind().Query(&q)

	req := user.ListRequest{Search: q.Search, Page: q.Page, PerPage: q.PerPage}
	if q.Role != "" {
		r := store.Role(q.Role)
		if !r.Valid() {
			return badRequest(c, user.ErrInvalidRole.Error())
		}
		req.Role = &r
	}
	active, err := optionalBool(q.IsActive)
	if err != nil {
		return badRequest(c, "invalid is_active")
	}
	req.IsActive = active

	items, total, err := h.svc.List(c.Context(), cl, req)
	if err != nil {
		return mapUserError(c, err)
	}
	return paginated(c, "users", views(items, newUserView), total, store.NewPage(q.Page, q.PerPage))
}

// POST /users
func (h *UserHandler) Create(c fiber.Ctx) error {
	cl, valid := callerFrom(c)
	if !valid {
		return unauthorized(c)
	}
	var body userBody
	if err := c.Bind().JSON(&body); err != nil {
		return badRequest(c, "invalid request body")
	}

	u, err := h.svc.Create(c.Context(), cl, user.CreateRequest{
		Name:     deref(body.Name),
		LastName: deref(body.LastName),
		Email:    deref(body.Email),
		Phone:    deref(body.Phone),
		Password: deref(body.Password),
		Role:     store.Role(deref(body.Role)),
		IsActive: body.IsActive,
	})
	if err != nil {
		return mapUserError(c, err)
	}
	return created(c, newUserView(u))
}

// GET /users/:id
func (h *UserHandler) Get(c fiber.Ctx) error {
	cl, valid := callerFrom(c)
	if !valid {
		return unauthorized(c)
	}
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return badRequest(c, "invalid user id")
	}
	u, err := h.svc.Get(c.Context(), cl, id)
	if err != nil {
		return mapUserError(c, err)
	}
	return ok(c, newUserView(u))
}

// PATCH /users/:id
func (h *UserHandler) Update(c fiber.Ctx) error {
	cl, valid := callerFrom(c)
	if !valid {
		return unauthorized(c)
	}
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return badRequest(c, "invalid user id")
	}
	var body userBody
	if err := c.Bind().JSON(&body); err != nil {
		return badRequest(c, "invalid request body")
	}
	u, err := h.svc.Update(c.Context(), cl, id, body.update())
	if err != nil {
		return mapUserError(c, err)
	}
	return ok(c, newUserView(u))
}

// DELETE /users/:id
func (h *UserHandler) Delete(c fiber.Ctx) error {
	cl, valid := callerFrom(c)
	if !valid {
		return unauthorized(c)
	}
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return badRequest(c, "invalid user id")
	}
	if err := h.svc.Delete(c.Context(), cl, id); err != nil {
		return mapUserError(c, err)
	}
	return noContent(c)
}

func mapUserError(c fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, user.ErrUserNotFound):
		return notFound(c, err.Error())
	case errors.Is(err, user.ErrUnauthorized):
		return forbidden(c, err.Error())
	case errors.Is(err, user.ErrEmailAlreadyExists):
		return conflict(c, err.Error())
	case errors.Is(err, user.ErrSelfDemotion):
		return fail(c, fiber.StatusConflict, codeInvalidState, err.Error())
	case errors.Is(err, user.ErrInvalidName),
		errors.Is(err, user.ErrInvalidEmail),
		errors.Is(err, user.ErrInvalidPhone),
		errors.Is(err, user.ErrInvalidRole),
		errors.Is(err, user.ErrPasswordTooShort):
		return badRequest(c, err.Error())
	default:
		return internalError(c, err)
	}
}
