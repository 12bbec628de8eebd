package user

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/mail"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/Alijeyrad/mindcare_backend/internal/service/caller"
	"github.com/Alijeyrad/mindcare_backend/internal/store"
	"github.com/Alijeyrad/mindcare_backend/pkg/authorize"
	"github.com/Alijeyrad/mindcare_backend/pkg/util/password"
	"github.com/Alijeyrad/mindcare_backend/pkg/util/phone"
)

const (
	maxNameLen        = 100
	minPasswordLength = 8
)

type Store interface {
	Create(ctx context.Context, u *store.User) error
	Get(ctx context.Context, id uuid.UUID) (*store.User, error)
	List(ctx context.Context, f store.UserFilter) ([]*store.User, int, error)
	Update(ctx context.Context, id uuid.UUID, upd store.UserUpdate) (*store.User, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

type ActionRecorder interface {
	Record(ctx context.Context, userID uuid.UUID, action, targetID, details string)
}

type Config struct {
	// PhoneRegion is the default country for numbers without a prefix.
	PhoneRegion    string
	PasswordParams *password.Params
}

// ---------------------------------------------------------------------------
// DTOs
// ---------------------------------------------------------------------------

type CreateRequest struct {
	Name     string
	LastName string
	Email    string
	Phone    string
	Password string
	Role     store.Role
	IsActive *bool
}

// UpdateRequest changes only the non-nil fields. Role and IsActive are
// honoured for admins only.
type UpdateRequest struct {
	Name     *string
	LastName *string
	Email    *string
	Phone    *string
	Password *string
	Role     *store.Role
	IsActive *bool
}

type ListRequest struct {
	Role     *store.Role
	IsActive *bool
	Search   string
	Page     int
	PerPage  int
}

// ---------------------------------------------------------------------------
// Interface
// ---------------------------------------------------------------------------

type Service interface {
	// Register creates an active patient account for self sign-up.
	Register(ctx context.Context, req CreateRequest) (*store.User, error)
	Create(ctx context.Context, c caller.Caller, req CreateRequest) (*store.User, error)
	Get(ctx context.Context, c caller.Caller, id uuid.UUID) (*store.User, error)
	List(ctx context.Context, c caller.Caller, req ListRequest) ([]*store.User, int, error)
	ListDoctors(ctx context.Context, search string, page, perPage int) ([]*store.User, int, error)
	UpdateMe(ctx context.Context, c caller.Caller, req UpdateRequest) (*store.User, error)
	Update(ctx context.Context, c caller.Caller, id uuid.UUID, req UpdateRequest) (*store.User, error)
	Delete(ctx context.Context, c caller.Caller, id uuid.UUID) error
}

// ---------------------------------------------------------------------------
// Implementation
// ---------------------------------------------------------------------------

type userService struct {
	users   Store
	authz   authorize.IAuthorization
	actions ActionRecorder
	cfg     Config
}

func New(users Store, authz authorize.IAuthorization, actions ActionRecorder, cfg Config) Service {
	if cfg.PhoneRegion == "" {
		cfg.PhoneRegion = "IR"
	}
	return &userService{users: users, authz: authz, actions: actions, cfg: cfg}
}

func (s *userService) Register(ctx context.Context, req CreateRequest) (*store.User, error) {
	req.Role = store.RolePatient
	active := true
	req.IsActive = &active
	u, err := s.create(ctx, req)
	if err != nil {
		return nil, err
	}
	s.record(ctx, u.ID, "user_register", u.ID, "")
	return u, nil
}

func (s *userService) Create(ctx context.Context, c caller.Caller, req CreateRequest) (*store.User, error) {
	if !c.IsAdmin() {
		return nil, ErrUnauthorized
	}
	u, err := s.create(ctx, req)
	if err != nil {
		return nil, err
	}
	s.record(ctx, c.ID, "user_create", u.ID, "role="+string(u.Role))
	return u, nil
}

func (s *userService) create(ctx context.Context, req CreateRequest) (*store.User, error) {
	if req.Role == "" {
		req.Role = store.RolePatient
	}
	if !req.Role.Valid() {
		return nil, ErrInvalidRole
	}
	name, last, err := validNames(req.Name, req.LastName)
	if err != nil {
		return nil, err
	}
	addr, err := validEmail(req.Email)
	if err != nil {
		return nil, err
	}
	num, err := s.normalizePhone(req.Phone)
	if err != nil {
		return nil, err
	}
	hash, err := s.hash(req.Password)
	if err != nil {
		return nil, err
	}

	u := &store.User{
		Name:         name,
		LastName:     last,
		Email:        addr,
		Phone:        num,
		PasswordHash: hash,
		Role:         req.Role,
		IsActive:     req.IsActive == nil || *req.IsActive,
	}
	if err := s.users.Create(ctx, u); err != nil {
		if errors.Is(err, store.ErrConflict) {
			return nil, ErrEmailAlreadyExists
		}
		return nil, fmt.Errorf("create user: %w", err)
	}

	if err := authorize.AssignAccountRoles(ctx, s.authz, u.ID.String(), string(u.Role)); err != nil {
		slog.ErrorContext(ctx, "user: assigning rbac roles failed", "user_id", u.ID, "role", u.Role, "err", err)
	}
	return u, nil
}

func (s *userService) Get(ctx context.Context, c caller.Caller, id uuid.UUID) (*store.User, error) {
	u, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	switch {
	case c.IsAdmin(), c.IsDoctor(), c.Is(id):
	case c.IsPatient() && u.Role == store.RoleDoctor:
	default:
		return nil, ErrUnauthorized
	}
	return u, nil
}

func (s *userService) List(ctx context.Context, c caller.Caller, req ListRequest) ([]*store.User, int, error) {
	if !c.IsAdmin() {
		return nil, 0, ErrUnauthorized
	}
	if req.Role != nil && !req.Role.Valid() {
		return nil, 0, ErrInvalidRole
	}
	items, total, err := s.users.List(ctx, store.UserFilter{
		Role:     req.Role,
		IsActive: req.IsActive,
		Search:   req.Search,
		Page:     store.NewPage(req.Page, req.PerPage),
	})
	if err != nil {
		return nil, 0, fmt.Errorf("list users: %w", err)
	}
	return items, total, nil
}

func (s *userService) ListDoctors(ctx context.Context, search string, page, perPage int) ([]*store.User, int, error) {
	role := store.RoleDoctor
	active := true
	items, total, err := s.users.List(ctx, store.UserFilter{
		Role:     &role,
		IsActive: &active,
		Search:   search,
		Page:     store.NewPage(page, perPage),
	})
	if err != nil {
		return nil, 0, fmt.Errorf("list doctors: %w", err)
	}
	return items, total, nil
}

func (s *userService) UpdateMe(ctx context.Context, c caller.Caller, req UpdateRequest) (*store.User, error) {
	req.Role, req.IsActive = nil, nil
	return s.update(ctx, c, c.ID, req)
}

func (s *userService) Update(ctx context.Context, c caller.Caller, id uuid.UUID, req UpdateRequest) (*store.User, error) {
	if !c.IsAdmin() {
		return nil, ErrUnauthorized
	}
	if c.Is(id) && ((req.Role != nil && *req.Role != store.RoleAdmin) || (req.IsActive != nil && !*req.IsActive)) {
		return nil, ErrSelfDemotion
	}
	return s.update(ctx, c, id, req)
}

func (s *userService) update(ctx context.Context, c caller.Caller, id uuid.UUID, req UpdateRequest) (*store.User, error) {
	cur, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}

	upd := store.UserUpdate{IsActive: req.IsActive}
	if req.Name != nil || req.LastName != nil {
		name, last := cur.Name, cur.LastName
		if req.Name != nil {
			name = *req.Name
		}
		if req.LastName != nil {
			last = *req.LastName
		}
		if name, last, err = validNames(name, last); err != nil {
			return nil, err
		}
		upd.Name, upd.LastName = &name, &last
	}
	if req.Email != nil {
		addr, err := validEmail(*req.Email)
		if err != nil {
			return nil, err
		}
		upd.Email = &addr
	}
	if req.Phone != nil {
		num, err := s.normalizePhone(*req.Phone)
		if err != nil {
			return nil, err
		}
		if num == nil {
			empty := ""
			num = &empty
		}
		upd.Phone = num
	}
	if req.Password != nil {
		hash, err := s.hash(*req.Password)
		if err != nil {
			return nil, err
		}
		upd.PasswordHash = &hash
	}
	if req.Role != nil {
		if !req.Role.Valid() {
			return nil, ErrInvalidRole
		}
		upd.Role = req.Role
	}

	u, err := s.users.Update(ctx, id, upd)
	if err != nil {
		switch {
		case errors.Is(err, store.ErrNotFound):
			return nil, ErrUserNotFound
		case errors.Is(err, store.ErrConflict):
			return nil, ErrEmailAlreadyExists
		}
		return nil, fmt.Errorf("update user: %w", err)
	}

	if req.Role != nil && *req.Role != cur.Role {
		if err := authorize.SyncAccountRole(ctx, s.authz, id.String(), string(*req.Role)); err != nil {
			slog.ErrorContext(ctx, "user: syncing rbac role failed", "user_id", id, "role", *req.Role, "err", err)
		}
	}
	s.record(ctx, c.ID, "user_update", id, "")
	return u, nil
}

func (s *userService) Delete(ctx context.Context, c caller.Caller, id uuid.UUID) error {
	if !c.IsAdmin() {
		return ErrUnauthorized
	}
	if c.Is(id) {
		return ErrSelfDemotion
	}
	if err := s.users.Delete(ctx, id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrUserNotFound
		}
		return fmt.Errorf("delete user: %w", err)
	}
	if err := authorize.RevokeAllRoles(ctx, s.authz, id.String()); err != nil {
		slog.ErrorContext(ctx, "user: revoking rbac roles failed", "user_id", id, "err", err)
	}
	s.record(ctx, c.ID, "user_delete", id, "")
	return nil
}

// ---------------------------------------------------------------------------
// Helpers
// ---------------------------------------------------------------------------

func (s *userService) load(ctx context.Context, id uuid.UUID) (*store.User, error) {
	u, err := s.users.Get(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("get user: %w", err)
	}
	return u, nil
}

func (s *userService) hash(pw string) (string, error) {
	if utf8.RuneCountInString(pw) < minPasswordLength {
		return "", ErrPasswordTooShort
	}
	h, err := password.HashWithParams(pw, s.cfg.PasswordParams)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return h, nil
}

// normalizePhone returns nil for an empty number.
func (s *userService) normalizePhone(raw string) (*string, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, nil
	}
	num, err := phone.Normalize(raw, s.cfg.PhoneRegion)
	if err != nil {
		return nil, ErrInvalidPhone
	}
	return &num, nil
}

func (s *userService) record(ctx context.Context, actor uuid.UUID, action string, target uuid.UUID, details string) {
	if s.actions != nil {
		s.actions.Record(ctx, actor, action, target.String(), details)
	}
}

func validNames(name, last string) (string, string, error) {
	name, last = strings.TrimSpace(name), strings.TrimSpace(last)
	for _, v := range []string{name, last} {
		if n := utf8.RuneCountInString(v); n == 0 || n > maxNameLen {
			return "", "", ErrInvalidName
		}
	}
	return name, last, nil
}

func validEmail(raw string) (string, error) {
	a, err := mail.ParseAddress(strings.TrimSpace(raw))
	if err != nil || a.Name != "" {
		return "", ErrInvalidEmail
	}
	return strings.ToLower(a.Address), nil
}
