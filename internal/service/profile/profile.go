// Package profile manages the intake profile a patient fills in before
// their first session. The AI worker receives it on every join.
package profile

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/Alijeyrad/mindcare_backend/internal/service/caller"
	"github.com/Alijeyrad/mindcare_backend/internal/store"
)

var (
	ErrProfileNotFound = errors.New("patient profile not found")
	ErrProfileExists   = errors.New("patient already has a profile")
	ErrInvalidProfile  = errors.New("invalid patient profile")
	ErrNotPatient      = errors.New("profiles can only belong to patients")
	ErrUnauthorized    = errors.New("not allowed to act on this profile")
)

type Store interface {
	Create(ctx context.Context, p *store.PatientProfile) error
	GetByUser(ctx context.Context, userID uuid.UUID) (*store.PatientProfile, error)
	List(ctx context.Context, page store.Page) ([]*store.PatientProfile, int, error)
	Update(ctx context.Context, userID uuid.UUID, upd store.ProfileUpdate) (*store.PatientProfile, error)
	DeleteByUser(ctx context.Context, userID uuid.UUID) error
}

type UserStore interface {
	Get(ctx context.Context, id uuid.UUID) (*store.User, error)
}

type ActionRecorder interface {
	Record(ctx context.Context, userID uuid.UUID, action, targetID, details string)
}

type CreateRequest struct {
	// PatientID is ignored for patients, who always create their own.
	PatientID      uuid.UUID
	Age            int
	Gender         string
	Occupation     string
	EducationLevel string
	MaritalStatus  string
	Notes          *string
}

type UpdateRequest = store.ProfileUpdate

type Service interface {
	Create(ctx context.Context, c caller.Caller, req CreateRequest) (*store.PatientProfile, error)
	Get(ctx context.Context, c caller.Caller, patientID uuid.UUID) (*store.PatientProfile, error)
	List(ctx context.Context, c caller.Caller, page, perPage int) ([]*store.PatientProfile, int, error)
	Update(ctx context.Context, c caller.Caller, patientID uuid.UUID, req UpdateRequest) (*store.PatientProfile, error)
	Delete(ctx context.Context, c caller.Caller, patientID uuid.UUID) error
}

type profileService struct {
	profiles Store
	users    UserStore
	actions  ActionRecorder
}

func New(profiles Store, users UserStore, actions ActionRecorder) Service {
	return &profileService{profiles: profiles, users: users, actions: actions}
}

func (s *profileService) Create(ctx context.Context, c caller.Caller, req CreateRequest) (*store.PatientProfile, error) {
	switch {
	case c.IsPatient():
		req.PatientID = c.ID
	case c.IsAdmin():
	default:
		return nil, ErrUnauthorized
	}

	u, err := s.users.Get(ctx, req.PatientID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrNotPatient
		}
		return nil, fmt.Errorf("get user: %w", err)
	}
	if u.Role != store.RolePatient {
		return nil, ErrNotPatient
	}

	p := &store.PatientProfile{
		UserID:         req.PatientID,
		Age:            req.Age,
		Gender:         strings.ToLower(strings.TrimSpace(req.Gender)),
		Occupation:     strings.ToLower(strings.TrimSpace(req.Occupation)),
		EducationLevel: strings.TrimSpace(req.EducationLevel),
		MaritalStatus:  strings.TrimSpace(req.MaritalStatus),
		Notes:          req.Notes,
	}
	if err := p.Validate(); err != nil {
		return nil, invalid(err)
	}
	if err := s.profiles.Create(ctx, p); err != nil {
		if errors.Is(err, store.ErrConflict) {
			return nil, ErrProfileExists
		}
		return nil, fmt.Errorf("create profile: %w", err)
	}

	s.record(ctx, c.ID, "profile_create", p.UserID)
	return p, nil
}

func (s *profileService) Get(ctx context.Context, c caller.Caller, patientID uuid.UUID) (*store.PatientProfile, error) {
	if !s.canRead(c, patientID) {
		return nil, ErrUnauthorized
	}
	p, err := s.profiles.GetByUser(ctx, patientID)
	if err != nil {
		return nil, notFound(err)
	}
	return p, nil
}

func (s *profileService) List(ctx context.Context, c caller.Caller, page, perPage int) ([]*store.PatientProfile, int, error) {
	if !c.IsAdmin() && !c.IsDoctor() {
		return nil, 0, ErrUnauthorized
	}
	items, total, err := s.profiles.List(ctx, store.NewPage(page, perPage))
	if err != nil {
		return nil, 0, fmt.Errorf("list profiles: %w", err)
	}
	return items, total, nil
}

func (s *profileService) Update(ctx context.Context, c caller.Caller, patientID uuid.UUID, req UpdateRequest) (*store.PatientProfile, error) {
	if !c.IsAdmin() && !c.Is(patientID) {
		return nil, ErrUnauthorized
	}
	if req.Gender != nil {
		g := strings.ToLower(strings.TrimSpace(*req.Gender))
		req.Gender = &g
	}
	if req.Occupation != nil {
		o := strings.ToLower(strings.TrimSpace(*req.Occupation))
		req.Occupation = &o
	}

	p, err := s.profiles.Update(ctx, patientID, req)
	if err != nil {
		if errors.Is(err, store.ErrMalformedRecord) {
			return nil, invalid(err)
		}
		return nil, notFound(err)
	}
	s.record(ctx, c.ID, "profile_update", patientID)
	return p, nil
}

func (s *profileService) Delete(ctx context.Context, c caller.Caller, patientID uuid.UUID) error {
	if !c.IsAdmin() && !c.Is(patientID) {
		return ErrUnauthorized
	}
	if err := s.profiles.DeleteByUser(ctx, patientID); err != nil {
		return notFound(err)
	}
	s.record(ctx, c.ID, "profile_delete", patientID)
	return nil
}

func (s *profileService) canRead(c caller.Caller, patientID uuid.UUID) bool {
	return c.IsAdmin() || c.IsDoctor() || c.Is(patientID)
}

func (s *profileService) record(ctx context.Context, actor uuid.UUID, action string, target uuid.UUID) {
	if s.actions != nil {
		s.actions.Record(ctx, actor, action, target.String(), "")
	}
}

func notFound(err error) error {
	if errors.Is(err, store.ErrNotFound) {
		return ErrProfileNotFound
	}
	return err
}

// invalid keeps the store's reason but swaps the sentinel.
func invalid(err error) error {
	msg := strings.TrimPrefix(err.Error(), store.ErrMalformedRecord.Error()+": ")
	return fmt.Errorf("%w: %s", ErrInvalidProfile, msg)
}
