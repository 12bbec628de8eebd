package profile

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Alijeyrad/mindcare_backend/internal/service/caller"
	"github.com/Alijeyrad/mindcare_backend/internal/store"
)

type memProfiles struct {
	rows map[uuid.UUID]*store.PatientProfile
}

func (m *memProfiles) Create(_ context.Context, p *store.PatientProfile) error {
	if _, ok := m.rows[p.UserID]; ok {
		return store.ErrConflict
	}
	p.ID = uuid.New()
	m.rows[p.UserID] = p
	return nil
}

func (m *memProfiles) GetByUser(_ context.Context, id uuid.UUID) (*store.PatientProfile, error) {
	p, ok := m.rows[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return p, nil
}

func (m *memProfiles) List(_ context.Context, _ store.Page) ([]*store.PatientProfile, int, error) {
	var out []*store.PatientProfile
	for _, p := range m.rows {
		out = append(out, p)
	}
	return out, len(out), nil
}

func (m *memProfiles) Update(_ context.Context, id uuid.UUID, upd store.ProfileUpdate) (*store.PatientProfile, error) {
	cur, ok := m.rows[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	next := *cur
	if upd.Age != nil {
		next.Age = *upd.Age
	}
	if upd.Gender != nil {
		next.Gender = *upd.Gender
	}
	if upd.Occupation != nil {
		next.Occupation = *upd.Occupation
	}
	if upd.Notes != nil {
		next.Notes = upd.Notes
	}
	if err := next.Validate(); err != nil {
		return nil, err
	}
	m.rows[id] = &next
	return &next, nil
}

func (m *memProfiles) DeleteByUser(_ context.Context, id uuid.UUID) error {
	if _, ok := m.rows[id]; !ok {
		return store.ErrNotFound
	}
	delete(m.rows, id)
	return nil
}

type memUsers map[uuid.UUID]*store.User

func (m memUsers) Get(_ context.Context, id uuid.UUID) (*store.User, error) {
	u, ok := m[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return u, nil
}

func setup() (Service, caller.Caller, caller.Caller, caller.Caller) {
	patient := caller.Caller{ID: uuid.New(), Role: store.RolePatient}
	doctor := caller.Caller{ID: uuid.New(), Role: store.RoleDoctor}
	admin := caller.Caller{ID: uuid.New(), Role: store.RoleAdmin}
	users := memUsers{
		patient.ID: {ID: patient.ID, Role: store.RolePatient},
		doctor.ID:  {ID: doctor.ID, Role: store.RoleDoctor},
	}
	return New(&memProfiles{rows: map[uuid.UUID]*store.PatientProfile{}}, users, nil), patient, doctor, admin
}

func validRequest() CreateRequest {
	return CreateRequest{Age: 34, Gender: "Female", Occupation: " employed ", EducationLevel: "bachelor", MaritalStatus: "married"}
}

func TestCreateForSelf(t *testing.T) {
	svc, patient, doctor, _ := setup()
	ctx := context.Background()

	req := validRequest()
	req.PatientID = doctor.ID // ignored for patients
	p, err := svc.Create(ctx, patient, req)
	require.NoError(t, err)
	assert.Equal(t, patient.ID, p.UserID)
	assert.Equal(t, "female", p.Gender)
	assert.Equal(t, "employed", p.Occupation)

	_, err = svc.Create(ctx, patient, validRequest())
	assert.ErrorIs(t, err, ErrProfileExists)

	_, err = svc.Create(ctx, doctor, validRequest())
	assert.ErrorIs(t, err, ErrUnauthorized)
}

func TestCreateValidation(t *testing.T) {
	svc, patient, doctor, admin := setup()
	ctx := context.Background()

	req := validRequest()
	req.Age = 151
	_, err := svc.Create(ctx, patient, req)
	assert.ErrorIs(t, err, ErrInvalidProfile)
	assert.Contains(t, err.Error(), "age 151 out of range")

	req = validRequest()
	req.Gender = "unknown"
	_, err = svc.Create(ctx, patient, req)
	assert.ErrorIs(t, err, ErrInvalidProfile)

	req = validRequest()
	req.PatientID = doctor.ID
	_, err = svc.Create(ctx, admin, req)
	assert.ErrorIs(t, err, ErrNotPatient)
}

func TestReadAndUpdateAccess(t *testing.T) {
	svc, patient, doctor, admin := setup()
	ctx := context.Background()
	_, err := svc.Create(ctx, patient, validRequest())
	require.NoError(t, err)

	other := caller.Caller{ID: uuid.New(), Role: store.RolePatient}
	_, err = svc.Get(ctx, other, patient.ID)
	assert.ErrorIs(t, err, ErrUnauthorized)
	_, err = svc.Get(ctx, doctor, patient.ID)
	assert.NoError(t, err)
	_, err = svc.Get(ctx, doctor, other.ID)
	assert.ErrorIs(t, err, ErrProfileNotFound)

	_, _, err = svc.List(ctx, patient, 1, 20)
	assert.ErrorIs(t, err, ErrUnauthorized)
	_, total, err := svc.List(ctx, admin, 1, 20)
	require.NoError(t, err)
	assert.Equal(t, 1, total)

	age := 35
	_, err = svc.Update(ctx, doctor, patient.ID, UpdateRequest{Age: &age})
	assert.ErrorIs(t, err, ErrUnauthorized)
	p, err := svc.Update(ctx, patient, patient.ID, UpdateRequest{Age: &age})
	require.NoError(t, err)
	assert.Equal(t, 35, p.Age)

	bad := -1
	_, err = svc.Update(ctx, patient, patient.ID, UpdateRequest{Age: &bad})
	assert.ErrorIs(t, err, ErrInvalidProfile)

	require.NoError(t, svc.Delete(ctx, patient, patient.ID))
	assert.ErrorIs(t, svc.Delete(ctx, admin, patient.ID), ErrProfileNotFound)
}
