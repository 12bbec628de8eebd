package store

import (
	"context"
	"fmt"
	"time"

	"entgo.io/ent/dialect"
	entsql "entgo.io/ent/dialect/sql"
	"github.com/google/uuid"

	"github.com/Alijeyrad/mindcare_backend/pkg/crypto"
)

const (
	MaxProfileAge   = 150
	MaxProfileNotes = 2000
)

var (
	Genders     = []string{"male", "female", "other"}
	Occupations = []string{"student", "employed", "unemployed", "other"}
)

type PatientProfile struct {
	ID             uuid.UUID
	UserID         uuid.UUID
	Age            int
	Gender         string
	Occupation     string
	EducationLevel string
	MaritalStatus  string
	Notes          *string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// Validate checks the profile invariants.
func (p *PatientProfile) Validate() error {
	switch {
	case p.UserID == uuid.Nil:
		return malformed(TablePatientProfiles, "missing user id")
	case p.Age < 0 || p.Age > MaxProfileAge:
		return malformed(TablePatientProfiles, fmt.Sprintf("age %d out of range", p.Age))
	case !oneOf(p.Gender, Genders):
		return malformed(TablePatientProfiles, "unknown gender "+p.Gender)
	case !oneOf(p.Occupation, Occupations):
		return malformed(TablePatientProfiles, "unknown occupation "+p.Occupation)
	case p.EducationLevel == "":
		return malformed(TablePatientProfiles, "education level is required")
	case p.MaritalStatus == "":
		return malformed(TablePatientProfiles, "marital status is required")
	case p.Notes != nil && len([]rune(*p.Notes)) > MaxProfileNotes:
		return malformed(TablePatientProfiles, "notes too long")
	}
	return nil
}

func oneOf(v string, set []string) bool {
	for _, s := range set {
		if v == s {
			return true
		}
	}
	return false
}

var profileColumns = []string{
	"id", "user_id", "age", "gender", "occupation", "education_level",
	"marital_status", "notes", "created_at", "updated_at",
}

// ProfileStore keeps notes encrypted at rest, bound to the owning patient;
// callers always see plaintext.
type ProfileStore struct {
	drv    dialect.Driver
	cipher *crypto.FieldCipher
}

func (s *ProfileStore) scan(sc scanner) (*PatientProfile, error) {
	var p PatientProfile
	if err := sc.Scan(
		&p.ID, &p.UserID, &p.Age, &p.Gender, &p.Occupation, &p.EducationLevel,
		&p.MaritalStatus, &p.Notes, &p.CreatedAt, &p.UpdatedAt,
	); err != nil {
		return nil, err
	}
	notes, err := s.cipher.Open(p.Notes, p.UserID.String())
	if err != nil {
		return nil, malformed(TablePatientProfiles, "notes: "+err.Error())
	}
	p.Notes = notes
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return &p, nil
}

// Create inserts p. A second profile for the same user yields ErrConflict.
func (s *ProfileStore) Create(ctx context.Context, p *PatientProfile) error {
	if err := p.Validate(); err != nil {
		return err
	}
	if p.ID == uuid.Nil {
		id, err := uuid.NewV7()
		if err != nil {
			return err
		}
		p.ID = id
	}
	now := time.Now().UTC()
	p.CreatedAt, p.UpdatedAt = now, now

	sealed, err := s.cipher.Seal(p.Notes, p.UserID.String())
	if err != nil {
		return fmt.Errorf("encrypt notes: %w", err)
	}

	ins := builder().Insert(TablePatientProfiles).
		Columns(profileColumns...).
		Values(p.ID, p.UserID, p.Age, p.Gender, p.Occupation, p.EducationLevel,
			p.MaritalStatus, sealed, p.CreatedAt, p.UpdatedAt)
	_, err = exec(ctx, s.drv, ins)
	return err
}

func (s *ProfileStore) GetByUser(ctx context.Context, userID uuid.UUID) (*PatientProfile, error) {
	b := builder()
	sel := b.Select(profileColumns...).From(b.Table(TablePatientProfiles)).Where(entsql.EQ("user_id", userID))
	return queryOne(ctx, s.drv, sel, s.scan)
}

func (s *ProfileStore) List(ctx context.Context, page Page) ([]*PatientProfile, int, error) {
	total, err := count(ctx, s.drv, TablePatientProfiles, nil)
	if err != nil {
		return nil, 0, err
	}
	p := page.normalize()
	b := builder()
	sel := b.Select(profileColumns...).From(b.Table(TablePatientProfiles)).
		OrderBy(entsql.Desc("created_at")).Limit(p.Limit).Offset(p.Offset)
	items, err := queryAll(ctx, s.drv, sel, s.scan)
	if err != nil {
		return nil, 0, err
	}
	return items, total, nil
}

// ProfileUpdate holds the columns to change; nil fields are left untouched.
type ProfileUpdate struct {
	Age            *int
	Gender         *string
	Occupation     *string
	EducationLevel *string
	MaritalStatus  *string
	Notes          *string
}

// Update merges upd into the stored profile, validates the result and
// writes it back.
func (s *ProfileStore) Update(ctx context.Context, userID uuid.UUID, upd ProfileUpdate) (*PatientProfile, error) {
	cur, err := s.GetByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if upd.Age != nil {
		cur.Age = *upd.Age
	}
	if upd.Gender != nil {
		cur.Gender = *upd.Gender
	}
	if upd.Occupation != nil {
		cur.Occupation = *upd.Occupation
	}
	if upd.EducationLevel != nil {
		cur.EducationLevel = *upd.EducationLevel
	}
	if upd.MaritalStatus != nil {
		cur.MaritalStatus = *upd.MaritalStatus
	}
	if upd.Notes != nil {
		cur.Notes = upd.Notes
	}
	if err := cur.Validate(); err != nil {
		return nil, err
	}

	sealed, err := s.cipher.Seal(cur.Notes, cur.UserID.String())
	if err != nil {
		return nil, fmt.Errorf("encrypt notes: %w", err)
	}
	cur.UpdatedAt = time.Now().UTC()

	u := builder().Update(TablePatientProfiles).
		Set("age", cur.Age).
		Set("gender", cur.Gender).
		Set("occupation", cur.Occupation).
		Set("education_level", cur.EducationLevel).
		Set("marital_status", cur.MaritalStatus).
		Set("notes", sealed).
		Set("updated_at", cur.UpdatedAt).
		Where(entsql.EQ("user_id", userID))
	n, err := exec(ctx, s.drv, u)
	if err != nil {
		return nil, err
	}
	if n == 0 {
		return nil, ErrNotFound
	}
	return cur, nil
}

func (s *ProfileStore) DeleteByUser(ctx context.Context, userID uuid.UUID) error {
	n, err := exec(ctx, s.drv, builder().Delete(TablePatientProfiles).Where(entsql.EQ("user_id", userID)))
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
