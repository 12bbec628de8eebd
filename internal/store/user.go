package store

import (
	"context"
	"strings"
	"time"

	"entgo.io/ent/dialect"
	entsql "entgo.io/ent/dialect/sql"
	"github.com/google/uuid"
)

type Role string

const (
	RolePatient Role = "patient"
	RoleDoctor  Role = "doctor"
	RoleAdmin   Role = "admin"
)

func (r Role) Valid() bool {
	switch r {
	case RolePatient, RoleDoctor, RoleAdmin:
		return true
	}
	return false
}

type User struct {
	ID           uuid.UUID
	Name         string
	LastName     string
	Email        string
	Phone        *string
	PasswordHash string
	Role         Role
	IsActive     bool
	LastLoginAt  *time.Time
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// FullName joins first and last name.
func (u *User) FullName() string {
	return strings.TrimSpace(u.Name + " " + u.LastName)
}

var userColumns = []string{
	"id", "name", "last_name", "email", "phone", "password_hash",
	"role", "is_active", "last_login_at", "created_at", "updated_at",
}

func scanUser(s scanner) (*User, error) {
	var u User
	var role string
	if err := s.Scan(
		&u.ID, &u.Name, &u.LastName, &u.Email, &u.Phone, &u.PasswordHash,
		&role, &u.IsActive, &u.LastLoginAt, &u.CreatedAt, &u.UpdatedAt,
	); err != nil {
		return nil, err
	}
	u.Role = Role(role)
	if !u.Role.Valid() {
		return nil, malformed(TableUsers, "unknown role "+role)
	}
	if u.Email == "" {
		return nil, malformed(TableUsers, "empty email")
	}
	return &u, nil
}

type UserStore struct {
	drv dialect.Driver
}

// Create inserts u. ID and timestamps are filled when zero; the email is
// stored lower-cased.
func (s *UserStore) Create(ctx context.Context, u *User) error {
	if u.ID == uuid.Nil {
		id, err := uuid.NewV7()
		if err != nil {
			return err
		}
		u.ID = id
	}
	now := time.Now().UTC()
	if u.CreatedAt.IsZero() {
		u.CreatedAt = now
	}
	u.UpdatedAt = u.CreatedAt
	u.Email = strings.ToLower(strings.TrimSpace(u.Email))
	if !u.Role.Valid() {
		return malformed(TableUsers, "unknown role "+string(u.Role))
	}

	ins := builder().Insert(TableUsers).
		Columns(userColumns...).
		Values(u.ID, u.Name, u.LastName, u.Email, u.Phone, u.PasswordHash,
			string(u.Role), u.IsActive, u.LastLoginAt, u.CreatedAt, u.UpdatedAt)
	_, err := exec(ctx, s.drv, ins)
	return err
}

func (s *UserStore) Get(ctx context.Context, id uuid.UUID) (*User, error) {
	b := builder()
	return queryOne(ctx, s.drv, b.Select(userColumns...).From(b.Table(TableUsers)).Where(entsql.EQ("id", id)), scanUser)
}

func (s *UserStore) GetByEmail(ctx context.Context, email string) (*User, error) {
	b := builder()
	sel := b.Select(userColumns...).From(b.Table(TableUsers)).
		Where(entsql.EQ("email", strings.ToLower(strings.TrimSpace(email))))
	return queryOne(ctx, s.drv, sel, scanUser)
}

type UserFilter struct {
	Role     *Role
	IsActive *bool
	Search   string // matches name, last name or email
	Page
}

func (f UserFilter) predicate() *entsql.Predicate {
	var preds []*entsql.Predicate
	if f.Role != nil {
		preds = append(preds, entsql.EQ("role", string(*f.Role)))
	}
	if f.IsActive != nil {
		preds = append(preds, entsql.EQ("is_active", *f.IsActive))
	}
	if q := strings.TrimSpace(f.Search); q != "" {
		preds = append(preds, entsql.Or(
			entsql.ContainsFold("name", q),
			entsql.ContainsFold("last_name", q),
			entsql.ContainsFold("email", q),
		))
	}
	return and(preds)
}

// List returns one page of users and the total matching count.
func (s *UserStore) List(ctx context.Context, f UserFilter) ([]*User, int, error) {
	pred := f.predicate()
	total, err := count(ctx, s.drv, TableUsers, pred)
	if err != nil {
		return nil, 0, err
	}

	p := f.Page.normalize()
	b := builder()
	sel := b.Select(userColumns...).From(b.Table(TableUsers))
	if pred != nil {
		sel.Where(pred)
	}
	sel.OrderBy(entsql.Desc("created_at")).Limit(p.Limit).Offset(p.Offset)

	items, err := queryAll(ctx, s.drv, sel, scanUser)
	if err != nil {
		return nil, 0, err
	}
	return items, total, nil
}

// UserUpdate holds the columns to change; nil fields are left untouched.
type UserUpdate struct {
	Name         *string
	LastName     *string
	Email        *string
	Phone        *string
	PasswordHash *string
	Role         *Role
	IsActive     *bool
	LastLoginAt  *time.Time
}

func (s *UserStore) Update(ctx context.Context, id uuid.UUID, upd UserUpdate) (*User, error) {
	u := builder().Update(TableUsers).Set("updated_at", time.Now().UTC())
	if upd.Name != nil {
		u.Set("name", *upd.Name)
	}
	if upd.LastName != nil {
		u.Set("last_name", *upd.LastName)
	}
	if upd.Email != nil {
		u.Set("email", strings.ToLower(strings.TrimSpace(*upd.Email)))
	}
	if upd.Phone != nil {
		u.Set("phone", *upd.Phone)
	}
	if upd.PasswordHash != nil {
		u.Set("password_hash", *upd.PasswordHash)
	}
	if upd.Role != nil {
		if !upd.Role.Valid() {
			return nil, malformed(TableUsers, "unknown role "+string(*upd.Role))
		}
		u.Set("role", string(*upd.Role))
	}
	if upd.IsActive != nil {
		u.Set("is_active", *upd.IsActive)
	}
	if upd.LastLoginAt != nil {
		u.Set("last_login_at", *upd.LastLoginAt)
	}
	u.Where(entsql.EQ("id", id))

	n, err := exec(ctx, s.drv, u)
	if err != nil {
		return nil, err
	}
	if n == 0 {
		return nil, ErrNotFound
	}
	return s.Get(ctx, id)
}

func (s *UserStore) Delete(ctx context.Context, id uuid.UUID) error {
	n, err := exec(ctx, s.drv, builder().Delete(TableUsers).Where(entsql.EQ("id", id)))
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
