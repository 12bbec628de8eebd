package store

import (
	"context"
	"time"

	"entgo.io/ent/dialect"
	entsql "entgo.io/ent/dialect/sql"
	"github.com/google/uuid"
)

type SessionStatus string

const (
	StatusPending   SessionStatus = "pending"
	StatusActive    SessionStatus = "active"
	StatusCompleted SessionStatus = "completed"
	StatusCanceled  SessionStatus = "canceled"
)

func (s SessionStatus) Valid() bool {
	switch s {
	case StatusPending, StatusActive, StatusCompleted, StatusCanceled:
		return true
	}
	return false
}

// Terminal reports whether no transition leaves s.
func (s SessionStatus) Terminal() bool {
	return s == StatusCompleted || s == StatusCanceled
}

type Session struct {
	ID            uuid.UUID
	PatientID     uuid.UUID
	DoctorID      uuid.UUID
	StartTime     time.Time
	EndTime       time.Time
	Status        SessionStatus
	RoomName      *string
	JoinToken     *string
	Transcript    *string
	TranscriptKey *string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

var sessionColumns = []string{
	"id", "patient_id", "doctor_id", "start_time", "end_time", "status",
	"room_name", "join_token", "transcript", "transcript_key", "created_at", "updated_at",
}

func scanSession(s scanner) (*Session, error) {
	var v Session
	var status string
	if err := s.Scan(
		&v.ID, &v.PatientID, &v.DoctorID, &v.StartTime, &v.EndTime, &status,
		&v.RoomName, &v.JoinToken, &v.Transcript, &v.TranscriptKey, &v.CreatedAt, &v.UpdatedAt,
	); err != nil {
		return nil, err
	}
	v.Status = SessionStatus(status)
	if !v.Status.Valid() {
		return nil, malformed(TableSessions, "unknown status "+status)
	}
	if v.PatientID == uuid.Nil || v.DoctorID == uuid.Nil {
		return nil, malformed(TableSessions, "missing participant")
	}
	return &v, nil
}

type SessionStore struct {
	drv dialect.Driver
}

func (s *SessionStore) Create(ctx context.Context, v *Session) error {
	if v.ID == uuid.Nil {
		id, err := uuid.NewV7()
		if err != nil {
			return err
		}
		v.ID = id
	}
	if !v.Status.Valid() {
		return malformed(TableSessions, "unknown status "+string(v.Status))
	}
	now := time.Now().UTC()
	v.CreatedAt, v.UpdatedAt = now, now

	ins := builder().Insert(TableSessions).
		Columns(sessionColumns...).
		Values(v.ID, v.PatientID, v.DoctorID, v.StartTime, v.EndTime, string(v.Status),
			v.RoomName, v.JoinToken, v.Transcript, v.TranscriptKey, v.CreatedAt, v.UpdatedAt)
	_, err := exec(ctx, s.drv, ins)
	return err
}

func (s *SessionStore) Get(ctx context.Context, id uuid.UUID) (*Session, error) {
	b := builder()
	return queryOne(ctx, s.drv, b.Select(sessionColumns...).From(b.Table(TableSessions)).Where(entsql.EQ("id", id)), scanSession)
}

type SessionFilter struct {
	Status    *SessionStatus
	PatientID *uuid.UUID
	DoctorID  *uuid.UUID
	From      *time.Time // start_time >= From
	To        *time.Time // start_time <= To
	Page
}

func (f SessionFilter) predicate() *entsql.Predicate {
	var preds []*entsql.Predicate
	if f.Status != nil {
		preds = append(preds, entsql.EQ("status", string(*f.Status)))
	}
	if f.PatientID != nil {
		preds = append(preds, entsql.EQ("patient_id", *f.PatientID))
	}
	if f.DoctorID != nil {
		preds = append(preds, entsql.EQ("doctor_id", *f.DoctorID))
	}
	if f.From != nil {
		preds = append(preds, entsql.GTE("start_time", *f.From))
	}
	if f.To != nil {
		preds = append(preds, entsql.LTE("start_time", *f.To))
	}
	return and(preds)
}

// List returns sessions ordered by start time, newest first.
func (s *SessionStore) List(ctx context.Context, f SessionFilter) ([]*Session, int, error) {
	pred := f.predicate()
	total, err := count(ctx, s.drv, TableSessions, pred)
	if err != nil {
		return nil, 0, err
	}

	p := f.Page.normalize()
	b := builder()
	sel := b.Select(sessionColumns...).From(b.Table(TableSessions))
	if pred != nil {
		sel.Where(pred)
	}
	sel.OrderBy(entsql.Desc("start_time")).Limit(p.Limit).Offset(p.Offset)

	items, err := queryAll(ctx, s.drv, sel, scanSession)
	if err != nil {
		return nil, 0, err
	}
	return items, total, nil
}

// SessionUpdate holds the columns to change; nil fields are left untouched.
type SessionUpdate struct {
	Status        *SessionStatus
	EndTime       *time.Time
	RoomName      *string
	JoinToken     *string
	Transcript    *string
	TranscriptKey *string
}

// Update applies upd when the row's status is one of expected (any status
// when expected is empty). A row that exists but is in another state yields
// ErrStaleState, so concurrent transitions have a single winner.
func (s *SessionStore) Update(ctx context.Context, id uuid.UUID, upd SessionUpdate, expected ...SessionStatus) (*Session, error) {
	u := builder().Update(TableSessions).Set("updated_at", time.Now().UTC())
	if upd.Status != nil {
		if !upd.Status.Valid() {
			return nil, malformed(TableSessions, "unknown status "+string(*upd.Status))
		}
		u.Set("status", string(*upd.Status))
	}
	if upd.EndTime != nil {
		u.Set("end_time", *upd.EndTime)
	}
	if upd.RoomName != nil {
		u.Set("room_name", *upd.RoomName)
	}
	if upd.JoinToken != nil {
		u.Set("join_token", *upd.JoinToken)
	}
	if upd.Transcript != nil {
		u.Set("transcript", *upd.Transcript)
	}
	if upd.TranscriptKey != nil {
		u.Set("transcript_key", *upd.TranscriptKey)
	}

	preds := []*entsql.Predicate{entsql.EQ("id", id)}
	if len(expected) > 0 {
		vals := make([]any, len(expected))
		for i, st := range expected {
			vals[i] = string(st)
		}
		preds = append(preds, entsql.In("status", vals...))
	}
	u.Where(and(preds))

	n, err := exec(ctx, s.drv, u)
	if err != nil {
		return nil, err
	}

	current, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if n == 0 {
		return current, ErrStaleState
	}
	return current, nil
}

func (s *SessionStore) Delete(ctx context.Context, id uuid.UUID) error {
	n, err := exec(ctx, s.drv, builder().Delete(TableSessions).Where(entsql.EQ("id", id)))
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
