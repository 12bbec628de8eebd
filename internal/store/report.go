package store

import (
	"context"
	"encoding/json"
	"time"

	"entgo.io/ent/dialect"
	entsql "entgo.io/ent/dialect/sql"
	"github.com/google/uuid"
)

// Report is the clinical report of one session. Content is the structured
// body (overview, narrative, risk_indicators, clinical_inference, dialogue).
type Report struct {
	ID               uuid.UUID
	SessionID        uuid.UUID
	Content          map[string]any
	Summary          *string
	DoctorNotes      *string
	NotifiedToDoctor bool
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

var reportColumns = []string{
	"id", "session_id", "content", "summary", "doctor_notes",
	"notified_to_doctor", "created_at", "updated_at",
}

func scanReport(s scanner) (*Report, error) {
	var r Report
	var content []byte
	if err := s.Scan(
		&r.ID, &r.SessionID, &content, &r.Summary, &r.DoctorNotes,
		&r.NotifiedToDoctor, &r.CreatedAt, &r.UpdatedAt,
	); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(content, &r.Content); err != nil || r.Content == nil {
		return nil, malformed(TableReports, "content is not a JSON object")
	}
	return &r, nil
}

type ReportStore struct {
	drv dialect.Driver
}

func (s *ReportStore) Create(ctx context.Context, r *Report) error {
	if r.SessionID == uuid.Nil {
		return malformed(TableReports, "missing session id")
	}
	if len(r.Content) == 0 {
		return malformed(TableReports, "empty content")
	}
	content, err := json.Marshal(r.Content)
	if err != nil {
		return malformed(TableReports, "content: "+err.Error())
	}
	if r.ID == uuid.Nil {
		id, err := uuid.NewV7()
		if err != nil {
			return err
		}
		r.ID = id
	}
	now := time.Now().UTC()
	r.CreatedAt, r.UpdatedAt = now, now

	ins := builder().Insert(TableReports).
		Columns(reportColumns...).
		Values(r.ID, r.SessionID, string(content), r.Summary, r.DoctorNotes,
			r.NotifiedToDoctor, r.CreatedAt, r.UpdatedAt)
	_, err = exec(ctx, s.drv, ins)
	return err
}

func (s *ReportStore) Get(ctx context.Context, id uuid.UUID) (*Report, error) {
	b := builder()
	return queryOne(ctx, s.drv, b.Select(reportColumns...).From(b.Table(TableReports)).Where(entsql.EQ("id", id)), scanReport)
}

// GetBySession returns the newest report of a session.
func (s *ReportStore) GetBySession(ctx context.Context, sessionID uuid.UUID) (*Report, error) {
	b := builder()
	sel := b.Select(reportColumns...).From(b.Table(TableReports)).
		Where(entsql.EQ("session_id", sessionID)).
		OrderBy(entsql.Desc("created_at"))
	return queryOne(ctx, s.drv, sel, scanReport)
}

type ReportFilter struct {
	SessionID *uuid.UUID
	Notified  *bool
	// PatientID and DoctorID restrict to reports of that participant's sessions.
	PatientID *uuid.UUID
	DoctorID  *uuid.UUID
	Page
}

func (f ReportFilter) predicate() *entsql.Predicate {
	var preds []*entsql.Predicate
	if f.SessionID != nil {
		preds = append(preds, entsql.EQ("session_id", *f.SessionID))
	}
	if f.Notified != nil {
		preds = append(preds, entsql.EQ("notified_to_doctor", *f.Notified))
	}
	if f.PatientID != nil || f.DoctorID != nil {
		b := builder()
		sub := b.Select("id").From(b.Table(TableSessions))
		var sp []*entsql.Predicate
		if f.PatientID != nil {
			sp = append(sp, entsql.EQ("patient_id", *f.PatientID))
		}
		if f.DoctorID != nil {
			sp = append(sp, entsql.EQ("doctor_id", *f.DoctorID))
		}
		sub.Where(and(sp))
		preds = append(preds, entsql.In("session_id", sub))
	}
	return and(preds)
}

func (s *ReportStore) List(ctx context.Context, f ReportFilter) ([]*Report, int, error) {
	pred := f.predicate()
	total, err := count(ctx, s.drv, TableReports, pred)
	if err != nil {
		return nil, 0, err
	}

	p := f.Page.normalize()
	b := builder()
	sel := b.Select(reportColumns...).From(b.Table(TableReports))
	if pred != nil {
		sel.Where(pred)
	}
	sel.OrderBy(entsql.Desc("created_at")).Limit(p.Limit).Offset(p.Offset)

	items, err := queryAll(ctx, s.drv, sel, scanReport)
	if err != nil {
		return nil, 0, err
	}
	return items, total, nil
}

// ReportUpdate holds the columns to change; nil fields are left untouched.
type ReportUpdate struct {
	Content          map[string]any
	Summary          *string
	DoctorNotes      *string
	NotifiedToDoctor *bool
}

func (s *ReportStore) Update(ctx context.Context, id uuid.UUID, upd ReportUpdate) (*Report, error) {
	u := builder().Update(TableReports).Set("updated_at", time.Now().UTC())
	if upd.Content != nil {
		if len(upd.Content) == 0 {
			return nil, malformed(TableReports, "empty content")
		}
		b, err := json.Marshal(upd.Content)
		if err != nil {
			return nil, malformed(TableReports, "content: "+err.Error())
		}
		u.Set("content", string(b))
	}
	if upd.Summary != nil {
		u.Set("summary", *upd.Summary)
	}
	if upd.DoctorNotes != nil {
		u.Set("doctor_notes", *upd.DoctorNotes)
	}
	if upd.NotifiedToDoctor != nil {
		u.Set("notified_to_doctor", *upd.NotifiedToDoctor)
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

func (s *ReportStore) Delete(ctx context.Context, id uuid.UUID) error {
	n, err := exec(ctx, s.drv, builder().Delete(TableReports).Where(entsql.EQ("id", id)))
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
