package store

import (
	"context"
	"time"

	"entgo.io/ent/dialect"
	entsql "entgo.io/ent/dialect/sql"
	"github.com/google/uuid"
)

const MaxActionLogDetails = 1000

type ActionLog struct {
	ID         uuid.UUID
	UserID     uuid.UUID
	ActionType string
	TargetID   string
	Details    string
	Timestamp  time.Time
}

var actionLogColumns = []string{"id", "user_id", "action_type", "target_id", "details", "timestamp"}

func scanActionLog(s scanner) (*ActionLog, error) {
	var l ActionLog
	if err := s.Scan(&l.ID, &l.UserID, &l.ActionType, &l.TargetID, &l.Details, &l.Timestamp); err != nil {
		return nil, err
	}
	if l.ActionType == "" {
		return nil, malformed(TableActionLogs, "empty action type")
	}
	return &l, nil
}

// ActionLogStore is append-only.
type ActionLogStore struct {
	drv dialect.Driver
}

func (s *ActionLogStore) Create(ctx context.Context, l *ActionLog) error {
	if l.UserID == uuid.Nil || l.ActionType == "" || l.TargetID == "" {
		return malformed(TableActionLogs, "user, action type and target are required")
	}
	if len([]rune(l.Details)) > MaxActionLogDetails {
		l.Details = string([]rune(l.Details)[:MaxActionLogDetails])
	}
	if l.ID == uuid.Nil {
		id, err := uuid.NewV7()
		if err != nil {
			return err
		}
		l.ID = id
	}
	if l.Timestamp.IsZero() {
		l.Timestamp = time.Now().UTC()
	}

	ins := builder().Insert(TableActionLogs).
		Columns(actionLogColumns...).
		Values(l.ID, l.UserID, l.ActionType, l.TargetID, l.Details, l.Timestamp)
	_, err := exec(ctx, s.drv, ins)
	return err
}

type ActionLogFilter struct {
	UserID     *uuid.UUID
	ActionType string
	TargetID   string
	From       *time.Time
	To         *time.Time
	Page
}

func (f ActionLogFilter) predicate() *entsql.Predicate {
	var preds []*entsql.Predicate
	if f.UserID != nil {
		preds = append(preds, entsql.EQ("user_id", *f.UserID))
	}
	if f.ActionType != "" {
		preds = append(preds, entsql.EQ("action_type", f.ActionType))
	}
	if f.TargetID != "" {
		preds = append(preds, entsql.EQ("target_id", f.TargetID))
	}
	if f.From != nil {
		preds = append(preds, entsql.GTE("timestamp", *f.From))
	}
	if f.To != nil {
		preds = append(preds, entsql.LTE("timestamp", *f.To))
	}
	return and(preds)
}

func (s *ActionLogStore) List(ctx context.Context, f ActionLogFilter) ([]*ActionLog, int, error) {
	pred := f.predicate()
	total, err := count(ctx, s.drv, TableActionLogs, pred)
	if err != nil {
		return nil, 0, err
	}

	p := f.Page.normalize()
	b := builder()
	sel := b.Select(actionLogColumns...).From(b.Table(TableActionLogs))
	if pred != nil {
		sel.Where(pred)
	}
	sel.OrderBy(entsql.Desc("timestamp")).Limit(p.Limit).Offset(p.Offset)

	items, err := queryAll(ctx, s.drv, sel, scanActionLog)
	if err != nil {
		return nil, 0, err
	}
	return items, total, nil
}
