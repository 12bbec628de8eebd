// Package actionlog records who did what to which record and lets admins
// page through the trail.
package actionlog

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/Alijeyrad/mindcare_backend/internal/service/caller"
	"github.com/Alijeyrad/mindcare_backend/internal/store"
)

var ErrUnauthorized = errors.New("only administrators may read the action log")

type Store interface {
	Create(ctx context.Context, l *store.ActionLog) error
	List(ctx context.Context, f store.ActionLogFilter) ([]*store.ActionLog, int, error)
}

type ListRequest struct {
	UserID     *uuid.UUID
	ActionType string
	TargetID   string
	From       *time.Time
	To         *time.Time
	Page       int
	PerPage    int
}

type Service interface {
	// Record appends an entry. Failures are logged, never returned: the
	// audited operation has already happened.
	Record(ctx context.Context, userID uuid.UUID, action, targetID, details string)
	List(ctx context.Context, c caller.Caller, req ListRequest) ([]*store.ActionLog, int, error)
}

type actionLogService struct {
	logs Store
}

func New(logs Store) Service {
	return &actionLogService{logs: logs}
}

func (s *actionLogService) Record(ctx context.Context, userID uuid.UUID, action, targetID, details string) {
	if userID == uuid.Nil {
		return
	}
	err := s.logs.Create(ctx, &store.ActionLog{
		UserID:     userID,
		ActionType: action,
		TargetID:   targetID,
		Details:    details,
	})
	if err != nil {
		slog.WarnContext(ctx, "actionlog: record failed", "action", action, "user_id", userID, "target_id", targetID, "err", err)
	}
}

func (s *actionLogService) List(ctx context.Context, c caller.Caller, req ListRequest) ([]*store.ActionLog, int, error) {
	if !c.IsAdmin() {
		return nil, 0, ErrUnauthorized
	}
	return s.logs.List(ctx, store.ActionLogFilter{
		UserID:     req.UserID,
		ActionType: req.ActionType,
		TargetID:   req.TargetID,
		From:       req.From,
		To:         req.To,
		Page:       store.NewPage(req.Page, req.PerPage),
	})
}
