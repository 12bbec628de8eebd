package notification

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/Alijeyrad/mindcare_backend/internal/events"
	"github.com/Alijeyrad/mindcare_backend/internal/store"
)

// Notification types.
const (
	TypeSession = "session"
	TypeReport  = "report"
)

type Store interface {
	Create(ctx context.Context, n *store.Notification) error
	ListByUser(ctx context.Context, userID uuid.UUID, unreadOnly bool, page store.Page) ([]*store.Notification, int, error)
	CountUnread(ctx context.Context, userID uuid.UUID) (int, error)
	MarkRead(ctx context.Context, id, userID uuid.UUID) error
	MarkAllRead(ctx context.Context, userID uuid.UUID) (int, error)
	Delete(ctx context.Context, id, userID uuid.UUID) error
}

// ---------------------------------------------------------------------------
// DTOs
// ---------------------------------------------------------------------------

type CreateRequest struct {
	UserID  uuid.UUID
	Type    string
	Message string
}

type ListRequest struct {
	UnreadOnly bool
	Page       int
	PerPage    int
}

// ---------------------------------------------------------------------------
// Interface
// ---------------------------------------------------------------------------

// Service manages in-app notifications. Every read and write is scoped to
// the owning user; a foreign id behaves like a missing one.
type Service interface {
	Create(ctx context.Context, req CreateRequest) (*store.Notification, error)
	List(ctx context.Context, userID uuid.UUID, req ListRequest) ([]*store.Notification, int, error)
	UnreadCount(ctx context.Context, userID uuid.UUID) (int, error)
	MarkRead(ctx context.Context, id, userID uuid.UUID) error
	MarkAllRead(ctx context.Context, userID uuid.UUID) (int, error)
	Delete(ctx context.Context, id, userID uuid.UUID) error
}

// ---------------------------------------------------------------------------
// Implementation
// ---------------------------------------------------------------------------

type notificationService struct {
	db Store
}

func New(db Store) Service {
	return &notificationService{db: db}
}

func (s *notificationService) Create(ctx context.Context, req CreateRequest) (*store.Notification, error) {
	req.Message = strings.TrimSpace(req.Message)
	if req.UserID == uuid.Nil || req.Type == "" || req.Message == "" {
		return nil, ErrInvalidRequest
	}

	n := &store.Notification{
		UserID:  req.UserID,
		Type:    req.Type,
		Message: req.Message,
	}
	if err := s.db.Create(ctx, n); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, fmt.Errorf("%w: unknown user %s", ErrInvalidRequest, req.UserID)
		}
		return nil, fmt.Errorf("create notification: %w", err)
	}
	return n, nil
}

func (s *notificationService) List(ctx context.Context, userID uuid.UUID, req ListRequest) ([]*store.Notification, int, error) {
	items, total, err := s.db.ListByUser(ctx, userID, req.UnreadOnly, store.NewPage(req.Page, req.PerPage))
	if err != nil {
		return nil, 0, fmt.Errorf("list notifications: %w", err)
	}
	return items, total, nil
}

func (s *notificationService) UnreadCount(ctx context.Context, userID uuid.UUID) (int, error) {
	n, err := s.db.CountUnread(ctx, userID)
	if err != nil {
		return 0, fmt.Errorf("count unread notifications: %w", err)
	}
	return n, nil
}

func (s *notificationService) MarkRead(ctx context.Context, id, userID uuid.UUID) error {
	return notFound(s.db.MarkRead(ctx, id, userID))
}

func (s *notificationService) MarkAllRead(ctx context.Context, userID uuid.UUID) (int, error) {
	n, err := s.db.MarkAllRead(ctx, userID)
	if err != nil {
		return 0, fmt.Errorf("mark all read: %w", err)
	}
	return n, nil
}

func (s *notificationService) Delete(ctx context.Context, id, userID uuid.UUID) error {
	return notFound(s.db.Delete(ctx, id, userID))
}

func notFound(err error) error {
	if errors.Is(err, store.ErrNotFound) {
		return ErrNotFound
	}
	return err
}

// SessionMessage is the in-app text for a session event as seen by role.
func SessionMessage(e events.Event, role store.Role, start string) string {
	switch e {
	case events.SessionCreated:
		if role == store.RoleDoctor {
			return "A new session on " + start + " is waiting for your confirmation."
		}
		return "Your session on " + start + " has been booked."
	case events.SessionAccepted:
		return "Your session on " + start + " has been confirmed."
	case events.SessionCanceled:
		return "The session on " + start + " has been canceled."
	case events.SessionCompleted:
		return "The session on " + start + " is complete."
	case events.SessionJoined:
		return "Your patient has joined the session on " + start + "."
	}
	return ""
}

// ReportMessage is the in-app text for a new report.
func ReportMessage(sessionStart string) string {
	return "A report for the session on " + sessionStart + " is ready for review."
}
