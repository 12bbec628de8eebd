package store

import (
	"context"
	"time"

	"entgo.io/ent/dialect"
	entsql "entgo.io/ent/dialect/sql"
	"github.com/google/uuid"
)

const MaxNotificationMessage = 500

type Notification struct {
	ID        uuid.UUID
	UserID    uuid.UUID
	Type      string
	Message   string
	IsRead    bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

var notificationColumns = []string{"id", "user_id", "type", "message", "is_read", "created_at", "updated_at"}

func scanNotification(s scanner) (*Notification, error) {
	var n Notification
	if err := s.Scan(&n.ID, &n.UserID, &n.Type, &n.Message, &n.IsRead, &n.CreatedAt, &n.UpdatedAt); err != nil {
		return nil, err
	}
	if n.Type == "" {
		return nil, malformed(TableNotifications, "empty type")
	}
	return &n, nil
}

type NotificationStore struct {
	drv dialect.Driver
}

func (s *NotificationStore) Create(ctx context.Context, n *Notification) error {
	if n.UserID == uuid.Nil || n.Type == "" || n.Message == "" {
		return malformed(TableNotifications, "user, type and message are required")
	}
	if len([]rune(n.Message)) > MaxNotificationMessage {
		n.Message = string([]rune(n.Message)[:MaxNotificationMessage])
	}
	if n.ID == uuid.Nil {
		id, err := uuid.NewV7()
		if err != nil {
			return err
		}
		n.ID = id
	}
	now := time.Now().UTC()
	n.CreatedAt, n.UpdatedAt = now, now

	ins := builder().Insert(TableNotifications).
		Columns(notificationColumns...).
		Values(n.ID, n.UserID, n.Type, n.Message, n.IsRead, n.CreatedAt, n.UpdatedAt)
	_, err := exec(ctx, s.drv, ins)
	return err
}

func (s *NotificationStore) ListByUser(ctx context.Context, userID uuid.UUID, unreadOnly bool, page Page) ([]*Notification, int, error) {
	preds := []*entsql.Predicate{entsql.EQ("user_id", userID)}
	if unreadOnly {
		preds = append(preds, entsql.EQ("is_read", false))
	}
	pred := and(preds)

	total, err := count(ctx, s.drv, TableNotifications, pred)
	if err != nil {
		return nil, 0, err
	}

	p := page.normalize()
	b := builder()
	sel := b.Select(notificationColumns...).From(b.Table(TableNotifications)).Where(pred).
		OrderBy(entsql.Desc("created_at")).Limit(p.Limit).Offset(p.Offset)
	items, err := queryAll(ctx, s.drv, sel, scanNotification)
	if err != nil {
		return nil, 0, err
	}
	return items, total, nil
}

func (s *NotificationStore) CountUnread(ctx context.Context, userID uuid.UUID) (int, error) {
	return count(ctx, s.drv, TableNotifications, entsql.And(entsql.EQ("user_id", userID), entsql.EQ("is_read", false)))
}

// MarkRead flags one notification of userID as read.
func (s *NotificationStore) MarkRead(ctx context.Context, id, userID uuid.UUID) error {
	u := builder().Update(TableNotifications).
		Set("is_read", true).
		Set("updated_at", time.Now().UTC()).
		Where(entsql.And(entsql.EQ("id", id), entsql.EQ("user_id", userID)))
	n, err := exec(ctx, s.drv, u)
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// MarkAllRead returns the number of notifications that changed.
func (s *NotificationStore) MarkAllRead(ctx context.Context, userID uuid.UUID) (int, error) {
	u := builder().Update(TableNotifications).
		Set("is_read", true).
		Set("updated_at", time.Now().UTC()).
		Where(entsql.And(entsql.EQ("user_id", userID), entsql.EQ("is_read", false)))
	n, err := exec(ctx, s.drv, u)
	return int(n), err
}

func (s *NotificationStore) Delete(ctx context.Context, id, userID uuid.UUID) error {
	d := builder().Delete(TableNotifications).
		Where(entsql.And(entsql.EQ("id", id), entsql.EQ("user_id", userID)))
	n, err := exec(ctx, s.drv, d)
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
