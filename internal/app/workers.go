package app

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"go.uber.org/fx"

	"github.com/Alijeyrad/mindcare_backend/internal/events"
	"github.com/Alijeyrad/mindcare_backend/internal/service/notification"
	"github.com/Alijeyrad/mindcare_backend/internal/service/report"
	"github.com/Alijeyrad/mindcare_backend/internal/store"
)

// WorkerModule registers all NATS event workers.
var WorkerModule = fx.Module("workers",
	fx.Provide(NewEventWorkers),
	fx.Invoke(RegisterWorkers),
)

const workerTimeout = 30 * time.Second

// sessionEvents are the lifecycle events the workers react to.
var sessionEvents = []events.Event{
	events.SessionCreated,
	events.SessionAccepted,
	events.SessionCanceled,
	events.SessionCompleted,
	events.SessionJoined,
}

// deliveredEvents also go out by e-mail and SMS. Joins stay in-app.
var deliveredEvents = sessionEvents[:4]

type SessionReader interface {
	Get(ctx context.Context, id uuid.UUID) (*store.Session, error)
}

type UserReader interface {
	Get(ctx context.Context, id uuid.UUID) (*store.User, error)
}

type ReportReader interface {
	Get(ctx context.Context, id uuid.UUID) (*store.Report, error)
}

type SessionDelivery interface {
	SessionUpdate(ctx context.Context, u *store.User, sess *store.Session, e events.Event) error
}

type ReportMarker interface {
	MarkNotified(ctx context.Context, id uuid.UUID) (*store.Report, error)
}

// EventWorkers turns published events into notifications.
type EventWorkers struct {
	sessions SessionReader
	users    UserReader
	reports  ReportReader
	notifs   notification.Service
	delivery SessionDelivery
	marker   ReportMarker
}

func NewEventWorkers(db *store.Client, notifs notification.Service, delivery *notification.Delivery, reports report.Service) *EventWorkers {
	return &EventWorkers{
		sessions: db.Sessions,
		users:    db.Users,
		reports:  db.Reports,
		notifs:   notifs,
		delivery: delivery,
		marker:   reports,
	}
}

type WorkerParams struct {
	fx.In

	Lc      fx.Lifecycle
	NC      *nats.Conn
	Workers *EventWorkers
}

func RegisterWorkers(p WorkerParams) {
	p.Lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			if err := startNotificationWorker(p.NC, p.Workers); err != nil {
				return err
			}
			if err := startDeliveryWorker(p.NC, p.Workers); err != nil {
				return err
			}
			return startReportWorker(p.NC, p.Workers)
		},
		OnStop: func(ctx context.Context) error {
			// Drain handled by ProvideNatsClient
			return nil
		},
	})
}

// ---------------------------------------------------------------------------
// notification_worker
// ---------------------------------------------------------------------------

func startNotificationWorker(nc *nats.Conn, w *EventWorkers) error {
	for _, e := range sessionEvents {
		if _, err := nc.QueueSubscribe(events.SessionWildcard(e), "notification_worker", sessionHandler(w.NotifySession)); err != nil {
			slog.Error("notification_worker: subscribe failed", "event", e, "err", err)
			return err
		}
	}
	slog.Info("notification_worker: started")
	return nil
}

// NotifySession stores an in-app notification for every participant the
// event concerns.
func (w *EventWorkers) NotifySession(ctx context.Context, e events.Event, sessionID uuid.UUID) error {
	sess, err := w.sessions.Get(ctx, sessionID)
	if err != nil {
		return err
	}
	start := sess.StartTime.Format(notification.StartTimeLayout)

	var errs []error
	for _, u := range w.recipients(ctx, e, sess) {
		msg := notification.SessionMessage(e, u.Role, start)
		if msg == "" {
			continue
		}
		if _, err := w.notifs.Create(ctx, notification.CreateRequest{
			UserID:  u.ID,
			Type:    notification.TypeSession,
			Message: msg,
		}); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// ---------------------------------------------------------------------------
// delivery_worker
// ---------------------------------------------------------------------------

func startDeliveryWorker(nc *nats.Conn, w *EventWorkers) error {
	for _, e := range deliveredEvents {
		if _, err := nc.QueueSubscribe(events.SessionWildcard(e), "delivery_worker", sessionHandler(w.DeliverSession)); err != nil {
			slog.Error("delivery_worker: subscribe failed", "event", e, "err", err)
			return err
		}
	}
	slog.Info("delivery_worker: started")
	return nil
}

// DeliverSession sends the event to the participants by e-mail and SMS.
func (w *EventWorkers) DeliverSession(ctx context.Context, e events.Event, sessionID uuid.UUID) error {
	sess, err := w.sessions.Get(ctx, sessionID)
	if err != nil {
		return err
	}

	var errs []error
	for _, u := range w.recipients(ctx, e, sess) {
		err := w.delivery.SessionUpdate(ctx, u, sess, e)
		switch {
		case errors.Is(err, notification.ErrNoChannel):
			slog.DebugContext(ctx, "delivery_worker: no channel for user", "user_id", u.ID)
		case err != nil:
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// ---------------------------------------------------------------------------
// report_worker
// ---------------------------------------------------------------------------

func startReportWorker(nc *nats.Conn, w *EventWorkers) error {
	_, err := nc.QueueSubscribe(events.ReportWildcard(), "report_worker", func(msg *nats.Msg) {
		id, err := events.IDFromMsg(msg)
		if err != nil {
			slog.Warn("report_worker: bad message", "subject", msg.Subject, "err", err)
			return
		}
		ctx, cancel := context.WithTimeout(context.Background(), workerTimeout)
		defer cancel()
		if err := w.NotifyReport(ctx, id); err != nil {
			slog.WarnContext(ctx, "report_worker: notify failed", "report_id", id, "err", err)
		}
	})
	if err != nil {
		slog.Error("report_worker: subscribe failed", "err", err)
		return err
	}
	slog.Info("report_worker: started")
	return nil
}

// NotifyReport tells the session's doctor about a new report and flags the
// report as notified. Already notified reports are skipped.
func (w *EventWorkers) NotifyReport(ctx context.Context, reportID uuid.UUID) error {
	rep, err := w.reports.Get(ctx, reportID)
	if err != nil {
		return err
	}
	if rep.NotifiedToDoctor {
		return nil
	}
	sess, err := w.sessions.Get(ctx, rep.SessionID)
	if err != nil {
		return err
	}

	if _, err := w.notifs.Create(ctx, notification.CreateRequest{
		UserID:  sess.DoctorID,
		Type:    notification.TypeReport,
		Message: notification.ReportMessage(sess.StartTime.Format(notification.StartTimeLayout)),
	}); err != nil {
		return err
	}
	_, err = w.marker.MarkNotified(ctx, rep.ID)
	return err
}

// ---------------------------------------------------------------------------
// helpers
// ---------------------------------------------------------------------------

func sessionHandler(fn func(context.Context, events.Event, uuid.UUID) error) nats.MsgHandler {
	return func(msg *nats.Msg) {
		_, e, _, err := events.Parse(msg.Subject)
		if err != nil {
			slog.Warn("worker: bad subject", "subject", msg.Subject, "err", err)
			return
		}
		id, err := events.IDFromMsg(msg)
		if err != nil {
			slog.Warn("worker: bad message", "subject", msg.Subject, "err", err)
			return
		}
		ctx, cancel := context.WithTimeout(context.Background(), workerTimeout)
		defer cancel()
		if err := fn(ctx, e, id); err != nil {
			slog.WarnContext(ctx, "worker: handling session event failed", "subject", msg.Subject, "err", err)
		}
	}
}

// recipientIDs lists who hears about e: the doctor learns about bookings
// and joins, the patient about decisions, both about cancellations.
func recipientIDs(e events.Event, s *store.Session) []uuid.UUID {
	switch e {
	case events.SessionCreated, events.SessionCanceled:
		return []uuid.UUID{s.PatientID, s.DoctorID}
	case events.SessionAccepted, events.SessionCompleted:
		return []uuid.UUID{s.PatientID}
	case events.SessionJoined:
		return []uuid.UUID{s.DoctorID}
	}
	return nil
}

func (w *EventWorkers) recipients(ctx context.Context, e events.Event, s *store.Session) []*store.User {
	var out []*store.User
	for _, id := range recipientIDs(e, s) {
		u, err := w.users.Get(ctx, id)
		if err != nil {
			slog.WarnContext(ctx, "worker: recipient not found", "user_id", id, "err", err)
			continue
		}
		if !u.IsActive {
			continue
		}
		out = append(out, u)
	}
	return out
}
