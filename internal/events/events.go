// Package events names the NATS subjects the platform publishes on and
// publishes entity ids to them.
package events

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
)

const prefix = "mindcare"

// Event is the verb part of a subject.
type Event string

const (
	SessionCreated   Event = "created"
	SessionAccepted  Event = "accepted"
	SessionCanceled  Event = "canceled"
	SessionCompleted Event = "completed"
	SessionJoined    Event = "joined"
	ReportCreated    Event = "created"
)

// SessionSubject returns mindcare.session.<event>.<id>.
func SessionSubject(e Event, id uuid.UUID) string {
	return fmt.Sprintf("%s.session.%s.%s", prefix, e, id)
}

// ReportSubject returns mindcare.report.created.<id>.
func ReportSubject(id uuid.UUID) string {
	return fmt.Sprintf("%s.report.%s.%s", prefix, ReportCreated, id)
}

// SessionWildcard subscribes to one session event for every id.
func SessionWildcard(e Event) string {
	return fmt.Sprintf("%s.session.%s.*", prefix, e)
}

// ReportWildcard subscribes to every created report.
func ReportWildcard() string {
	return fmt.Sprintf("%s.report.%s.*", prefix, ReportCreated)
}

// Parse splits a subject into entity, event and id.
func Parse(subject string) (entity string, e Event, id uuid.UUID, err error) {
	parts := strings.Split(subject, ".")
	if len(parts) != 4 || parts[0] != prefix {
		return "", "", uuid.Nil, fmt.Errorf("events: unexpected subject %q", subject)
	}
	id, err = uuid.Parse(parts[3])
	if err != nil {
		return "", "", uuid.Nil, fmt.Errorf("events: subject %q: %w", subject, err)
	}
	return parts[1], Event(parts[2]), id, nil
}

// IDFromMsg reads the entity id carried in the message body, falling back
// to the last subject token.
func IDFromMsg(msg *nats.Msg) (uuid.UUID, error) {
	if body := strings.TrimSpace(string(msg.Data)); body != "" {
		return uuid.Parse(body)
	}
	_, _, id, err := Parse(msg.Subject)
	return id, err
}

type conn interface {
	Publish(subj string, data []byte) error
}

// Publisher is safe to use with a nil connection, in which case it drops
// every event.
type Publisher struct {
	nc conn
}

func NewPublisher(nc *nats.Conn) *Publisher {
	if nc == nil {
		return &Publisher{}
	}
	return &Publisher{nc: nc}
}

func (p *Publisher) publish(ctx context.Context, subject string, id uuid.UUID) {
	if p == nil || p.nc == nil {
		return
	}
	if err := p.nc.Publish(subject, []byte(id.String())); err != nil {
		slog.WarnContext(ctx, "events: publish failed", "subject", subject, "err", err)
	}
}

// PublishSession emits a session lifecycle event.
func (p *Publisher) PublishSession(ctx context.Context, e Event, sessionID uuid.UUID) {
	p.publish(ctx, SessionSubject(e, sessionID), sessionID)
}

// PublishReport emits report.created.
func (p *Publisher) PublishReport(ctx context.Context, reportID uuid.UUID) {
	p.publish(ctx, ReportSubject(reportID), reportID)
}
