package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/Alijeyrad/mindcare_backend/internal/events"
	"github.com/Alijeyrad/mindcare_backend/internal/store"
	"github.com/Alijeyrad/mindcare_backend/pkg/agent"
	"github.com/Alijeyrad/mindcare_backend/pkg/observability"
	"github.com/Alijeyrad/mindcare_backend/pkg/rtc"
)

// Join runs the room-join handshake for the session's patient: it checks the
// session, obtains connection details from the room provider, remembers the
// room on the session and dispatches the AI worker in the background.
func (s *sessionService) Join(ctx context.Context, sessionID, patientID uuid.UUID) (*JoinResult, error) {
	res, err := s.join(ctx, sessionID, patientID)
	s.joins.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", joinOutcome(err))))
	return res, err
}

func (s *sessionService) join(ctx context.Context, sessionID, patientID uuid.UUID) (*JoinResult, error) {
	sess, err := s.load(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if sess.PatientID != patientID {
		return nil, ErrUnauthorized
	}
	if sess.Status != store.StatusActive {
		return nil, fmt.Errorf("%w: session is not active", ErrInvalidState)
	}

	room := RoomName(sess.ID)

	profile, err := s.profiles.GetByUser(ctx, patientID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrProfileNotFound
		}
		return nil, fmt.Errorf("get profile: %w", err)
	}

	identity := PatientIdentity(patientID)
	details, err := s.connectionDetails(ctx, room, identity, s.displayName(ctx, patientID, identity))
	if err != nil {
		return nil, err
	}

	// The client already holds a valid token; losing the bookkeeping only
	// means the session row does not show the room.
	if _, err := s.sessions.Update(ctx, sess.ID, store.SessionUpdate{
		RoomName:  &room,
		JoinToken: &details.ParticipantToken,
	}, store.StatusActive); err != nil {
		slog.WarnContext(ctx, "session: persisting room details failed", "session_id", sess.ID, "err", err)
	}

	s.dispatchAgent(ctx, sess.ID, room, profile)

	s.publish(ctx, events.SessionJoined, sess.ID)
	s.record(ctx, patientID, "session_join", sess.ID, "room="+room)

	return &JoinResult{
		RoomName:  room,
		JoinToken: details.ParticipantToken,
		ServerURL: details.ServerURL,
		SessionID: sess.ID,
	}, nil
}

func (s *sessionService) connectionDetails(ctx context.Context, room, identity, name string) (_ *rtc.ConnectionDetails, err error) {
	pctx, cancel := context.WithTimeout(ctx, s.rooms.Timeout())
	defer cancel()

	pctx, span := observability.StartClientSpan(pctx, "rtc.ConnectionDetails",
		attribute.String("rtc.room", room),
		attribute.String("rtc.identity", identity),
	)
	defer func() { observability.EndSpan(span, err) }()

	details, err := s.rooms.ConnectionDetails(pctx, room, identity, name)
	if err != nil {
		if errors.Is(pctx.Err(), context.DeadlineExceeded) && !errors.Is(err, context.DeadlineExceeded) {
			err = fmt.Errorf("%w: %w", err, context.DeadlineExceeded)
		}
		return nil, fmt.Errorf("%w: %w", ErrRoomProvisioningFailed, err)
	}
	return details, nil
}

// displayName is the patient's full name, or fallback when the user cannot
// be loaded.
func (s *sessionService) displayName(ctx context.Context, userID uuid.UUID, fallback string) string {
	u, err := s.users.Get(ctx, userID)
	if err != nil || u.FullName() == "" {
		return fallback
	}
	return u.FullName()
}

// dispatchAgent asks the worker dispatcher to attach an AI agent to the room.
// It runs detached from the request with its own deadline; failures are
// logged and counted, never returned.
func (s *sessionService) dispatchAgent(ctx context.Context, sessionID uuid.UUID, room string, p *store.PatientProfile) {
	d := agent.Dispatch{
		Room:     room,
		Identity: AgentIdentity(sessionID),
		Profile: &agent.Profile{
			Age:            p.Age,
			Gender:         p.Gender,
			Occupation:     p.Occupation,
			EducationLevel: p.EducationLevel,
			MaritalStatus:  p.MaritalStatus,
		},
	}
	if p.Notes != nil {
		d.Profile.Notes = *p.Notes
	}

	dctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.agents.Timeout())

	s.dispatches.Add(1)
	go func() {
		defer s.dispatches.Done()
		defer cancel()

		dctx, span := observability.StartClientSpan(dctx, "agent.Connect",
			attribute.String("agent.room", room),
			attribute.String("agent.identity", d.Identity),
		)

		err := s.agents.Connect(dctx, d)
		if err != nil {
			err = fmt.Errorf("%w: %w", ErrWorkerDispatchFailed, err)
			s.dispatchFailures.Add(dctx, 1)
			slog.WarnContext(dctx, "session: agent dispatch failed", "session_id", sessionID, "room", room, "err", err)
		}
		observability.EndSpan(span, err)
	}()
}

func (s *sessionService) Drain(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		s.dispatches.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func joinOutcome(err error) string {
	switch {
	case err == nil:
		return "joined"
	case errors.Is(err, ErrSessionNotFound):
		return "not_found"
	case errors.Is(err, ErrUnauthorized):
		return "unauthorized"
	case errors.Is(err, ErrInvalidState):
		return "invalid_state"
	case errors.Is(err, ErrProfileNotFound):
		return "profile_not_found"
	case errors.Is(err, ErrRoomProvisioningFailed):
		return "provisioning_failed"
	default:
		return "error"
	}
}
