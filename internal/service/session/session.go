package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"

	"github.com/Alijeyrad/mindcare_backend/internal/events"
	"github.com/Alijeyrad/mindcare_backend/internal/service/caller"
	"github.com/Alijeyrad/mindcare_backend/internal/store"
	"github.com/Alijeyrad/mindcare_backend/pkg/agent"
	"github.com/Alijeyrad/mindcare_backend/pkg/rtc"
)

const instrumentationName = "github.com/Alijeyrad/mindcare_backend/internal/service/session"

// RoomName is the room a session's participants meet in.
func RoomName(id uuid.UUID) string { return "session-" + id.String() }

// PatientIdentity and AgentIdentity are the participant identities handed
// to the room provider.
func PatientIdentity(patientID uuid.UUID) string { return "patient-" + patientID.String() }
func AgentIdentity(sessionID uuid.UUID) string   { return "agent-" + sessionID.String() }

// ---------------------------------------------------------------------------
// Ports
// ---------------------------------------------------------------------------

type UserStore interface {
	Get(ctx context.Context, id uuid.UUID) (*store.User, error)
}

type SessionStore interface {
	Create(ctx context.Context, s *store.Session) error
	Get(ctx context.Context, id uuid.UUID) (*store.Session, error)
	List(ctx context.Context, f store.SessionFilter) ([]*store.Session, int, error)
	Update(ctx context.Context, id uuid.UUID, upd store.SessionUpdate, expected ...store.SessionStatus) (*store.Session, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

type ProfileStore interface {
	GetByUser(ctx context.Context, userID uuid.UUID) (*store.PatientProfile, error)
}

type RoomProvider interface {
	ConnectionDetails(ctx context.Context, room, identity, name string) (*rtc.ConnectionDetails, error)
	CreateRoom(ctx context.Context, room string, opts rtc.RoomOptions) error
	Timeout() time.Duration
}

type AgentDispatcher interface {
	Connect(ctx context.Context, d agent.Dispatch) error
	Timeout() time.Duration
}

type EventPublisher interface {
	PublishSession(ctx context.Context, e events.Event, sessionID uuid.UUID)
}

type ActionRecorder interface {
	Record(ctx context.Context, userID uuid.UUID, action, targetID, details string)
}

type TranscriptArchive interface {
	Enabled() bool
	PutTranscript(ctx context.Context, sessionID, transcript string) (string, error)
	PresignDownload(ctx context.Context, key string) (string, error)
}

// Deps are the collaborators of the orchestrator. Events, Actions and
// Archive are optional.
type Deps struct {
	Users    UserStore
	Sessions SessionStore
	Profiles ProfileStore
	Rooms    RoomProvider
	Agents   AgentDispatcher
	Events   EventPublisher
	Actions  ActionRecorder
	Archive  TranscriptArchive
}

type Config struct {
	EagerProvision     bool
	MaxParticipants    int
	RoomEmptyTimeout   time.Duration
	TranscriptMaxBytes int
}

// ---------------------------------------------------------------------------
// DTOs
// ---------------------------------------------------------------------------

type CreateRequest struct {
	PatientID uuid.UUID
	DoctorID  uuid.UUID
	StartTime time.Time
	EndTime   time.Time
}

type ListRequest struct {
	Status    *store.SessionStatus
	PatientID *uuid.UUID
	DoctorID  *uuid.UUID
	From      *time.Time
	To        *time.Time
	Page      int
	PerPage   int
}

type JoinResult struct {
	RoomName  string
	JoinToken string
	ServerURL string
	SessionID uuid.UUID
}

// Transcript is either inline text or a presigned download URL.
type Transcript struct {
	Text string
	URL  string
}

// ---------------------------------------------------------------------------
// Interface
// ---------------------------------------------------------------------------

type Service interface {
	Create(ctx context.Context, c caller.Caller, req CreateRequest) (*store.Session, error)
	Get(ctx context.Context, c caller.Caller, id uuid.UUID) (*store.Session, error)
	List(ctx context.Context, c caller.Caller, req ListRequest) ([]*store.Session, int, error)
	Accept(ctx context.Context, c caller.Caller, id uuid.UUID) (*store.Session, error)
	Cancel(ctx context.Context, c caller.Caller, id uuid.UUID) (*store.Session, error)
	Complete(ctx context.Context, c caller.Caller, id uuid.UUID) (*store.Session, error)
	UpdateStatus(ctx context.Context, c caller.Caller, id uuid.UUID, status store.SessionStatus) (*store.Session, error)
	Delete(ctx context.Context, c caller.Caller, id uuid.UUID) error
	Join(ctx context.Context, sessionID, patientID uuid.UUID) (*JoinResult, error)
	SaveTranscript(ctx context.Context, c caller.Caller, id uuid.UUID, transcript string) (*store.Session, error)
	Transcript(ctx context.Context, c caller.Caller, id uuid.UUID) (*Transcript, error)
	// Drain waits for in-flight agent dispatches.
	Drain(ctx context.Context) error
}

// ---------------------------------------------------------------------------
// Implementation
// ---------------------------------------------------------------------------

type sessionService struct {
	users    UserStore
	sessions SessionStore
	profiles ProfileStore
	rooms    RoomProvider
	agents   AgentDispatcher
	events   EventPublisher
	actions  ActionRecorder
	archive  TranscriptArchive
	cfg      Config

	dispatches sync.WaitGroup

	joins            metric.Int64Counter
	dispatchFailures metric.Int64Counter
}

func New(d Deps, cfg Config) Service {
	if cfg.MaxParticipants <= 0 {
		cfg.MaxParticipants = 2
	}
	if cfg.RoomEmptyTimeout <= 0 {
		cfg.RoomEmptyTimeout = 5 * time.Minute
	}

	meter := otel.Meter(instrumentationName)
	joins, _ := meter.Int64Counter(
		"session_join_total",
		metric.WithDescription("Room join handshakes by outcome"),
		metric.WithUnit("{join}"),
	)
	dispatchFailures, _ := meter.Int64Counter(
		"session_agent_dispatch_failures_total",
		metric.WithDescription("AI worker dispatches that failed"),
		metric.WithUnit("{dispatch}"),
	)

	return &sessionService{
		users:            d.Users,
		sessions:         d.Sessions,
		profiles:         d.Profiles,
		rooms:            d.Rooms,
		agents:           d.Agents,
		events:           d.Events,
		actions:          d.Actions,
		archive:          d.Archive,
		cfg:              cfg,
		joins:            joins,
		dispatchFailures: dispatchFailures,
	}
}

func (s *sessionService) Create(ctx context.Context, c caller.Caller, req CreateRequest) (*store.Session, error) {
	if !req.StartTime.Before(req.EndTime) {
		return nil, ErrInvalidWindow
	}

	status := store.StatusActive
	switch {
	case c.IsPatient():
		req.PatientID = c.ID
		status = store.StatusPending
	case c.IsDoctor():
		if req.DoctorID == uuid.Nil {
			req.DoctorID = c.ID
		}
		if req.DoctorID != c.ID {
			return nil, ErrUnauthorized
		}
	case c.IsAdmin():
	default:
		return nil, ErrUnauthorized
	}

	if err := s.requireRole(ctx, req.PatientID, store.RolePatient); err != nil {
		return nil, err
	}
	if err := s.requireRole(ctx, req.DoctorID, store.RoleDoctor); err != nil {
		return nil, err
	}

	sess := &store.Session{
		PatientID: req.PatientID,
		DoctorID:  req.DoctorID,
		StartTime: req.StartTime.UTC(),
		EndTime:   req.EndTime.UTC(),
		Status:    status,
	}
	if err := s.sessions.Create(ctx, sess); err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}

	s.publish(ctx, events.SessionCreated, sess.ID)
	s.record(ctx, c.ID, "session_create", sess.ID, "status="+string(status))
	return sess, nil
}

// requireRole checks that id resolves to an active user with the role.
func (s *sessionService) requireRole(ctx context.Context, id uuid.UUID, role store.Role) error {
	if id == uuid.Nil {
		return fmt.Errorf("%w: missing %s", ErrInvalidReference, role)
	}
	u, err := s.users.Get(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return fmt.Errorf("%w: %s %s does not exist", ErrInvalidReference, role, id)
		}
		return fmt.Errorf("load %s: %w", role, err)
	}
	if u.Role != role || !u.IsActive {
		return fmt.Errorf("%w: user %s is not an active %s", ErrInvalidReference, id, role)
	}
	return nil
}

func (s *sessionService) load(ctx context.Context, id uuid.UUID) (*store.Session, error) {
	sess, err := s.sessions.Get(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrSessionNotFound
		}
		return nil, fmt.Errorf("get session: %w", err)
	}
	return sess, nil
}

// participant reports whether c takes part in sess or is an admin.
func participant(c caller.Caller, sess *store.Session) bool {
	return c.IsAdmin() || c.Is(sess.PatientID) || c.Is(sess.DoctorID)
}

// redact hides the join token from everyone but the patient.
func redact(c caller.Caller, sess *store.Session) *store.Session {
	if sess.JoinToken == nil || c.Is(sess.PatientID) {
		return sess
	}
	cp := *sess
	cp.JoinToken = nil
	return &cp
}

func (s *sessionService) Get(ctx context.Context, c caller.Caller, id uuid.UUID) (*store.Session, error) {
	sess, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if !participant(c, sess) {
		return nil, ErrUnauthorized
	}
	return redact(c, sess), nil
}

func (s *sessionService) List(ctx context.Context, c caller.Caller, req ListRequest) ([]*store.Session, int, error) {
	f := store.SessionFilter{
		Status:    req.Status,
		PatientID: req.PatientID,
		DoctorID:  req.DoctorID,
		From:      req.From,
		To:        req.To,
		Page:      store.NewPage(req.Page, req.PerPage),
	}
	if f.Status != nil && !f.Status.Valid() {
		return nil, 0, ErrInvalidStatus
	}

	switch {
	case c.IsPatient():
		id := c.ID
		f.PatientID = &id
	case c.IsDoctor():
		id := c.ID
		f.DoctorID = &id
	case c.IsAdmin():
	default:
		return nil, 0, ErrUnauthorized
	}

	items, total, err := s.sessions.List(ctx, f)
	if err != nil {
		return nil, 0, fmt.Errorf("list sessions: %w", err)
	}
	for i := range items {
		items[i] = redact(c, items[i])
	}
	return items, total, nil
}

// transition moves a session from one of from to to, mapping a lost race
// onto ErrInvalidState.
func (s *sessionService) transition(ctx context.Context, id uuid.UUID, upd store.SessionUpdate, from ...store.SessionStatus) (*store.Session, error) {
	sess, err := s.sessions.Update(ctx, id, upd, from...)
	switch {
	case err == nil:
		return sess, nil
	case errors.Is(err, store.ErrNotFound):
		return nil, ErrSessionNotFound
	case errors.Is(err, store.ErrStaleState):
		return nil, ErrInvalidState
	default:
		return nil, fmt.Errorf("update session: %w", err)
	}
}

func statusPtr(st store.SessionStatus) *store.SessionStatus { return &st }

func (s *sessionService) Accept(ctx context.Context, c caller.Caller, id uuid.UUID) (*store.Session, error) {
	sess, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if !c.IsAdmin() && !c.Is(sess.DoctorID) {
		return nil, ErrUnauthorized
	}
	if sess.Status != store.StatusPending {
		return nil, ErrInvalidState
	}

	sess, err = s.transition(ctx, id, store.SessionUpdate{Status: statusPtr(store.StatusActive)}, store.StatusPending)
	if err != nil {
		return nil, err
	}

	if s.cfg.EagerProvision {
		s.provisionRoom(ctx, sess.ID)
	}

	s.publish(ctx, events.SessionAccepted, sess.ID)
	s.record(ctx, c.ID, "session_accept", sess.ID, "")
	return redact(c, sess), nil
}

// provisionRoom creates the room ahead of the first join. The room is
// created on demand at join time anyway, so failures are only logged.
func (s *sessionService) provisionRoom(ctx context.Context, id uuid.UUID) {
	pctx, cancel := context.WithTimeout(ctx, s.rooms.Timeout())
	defer cancel()

	err := s.rooms.CreateRoom(pctx, RoomName(id), rtc.RoomOptions{
		MaxParticipants: s.cfg.MaxParticipants,
		EmptyTimeout:    s.cfg.RoomEmptyTimeout,
	})
	if err != nil {
		slog.WarnContext(ctx, "session: eager room provisioning failed", "session_id", id, "err", err)
	}
}

func (s *sessionService) Cancel(ctx context.Context, c caller.Caller, id uuid.UUID) (*store.Session, error) {
	sess, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}

	from := []store.SessionStatus{store.StatusPending, store.StatusActive}
	switch {
	case c.IsAdmin() || c.Is(sess.DoctorID):
	case c.Is(sess.PatientID):
		if sess.Status == store.StatusActive {
			return nil, ErrUnauthorized
		}
		from = []store.SessionStatus{store.StatusPending}
	default:
		return nil, ErrUnauthorized
	}
	if sess.Status.Terminal() {
		return nil, ErrInvalidState
	}

	sess, err = s.transition(ctx, id, store.SessionUpdate{Status: statusPtr(store.StatusCanceled)}, from...)
	if err != nil {
		return nil, err
	}

	s.publish(ctx, events.SessionCanceled, sess.ID)
	s.record(ctx, c.ID, "session_cancel", sess.ID, "")
	return redact(c, sess), nil
}

func (s *sessionService) Complete(ctx context.Context, c caller.Caller, id uuid.UUID) (*store.Session, error) {
	sess, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if !c.IsAdmin() && !c.Is(sess.DoctorID) {
		return nil, ErrUnauthorized
	}
	if sess.Status != store.StatusActive {
		return nil, ErrInvalidState
	}

	now := time.Now().UTC()
	sess, err = s.transition(ctx, id, store.SessionUpdate{
		Status:  statusPtr(store.StatusCompleted),
		EndTime: &now,
	}, store.StatusActive)
	if err != nil {
		return nil, err
	}

	s.publish(ctx, events.SessionCompleted, sess.ID)
	s.record(ctx, c.ID, "session_complete", sess.ID, "")
	return redact(c, sess), nil
}

func (s *sessionService) UpdateStatus(ctx context.Context, c caller.Caller, id uuid.UUID, status store.SessionStatus) (*store.Session, error) {
	switch status {
	case store.StatusActive:
		return s.Accept(ctx, c, id)
	case store.StatusCanceled:
		return s.Cancel(ctx, c, id)
	case store.StatusCompleted:
		return s.Complete(ctx, c, id)
	case store.StatusPending:
		return nil, ErrInvalidState
	default:
		return nil, ErrInvalidStatus
	}
}

func (s *sessionService) Delete(ctx context.Context, c caller.Caller, id uuid.UUID) error {
	if !c.IsAdmin() {
		return ErrUnauthorized
	}
	if err := s.sessions.Delete(ctx, id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrSessionNotFound
		}
		return fmt.Errorf("delete session: %w", err)
	}
	s.record(ctx, c.ID, "session_delete", id, "")
	return nil
}

func (s *sessionService) publish(ctx context.Context, e events.Event, id uuid.UUID) {
	if s.events != nil {
		s.events.PublishSession(ctx, e, id)
	}
}

func (s *sessionService) record(ctx context.Context, userID uuid.UUID, action string, target uuid.UUID, details string) {
	if s.actions != nil {
		s.actions.Record(ctx, userID, action, target.String(), details)
	}
}
