// Package report manages the clinical report written after a session.
package report

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/Alijeyrad/mindcare_backend/internal/service/caller"
	"github.com/Alijeyrad/mindcare_backend/internal/store"
)

// ---------------------------------------------------------------------------
// Ports
// ---------------------------------------------------------------------------

type Store interface {
	Create(ctx context.Context, r *store.Report) error
	Get(ctx context.Context, id uuid.UUID) (*store.Report, error)
	GetBySession(ctx context.Context, sessionID uuid.UUID) (*store.Report, error)
	List(ctx context.Context, f store.ReportFilter) ([]*store.Report, int, error)
	Update(ctx context.Context, id uuid.UUID, upd store.ReportUpdate) (*store.Report, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

type SessionStore interface {
	Get(ctx context.Context, id uuid.UUID) (*store.Session, error)
}

type Summarizer interface {
	Enabled() bool
	Summarize(ctx context.Context, transcript string) (string, error)
}

// TranscriptReader fetches archived transcripts.
type TranscriptReader interface {
	Enabled() bool
	Download(ctx context.Context, key string) ([]byte, error)
}

type EventPublisher interface {
	PublishReport(ctx context.Context, reportID uuid.UUID)
}

type ActionRecorder interface {
	Record(ctx context.Context, userID uuid.UUID, action, targetID, details string)
}

type Deps struct {
	Reports     Store
	Sessions    SessionStore
	Summarizer  Summarizer
	Transcripts TranscriptReader
	Events      EventPublisher
	Actions     ActionRecorder
}

// ---------------------------------------------------------------------------
// DTOs
// ---------------------------------------------------------------------------

type CreateRequest struct {
	SessionID   uuid.UUID
	Content     map[string]any
	Summary     *string
	DoctorNotes *string
	// Summarize asks the language model for a summary of the session
	// transcript when Summary is empty.
	Summarize bool
}

type UpdateRequest struct {
	Content     map[string]any
	Summary     *string
	DoctorNotes *string
}

type ListRequest struct {
	SessionID *uuid.UUID
	Notified  *bool
	Page      int
	PerPage   int
}

// ---------------------------------------------------------------------------
// Interface
// ---------------------------------------------------------------------------

type Service interface {
	Create(ctx context.Context, c caller.Caller, req CreateRequest) (*store.Report, error)
	Get(ctx context.Context, c caller.Caller, id uuid.UUID) (*store.Report, error)
	GetBySession(ctx context.Context, c caller.Caller, sessionID uuid.UUID) (*store.Report, error)
	List(ctx context.Context, c caller.Caller, req ListRequest) ([]*store.Report, int, error)
	Update(ctx context.Context, c caller.Caller, id uuid.UUID, req UpdateRequest) (*store.Report, error)
	// MarkNotified flags that the doctor has been told about the report.
	MarkNotified(ctx context.Context, id uuid.UUID) (*store.Report, error)
	Delete(ctx context.Context, c caller.Caller, id uuid.UUID) error
}

// ---------------------------------------------------------------------------
// Implementation
// ---------------------------------------------------------------------------

type reportService struct {
	reports     Store
	sessions    SessionStore
	summarizer  Summarizer
	transcripts TranscriptReader
	events      EventPublisher
	actions     ActionRecorder
}

func New(d Deps) Service {
	return &reportService{
		reports:     d.Reports,
		sessions:    d.Sessions,
		summarizer:  d.Summarizer,
		transcripts: d.Transcripts,
		events:      d.Events,
		actions:     d.Actions,
	}
}

func (s *reportService) Create(ctx context.Context, c caller.Caller, req CreateRequest) (*store.Report, error) {
	if len(req.Content) == 0 {
		return nil, ErrInvalidContent
	}
	sess, err := s.session(ctx, req.SessionID)
	if err != nil {
		return nil, err
	}
	if !c.IsAdmin() && !c.Is(sess.DoctorID) {
		return nil, ErrUnauthorized
	}

	r := &store.Report{
		SessionID:   sess.ID,
		Content:     req.Content,
		Summary:     req.Summary,
		DoctorNotes: req.DoctorNotes,
	}
	if (r.Summary == nil || *r.Summary == "") && req.Summarize {
		if summary, err := s.summarize(ctx, sess); err != nil {
			slog.WarnContext(ctx, "report: summary generation failed", "session_id", sess.ID, "err", err)
		} else {
			r.Summary = &summary
		}
	}

	if err := s.reports.Create(ctx, r); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrSessionNotFound
		}
		if errors.Is(err, store.ErrMalformedRecord) {
			return nil, ErrInvalidContent
		}
		return nil, fmt.Errorf("create report: %w", err)
	}

	if s.events != nil {
		s.events.PublishReport(ctx, r.ID)
	}
	s.record(ctx, c.ID, "report_create", r.ID)
	return r, nil
}

// summarize feeds the session transcript to the language model.
func (s *reportService) summarize(ctx context.Context, sess *store.Session) (string, error) {
	if s.summarizer == nil || !s.summarizer.Enabled() {
		return "", errors.New("summarizer is disabled")
	}

	var text string
	switch {
	case sess.Transcript != nil && strings.TrimSpace(*sess.Transcript) != "":
		text = *sess.Transcript
	case sess.TranscriptKey != nil && s.transcripts != nil && s.transcripts.Enabled():
		b, err := s.transcripts.Download(ctx, *sess.TranscriptKey)
		if err != nil {
			return "", fmt.Errorf("download transcript: %w", err)
		}
		text = string(b)
	default:
		return "", ErrNoTranscript
	}
	return s.summarizer.Summarize(ctx, text)
}

func (s *reportService) Get(ctx context.Context, c caller.Caller, id uuid.UUID) (*store.Report, error) {
	r, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.authorizeRead(ctx, c, r.SessionID); err != nil {
		return nil, err
	}
	return r, nil
}

func (s *reportService) GetBySession(ctx context.Context, c caller.Caller, sessionID uuid.UUID) (*store.Report, error) {
	if err := s.authorizeRead(ctx, c, sessionID); err != nil {
		return nil, err
	}
	r, err := s.reports.GetBySession(ctx, sessionID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrReportNotFound
		}
		return nil, fmt.Errorf("get report: %w", err)
	}
	return r, nil
}

func (s *reportService) List(ctx context.Context, c caller.Caller, req ListRequest) ([]*store.Report, int, error) {
	f := store.ReportFilter{
		SessionID: req.SessionID,
		Notified:  req.Notified,
		Page:      store.NewPage(req.Page, req.PerPage),
	}
	switch {
	case c.IsAdmin():
	case c.IsDoctor():
		id := c.ID
		f.DoctorID = &id
	case c.IsPatient():
		id := c.ID
		f.PatientID = &id
	default:
		return nil, 0, ErrUnauthorized
	}

	items, total, err := s.reports.List(ctx, f)
	if err != nil {
		return nil, 0, fmt.Errorf("list reports: %w", err)
	}
	return items, total, nil
}

func (s *reportService) Update(ctx context.Context, c caller.Caller, id uuid.UUID, req UpdateRequest) (*store.Report, error) {
	r, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if !c.IsAdmin() {
		sess, err := s.session(ctx, r.SessionID)
		if err != nil {
			return nil, err
		}
		if !c.Is(sess.DoctorID) {
			return nil, ErrUnauthorized
		}
	}
	if req.Content != nil && len(req.Content) == 0 {
		return nil, ErrInvalidContent
	}

	r, err = s.reports.Update(ctx, id, store.ReportUpdate{
		Content:     req.Content,
		Summary:     req.Summary,
		DoctorNotes: req.DoctorNotes,
	})
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrReportNotFound
		}
		return nil, fmt.Errorf("update report: %w", err)
	}
	s.record(ctx, c.ID, "report_update", id)
	return r, nil
}

func (s *reportService) MarkNotified(ctx context.Context, id uuid.UUID) (*store.Report, error) {
	notified := true
	r, err := s.reports.Update(ctx, id, store.ReportUpdate{NotifiedToDoctor: &notified})
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrReportNotFound
		}
		return nil, fmt.Errorf("mark report notified: %w", err)
	}
	return r, nil
}

func (s *reportService) Delete(ctx context.Context, c caller.Caller, id uuid.UUID) error {
	if !c.IsAdmin() {
		return ErrUnauthorized
	}
	if err := s.reports.Delete(ctx, id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrReportNotFound
		}
		return fmt.Errorf("delete report: %w", err)
	}
	s.record(ctx, c.ID, "report_delete", id)
	return nil
}

// ---------------------------------------------------------------------------
// Helpers
// ---------------------------------------------------------------------------

func (s *reportService) load(ctx context.Context, id uuid.UUID) (*store.Report, error) {
	r, err := s.reports.Get(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrReportNotFound
		}
		return nil, fmt.Errorf("get report: %w", err)
	}
	return r, nil
}

func (s *reportService) session(ctx context.Context, id uuid.UUID) (*store.Session, error) {
	sess, err := s.sessions.Get(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrSessionNotFound
		}
		return nil, fmt.Errorf("get session: %w", err)
	}
	return sess, nil
}

// authorizeRead lets admins and the session's participants through.
func (s *reportService) authorizeRead(ctx context.Context, c caller.Caller, sessionID uuid.UUID) error {
	if c.IsAdmin() {
		return nil
	}
	sess, err := s.session(ctx, sessionID)
	if err != nil {
		return err
	}
	if !c.Is(sess.PatientID) && !c.Is(sess.DoctorID) {
		return ErrUnauthorized
	}
	return nil
}

func (s *reportService) record(ctx context.Context, actor uuid.UUID, action string, target uuid.UUID) {
	if s.actions != nil {
		s.actions.Record(ctx, actor, action, target.String(), "")
	}
}
