package session

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/Alijeyrad/mindcare_backend/internal/service/caller"
	"github.com/Alijeyrad/mindcare_backend/internal/store"
)

// SaveTranscript attaches the conversation transcript to a completed
// session. With an archive configured the text goes to object storage and
// only its key is kept on the row.
func (s *sessionService) SaveTranscript(ctx context.Context, c caller.Caller, id uuid.UUID, transcript string) (*store.Session, error) {
	sess, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if !c.IsAdmin() && !c.Is(sess.DoctorID) {
		return nil, ErrUnauthorized
	}
	if sess.Status != store.StatusCompleted {
		return nil, fmt.Errorf("%w: session is not completed", ErrInvalidState)
	}

	transcript = strings.TrimSpace(transcript)
	if transcript == "" {
		return nil, ErrTranscriptEmpty
	}
	if limit := s.cfg.TranscriptMaxBytes; limit > 0 && len(transcript) > limit {
		return nil, ErrTranscriptTooLarge
	}

	upd := store.SessionUpdate{}
	if s.archiveEnabled() {
		key, err := s.archive.PutTranscript(ctx, sess.ID.String(), transcript)
		if err != nil {
			return nil, fmt.Errorf("archive transcript: %w", err)
		}
		empty := ""
		upd.TranscriptKey = &key
		upd.Transcript = &empty
	} else {
		noKey := ""
		upd.Transcript = &transcript
		upd.TranscriptKey = &noKey
	}

	sess, err = s.transition(ctx, id, upd, store.StatusCompleted)
	if err != nil {
		return nil, err
	}

	s.record(ctx, c.ID, "session_transcript", sess.ID, fmt.Sprintf("bytes=%d", len(transcript)))
	return redact(c, sess), nil
}

// Transcript returns the stored transcript of a session to its
// participants.
func (s *sessionService) Transcript(ctx context.Context, c caller.Caller, id uuid.UUID) (*Transcript, error) {
	sess, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if !participant(c, sess) {
		return nil, ErrUnauthorized
	}

	if sess.TranscriptKey != nil && *sess.TranscriptKey != "" {
		if !s.archiveEnabled() {
			slog.WarnContext(ctx, "session: transcript archived but archive is disabled", "session_id", sess.ID)
			return nil, ErrTranscriptNotFound
		}
		url, err := s.archive.PresignDownload(ctx, *sess.TranscriptKey)
		if err != nil {
			return nil, fmt.Errorf("presign transcript: %w", err)
		}
		return &Transcript{URL: url}, nil
	}
	if sess.Transcript != nil && *sess.Transcript != "" {
		return &Transcript{Text: *sess.Transcript}, nil
	}
	return nil, ErrTranscriptNotFound
}

func (s *sessionService) archiveEnabled() bool {
	return s.archive != nil && s.archive.Enabled()
}
