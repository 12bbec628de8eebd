package handler

import (
	"time"

	"github.com/google/uuid"

	"github.com/Alijeyrad/mindcare_backend/internal/store"
)

// JSON shapes of the stored records. Password hashes, transcripts and
// archive keys never leave the server through these.

type userView struct {
	ID          uuid.UUID  `json:"id"`
	Name        string     `json:"name"`
	LastName    string     `json:"last_name"`
	Email       string     `json:"email"`
	Phone       *string    `json:"phone,omitempty"`
	Role        store.Role `json:"role"`
	IsActive    bool       `json:"is_active"`
	LastLoginAt *time.Time `json:"last_login_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

func newUserView(u *store.User) userView {
	return userView{
		ID:          u.ID,
		Name:        u.Name,
		LastName:    u.LastName,
		Email:       u.Email,
		Phone:       u.Phone,
		Role:        u.Role,
		IsActive:    u.IsActive,
		LastLoginAt: u.LastLoginAt,
		CreatedAt:   u.CreatedAt,
		UpdatedAt:   u.UpdatedAt,
	}
}

type sessionView struct {
	ID            uuid.UUID           `json:"id"`
	PatientID     uuid.UUID           `json:"patient_id"`
	DoctorID      uuid.UUID           `json:"doctor_id"`
	StartTime     time.Time           `json:"start_time"`
	EndTime       time.Time           `json:"end_time"`
	Status        store.SessionStatus `json:"status"`
	RoomName      *string             `json:"room_name,omitempty"`
	JoinToken     *string             `json:"join_token,omitempty"`
	HasTranscript bool                `json:"has_transcript"`
	CreatedAt     time.Time           `json:"created_at"`
	UpdatedAt     time.Time           `json:"updated_at"`
}

func newSessionView(s *store.Session) sessionView {
	return sessionView{
		ID:            s.ID,
		PatientID:     s.PatientID,
		DoctorID:      s.DoctorID,
		StartTime:     s.StartTime,
		EndTime:       s.EndTime,
		Status:        s.Status,
		RoomName:      s.RoomName,
		JoinToken:     s.JoinToken,
		HasTranscript: deref(s.Transcript) != "" || deref(s.TranscriptKey) != "",
		CreatedAt:     s.CreatedAt,
		UpdatedAt:     s.UpdatedAt,
	}
}

type profileView struct {
	ID             uuid.UUID `json:"id"`
	UserID         uuid.UUID `json:"user_id"`
	Age            int       `json:"age"`
	Gender         string    `json:"gender"`
	Occupation     string    `json:"occupation"`
	EducationLevel string    `json:"education_level"`
	MaritalStatus  string    `json:"marital_status"`
	Notes          *string   `json:"notes,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

func newProfileView(p *store.PatientProfile) profileView {
	return profileView{
		ID:             p.ID,
		UserID:         p.UserID,
		Age:            p.Age,
		Gender:         p.Gender,
		Occupation:     p.Occupation,
		EducationLevel: p.EducationLevel,
		MaritalStatus:  p.MaritalStatus,
		Notes:          p.Notes,
		CreatedAt:      p.CreatedAt,
		UpdatedAt:      p.UpdatedAt,
	}
}

type reportView struct {
	ID               uuid.UUID      `json:"id"`
	SessionID        uuid.UUID      `json:"session_id"`
	Content          map[string]any `json:"content"`
	Summary          *string        `json:"summary,omitempty"`
	DoctorNotes      *string        `json:"doctor_notes,omitempty"`
	NotifiedToDoctor bool           `json:"notified_to_doctor"`
	CreatedAt        time.Time      `json:"created_at"`
	UpdatedAt        time.Time      `json:"updated_at"`
}

func newReportView(r *store.Report) reportView {
	return reportView{
		ID:               r.ID,
		SessionID:        r.SessionID,
		Content:          r.Content,
		Summary:          r.Summary,
		DoctorNotes:      r.DoctorNotes,
		NotifiedToDoctor: r.NotifiedToDoctor,
		CreatedAt:        r.CreatedAt,
		UpdatedAt:        r.UpdatedAt,
	}
}

type notificationView struct {
	ID        uuid.UUID `json:"id"`
	Type      string    `json:"type"`
	Message   string    `json:"message"`
	IsRead    bool      `json:"is_read"`
	CreatedAt time.Time `json:"created_at"`
}

func newNotificationView(n *store.Notification) notificationView {
	return notificationView{
		ID:        n.ID,
		Type:      n.Type,
		Message:   n.Message,
		IsRead:    n.IsRead,
		CreatedAt: n.CreatedAt,
	}
}

type actionLogView struct {
	ID         uuid.UUID `json:"id"`
	UserID     uuid.UUID `json:"user_id"`
	ActionType string    `json:"action_type"`
	TargetID   string    `json:"target_id,omitempty"`
	Details    string    `json:"details,omitempty"`
	Timestamp  time.Time `json:"timestamp"`
}

func newActionLogView(l *store.ActionLog) actionLogView {
	return actionLogView{
		ID:         l.ID,
		UserID:     l.UserID,
		ActionType: l.ActionType,
		TargetID:   l.TargetID,
		Details:    l.Details,
		Timestamp:  l.Timestamp,
	}
}

func views[T, V any](items []*T, fn func(*T) V) []V {
	out := make([]V, 0, len(items))
	for _, it := range items {
		out = append(out, fn(it))
	}
	return out
}
