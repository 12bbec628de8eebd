package store

import (
	"context"
	"database/sql/driver"
	"errors"
	"testing"
	"time"

	"entgo.io/ent/dialect"
	entsql "entgo.io/ent/dialect/sql"
	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Alijeyrad/mindcare_backend/pkg/crypto"
)

const testKey = "000102030405060708090a0b0c0d0e0f101112131415161718191a1b1c1d1e1f"

func newMock(t *testing.T, cipher *crypto.FieldCipher) (*Client, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() {
		assert.NoError(t, mock.ExpectationsWereMet())
		_ = db.Close()
	})
	return NewClient(entsql.OpenDB(dialect.Postgres, db), cipher), mock
}

func sessionRow(id, patient, doctor uuid.UUID, status string, room any) *sqlmock.Rows {
	now := time.Now().UTC()
	return sqlmock.NewRows(sessionColumns).AddRow(
		id.String(), patient.String(), doctor.String(), now, now.Add(time.Hour), status,
		room, nil, nil, nil, now, now,
	)
}

func TestSessionGet(t *testing.T) {
	c, mock := newMock(t, nil)
	id, patient, doctor := uuid.New(), uuid.New(), uuid.New()

	mock.ExpectQuery(`(?s)SELECT .* FROM "sessions" WHERE "id" = \$1 LIMIT 1`).
		WithArgs(id).
		WillReturnRows(sessionRow(id, patient, doctor, "active", "session-"+id.String()))

	s, err := c.Sessions.Get(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, StatusActive, s.Status)
	assert.Equal(t, patient, s.PatientID)
	require.NotNil(t, s.RoomName)
	assert.Equal(t, "session-"+id.String(), *s.RoomName)
	assert.Nil(t, s.JoinToken)
}

func TestSessionGetNotFound(t *testing.T) {
	c, mock := newMock(t, nil)
	mock.ExpectQuery(`(?s)SELECT .* FROM "sessions"`).WillReturnRows(sqlmock.NewRows(sessionColumns))

	_, err := c.Sessions.Get(context.Background(), uuid.New())
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSessionGetMalformedStatus(t *testing.T) {
	c, mock := newMock(t, nil)
	id := uuid.New()
	mock.ExpectQuery(`(?s)SELECT .* FROM "sessions"`).
		WillReturnRows(sessionRow(id, uuid.New(), uuid.New(), "archived", nil))

	_, err := c.Sessions.Get(context.Background(), id)
	assert.ErrorIs(t, err, ErrMalformedRecord)
}

func TestSessionCreate(t *testing.T) {
	c, mock := newMock(t, nil)

	mock.ExpectExec(`INSERT INTO "sessions"`).
		WithArgs(sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(),
			"pending", nil, nil, nil, nil, sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	s := &Session{PatientID: uuid.New(), DoctorID: uuid.New(), StartTime: time.Now(), EndTime: time.Now().Add(time.Hour), Status: StatusPending}
	require.NoError(t, c.Sessions.Create(context.Background(), s))
	assert.NotEqual(t, uuid.Nil, s.ID)
	assert.Equal(t, byte(7), s.ID[6]>>4, "ids are uuid v7")
}

func TestSessionUpdateConditional(t *testing.T) {
	id, patient, doctor := uuid.New(), uuid.New(), uuid.New()

	t.Run("transition applied", func(t *testing.T) {
		c, mock := newMock(t, nil)
		mock.ExpectExec(`(?s)UPDATE "sessions" SET .* WHERE "id" = \$\d+ AND "status" IN \(\$\d+\)`).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectQuery(`(?s)SELECT .* FROM "sessions"`).
			WillReturnRows(sessionRow(id, patient, doctor, "active", nil))

		active := StatusActive
		s, err := c.Sessions.Update(context.Background(), id, SessionUpdate{Status: &active}, StatusPending)
		require.NoError(t, err)
		assert.Equal(t, StatusActive, s.Status)
	})

	t.Run("lost race", func(t *testing.T) {
		c, mock := newMock(t, nil)
		mock.ExpectExec(`(?s)UPDATE "sessions"`).WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectQuery(`(?s)SELECT .* FROM "sessions"`).
			WillReturnRows(sessionRow(id, patient, doctor, "canceled", nil))

		active := StatusActive
		s, err := c.Sessions.Update(context.Background(), id, SessionUpdate{Status: &active}, StatusPending)
		assert.ErrorIs(t, err, ErrStaleState)
		require.NotNil(t, s)
		assert.Equal(t, StatusCanceled, s.Status)
	})

	t.Run("missing row", func(t *testing.T) {
		c, mock := newMock(t, nil)
		mock.ExpectExec(`(?s)UPDATE "sessions"`).WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectQuery(`(?s)SELECT .* FROM "sessions"`).WillReturnRows(sqlmock.NewRows(sessionColumns))

		active := StatusActive
		_, err := c.Sessions.Update(context.Background(), id, SessionUpdate{Status: &active}, StatusPending)
		assert.ErrorIs(t, err, ErrNotFound)
	})
}

func TestSessionList(t *testing.T) {
	c, mock := newMock(t, nil)
	patient := uuid.New()
	id := uuid.New()

	mock.ExpectQuery(`(?s)SELECT COUNT\(\*\) FROM "sessions" WHERE "patient_id" = \$1`).
		WithArgs(patient).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))
	mock.ExpectQuery(`(?s)SELECT .* FROM "sessions" WHERE "patient_id" = \$1 ORDER BY "start_time" DESC LIMIT 20`).
		WithArgs(patient).
		WillReturnRows(sessionRow(id, patient, uuid.New(), "pending", nil))

	items, total, err := c.Sessions.List(context.Background(), SessionFilter{PatientID: &patient})
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	require.Len(t, items, 1)
	assert.Equal(t, id, items[0].ID)
}

func TestUserCreateConflict(t *testing.T) {
	c, mock := newMock(t, nil)
	mock.ExpectExec(`INSERT INTO "users"`).
		WillReturnError(&pq.Error{Code: "23505", Constraint: "users_email_key"})

	err := c.Users.Create(context.Background(), &User{Name: "A", Email: "A@Example.com", PasswordHash: "h", Role: RolePatient, IsActive: true})
	assert.ErrorIs(t, err, ErrConflict)
}

func TestUserGetByEmailLowercases(t *testing.T) {
	c, mock := newMock(t, nil)
	now := time.Now()
	id := uuid.New()

	mock.ExpectQuery(`(?s)SELECT .* FROM "users" WHERE "email" = \$1`).
		WithArgs("a@example.com").
		WillReturnRows(sqlmock.NewRows(userColumns).
			AddRow(id.String(), "A", "B", "a@example.com", nil, "hash", "doctor", true, nil, now, now))

	u, err := c.Users.GetByEmail(context.Background(), "  A@Example.com ")
	require.NoError(t, err)
	assert.Equal(t, RoleDoctor, u.Role)
	assert.Equal(t, "A B", u.FullName())
	assert.Nil(t, u.Phone)
}

func TestUserUpdateRejectsUnknownRole(t *testing.T) {
	c, _ := newMock(t, nil)
	bad := Role("superuser")
	_, err := c.Users.Update(context.Background(), uuid.New(), UserUpdate{Role: &bad})
	assert.ErrorIs(t, err, ErrMalformedRecord)
}

func TestProfileNotesEncryptedAtRest(t *testing.T) {
	cipher, err := crypto.NewFieldCipher(testKey)
	require.NoError(t, err)
	c, mock := newMock(t, cipher)

	var stored string
	mock.ExpectExec(`INSERT INTO "patient_profiles"`).
		WithArgs(sqlmock.AnyArg(), sqlmock.AnyArg(), 30, "female", "student", "bachelor", "single",
			captureString{&stored}, sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	notes := "panic attacks at night"
	p := &PatientProfile{UserID: uuid.New(), Age: 30, Gender: "female", Occupation: "student",
		EducationLevel: "bachelor", MaritalStatus: "single", Notes: &notes}
	require.NoError(t, c.Profiles.Create(context.Background(), p))
	assert.NotEqual(t, notes, stored)
	assert.NotEmpty(t, stored)

	now := time.Now()
	mock.ExpectQuery(`(?s)SELECT .* FROM "patient_profiles" WHERE "user_id" = \$1`).
		WillReturnRows(sqlmock.NewRows(profileColumns).
			AddRow(p.ID.String(), p.UserID.String(), 30, "female", "student", "bachelor", "single", stored, now, now))

	got, err := c.Profiles.GetByUser(context.Background(), p.UserID)
	require.NoError(t, err)
	require.NotNil(t, got.Notes)
	assert.Equal(t, notes, *got.Notes)
}

func TestProfileValidate(t *testing.T) {
	base := func() *PatientProfile {
		return &PatientProfile{UserID: uuid.New(), Age: 40, Gender: "male", Occupation: "employed",
			EducationLevel: "master", MaritalStatus: "married"}
	}
	long := string(make([]rune, MaxProfileNotes+1))

	tests := []struct {
		name   string
		mutate func(p *PatientProfile)
		ok     bool
	}{
		{"valid", func(p *PatientProfile) {}, true},
		{"age upper bound", func(p *PatientProfile) { p.Age = 150 }, true},
		{"age too high", func(p *PatientProfile) { p.Age = 151 }, false},
		{"negative age", func(p *PatientProfile) { p.Age = -1 }, false},
		{"bad gender", func(p *PatientProfile) { p.Gender = "unknown" }, false},
		{"bad occupation", func(p *PatientProfile) { p.Occupation = "retired" }, false},
		{"missing education", func(p *PatientProfile) { p.EducationLevel = "" }, false},
		{"missing marital status", func(p *PatientProfile) { p.MaritalStatus = "" }, false},
		{"notes too long", func(p *PatientProfile) { p.Notes = &long }, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := base()
			tt.mutate(p)
			err := p.Validate()
			if tt.ok {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, ErrMalformedRecord)
			}
		})
	}
}

func TestReportScanRejectsNonObjectContent(t *testing.T) {
	c, mock := newMock(t, nil)
	now := time.Now()
	mock.ExpectQuery(`(?s)SELECT .* FROM "reports"`).
		WillReturnRows(sqlmock.NewRows(reportColumns).
			AddRow(uuid.NewString(), uuid.NewString(), []byte(`[1,2]`), nil, nil, false, now, now))

	_, err := c.Reports.Get(context.Background(), uuid.New())
	assert.ErrorIs(t, err, ErrMalformedRecord)
}

func TestReportListByPatientUsesSubquery(t *testing.T) {
	c, mock := newMock(t, nil)
	patient := uuid.New()
	now := time.Now()

	mock.ExpectQuery(`(?s)SELECT COUNT\(\*\) FROM "reports" WHERE "session_id" IN \(SELECT "id" FROM "sessions" WHERE "patient_id" = \$1\)`).
		WithArgs(patient).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))
	mock.ExpectQuery(`(?s)SELECT .* FROM "reports" WHERE "session_id" IN`).
		WithArgs(patient).
		WillReturnRows(sqlmock.NewRows(reportColumns).
			AddRow(uuid.NewString(), uuid.NewString(), []byte(`{"overview":{"name":"x"}}`), "s", nil, true, now, now))

	items, total, err := c.Reports.List(context.Background(), ReportFilter{PatientID: &patient})
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	require.Len(t, items, 1)
	assert.Contains(t, items[0].Content, "overview")
}

func TestNotificationMarkReadNotFound(t *testing.T) {
	c, mock := newMock(t, nil)
	mock.ExpectExec(`(?s)UPDATE "notifications" SET .* WHERE "id" = \$\d+ AND "user_id" = \$\d+`).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := c.Notifications.MarkRead(context.Background(), uuid.New(), uuid.New())
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestNotificationCreateTruncates(t *testing.T) {
	c, mock := newMock(t, nil)
	mock.ExpectExec(`INSERT INTO "notifications"`).WillReturnResult(sqlmock.NewResult(0, 1))

	long := make([]rune, MaxNotificationMessage+20)
	for i := range long {
		long[i] = 'x'
	}
	n := &Notification{UserID: uuid.New(), Type: "session_accepted", Message: string(long)}
	require.NoError(t, c.Notifications.Create(context.Background(), n))
	assert.Len(t, n.Message, MaxNotificationMessage)
}

func TestActionLogListFilters(t *testing.T) {
	c, mock := newMock(t, nil)
	user := uuid.New()

	mock.ExpectQuery(`(?s)SELECT COUNT\(\*\) FROM "action_logs" WHERE "user_id" = \$1 AND "action_type" = \$2`).
		WithArgs(user, "session_join").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))
	mock.ExpectQuery(`(?s)SELECT .* FROM "action_logs" WHERE .* ORDER BY "timestamp" DESC LIMIT 5 OFFSET 10`).
		WillReturnRows(sqlmock.NewRows(actionLogColumns))

	items, total, err := c.ActionLogs.List(context.Background(), ActionLogFilter{
		UserID:     &user,
		ActionType: "session_join",
		Page:       Page{Limit: 5, Offset: 10},
	})
	require.NoError(t, err)
	assert.Zero(t, total)
	assert.Empty(t, items)
}

func TestPageNormalize(t *testing.T) {
	assert.Equal(t, Page{Limit: DefaultLimit}, Page{}.normalize())
	assert.Equal(t, Page{Limit: MaxLimit, Offset: 0}, Page{Limit: 1000, Offset: -3}.normalize())
}

func TestTranslate(t *testing.T) {
	assert.ErrorIs(t, translate(&pq.Error{Code: "23505"}), ErrConflict)
	assert.ErrorIs(t, translate(&pq.Error{Code: "23503"}), ErrNotFound)
	other := errors.New("boom")
	assert.Equal(t, other, translate(other))
}

// captureString records a string argument passed to the mock.
type captureString struct{ dst *string }

func (c captureString) Match(v driver.Value) bool {
	s, ok := v.(string)
	if ok {
		*c.dst = s
	}
	return ok
}
