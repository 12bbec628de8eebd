package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Alijeyrad/mindcare_backend/internal/service/caller"
	"github.com/Alijeyrad/mindcare_backend/internal/service/session"
	"github.com/Alijeyrad/mindcare_backend/internal/store"
	pasetotoken "github.com/Alijeyrad/mindcare_backend/pkg/paseto"
	"github.com/Alijeyrad/mindcare_backend/pkg/reqctx"
)

type fakeSessionService struct {
	session.Service

	joinRes *session.JoinResult
	err     error

	gotCaller caller.Caller
	gotCreate session.CreateRequest
	gotID     uuid.UUID
}

func (f *fakeSessionService) Join(_ context.Context, sessionID, patientID uuid.UUID) (*session.JoinResult, error) {
	f.gotID = sessionID
	f.gotCaller = caller.Caller{ID: patientID}
	if f.err != nil {
		return nil, f.err
	}
	return f.joinRes, nil
}

func (f *fakeSessionService) Create(_ context.Context, c caller.Caller, req session.CreateRequest) (*store.Session, error) {
	f.gotCaller, f.gotCreate = c, req
	if f.err != nil {
		return nil, f.err
	}
	return &store.Session{
		ID:        uuid.New(),
		PatientID: c.ID,
		DoctorID:  req.DoctorID,
		StartTime: req.StartTime,
		EndTime:   req.EndTime,
		Status:    store.StatusPending,
	}, nil
}

func (f *fakeSessionService) Accept(_ context.Context, c caller.Caller, id uuid.UUID) (*store.Session, error) {
	f.gotCaller, f.gotID = c, id
	return nil, f.err
}

// withClaims plays the part of the auth middleware.
func withClaims(userID uuid.UUID, role store.Role) fiber.Handler {
	return func(c fiber.Ctx) error {
		claims := &pasetotoken.Claims{
			Type:      pasetotoken.TokenTypeAccess,
			UserID:    userID,
			Role:      string(role),
			ExpiresAt: time.Now().Add(time.Hour),
		}
		c.SetContext(reqctx.WithClaims(c.Context(), claims))
		return c.Next()
	}
}

func newSessionApp(svc session.Service, mw ...fiber.Handler) *fiber.App {
	app := fiber.New(fiber.Config{ErrorHandler: ErrorHandler})
	for _, h := range mw {
		app.Use(h)
	}
	h := NewSessionHandler(svc)
	app.Post("/sessions", h.Create)
	app.Post("/sessions/:id/join", h.Join)
	app.Patch("/sessions/:id/accept", h.Accept)
	return app
}

type errorBody struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	var out T
	require.NoError(t, json.Unmarshal(raw, &out), string(raw))
	return out
}

func TestJoinReturnsConnectionDetails(t *testing.T) {
	patientID, sessionID := uuid.New(), uuid.New()
	svc := &fakeSessionService{joinRes: &session.JoinResult{
		RoomName:  session.RoomName(sessionID),
		JoinToken: "tok-123",
		ServerURL: "wss://rtc.example.test",
		SessionID: sessionID,
	}}
	app := newSessionApp(svc, withClaims(patientID, store.RolePatient))

	resp, err := app.Test(httptest.NewRequest(fiber.MethodPost, "/sessions/"+sessionID.String()+"/join", nil))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	body := decode[struct {
		Data struct {
			RoomName  string    `json:"room_name"`
			JoinToken string    `json:"join_token"`
			ServerURL string    `json:"server_url"`
			SessionID uuid.UUID `json:"session_id"`
		} `json:"data"`
	}](t, resp)
	assert.Equal(t, "session-"+sessionID.String(), body.Data.RoomName)
	assert.Equal(t, "tok-123", body.Data.JoinToken)
	assert.Equal(t, "wss://rtc.example.test", body.Data.ServerURL)
	assert.Equal(t, sessionID, body.Data.SessionID)

	assert.Equal(t, sessionID, svc.gotID)
	assert.Equal(t, patientID, svc.gotCaller.ID)
}

func TestJoinErrorMapping(t *testing.T) {
	cases := []struct {
		name    string
		err     error
		status  int
		code    string
		message string
	}{
		{"missing session", session.ErrSessionNotFound, fiber.StatusNotFound, codeNotFound, ""},
		{"missing profile", session.ErrProfileNotFound, fiber.StatusNotFound, codeProfileNotFound, ""},
		{"not the patient", session.ErrUnauthorized, fiber.StatusForbidden, codeForbidden, ""},
		{"not accepted", fmt.Errorf("%w: session is pending", session.ErrInvalidState), fiber.StatusConflict, codeInvalidState, ""},
		{
			"provider timeout",
			fmt.Errorf("%w: %w", session.ErrRoomProvisioningFailed, context.DeadlineExceeded),
			fiber.StatusGatewayTimeout, codeUpstreamTimeout, "deadline exceeded",
		},
		{
			"provider failure",
			fmt.Errorf("%w: %w", session.ErrRoomProvisioningFailed, fmt.Errorf("status 503: room quota exceeded")),
			fiber.StatusBadGateway, codeUpstream, "status 503: room quota exceeded",
		},
		{"unexpected", fmt.Errorf("boom"), fiber.StatusInternalServerError, codeInternal, ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			app := newSessionApp(&fakeSessionService{err: tc.err}, withClaims(uuid.New(), store.RolePatient))

			resp, err := app.Test(httptest.NewRequest(fiber.MethodPost, "/sessions/"+uuid.NewString()+"/join", nil))
			require.NoError(t, err)
			assert.Equal(t, tc.status, resp.StatusCode)

			body := decode[errorBody](t, resp)
			assert.Equal(t, tc.code, body.Code)
			assert.NotEmpty(t, body.Error)
			if tc.message != "" {
				assert.Contains(t, body.Error, session.ErrRoomProvisioningFailed.Error())
				assert.Contains(t, body.Error, tc.message)
			}
		})
	}
}

func TestJoinRequiresCaller(t *testing.T) {
	app := newSessionApp(&fakeSessionService{})

	resp, err := app.Test(httptest.NewRequest(fiber.MethodPost, "/sessions/"+uuid.NewString()+"/join", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
}

func TestJoinRejectsMalformedID(t *testing.T) {
	app := newSessionApp(&fakeSessionService{}, withClaims(uuid.New(), store.RolePatient))

	resp, err := app.Test(httptest.NewRequest(fiber.MethodPost, "/sessions/not-a-uuid/join", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
}

func TestCreateSession(t *testing.T) {
	patientID, doctorID := uuid.New(), uuid.New()
	start := time.Date(2026, 11, 2, 10, 0, 0, 0, time.UTC)

	t.Run("books for the caller", func(t *testing.T) {
		svc := &fakeSessionService{}
		app := newSessionApp(svc, withClaims(patientID, store.RolePatient))

		payload := fmt.Sprintf(`{"doctor_id":%q,"start_time":%q,"end_time":%q}`,
			doctorID, start.Format(time.RFC3339), start.Add(time.Hour).Format(time.RFC3339))
		req := httptest.NewRequest(fiber.MethodPost, "/sessions", strings.NewReader(payload))
		req.Header.Set("Content-Type", "application/json")

		resp, err := app.Test(req)
		require.NoError(t, err)
		require.Equal(t, fiber.StatusCreated, resp.StatusCode)

		assert.Equal(t, patientID, svc.gotCaller.ID)
		assert.Equal(t, store.RolePatient, svc.gotCaller.Role)
		assert.Equal(t, doctorID, svc.gotCreate.DoctorID)
		assert.Equal(t, uuid.Nil, svc.gotCreate.PatientID)
		assert.True(t, start.Equal(svc.gotCreate.StartTime))

		body := decode[struct {
			Data struct {
				Status        store.SessionStatus `json:"status"`
				HasTranscript bool                `json:"has_transcript"`
			} `json:"data"`
		}](t, resp)
		assert.Equal(t, store.StatusPending, body.Data.Status)
		assert.False(t, body.Data.HasTranscript)
	})

	t.Run("doctor books themselves", func(t *testing.T) {
		svc := &fakeSessionService{}
		app := newSessionApp(svc, withClaims(doctorID, store.RoleDoctor))

		payload := fmt.Sprintf(`{"patient_id":%q,"start_time":%q,"end_time":%q}`,
			patientID, start.Format(time.RFC3339), start.Add(time.Hour).Format(time.RFC3339))
		req := httptest.NewRequest(fiber.MethodPost, "/sessions", strings.NewReader(payload))
		req.Header.Set("Content-Type", "application/json")

		resp, err := app.Test(req)
		require.NoError(t, err)
		require.Equal(t, fiber.StatusCreated, resp.StatusCode)

		assert.Equal(t, doctorID, svc.gotCaller.ID)
		assert.Equal(t, uuid.Nil, svc.gotCreate.DoctorID)
		assert.Equal(t, patientID, svc.gotCreate.PatientID)
	})

	t.Run("bad doctor id", func(t *testing.T) {
		app := newSessionApp(&fakeSessionService{}, withClaims(patientID, store.RolePatient))
		req := httptest.NewRequest(fiber.MethodPost, "/sessions", strings.NewReader(`{"doctor_id":"x"}`))
		req.Header.Set("Content-Type", "application/json")

		resp, err := app.Test(req)
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
	})

	t.Run("invalid window", func(t *testing.T) {
		app := newSessionApp(&fakeSessionService{err: session.ErrInvalidWindow}, withClaims(patientID, store.RolePatient))
		payload := fmt.Sprintf(`{"doctor_id":%q}`, doctorID)
		req := httptest.NewRequest(fiber.MethodPost, "/sessions", strings.NewReader(payload))
		req.Header.Set("Content-Type", "application/json")

		resp, err := app.Test(req)
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
	})
}

func TestAcceptConflict(t *testing.T) {
	doctorID, sessionID := uuid.New(), uuid.New()
	svc := &fakeSessionService{err: fmt.Errorf("%w: session is canceled", session.ErrInvalidState)}
	app := newSessionApp(svc, withClaims(doctorID, store.RoleDoctor))

	resp, err := app.Test(httptest.NewRequest(fiber.MethodPatch, "/sessions/"+sessionID.String()+"/accept", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusConflict, resp.StatusCode)
	assert.Equal(t, codeInvalidState, decode[errorBody](t, resp).Code)
	assert.Equal(t, doctorID, svc.gotCaller.ID)
	assert.Equal(t, sessionID, svc.gotID)
}

func TestErrorHandlerRendersJSON(t *testing.T) {
	app := fiber.New(fiber.Config{ErrorHandler: ErrorHandler})
	app.Get("/limited", func(c fiber.Ctx) error {
		return fiber.NewError(fiber.StatusTooManyRequests, "slow down")
	})

	resp, err := app.Test(httptest.NewRequest(fiber.MethodGet, "/limited", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusTooManyRequests, resp.StatusCode)

	body := decode[errorBody](t, resp)
	assert.Equal(t, "slow down", body.Error)
	assert.Equal(t, codeTooManyRequests, body.Code)
}
