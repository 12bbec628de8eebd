package rtc

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Alijeyrad/mindcare_backend/config"
)

func newClient(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return New(config.RoomProviderConfig{BaseURL: srv.URL + "/", APIKey: "k", TimeoutSeconds: 2})
}

func TestConnectionDetails(t *testing.T) {
	var got map[string]string
	c := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/getConnectionDetails", r.URL.Path)
		assert.Equal(t, "Bearer k", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_ = json.NewEncoder(w).Encode(map[string]string{
			"serverUrl":        "wss://rtc.test",
			"roomName":         got["room"],
			"participantName":  got["name"],
			"participantToken": "tok",
		})
	})

	d, err := c.ConnectionDetails(context.Background(), "session-1", "patient-1", "")
	require.NoError(t, err)
	assert.Equal(t, "wss://rtc.test", d.ServerURL)
	assert.Equal(t, "session-1", d.RoomName)
	assert.Equal(t, "tok", d.ParticipantToken)
	assert.Equal(t, "patient-1", got["name"])
	assert.Equal(t, 2*time.Second, c.Timeout())
}

func TestConnectionDetailsProviderError(t *testing.T) {
	c := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":"room required"}`))
	})

	_, err := c.ConnectionDetails(context.Background(), "session-1", "patient-1", "p")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrProviderRejected)
	assert.Contains(t, err.Error(), "room required")
}

func TestConnectionDetailsMissingToken(t *testing.T) {
	c := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"serverUrl":"wss://rtc.test"}`))
	})

	_, err := c.ConnectionDetails(context.Background(), "session-1", "patient-1", "p")
	assert.ErrorIs(t, err, ErrUnexpectedResponse)
}

func TestConnectionDetailsHonoursDeadline(t *testing.T) {
	release := make(chan struct{})
	c := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		<-release
	})
	defer close(release)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := c.ConnectionDetails(ctx, "session-1", "patient-1", "p")
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.DeadlineExceeded))
}

func TestCreateRoom(t *testing.T) {
	var got map[string]any
	c := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/createRoom", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusCreated)
	})

	err := c.CreateRoom(context.Background(), "session-1", RoomOptions{MaxParticipants: 2, EmptyTimeout: 5 * time.Minute})
	require.NoError(t, err)
	assert.Equal(t, "session-1", got["room"])
	assert.EqualValues(t, 2, got["max_participants"])
	assert.EqualValues(t, 300, got["empty_timeout"])
}

func TestRoomRequired(t *testing.T) {
	c := New(config.RoomProviderConfig{BaseURL: "http://unused"})
	_, err := c.ConnectionDetails(context.Background(), "", "x", "")
	assert.ErrorIs(t, err, ErrRoomRequired)
	assert.ErrorIs(t, c.CreateRoom(context.Background(), "", RoomOptions{}), ErrRoomRequired)
}
