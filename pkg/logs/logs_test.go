package logs

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Alijeyrad/mindcare_backend/config"
)

func TestRedact(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{ReplaceAttr: redact}))

	logger.Info("join", "session_id", "s-1", "join_token", "secret-token", "Password", "hunter2")

	var out map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &out))
	assert.Equal(t, "s-1", out["session_id"])
	assert.Equal(t, redacted, out["join_token"])
	assert.Equal(t, redacted, out["Password"])
}

func TestMultiHandler_RespectsLevels(t *testing.T) {
	var debugBuf, warnBuf bytes.Buffer
	h := &multiHandler{handlers: []slog.Handler{
		slog.NewTextHandler(&debugBuf, &slog.HandlerOptions{Level: slog.LevelDebug}),
		slog.NewTextHandler(&warnBuf, &slog.HandlerOptions{Level: slog.LevelWarn}),
	}}
	logger := slog.New(h).With("component", "test")

	logger.Debug("quiet")
	logger.Warn("loud")

	assert.Contains(t, debugBuf.String(), "quiet")
	assert.Contains(t, debugBuf.String(), "loud")
	assert.NotContains(t, warnBuf.String(), "quiet")
	assert.Contains(t, warnBuf.String(), "component=test")
	assert.True(t, h.Enabled(context.Background(), slog.LevelDebug))
}

func TestLokiWriter_PushesStream(t *testing.T) {
	var got lokiPush
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/loki/api/v1/push", r.URL.Path)
		body, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(body, &got)
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	cfg := &config.Config{}
	cfg.Server.Environment = "test"
	cfg.Logging.Output.Loki.Endpoint = srv.URL + "/"

	n, err := newLokiWriter(cfg).Write([]byte("{\"msg\":\"hello\"}\n"))
	require.NoError(t, err)
	assert.Equal(t, 16, n)
	require.Len(t, got.Streams, 1)
	assert.Equal(t, "mindcare", got.Streams[0].Stream["service"])
	assert.Equal(t, `{"msg":"hello"}`, got.Streams[0].Values[0][1])
}

func TestParseLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"debug": slog.LevelDebug,
		"WARN":  slog.LevelWarn,
		"error": slog.LevelError,
		"":      slog.LevelInfo,
	}
	for in, want := range tests {
		if got := parseLevel(in); got != want {
			t.Errorf("parseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}
