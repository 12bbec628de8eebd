package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Alijeyrad/mindcare_backend/config"
)

func TestSummarize(t *testing.T) {
	var req struct {
		Model    string `json:"model"`
		Messages []struct {
			Role    string `json:"role"`
			Content string `json:"content"`
		} `json:"messages"`
	}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))
		_ = json.NewDecoder(r.Body).Decode(&req)

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"id": "chatcmpl-1",
			"object": "chat.completion",
			"model": "test-model",
			"choices": [{"index": 0, "message": {"role": "assistant", "content": "  Patient reports poor sleep.  "}, "finish_reason": "stop"}]
		}`))
	}))
	defer srv.Close()

	c := New(config.LLMConfig{Enabled: true, APIKey: "sk-test", BaseURL: srv.URL + "/v1/", Model: "test-model"})
	require.True(t, c.Enabled())

	got, err := c.Summarize(context.Background(), "patient: I can't sleep")
	require.NoError(t, err)
	assert.Equal(t, "Patient reports poor sleep.", got)

	assert.Equal(t, "test-model", req.Model)
	require.Len(t, req.Messages, 2)
	assert.Equal(t, "system", req.Messages[0].Role)
	assert.Equal(t, "patient: I can't sleep", req.Messages[1].Content)
}

func TestSummarizeDisabled(t *testing.T) {
	c := New(config.LLMConfig{})
	_, err := c.Summarize(context.Background(), "x")
	assert.ErrorIs(t, err, ErrDisabled)
}

func TestSummarizeEmptyTranscript(t *testing.T) {
	c := New(config.LLMConfig{Enabled: true, APIKey: "k", BaseURL: "http://unused"})
	_, err := c.Summarize(context.Background(), "   ")
	assert.ErrorIs(t, err, ErrEmptyTranscript)
}

func TestSummarizeAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":{"message":"bad key","type":"invalid_request_error"}}`))
	}))
	defer srv.Close()

	c := New(config.LLMConfig{Enabled: true, APIKey: "k", BaseURL: srv.URL})
	_, err := c.Summarize(context.Background(), "hello")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bad key")
}
