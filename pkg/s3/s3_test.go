package s3

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Alijeyrad/mindcare_backend/config"
)

// fakeBucket is a tiny path-style object store.
type fakeBucket struct {
	mu      sync.Mutex
	objects map[string][]byte
}

func (f *fakeBucket) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	switch r.Method {
	case http.MethodPut:
		b, _ := io.ReadAll(r.Body)
		f.objects[r.URL.Path] = b
		w.WriteHeader(http.StatusOK)
	case http.MethodGet:
		b, ok := f.objects[r.URL.Path]
		if !ok {
			w.Header().Set("Content-Type", "application/xml")
			w.WriteHeader(http.StatusNotFound)
			_, _ = io.WriteString(w, `<?xml version="1.0" encoding="UTF-8"?><Error><Code>NoSuchKey</Code><Message>missing</Message></Error>`)
			return
		}
		_, _ = w.Write(b)
	case http.MethodDelete:
		delete(f.objects, r.URL.Path)
		w.WriteHeader(http.StatusNoContent)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func newTestClient(t *testing.T) (*Client, *fakeBucket) {
	t.Helper()
	fb := &fakeBucket{objects: map[string][]byte{}}
	srv := httptest.NewServer(fb)
	t.Cleanup(srv.Close)

	c, err := New(config.S3Config{
		Enabled:         true,
		Endpoint:        srv.URL,
		Region:          "us-east-1",
		AccessKeyID:     "test",
		SecretAccessKey: "test",
		Bucket:          "mindcare",
		PresignTTLSec:   60,
	})
	require.NoError(t, err)
	return c, fb
}

func TestDisabledClient(t *testing.T) {
	c, err := New(config.S3Config{})
	require.NoError(t, err)
	assert.False(t, c.Enabled())

	_, err = c.PutTranscript(context.Background(), "s1", "hello")
	assert.ErrorIs(t, err, ErrDisabled)
	_, err = c.PresignDownload(context.Background(), "k")
	assert.ErrorIs(t, err, ErrDisabled)
}

func TestNewRequiresBucket(t *testing.T) {
	_, err := New(config.S3Config{Enabled: true})
	require.Error(t, err)
}

func TestTranscriptRoundTrip(t *testing.T) {
	c, fb := newTestClient(t)
	ctx := context.Background()

	key, err := c.PutTranscript(ctx, "abc", "doctor: hello\npatient: hi")
	require.NoError(t, err)
	assert.Equal(t, "transcripts/abc.txt", key)

	fb.mu.Lock()
	_, stored := fb.objects["/mindcare/transcripts/abc.txt"]
	fb.mu.Unlock()
	assert.True(t, stored)

	got, err := c.Download(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, "doctor: hello\npatient: hi", string(got))

	require.NoError(t, c.Delete(ctx, key))
	_, err = c.Download(ctx, key)
	assert.ErrorIs(t, err, ErrObjectNotFound)
}

func TestPresignDownload(t *testing.T) {
	c, _ := newTestClient(t)

	u, err := c.PresignDownload(context.Background(), TranscriptKey("abc"))
	require.NoError(t, err)
	assert.True(t, strings.Contains(u, "/mindcare/transcripts/abc.txt"))
	assert.Contains(t, u, "X-Amz-Signature=")
	assert.Contains(t, u, "X-Amz-Expires=60")
}
