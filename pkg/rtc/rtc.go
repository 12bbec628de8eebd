// Package rtc is the HTTP client of the real-time media service that creates
// rooms and issues participant tokens.
package rtc

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/Alijeyrad/mindcare_backend/config"
	"github.com/Alijeyrad/mindcare_backend/pkg/observability"
)

var (
	ErrRoomRequired       = errors.New("rtc: room name is required")
	ErrProviderRejected   = errors.New("rtc: provider rejected the request")
	ErrUnexpectedResponse = errors.New("rtc: unexpected response from provider")
)

// ConnectionDetails is what a participant needs to enter a room.
type ConnectionDetails struct {
	ServerURL        string `json:"serverUrl"`
	RoomName         string `json:"roomName"`
	ParticipantName  string `json:"participantName"`
	ParticipantToken string `json:"participantToken"`
}

// RoomOptions tunes room creation.
type RoomOptions struct {
	MaxParticipants int
	EmptyTimeout    time.Duration
}

// Client talks to the room provider. It is safe for concurrent use.
type Client struct {
	baseURL    string
	apiKey     string
	timeout    time.Duration
	httpClient *http.Client
}

// New creates a Client from config.
func New(cfg config.RoomProviderConfig) *Client {
	timeout := time.Duration(cfg.TimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:     cfg.APIKey,
		timeout:    timeout,
		httpClient: &http.Client{},
	}
}

// Timeout is the upper bound callers should put on a single provider call.
func (c *Client) Timeout() time.Duration { return c.timeout }

// ConnectionDetails asks the provider for a token granting identity access
// to room.
func (c *Client) ConnectionDetails(ctx context.Context, room, identity, name string) (*ConnectionDetails, error) {
	if room == "" {
		return nil, ErrRoomRequired
	}
	if name == "" {
		name = identity
	}

	body := map[string]string{
		"room":     room,
		"identity": identity,
		"name":     name,
	}

	var out ConnectionDetails
	if err := c.post(ctx, "/getConnectionDetails", body, &out); err != nil {
		return nil, fmt.Errorf("rtc connection details: %w", err)
	}
	if out.ParticipantToken == "" || out.ServerURL == "" {
		return nil, fmt.Errorf("%w: missing token or server url", ErrUnexpectedResponse)
	}
	if out.RoomName == "" {
		out.RoomName = room
	}
	return &out, nil
}

// CreateRoom provisions a room ahead of the first join.
func (c *Client) CreateRoom(ctx context.Context, room string, opts RoomOptions) error {
	if room == "" {
		return ErrRoomRequired
	}
	body := map[string]any{
		"room":             room,
		"max_participants": opts.MaxParticipants,
		"empty_timeout":    int(opts.EmptyTimeout / time.Second),
	}
	if err := c.post(ctx, "/createRoom", body, nil); err != nil {
		return fmt.Errorf("rtc create room: %w", err)
	}
	return nil
}

// post sends a JSON POST request to baseURL+path and decodes the JSON
// response into out when out is non-nil.
func (c *Client) post(ctx context.Context, path string, body any, out any) error {
	b, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(b))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}
	observability.InjectHeaders(ctx, req.Header)

	res, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("do request: %w", err)
	}
	defer res.Body.Close()

	if res.StatusCode < 200 || res.StatusCode > 299 {
		return fmt.Errorf("%w: status %d: %s", ErrProviderRejected, res.StatusCode, providerMessage(res.Body))
	}
	if out == nil {
		_, _ = io.Copy(io.Discard, res.Body)
		return nil
	}
	if err := json.NewDecoder(res.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: decode: %v", ErrUnexpectedResponse, err)
	}
	return nil
}

// providerMessage extracts {"error": "..."} from an error body, falling back
// to the raw text.
func providerMessage(r io.Reader) string {
	raw, _ := io.ReadAll(io.LimitReader(r, 4096))
	var e struct {
		Error string `json:"error"`
	}
	if json.Unmarshal(raw, &e) == nil && e.Error != "" {
		return e.Error
	}
	if s := strings.TrimSpace(string(raw)); s != "" {
		return s
	}
	return "no message"
}
