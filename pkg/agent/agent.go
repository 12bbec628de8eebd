// Package agent dispatches the AI conversation worker into a session room.
package agent

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
	ErrRoomRequired    = errors.New("agent: room name is required")
	ErrProfileRequired = errors.New("agent: profile is required")
	ErrRejected        = errors.New("agent: dispatcher rejected the request")
)

// Profile is the patient context handed to the worker.
type Profile struct {
	Age            int    `json:"age"`
	Gender         string `json:"gender"`
	Occupation     string `json:"occupation"`
	EducationLevel string `json:"education_level"`
	MaritalStatus  string `json:"marital_status"`
	Notes          string `json:"notes,omitempty"`
}

// Dispatch is one connectAgent request.
type Dispatch struct {
	Room     string   `json:"room"`
	Identity string   `json:"identity"`
	Profile  *Profile `json:"profile"`
}

type Client struct {
	baseURL    string
	apiKey     string
	timeout    time.Duration
	httpClient *http.Client
}

func New(cfg config.AgentDispatcherConfig) *Client {
	timeout := time.Duration(cfg.TimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Client{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:     cfg.APIKey,
		timeout:    timeout,
		httpClient: &http.Client{},
	}
}

// Timeout bounds a single dispatch.
func (c *Client) Timeout() time.Duration { return c.timeout }

// Connect asks the dispatcher to attach a worker to d.Room. Any 2xx counts
// as accepted; the response body is ignored.
func (c *Client) Connect(ctx context.Context, d Dispatch) error {
	if d.Room == "" {
		return ErrRoomRequired
	}
	if d.Profile == nil {
		return ErrProfileRequired
	}

	b, err := json.Marshal(d)
	if err != nil {
		return fmt.Errorf("agent: marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/connectAgent", bytes.NewReader(b))
	if err != nil {
		return fmt.Errorf("agent: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}
	observability.InjectHeaders(ctx, req.Header)

	res, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("agent: do request: %w", err)
	}
	defer res.Body.Close()

	raw, _ := io.ReadAll(io.LimitReader(res.Body, 4096))
	if res.StatusCode < 200 || res.StatusCode > 299 {
		return fmt.Errorf("%w: status %d: %s", ErrRejected, res.StatusCode, strings.TrimSpace(string(raw)))
	}
	return nil
}
