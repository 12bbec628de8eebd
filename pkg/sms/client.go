package sms

import (
	"context"
	"errors"
	"fmt"

	"github.com/Alijeyrad/mindcare_backend/config"
	"github.com/arsmn/go-smsir/smsir"
)

var ErrMissingRecipient = errors.New("phone number is required")

// Client provides SMS sending functionality via sms.ir.
type Client struct {
	client     *smsir.Client
	templateID string
	enabled    bool
}

// NewFromConfig creates a new SMS client from the application configuration.
// If SMS is disabled, returns a client that no-ops on all operations.
func NewFromConfig(cfg config.SMSConfig) (*Client, error) {
	if !cfg.Enabled {
		return &Client{enabled: false}, nil
	}

	if cfg.SMSIR.APIKey == "" {
		return nil, fmt.Errorf("sms.ir API key required when SMS enabled")
	}
	if cfg.SMSIR.TemplateID == "" {
		return nil, fmt.Errorf("sms.ir template id required when SMS enabled")
	}

	client := smsir.NewClient().WithAuthentication(cfg.SMSIR.APIKey, cfg.SMSIR.SecretKey)

	return &Client{
		client:     client,
		templateID: cfg.SMSIR.TemplateID,
		enabled:    true,
	}, nil
}

// SessionUpdate is the payload of the session notification template. The
// template must declare the parameters "name", "event" and "time".
type SessionUpdate struct {
	RecipientName string
	Event         string
	StartTime     string
}

// SendSessionUpdate notifies a user about a change to one of their sessions.
// If SMS is disabled, this is a no-op and returns nil.
func (c *Client) SendSessionUpdate(ctx context.Context, phoneNumber string, u SessionUpdate) error {
	if !c.enabled {
		return nil
	}
	if phoneNumber == "" {
		return ErrMissingRecipient
	}

	req := &smsir.UltraFastSendRequest{
		Mobile:     phoneNumber,
		TemplateID: c.templateID,
		Parameters: []smsir.UltraFastParameter{
			{Key: "name", Value: u.RecipientName},
			{Key: "event", Value: u.Event},
			{Key: "time", Value: u.StartTime},
		},
	}

	if _, err := c.client.Verification.UltraFastSend(ctx, req); err != nil {
		return fmt.Errorf("sms.ir send failed: %w", err)
	}
	return nil
}

// IsEnabled returns whether SMS sending is enabled.
func (c *Client) IsEnabled() bool {
	return c.enabled
}
