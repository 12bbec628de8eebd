package email

import (
	"context"
	"crypto/tls"
	"fmt"

	"gopkg.in/gomail.v2"

	"github.com/Alijeyrad/mindcare_backend/config"
)

type Client struct {
	cfg    Config
	dialer *gomail.Dialer
}

func NewFromCentral(cfg config.EmailConfig, domain string) (*Client, error) {
	return New(FromCentralConfig(cfg, domain))
}

func New(cfg Config) (*Client, error) {
	if cfg.Enabled && (cfg.SMTPHost == "" || cfg.From == "") {
		return nil, fmt.Errorf("email: smtp host and from address are required when enabled")
	}
	if cfg.SMTPTimeout <= 0 {
		cfg.SMTPTimeout = DefaultConfig().SMTPTimeout
	}

	d := gomail.NewDialer(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUsername, cfg.SMTPPassword)
	d.SSL = cfg.SMTPUseTLS
	d.TLSConfig = &tls.Config{ServerName: cfg.SMTPHost, MinVersion: tls.VersionTLS12}
	return &Client{cfg: cfg, dialer: d}, nil
}

// Enabled reports whether Send actually delivers mail.
func (c *Client) Enabled() bool { return c.cfg.Enabled }

func (c *Client) Config() Config { return c.cfg }

// Send delivers m over a fresh SMTP connection. gomail cannot be cancelled,
// so on timeout the dial keeps running in the background and its result is
// dropped.
func (c *Client) Send(ctx context.Context, m Message) error {
	if !c.cfg.Enabled {
		return ErrDisabled
	}
	msg, err := buildMessage(c.cfg.From, m)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, c.cfg.SMTPTimeout)
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- c.dialer.DialAndSend(msg) }()

	select {
	case err := <-done:
		if err != nil {
			return fmt.Errorf("%w: %w", ErrSend, err)
		}
		return nil
	case <-ctx.Done():
		return fmt.Errorf("%w: %w", ErrSend, ctx.Err())
	}
}
