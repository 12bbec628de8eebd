package email

import (
	"time"

	"github.com/Alijeyrad/mindcare_backend/config"
)

type Config struct {
	Enabled bool
	From    string

	SMTPHost     string
	SMTPPort     int
	SMTPUsername string
	SMTPPassword string
	// SMTPUseTLS dials implicit TLS (port 465 style). Without it gomail
	// still upgrades with STARTTLS when the server offers it.
	SMTPUseTLS  bool
	SMTPTimeout time.Duration

	// AppName and BaseURL are rendered into templates.
	AppName string
	BaseURL string
}

func DefaultConfig() Config {
	return Config{
		SMTPPort:    587,
		SMTPTimeout: 30 * time.Second,
		AppName:     "MindCare",
	}
}

// FromCentralConfig fills unset values from DefaultConfig. Links in mails
// point at https://<domain>.
func FromCentralConfig(c config.EmailConfig, domain string) Config {
	cfg := DefaultConfig()
	cfg.Enabled = c.Enabled
	cfg.From = c.From
	cfg.SMTPHost = c.SMTP.Host
	cfg.SMTPUsername = c.SMTP.Username
	cfg.SMTPPassword = c.SMTP.Password
	cfg.SMTPUseTLS = c.SMTP.UseTLS
	if c.SMTP.Port > 0 {
		cfg.SMTPPort = c.SMTP.Port
	}
	if c.SMTP.TimeoutSeconds > 0 {
		cfg.SMTPTimeout = time.Duration(c.SMTP.TimeoutSeconds) * time.Second
	}
	if domain != "" {
		cfg.BaseURL = "https://" + domain
	}
	return cfg
}
