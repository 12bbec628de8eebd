package config

import (
	"encoding/hex"
	"errors"
	"fmt"
	"net/url"
	"strings"
)

type Config struct {
	Database        DatabaseConfig        `mapstructure:"database"`
	CasbinDatabase  DatabaseConfig        `mapstructure:"casbin_database"`
	Redis           RedisConfig           `mapstructure:"redis"`
	Server          ServerConfig          `mapstructure:"server"`
	Authentication  AuthenticationConfig  `mapstructure:"authentication"`
	Authorization   AuthorizationConfig   `mapstructure:"authorization"`
	Email           EmailConfig           `mapstructure:"email"`
	SMS             SMSConfig             `mapstructure:"sms"`
	Password        PasswordConfig        `mapstructure:"password"`
	Observability   ObservabilityConfig   `mapstructure:"observability"`
	Logging         LoggingConfig         `mapstructure:"logging"`
	S3              S3Config              `mapstructure:"s3"`
	Nats            NatsConfig            `mapstructure:"nats"`
	RoomProvider    RoomProviderConfig    `mapstructure:"room_provider"`
	AgentDispatcher AgentDispatcherConfig `mapstructure:"agent_dispatcher"`
	Session         SessionConfig         `mapstructure:"session"`
	LLM             LLMConfig             `mapstructure:"llm"`
}

type NatsConfig struct {
	URL string `mapstructure:"url" yaml:"url"`
}

type DatabaseConfig struct {
	Host       string                  `mapstructure:"host"`
	Port       int                     `mapstructure:"port"`
	User       string                  `mapstructure:"user"`
	Password   string                  `mapstructure:"password"`
	DBName     string                  `mapstructure:"dbname"`
	SSLMode    string                  `mapstructure:"sslmode"`
	Pool       DatabasePoolConfig      `mapstructure:"pool"`
	Migrations DatabaseMigrationConfig `mapstructure:"migrations"`
	Logging    DatabaseLoggingConfig   `mapstructure:"logging"`
}

type DatabasePoolConfig struct {
	MaxOpenConns       int `mapstructure:"max_open_conns"`
	MaxIdleConns       int `mapstructure:"max_idle_conns"`
	ConnMaxLifetimeMin int `mapstructure:"conn_max_lifetime_minutes"`
}

type DatabaseMigrationConfig struct {
	AutoMigrate bool `mapstructure:"auto_migrate"`
	SafeMode    bool `mapstructure:"safe_mode"`
}

type DatabaseLoggingConfig struct {
	Enabled              bool `mapstructure:"enabled"`
	SlowQueryThresholdMs int  `mapstructure:"slow_query_threshold_ms"`
}

type RedisConfig struct {
	Addr                string `mapstructure:"addr"`
	DB                  int    `mapstructure:"db"`
	Username            string `mapstructure:"username"`
	Password            string `mapstructure:"password"`
	PoolSize            int    `mapstructure:"pool_size"`
	MinIdleConns        int    `mapstructure:"min_idle_conns"`
	DialTimeoutSeconds  int    `mapstructure:"dial_timeout_seconds"`
	ReadTimeoutSeconds  int    `mapstructure:"read_timeout_seconds"`
	WriteTimeoutSeconds int    `mapstructure:"write_timeout_seconds"`
}

type RateLimitConfig struct {
	RequestsPerMinute int `mapstructure:"requests_per_minute"`
}

type ServerConfig struct {
	Port           int             `mapstructure:"port"`
	TimeoutSeconds int             `mapstructure:"timeout_seconds"`
	Environment    string          `mapstructure:"environment"`
	Domain         string          `mapstructure:"domain"`
	Databases      []string        `mapstructure:"databases"`
	CORS           CORSConfig      `mapstructure:"cors"`
	RateLimit      RateLimitConfig `mapstructure:"rate_limit"`
}

type CORSConfig struct {
	Enabled          bool     `mapstructure:"enabled"`
	AllowOrigins     []string `mapstructure:"allow_origins"`
	AllowMethods     []string `mapstructure:"allow_methods"`
	AllowHeaders     []string `mapstructure:"allow_headers"`
	ExposeHeaders    []string `mapstructure:"expose_headers"`
	AllowCredentials bool     `mapstructure:"allow_credentials"`
	MaxAgeSeconds    int      `mapstructure:"max_age_seconds"`
}

type AuthenticationConfig struct {
	Paseto            PasetoConfig `mapstructure:"paseto"`
	MaxLoginAttempts  int          `mapstructure:"max_login_attempts"`
	LockoutMinutes    int          `mapstructure:"lockout_minutes"`
	CookieSecure      bool         `mapstructure:"cookie_secure"`
	// EncryptionKey is a 32-byte hex string used for AES-256-GCM encryption
	// of patient profile notes.
	EncryptionKey string `mapstructure:"encryption_key"`
}

type PasetoConfig struct {
	Mode             string `mapstructure:"mode"`
	LocalKeyHex      string `mapstructure:"local_key_hex"`
	SecretKeyHex     string `mapstructure:"secret_key_hex"`
	PublicKeyHex     string `mapstructure:"public_key_hex"`
	Issuer           string `mapstructure:"issuer"`
	Audience         string `mapstructure:"audience"`
	AccessTTLMinutes int    `mapstructure:"access_ttl_minutes"`
	RefreshTTLDays   int    `mapstructure:"refresh_ttl_days"`
}

type AuthorizationConfig struct {
	CasbinModelPath    string `mapstructure:"casbin_model_path"`
	EnableAudit        bool   `mapstructure:"enable_audit"`
	SuperadminBypass   bool   `mapstructure:"superadmin_bypass"`
	PolicySyncEnabled  bool   `mapstructure:"policy_sync_enabled"`
	HealthCheckEnabled bool   `mapstructure:"health_check_enabled"`
}

type EmailConfig struct {
	Enabled bool       `mapstructure:"enabled"`
	From    string     `mapstructure:"from"`
	SMTP    SMTPConfig `mapstructure:"smtp"`
}

type SMTPConfig struct {
	Host           string `mapstructure:"host"`
	Port           int    `mapstructure:"port"`
	Username       string `mapstructure:"username"`
	Password       string `mapstructure:"password"`
	UseTLS         bool   `mapstructure:"use_tls"`
	TimeoutSeconds int    `mapstructure:"timeout_seconds"`
}

type SMSConfig struct {
	Enabled       bool        `mapstructure:"enabled"`
	DefaultRegion string      `mapstructure:"default_region"`
	SMSIR         SMSIRConfig `mapstructure:"smsir"`
}

type SMSIRConfig struct {
	APIKey     string `mapstructure:"api_key"`
	SecretKey  string `mapstructure:"secret_key"`
	TemplateID string `mapstructure:"template_id"`
}

type PasswordConfig struct {
	MemoryKiB     uint32 `mapstructure:"memory_kib"`
	Iterations    uint32 `mapstructure:"iterations"`
	Parallelism   uint8  `mapstructure:"parallelism"`
	SaltLength    uint32 `mapstructure:"salt_length"`
	KeyLength     uint32 `mapstructure:"key_length"`
	LowMemoryMode bool   `mapstructure:"low_memory_mode"`
}

type ObservabilityConfig struct {
	Enabled        bool          `mapstructure:"enabled"`
	ServiceName    string        `mapstructure:"service_name"`
	ServiceVersion string        `mapstructure:"service_version"`
	Tracing        TracingConfig `mapstructure:"tracing"`
	Metrics        MetricsConfig `mapstructure:"metrics"`
}

type TracingConfig struct {
	Enabled      bool    `mapstructure:"enabled"`
	OTLPEndpoint string  `mapstructure:"otlp_endpoint"`
	OTLPInsecure bool    `mapstructure:"otlp_insecure"`
	SamplingRate float64 `mapstructure:"sampling_rate"`
}

type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Path    string `mapstructure:"path"`
}

type LoggingConfig struct {
	Level  string       `mapstructure:"level"`  // debug, info, warn, error
	Format string       `mapstructure:"format"` // text, json
	Output OutputConfig `mapstructure:"output"`
}

type OutputConfig struct {
	Stdout bool          `mapstructure:"stdout"`
	File   FileLogConfig `mapstructure:"file"`
	Loki   LokiConfig    `mapstructure:"loki"`
}

type FileLogConfig struct {
	Enabled    bool   `mapstructure:"enabled"`
	Path       string `mapstructure:"path"`        // e.g. "logs/app.log"
	MaxSizeMB  int    `mapstructure:"max_size_mb"` // rotate after N MB
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAgeDays int    `mapstructure:"max_age_days"`
	Compress   bool   `mapstructure:"compress"`
}

type LokiConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Endpoint string `mapstructure:"endpoint"` // e.g. "http://localhost:3100"
	Username string `mapstructure:"username"` // for Grafana Cloud basic auth
	Password string `mapstructure:"password"`
}

type S3Config struct {
	Enabled         bool   `mapstructure:"enabled"`
	Endpoint        string `mapstructure:"endpoint"`
	Region          string `mapstructure:"region"`
	AccessKeyID     string `mapstructure:"access_key_id"`
	SecretAccessKey string `mapstructure:"secret_access_key"`
	Bucket          string `mapstructure:"bucket"`
	PresignTTLSec   int    `mapstructure:"presign_ttl_sec"`
}

// RoomProviderConfig points at the real-time media service that issues
// room connection details.
type RoomProviderConfig struct {
	BaseURL        string `mapstructure:"base_url"`
	APIKey         string `mapstructure:"api_key"`
	TimeoutSeconds int    `mapstructure:"timeout_seconds"`
}

// AgentDispatcherConfig points at the worker that attaches an AI agent to a room.
type AgentDispatcherConfig struct {
	BaseURL        string `mapstructure:"base_url"`
	APIKey         string `mapstructure:"api_key"`
	TimeoutSeconds int    `mapstructure:"timeout_seconds"`
}

type SessionConfig struct {
	EagerProvision          bool `mapstructure:"eager_provision"`
	MaxParticipants         int  `mapstructure:"max_participants"`
	RoomEmptyTimeoutSeconds int  `mapstructure:"room_empty_timeout_seconds"`
	TranscriptMaxBytes      int  `mapstructure:"transcript_max_bytes"`
}

type LLMConfig struct {
	Enabled        bool    `mapstructure:"enabled"`
	APIKey         string  `mapstructure:"api_key"`
	BaseURL        string  `mapstructure:"base_url"`
	Model          string  `mapstructure:"model"`
	Temperature    float32 `mapstructure:"temperature"`
	TimeoutSeconds int     `mapstructure:"timeout_seconds"`
}

func (c *Config) Validate() error {
	var errs []error

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("server.port %d out of range", c.Server.Port))
	}
	if err := validateBaseURL("room_provider.base_url", c.RoomProvider.BaseURL); err != nil {
		errs = append(errs, err)
	}
	if err := validateBaseURL("agent_dispatcher.base_url", c.AgentDispatcher.BaseURL); err != nil {
		errs = append(errs, err)
	}
	if key := c.Authentication.EncryptionKey; key != "" {
		if b, err := hex.DecodeString(key); err != nil || len(b) != 32 {
			errs = append(errs, errors.New("authentication.encryption_key must be 64 hex characters"))
		}
	}
	if c.Session.MaxParticipants < 0 {
		errs = append(errs, errors.New("session.max_participants must not be negative"))
	}
	if c.S3.Enabled && c.S3.Bucket == "" {
		errs = append(errs, errors.New("s3.bucket is required when s3 is enabled"))
	}
	if c.LLM.Enabled && c.LLM.APIKey == "" {
		errs = append(errs, errors.New("llm.api_key is required when llm is enabled"))
	}

	return errors.Join(errs...)
}

func validateBaseURL(key, raw string) error {
	if strings.TrimSpace(raw) == "" {
		return fmt.Errorf("%s is required", key)
	}
	u, err := url.Parse(raw)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("%s %q is not an absolute URL", key, raw)
	}
	return nil
}
