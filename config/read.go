package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/Alijeyrad/mindcare_backend/pkg/constants"
	"github.com/spf13/viper"
)

func ReadConfig(configPath string) (*Config, error) {
	v := viper.New()
	v.SetConfigName(constants.ConfigName)
	v.SetConfigType(constants.ConfigFormat)
	v.AddConfigPath(configPath)

	// Allow env vars to override config values.
	// e.g. MINDCARE_DATABASE_HOST overrides database.host
	v.SetEnvPrefix(constants.EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	// Read the config file (optional in Docker environments)
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		if os.Getenv(constants.EnvPrefix+"_DATABASE_HOST") == "" {
			return nil, fmt.Errorf("config file not found in %q and no environment override set: %w", configPath, err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("unable to decode into struct: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return &config, nil
}

// setDefaults registers every key that has a sane default. Registering a key
// also makes AutomaticEnv pick it up when no config file is present.
func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.timeout_seconds", 30)
	v.SetDefault("server.environment", "development")
	v.SetDefault("server.rate_limit.requests_per_minute", 120)

	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("casbin_database.host", "localhost")
	v.SetDefault("casbin_database.port", 5432)
	v.SetDefault("casbin_database.sslmode", "disable")

	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("nats.url", "nats://127.0.0.1:4222")

	v.SetDefault("authentication.max_login_attempts", 5)
	v.SetDefault("authentication.lockout_minutes", 15)
	v.SetDefault("authentication.paseto.mode", "local")
	v.SetDefault("authentication.paseto.issuer", "mindcare")
	v.SetDefault("authentication.paseto.audience", "mindcare-api")
	v.SetDefault("authentication.paseto.access_ttl_minutes", 15)
	v.SetDefault("authentication.paseto.refresh_ttl_days", 7)

	v.SetDefault("authorization.superadmin_bypass", true)

	v.SetDefault("room_provider.base_url", "http://localhost:3001")
	v.SetDefault("room_provider.timeout_seconds", 10)
	v.SetDefault("agent_dispatcher.base_url", "http://localhost:8081")
	v.SetDefault("agent_dispatcher.timeout_seconds", 15)

	v.SetDefault("session.max_participants", 2)
	v.SetDefault("session.room_empty_timeout_seconds", 300)
	v.SetDefault("session.transcript_max_bytes", 1<<20)

	v.SetDefault("llm.model", "gpt-4o-mini")
	v.SetDefault("llm.temperature", 0.2)
	v.SetDefault("llm.timeout_seconds", 60)

	v.SetDefault("sms.default_region", "IR")
	v.SetDefault("s3.presign_ttl_sec", 900)

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "text")
	v.SetDefault("logging.output.stdout", true)
}
