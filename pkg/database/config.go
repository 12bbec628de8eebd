package database

import (
	"fmt"
	"strings"
	"time"

	"github.com/Alijeyrad/mindcare_backend/config"
)

// Config is one Postgres database: where it lives, how its pool is sized,
// whether the schema is migrated on startup and whether queries are logged.
type Config struct {
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
	SSLMode  string

	MaxOpenConns       int
	MaxIdleConns       int
	ConnMaxLifetimeMin int

	AutoMigrate bool
	SafeMode    bool

	EnableLogging        bool
	SlowQueryThresholdMs int
}

// DSN renders the keyword/value connection string understood by lib/pq.
// Values are quoted so passwords may contain spaces or quotes.
func (c Config) DSN() string {
	sslmode := c.SSLMode
	if sslmode == "" {
		sslmode = "disable"
	}
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		quote(c.Host), c.Port, quote(c.User), quote(c.Password), quote(c.DBName), quote(sslmode))
}

func (c Config) ConnMaxLifetime() time.Duration {
	if c.ConnMaxLifetimeMin <= 0 {
		return 5 * time.Minute
	}
	return time.Duration(c.ConnMaxLifetimeMin) * time.Minute
}

// SlowQueryThreshold defaults to 200ms.
func (c Config) SlowQueryThreshold() time.Duration {
	if c.SlowQueryThresholdMs <= 0 {
		return 200 * time.Millisecond
	}
	return time.Duration(c.SlowQueryThresholdMs) * time.Millisecond
}

func quote(v string) string {
	if v != "" && !strings.ContainsAny(v, ` '\`) {
		return v
	}
	r := strings.NewReplacer(`\`, `\\`, `'`, `\'`)
	return "'" + r.Replace(v) + "'"
}

func FromCentralConfig(c config.DatabaseConfig) Config {
	return Config{
		Host:                 c.Host,
		Port:                 c.Port,
		User:                 c.User,
		Password:             c.Password,
		DBName:               c.DBName,
		SSLMode:              c.SSLMode,
		MaxOpenConns:         c.Pool.MaxOpenConns,
		MaxIdleConns:         c.Pool.MaxIdleConns,
		ConnMaxLifetimeMin:   c.Pool.ConnMaxLifetimeMin,
		AutoMigrate:          c.Migrations.AutoMigrate,
		SafeMode:             c.Migrations.SafeMode,
		EnableLogging:        c.Logging.Enabled,
		SlowQueryThresholdMs: c.Logging.SlowQueryThresholdMs,
	}
}

// NewDSN is shorthand for FromCentralConfig(c).DSN(); the Casbin adapter
// takes a bare DSN.
func NewDSN(c config.DatabaseConfig) string {
	return FromCentralConfig(c).DSN()
}
