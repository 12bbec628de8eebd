package redis

import (
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/Alijeyrad/mindcare_backend/config"
)

// Config is the resolved connection setup. Login sessions, lockout counters
// and the rate limiter all share this one client.
type Config struct {
	Addr     string
	DB       int
	Username string
	Password string

	PoolSize     int
	MinIdleConns int

	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

func DefaultConfig() Config {
	return Config{
		Addr:         "localhost:6379",
		PoolSize:     10,
		MinIdleConns: 2,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	}
}

// FromCentralConfig keeps the configured values and falls back to
// DefaultConfig for anything left at zero, except Addr.
func FromCentralConfig(c config.RedisConfig) Config {
	def := DefaultConfig()
	return Config{
		Addr:         c.Addr,
		DB:           c.DB,
		Username:     c.Username,
		Password:     c.Password,
		PoolSize:     orInt(c.PoolSize, def.PoolSize),
		MinIdleConns: orInt(c.MinIdleConns, def.MinIdleConns),
		DialTimeout:  orSeconds(c.DialTimeoutSeconds, def.DialTimeout),
		ReadTimeout:  orSeconds(c.ReadTimeoutSeconds, def.ReadTimeout),
		WriteTimeout: orSeconds(c.WriteTimeoutSeconds, def.WriteTimeout),
	}
}

func (c Config) Options() *goredis.Options {
	return &goredis.Options{
		Addr:         c.Addr,
		Username:     c.Username,
		Password:     c.Password,
		DB:           c.DB,
		PoolSize:     c.PoolSize,
		MinIdleConns: c.MinIdleConns,
		DialTimeout:  c.DialTimeout,
		ReadTimeout:  c.ReadTimeout,
		WriteTimeout: c.WriteTimeout,
	}
}

func orInt(v, def int) int {
	if v > 0 {
		return v
	}
	return def
}

func orSeconds(v int, def time.Duration) time.Duration {
	if v > 0 {
		return time.Duration(v) * time.Second
	}
	return def
}
