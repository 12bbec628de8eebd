package redis

import (
	"context"
	"errors"
	"fmt"

	goredis "github.com/redis/go-redis/v9"

	"github.com/Alijeyrad/mindcare_backend/config"
)

var ErrNoAddr = errors.New("redis: addr is empty")

func NewRedisFromCentral(cfg config.RedisConfig) (*goredis.Client, error) {
	return NewRedis(FromCentralConfig(cfg))
}

// NewRedis connects and pings once so a bad address fails at startup rather
// than on the first login.
func NewRedis(cfg Config) (*goredis.Client, error) {
	if cfg.Addr == "" {
		return nil, ErrNoAddr
	}
	rdb := goredis.NewClient(cfg.Options())

	ctx, cancel := context.WithTimeout(context.Background(), cfg.DialTimeout)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("redis ping %s: %w", cfg.Addr, err)
	}
	return rdb, nil
}

// Ready reports whether the server answers before ctx ends.
func Ready(ctx context.Context, rdb goredis.UniversalClient) error {
	return rdb.Ping(ctx).Err()
}
