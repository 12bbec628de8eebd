package middleware

import (
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/limiter"
	fiberredis "github.com/gofiber/storage/redis/v3"
	"github.com/redis/go-redis/v9"
)

const defaultRequestsPerMinute = 120

// NewLimiterWithRedis limits each client IP to perMinute requests over a
// sliding one-minute window shared through Redis.
func NewLimiterWithRedis(rdb *redis.Client, perMinute int) fiber.Handler {
	if perMinute <= 0 {
		perMinute = defaultRequestsPerMinute
	}
	storage := fiberredis.NewFromConnection(rdb)
	return limiter.New(limiter.Config{
		Storage: storage,

		// sliding window
		Max:               perMinute,
		Expiration:        time.Minute,
		LimiterMiddleware: limiter.SlidingWindow{},
	})
}
