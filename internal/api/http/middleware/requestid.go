package middleware

import (
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/google/uuid"

	"github.com/Alijeyrad/mindcare_backend/pkg/reqctx"
)

const (
	HeaderRequestID = "X-Request-Id"
	LocalRequestID  = "request_id"
)

// RequestID middleware generates or preserves request IDs and attaches the
// request metadata to the request context.
func RequestID() fiber.Handler {
	return func(c fiber.Ctx) error {
		// prefer incoming, else generate
		rid := c.Get(HeaderRequestID)
		if rid == "" {
			rid = uuid.NewString()
		}

		c.Locals(LocalRequestID, rid)
		c.Set(HeaderRequestID, rid)

		c.SetContext(reqctx.WithRequestMeta(c.Context(), &reqctx.RequestMeta{
			RequestID:   rid,
			ClientIP:    c.IP(),
			UserAgent:   c.Get("User-Agent"),
			RequestedAt: time.Now(),
		}))

		return c.Next()
	}
}

// RequestIDFromFiber retrieves the request ID from Fiber locals.
func RequestIDFromFiber(c fiber.Ctx) (string, bool) {
	s, ok := c.Locals(LocalRequestID).(string)
	return s, ok && s != ""
}
