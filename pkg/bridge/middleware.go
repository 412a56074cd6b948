package bridge

import (
	"crypto/subtle"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"
)

// isLocal reports whether the request came from the robot itself.
// Local callers (the fallback controller, bodyctl on the Pi) skip
// auth and rate limiting.
func isLocal(ip string) bool {
	return ip == "127.0.0.1" || ip == "::1"
}

func (s *Server) authMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if s.cfg.Token == "" || isLocal(c.IP()) {
			return c.Next()
		}
		auth := c.Get(fiber.HeaderAuthorization)
		token, ok := strings.CutPrefix(auth, "Bearer ")
		if !ok || subtle.ConstantTimeCompare([]byte(token), []byte(s.cfg.Token)) != 1 {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "missing or invalid token",
			})
		}
		if s.deps.Alive != nil {
			s.deps.Alive()
		}
		return c.Next()
	}
}

func (s *Server) limiterMiddleware() fiber.Handler {
	max := s.cfg.RateLimit
	if max <= 0 {
		max = 60
	}
	window := s.cfg.RateWindow
	if window <= 0 {
		window = time.Minute
	}
	return limiter.New(limiter.Config{
		Max:        max,
		Expiration: window,
		Next: func(c *fiber.Ctx) bool {
			return isLocal(c.IP())
		},
		LimitReached: func(c *fiber.Ctx) error {
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
				"error": "rate limit exceeded",
			})
		},
	})
}
