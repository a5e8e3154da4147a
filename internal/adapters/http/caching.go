package http

import (
	"strings"

	"github.com/gofiber/fiber/v2"
)

// CachingMiddleware sets Cache-Control on GET responses that did not set
// their own. Session views must be revalidated on every read; the ETag lets
// an unchanged view come back as 304.
func CachingMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		err := c.Next()

		if c.Method() != fiber.MethodGet {
			return err
		}
		if existing := c.GetRespHeader(fiber.HeaderCacheControl); existing != "" {
			return err
		}

		path := c.Path()
		var value string
		switch {
		case path == "/v1/health" || path == "/v1/ready" || path == "/metrics":
			value = "no-cache"
		case strings.HasPrefix(path, "/v1/sessions"):
			value = "no-cache"
		case strings.HasPrefix(path, "/docs"):
			value = "public, max-age=3600"
		}

		if value != "" {
			c.Set(fiber.HeaderCacheControl, value)
		}
		return err
	}
}
