package middleware

import (
	"github.com/gofiber/fiber/v2"
)

// VersionMiddleware parses the X-Api-Version header and stores it in
// context for handlers that need to vary behavior by client version.
func VersionMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		version := c.Get("X-Api-Version", "1.0.0")

		if version == "1.0" {
			version = "1.0.0"
		}

		c.Locals("apiVersion", version)

		return c.Next()
	}
}
