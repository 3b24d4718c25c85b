package middleware

import (
	"github.com/gofiber/fiber/v2"

	"task-notify/internal/domain"
)

// RequireRole lets the request through when the caller's role satisfies any
// of roles.
func RequireRole(roles ...domain.UserRole) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if _, err := GetUserID(c); err != nil {
			return err
		}

		role := GetRole(c)
		for _, required := range roles {
			if domain.HasRole(role, required) {
				return c.Next()
			}
		}
		return Forbidden("Insufficient permissions for this operation")
	}
}
