package middleware

import (
	"github.com/gofiber/fiber/v2"

	"github.com/meinhoongagan/tutor-sessions/utils"
)

// RequireRole lets only callers acting in one of roles through.
func RequireRole(roles ...string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		actor := Actor(c)
		for _, r := range roles {
			if string(actor.Role) == r {
				return c.Next()
			}
		}
		return c.Status(fiber.StatusForbidden).JSON(utils.ErrorResponse{
			Message: "You don't have the required role to perform this action",
			Error:   "Forbidden",
		})
	}
}
