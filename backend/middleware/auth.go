package middleware

import (
	"mathboard/backend/config"
	"mathboard/backend/utils"

	"github.com/gofiber/fiber/v2"
)

const userIDKey = "user_id"

// AuthMiddleware verifies the identity provider's token and stores the
// caller's user ID for handlers.
func AuthMiddleware(cfg *config.Config) fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID, err := utils.ExtractUserIDFromToken(c, cfg)
		if err != nil {
			return utils.Unauthorized(c, "Unauthorized")
		}
		c.Locals(userIDKey, userID)
		return c.Next()
	}
}

// UserID returns the ID stored by AuthMiddleware, or "" on unauthenticated routes.
func UserID(c *fiber.Ctx) string {
	id, _ := c.Locals(userIDKey).(string)
	return id
}
