package middleware

import (
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

const SessionHeader = "X-Session-Id"

// Session reads the caller's session from the X-Session-Id header, minting a
// new one when it is absent, and echoes it back on the response.
func Session() fiber.Handler {
	return func(c *fiber.Ctx) error {
		sessionID := c.Get(SessionHeader)
		if _, err := uuid.Parse(sessionID); err != nil {
			sessionID = uuid.New().String()
		}

		c.Locals("sessionId", sessionID)
		c.Set(SessionHeader, sessionID)

		return c.Next()
	}
}

// GetSessionID extracts the session ID from context
func GetSessionID(c *fiber.Ctx) string {
	if id, ok := c.Locals("sessionId").(string); ok {
		return id
	}
	return ""
}
