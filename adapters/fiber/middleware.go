package fiber

import (
	"github.com/gofiber/fiber/v3"

	"github.com/meowls/evisa/core"
)

// requireAuth validates the session token and stores the authenticated
// user in the context for downstream handlers.
func (a *Adapter) requireAuth(c fiber.Ctx) error {
	token := extractToken(c)
	if token == "" {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": core.ErrUnauthenticated.Error(),
		})
	}

	user, err := a.auth.CurrentUser(c.Context(), token)
	if err != nil {
		return handleError(c, err)
	}

	c.Locals("principal", user)

	return c.Next()
}

// extractToken extracts the session token from the request.
// Checks the session cookie first, then falls back to a Bearer token.
func extractToken(c fiber.Ctx) string {
	if cookie := c.Cookies(sessionCookieName); cookie != "" {
		return cookie
	}

	authHeader := c.Get(fiber.HeaderAuthorization)
	if len(authHeader) > 7 && authHeader[:7] == "Bearer " {
		return authHeader[7:]
	}

	return ""
}

func principal(c fiber.Ctx) *core.User {
	user, _ := c.Locals("principal").(*core.User)
	return user
}
