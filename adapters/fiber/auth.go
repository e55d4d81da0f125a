package fiber

import (
	"net/http"

	"github.com/gofiber/fiber/v3"

	"github.com/meowls/evisa/core"
)

const sessionCookieName = "session_token"

func (a *Adapter) register(c fiber.Ctx) error {
	var input core.RegisterInput
	if err := c.Bind().Body(&input); err != nil {
		return c.Status(http.StatusBadRequest).JSON(fiber.Map{
			"error": "invalid request body",
		})
	}

	result, err := a.auth.Register(c.Context(), input)
	if err != nil {
		return handleError(c, err)
	}

	a.setSessionCookie(c, result.Token)

	return c.Status(http.StatusOK).JSON(result.User)
}

func (a *Adapter) login(c fiber.Ctx) error {
	var input core.LoginInput
	if err := c.Bind().Body(&input); err != nil {
		return c.Status(http.StatusBadRequest).JSON(fiber.Map{
			"error": "invalid request body",
		})
	}

	result, err := a.auth.Login(c.Context(), input)
	if err != nil {
		return handleError(c, err)
	}

	a.setSessionCookie(c, result.Token)

	return c.Status(http.StatusOK).JSON(result.User)
}

func (a *Adapter) exchangeSession(c fiber.Ctx) error {
	var input struct {
		SessionID string `json:"session_id"`
	}
	if err := c.Bind().Body(&input); err != nil || input.SessionID == "" {
		return c.Status(http.StatusBadRequest).JSON(fiber.Map{
			"error": "session_id is required",
		})
	}

	result, err := a.auth.ExchangeExternalSession(c.Context(), input.SessionID)
	if err != nil {
		return handleError(c, err)
	}

	a.setSessionCookie(c, result.Token)

	return c.Status(http.StatusOK).JSON(result.User)
}

func (a *Adapter) me(c fiber.Ctx) error {
	return c.Status(http.StatusOK).JSON(principal(c))
}

func (a *Adapter) logout(c fiber.Ctx) error {
	if err := a.auth.Logout(c.Context(), extractToken(c)); err != nil {
		return handleError(c, err)
	}

	a.clearSessionCookie(c)

	return c.Status(http.StatusOK).JSON(fiber.Map{
		"message": "logged out successfully",
	})
}

func (a *Adapter) logoutAll(c fiber.Ctx) error {
	count, err := a.auth.LogoutAll(c.Context(), principal(c))
	if err != nil {
		return handleError(c, err)
	}

	a.clearSessionCookie(c)

	return c.Status(http.StatusOK).JSON(fiber.Map{
		"message": "logged out everywhere",
		"revoked": count,
	})
}

func (a *Adapter) setSessionCookie(c fiber.Ctx, token string) {
	c.Cookie(&fiber.Cookie{
		Name:     sessionCookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   int(a.cookieMaxAge.Seconds()),
		HTTPOnly: true,
		Secure:   true,
		SameSite: fiber.CookieSameSiteNoneMode,
	})
}

func (a *Adapter) clearSessionCookie(c fiber.Ctx) {
	c.Cookie(&fiber.Cookie{
		Name:     sessionCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HTTPOnly: true,
		Secure:   true,
		SameSite: fiber.CookieSameSiteNoneMode,
	})
}
