package fiber

import (
	"errors"
	"net/http"

	"github.com/gofiber/fiber/v3"

	"github.com/meowls/evisa/core"
)

// handleError maps service errors to appropriate HTTP responses
func handleError(c fiber.Ctx, err error) error {
	return c.Status(mapErrorToStatus(err)).JSON(fiber.Map{
		"error": err.Error(),
	})
}

// mapErrorToStatus maps core error types to HTTP status codes
func mapErrorToStatus(err error) int {
	if err == nil {
		return http.StatusOK
	}

	switch {
	case errors.Is(err, core.ErrUnauthenticated),
		errors.Is(err, core.ErrInvalidCredentials),
		errors.Is(err, core.ErrInvalidToken),
		errors.Is(err, core.ErrSessionNotFound),
		errors.Is(err, core.ErrSessionExpired):
		return http.StatusUnauthorized

	case errors.Is(err, core.ErrRoleRequired),
		errors.Is(err, core.ErrNotOwner):
		return http.StatusForbidden

	case errors.Is(err, core.ErrUserNotFound),
		errors.Is(err, core.ErrApplicationNotFound):
		return http.StatusNotFound

	case errors.Is(err, core.ErrEmailRegistered),
		errors.Is(err, core.ErrEmailRequired),
		errors.Is(err, core.ErrPasswordRequired),
		errors.Is(err, core.ErrNameRequired),
		errors.Is(err, core.ErrInvalidStatus),
		errors.Is(err, core.ErrIdentityExchange):
		return http.StatusBadRequest

	default:
		return http.StatusInternalServerError
	}
}
