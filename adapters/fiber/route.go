package fiber

import (
	"time"

	"github.com/gofiber/fiber/v3"

	"github.com/meowls/evisa/core"
)

type Adapter struct {
	app          *fiber.App
	auth         *core.AuthService
	applications *core.ApplicationService
	basePath     string
	cookieMaxAge time.Duration
}

func New(app *fiber.App, auth *core.AuthService, applications *core.ApplicationService, basePath string, cookieMaxAge time.Duration) *Adapter {
	if basePath == "" {
		basePath = "/api"
	}
	if cookieMaxAge <= 0 {
		cookieMaxAge = core.DefaultSessionMaxAge
	}
	return &Adapter{
		app:          app,
		auth:         auth,
		applications: applications,
		basePath:     basePath,
		cookieMaxAge: cookieMaxAge,
	}
}

func (a *Adapter) RegisterRoutes() {
	api := a.app.Group(a.basePath)

	// Public routes
	api.Post("/auth/register", a.register)
	api.Post("/auth/login", a.login)
	api.Post("/auth/session", a.exchangeSession)

	// Logout succeeds with or without a live session.
	api.Post("/auth/logout", a.logout)

	// Protected routes
	api.Get("/auth/me", a.requireAuth, a.me)
	api.Post("/auth/logout-all", a.requireAuth, a.logoutAll)

	api.Post("/applications", a.requireAuth, a.createApplication)
	api.Get("/applications", a.requireAuth, a.listApplications)
	api.Get("/applications/:id", a.requireAuth, a.getApplication)
	api.Put("/applications/:id", a.requireAuth, a.updateApplication)
	api.Post("/applications/:id/documents", a.requireAuth, a.uploadDocument)
	api.Post("/applications/:id/submit", a.requireAuth, a.submitApplication)

	// Admin routes
	api.Get("/admin/applications", a.requireAuth, a.adminListApplications)
	api.Put("/admin/applications/:id/status", a.requireAuth, a.setApplicationStatus)
}
