package fiber

import (
	"encoding/base64"
	"io"
	"net/http"

	"github.com/gofiber/fiber/v3"

	"github.com/meowls/evisa/core"
)

const defaultDocumentLabel = "passport"

func (a *Adapter) createApplication(c fiber.Ctx) error {
	var input core.ApplicationInput
	if err := c.Bind().Body(&input); err != nil {
		return c.Status(http.StatusBadRequest).JSON(fiber.Map{
			"error": "invalid request body",
		})
	}

	app, err := a.applications.Create(c.Context(), principal(c), input)
	if err != nil {
		return handleError(c, err)
	}

	return c.Status(http.StatusCreated).JSON(app)
}

func (a *Adapter) listApplications(c fiber.Ctx) error {
	apps, err := a.applications.List(c.Context(), principal(c))
	if err != nil {
		return handleError(c, err)
	}

	return c.Status(http.StatusOK).JSON(fiber.Map{
		"applications": apps,
	})
}

func (a *Adapter) getApplication(c fiber.Ctx) error {
	app, err := a.applications.Get(c.Context(), principal(c), c.Params("id"))
	if err != nil {
		return handleError(c, err)
	}

	return c.Status(http.StatusOK).JSON(app)
}

func (a *Adapter) updateApplication(c fiber.Ctx) error {
	var input core.ApplicationInput
	if err := c.Bind().Body(&input); err != nil {
		return c.Status(http.StatusBadRequest).JSON(fiber.Map{
			"error": "invalid request body",
		})
	}

	app, err := a.applications.Update(c.Context(), principal(c), c.Params("id"), input)
	if err != nil {
		return handleError(c, err)
	}

	return c.Status(http.StatusOK).JSON(app)
}

func (a *Adapter) uploadDocument(c fiber.Ctx) error {
	header, err := c.FormFile("file")
	if err != nil {
		return c.Status(http.StatusBadRequest).JSON(fiber.Map{
			"error": "file is required",
		})
	}

	file, err := header.Open()
	if err != nil {
		return c.Status(http.StatusBadRequest).JSON(fiber.Map{
			"error": "could not read file",
		})
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		return c.Status(http.StatusBadRequest).JSON(fiber.Map{
			"error": "could not read file",
		})
	}

	label := c.FormValue("doc_type")
	if label == "" {
		label = defaultDocumentLabel
	}

	doc := core.Document{
		Filename:    header.Filename,
		ContentType: header.Header.Get(fiber.HeaderContentType),
		Data:        base64.StdEncoding.EncodeToString(data),
	}

	if _, err := a.applications.AttachDocument(c.Context(), principal(c), c.Params("id"), label, doc); err != nil {
		return handleError(c, err)
	}

	return c.Status(http.StatusOK).JSON(fiber.Map{
		"message": "document uploaded successfully",
	})
}

func (a *Adapter) submitApplication(c fiber.Ctx) error {
	app, err := a.applications.Submit(c.Context(), principal(c), c.Params("id"))
	if err != nil {
		return handleError(c, err)
	}

	return c.Status(http.StatusOK).JSON(app)
}

func (a *Adapter) adminListApplications(c fiber.Ctx) error {
	apps, err := a.applications.ListAll(c.Context(), principal(c))
	if err != nil {
		return handleError(c, err)
	}

	return c.Status(http.StatusOK).JSON(fiber.Map{
		"applications": apps,
	})
}

func (a *Adapter) setApplicationStatus(c fiber.Ctx) error {
	var input struct {
		Status     core.Status `json:"status"`
		AdminNotes string      `json:"admin_notes"`
	}
	if err := c.Bind().Body(&input); err != nil {
		return c.Status(http.StatusBadRequest).JSON(fiber.Map{
			"error": "invalid request body",
		})
	}

	app, err := a.applications.SetStatus(c.Context(), principal(c), c.Params("id"), input.Status, input.AdminNotes)
	if err != nil {
		return handleError(c, err)
	}

	return c.Status(http.StatusOK).JSON(app)
}
