package handler

import (
	"context"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"

	"portfolioadmin/internal/logging"
	"portfolioadmin/internal/media"
	"portfolioadmin/internal/model"
	"portfolioadmin/internal/notify"
)

// Pinger reports whether the record store is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Deps are the components the HTTP surface is built on. Destroyer and Feed
// are optional; their routes are skipped when nil.
type Deps struct {
	Store        Pinger
	Certificates Collection[model.Certificate]
	Projects     Collection[model.Project]
	Media        media.Client
	Destroyer    media.Destroyer
	Feed         *notify.Feed
	Log          logging.Logger
}

// RegisterRoutes attaches HTTP routes to the provided Fiber app.
func RegisterRoutes(app *fiber.App, d Deps) {
	log := d.Log
	if log == nil {
		log = logging.Nop()
	}

	app.Get("/health", HealthCheck(d.Store))
	app.Get("/healthz", LivenessProbe())

	api := app.Group("/api")

	certs := api.Group("/certificates")
	certs.Get("/", ListRecords(d.Certificates))
	certs.Post("/", CreateRecord(d.Certificates))
	certs.Patch("/:id", UpdateRecord(d.Certificates))
	certs.Delete("/:id", DeleteRecord(d.Certificates))

	projects := api.Group("/projects")
	projects.Get("/", ListRecords(d.Projects))
	projects.Post("/", CreateRecord(d.Projects))
	projects.Patch("/:id", UpdateRecord(d.Projects))
	projects.Delete("/:id", DeleteRecord(d.Projects))

	api.Post("/media", UploadMedia(d.Media, log))
	api.Delete("/media/:kind/*", DeleteMedia(d.Media, log))

	if d.Destroyer != nil {
		api.Post("/cloudinary-delete", CloudinaryDelete(d.Destroyer, log))
	}
	if d.Feed != nil {
		api.Get("/notifications", ListNotifications(d.Feed))
	}
}

// HealthCheck checks store connectivity only.
//
// @Summary Store health
// @Tags health
// @Produce json
// @Success 200 {object} map[string]string
// @Failure 503 {object} errorPayload
// @Router /health [get]
func HealthCheck(p Pinger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		ctx, cancel := context.WithTimeout(c.UserContext(), 2*time.Second)
		defer cancel()
		if err := p.Ping(ctx); err != nil {
			return writeError(c, fiber.StatusServiceUnavailable, "SERVICE_UNAVAILABLE", "dependency unavailable")
		}
		return c.Status(fiber.StatusOK).JSON(fiber.Map{"status": "healthy"})
	}
}

// LivenessProbe is a plain liveness check.
func LivenessProbe() fiber.Handler {
	return func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusOK)
	}
}

// ListNotifications returns the most recent toasts, newest first.
//
// @Summary Recent notifications
// @Tags notifications
// @Produce json
// @Param limit query int false "max toasts" default(20)
// @Success 200 {array} notify.Toast
// @Router /api/notifications [get]
func ListNotifications(f *notify.Feed) fiber.Handler {
	return func(c *fiber.Ctx) error {
		limit, err := strconv.Atoi(c.Query("limit", "20"))
		if err != nil || limit < 0 {
			return writeError(c, fiber.StatusBadRequest, "INVALID_LIMIT", "invalid limit")
		}
		return c.JSON(f.Recent(limit))
	}
}
