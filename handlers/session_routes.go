// handlers/session_routes.go
package handlers

import (
	"errors"

	"stream-economy/middleware"
	"stream-economy/services"

	"github.com/gofiber/fiber/v2"
)

// Session routes serve the orchestration layer: contribution webhooks arrive
// already validated and authenticated by the gateway; session lifecycle sits
// under /s/admin/ like the rest of the operator surface.
func SetupSessionRoutes(app *fiber.App, crown *services.CrownService) {
	secured := app.Group("/s", middleware.UserContextMiddleware())

	secured.Post("/sessions/:id/contributions", func(c *fiber.Ctx) error {
		sessionID := c.Params("id")

		var req struct {
			ContributorID string  `json:"contributor_id"`
			USDValue      float64 `json:"usd_value"`
			SourceEventID string  `json:"source_event_id"`
			SourceKind    string  `json:"source_kind"`
		}
		if err := c.BodyParser(&req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
		}

		result, err := crown.RecordContribution(sessionID, req.ContributorID, req.USDValue, req.SourceEventID, req.SourceKind)
		if err != nil {
			switch {
			case errors.Is(err, services.ErrSessionNotFound):
				return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": err.Error()})
			case errors.Is(err, services.ErrSessionEnded):
				return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": err.Error()})
			}
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
		}
		if result.Duplicate {
			// safe for the sender to retry; nothing was reapplied
			return c.Status(fiber.StatusOK).JSON(result)
		}
		return c.Status(fiber.StatusCreated).JSON(result)
	})

	secured.Get("/sessions/:id/leaderboard", func(c *fiber.Ctx) error {
		entries, err := crown.GetLeaderboard(c.Params("id"))
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "failed to fetch leaderboard",
			})
		}
		return c.JSON(entries)
	})

	secured.Post("/admin/sessions", func(c *fiber.Ctx) error {
		var req struct {
			Name string `json:"name"`
		}
		if err := c.BodyParser(&req); err != nil || req.Name == "" {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "session name required"})
		}

		session, err := crown.StartSession(req.Name)
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "failed to start session",
			})
		}
		return c.Status(fiber.StatusCreated).JSON(session)
	})

	secured.Post("/admin/sessions/:id/end", func(c *fiber.Ctx) error {
		result, err := crown.EndSession(c.Params("id"))
		if err != nil {
			switch {
			case errors.Is(err, services.ErrSessionNotFound):
				return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": err.Error()})
			case errors.Is(err, services.ErrSessionEnded):
				return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": err.Error()})
			}
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "failed to end session",
			})
		}
		return c.JSON(result)
	})
}
