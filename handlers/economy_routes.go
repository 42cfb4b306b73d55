// handlers/economy_routes.go
package handlers

import (
	"errors"

	"stream-economy/middleware"
	"stream-economy/services"

	"github.com/gofiber/fiber/v2"
)

func SetupEconomyRoutes(app *fiber.App, economy *services.EconomyService) {
	// 🔐 Secured routes — require user context from the gateway
	secured := app.Group("/s", middleware.UserContextMiddleware())

	secured.Post("/economy/action", func(c *fiber.Ctx) error {
		userID := c.Locals("user_id").(string)

		result, err := economy.PerformAction(userID)
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "action failed",
			})
		}
		return c.JSON(result)
	})

	secured.Post("/economy/crates/open", func(c *fiber.Ctx) error {
		userID := c.Locals("user_id").(string)

		var req struct {
			CrateID string `json:"crate_id"` // empty = oldest primary crate
		}
		// body is optional; ignore parse errors for an empty body
		_ = c.BodyParser(&req)

		result, err := economy.OpenCrate(userID, req.CrateID)
		if err != nil {
			switch {
			case errors.Is(err, services.ErrNoCrates),
				errors.Is(err, services.ErrCrateNotFound):
				return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": err.Error()})
			case errors.Is(err, services.ErrCrateEscrowed):
				return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
			}
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "crate open failed",
			})
		}
		return c.JSON(result)
	})

	secured.Post("/economy/crates/:id/reclaim", func(c *fiber.Ctx) error {
		userID := c.Locals("user_id").(string)
		crateID := c.Params("id")

		if err := economy.ReclaimEscrow(userID, crateID); err != nil {
			switch {
			case errors.Is(err, services.ErrCrateNotFound):
				return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": err.Error()})
			case errors.Is(err, services.ErrNotEscrowed),
				errors.Is(err, services.ErrEscrowExpired),
				errors.Is(err, services.ErrPrimaryFull):
				return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": err.Error()})
			}
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "reclaim failed",
			})
		}
		return c.JSON(fiber.Map{"message": "crate moved to primary storage"})
	})

	secured.Get("/economy/profile", func(c *fiber.Ctx) error {
		userID := c.Locals("user_id").(string)

		profile, err := economy.GetProfile(userID)
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "failed to fetch profile",
			})
		}
		return c.JSON(profile)
	})
}
