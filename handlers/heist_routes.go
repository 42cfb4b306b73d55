// handlers/heist_routes.go
package handlers

import (
	"errors"

	"stream-economy/middleware"
	"stream-economy/services"

	"github.com/gofiber/fiber/v2"
)

func SetupHeistRoutes(app *fiber.App, heist *services.HeistService) {
	secured := app.Group("/s", middleware.UserContextMiddleware())

	secured.Post("/heist/answer", func(c *fiber.Ctx) error {
		userID := c.Locals("user_id").(string)

		var req struct {
			Text string `json:"text"`
		}
		if err := c.BodyParser(&req); err != nil || req.Text == "" {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "answer text required"})
		}

		result, err := heist.SubmitAnswer(userID, req.Text)
		if err != nil {
			if errors.Is(err, services.ErrNoActiveHeist) {
				return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": err.Error()})
			}
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "answer submission failed",
			})
		}
		return c.JSON(result)
	})
}
