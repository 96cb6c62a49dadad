package handlers

import (
	"bean-loyalty/services"

	"github.com/gofiber/fiber/v2"
)

// Services bundles what the route setups need.
type Services struct {
	Customers  *services.CustomerService
	Sales      *services.SaleService
	Rewards    *services.RewardService
	FlashDrops *services.FlashDropService
	Activity   *services.ActivityService
}

// respondError writes the {success:false,error} envelope with the status for err.
func respondError(c *fiber.Ctx, err error) error {
	return c.Status(services.HTTPStatus(err)).JSON(fiber.Map{
		"success": false,
		"error":   err.Error(),
	})
}

func badRequest(c *fiber.Ctx, msg string) error {
	return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"success": false, "error": msg})
}
