// handlers/admin_routes.go
package handlers

import (
	"strconv"
	"strings"

	"bean-loyalty/middleware"
	"bean-loyalty/models"
	"bean-loyalty/services"

	"github.com/gofiber/fiber/v2"
)

// SetupAdminRoutes registers point-of-sale and back-office routes (staff only).
func SetupAdminRoutes(app *fiber.App, svc Services) {
	admin := app.Group("/admin", middleware.RequireStaff())

	// POS checkout
	admin.Post("/sales", func(c *fiber.Ctx) error {
		var in services.SaleInput
		if err := c.BodyParser(&in); err != nil {
			return badRequest(c, "invalid JSON body")
		}
		sale, err := svc.Sales.CreateSale(c.UserContext(), middleware.ActorFrom(c), in)
		if err != nil {
			return respondError(c, err)
		}
		return c.Status(fiber.StatusCreated).JSON(sale)
	})

	admin.Get("/sales", func(c *fiber.Ctx) error {
		filter := services.SaleFilter{}
		filter.Limit, _ = strconv.Atoi(c.Query("limit", "50"))
		switch strings.ToLower(c.Query("scanned")) {
		case "true":
			v := true
			filter.Scanned = &v
		case "false":
			v := false
			filter.Scanned = &v
		}
		sales, err := svc.Sales.ListSales(c.UserContext(), filter)
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(sales)
	})

	// Reward catalog
	admin.Get("/rewards", func(c *fiber.Ctx) error {
		var status *models.RewardStatus
		if raw := c.Query("status"); raw != "" {
			s := models.RewardStatus(strings.ToLower(raw))
			status = &s
		}
		rewards, err := svc.Rewards.ListRewards(c.UserContext(), status)
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(rewards)
	})

	admin.Post("/rewards", func(c *fiber.Ctx) error {
		var in services.RewardInput
		if err := c.BodyParser(&in); err != nil {
			return badRequest(c, "invalid JSON body")
		}
		reward, err := svc.Rewards.CreateReward(c.UserContext(), middleware.ActorFrom(c), in)
		if err != nil {
			return respondError(c, err)
		}
		return c.Status(fiber.StatusCreated).JSON(reward)
	})

	admin.Put("/rewards/:id", func(c *fiber.Ctx) error {
		var patch services.RewardPatch
		if err := c.BodyParser(&patch); err != nil {
			return badRequest(c, "invalid JSON body")
		}
		reward, err := svc.Rewards.UpdateReward(c.UserContext(), middleware.ActorFrom(c), c.Params("id"), patch)
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(reward)
	})

	admin.Delete("/rewards/:id", func(c *fiber.Ctx) error {
		if err := svc.Rewards.DeleteReward(c.UserContext(), middleware.ActorFrom(c), c.Params("id")); err != nil {
			return respondError(c, err)
		}
		return c.JSON(fiber.Map{"success": true})
	})

	admin.Post("/redemptions/:code/fulfil", func(c *fiber.Ctx) error {
		redemption, err := svc.Rewards.FulfilRedemption(c.UserContext(), middleware.ActorFrom(c), c.Params("code"))
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(fiber.Map{"success": true, "redemption": redemption})
	})

	// Flash drops
	admin.Post("/flash-drops", func(c *fiber.Ctx) error {
		var in services.FlashDropInput
		if err := c.BodyParser(&in); err != nil {
			return badRequest(c, "invalid JSON body")
		}
		drop, err := svc.FlashDrops.CreateFlashDrop(c.UserContext(), middleware.ActorFrom(c), in)
		if err != nil {
			return respondError(c, err)
		}
		return c.Status(fiber.StatusCreated).JSON(drop)
	})

	// Customers
	admin.Get("/customers/:user_id", func(c *fiber.Ctx) error {
		customer, err := svc.Customers.GetCustomer(c.UserContext(), c.Params("user_id"))
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(customerProfile(customer))
	})

	admin.Post("/points/grant", func(c *fiber.Ctx) error {
		var req struct {
			UserID string `json:"user_id"`
			Points int64  `json:"points"`
			Reason string `json:"reason"`
		}
		if err := c.BodyParser(&req); err != nil {
			return badRequest(c, "invalid JSON body")
		}
		customer, err := svc.Customers.GrantPoints(c.UserContext(), middleware.ActorFrom(c), req.UserID, req.Points, req.Reason)
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(fiber.Map{
			"success":     true,
			"user_id":     req.UserID,
			"points":      req.Points,
			"new_balance": customer.PointsBalance,
			"tier":        customer.Tier,
		})
	})
}
