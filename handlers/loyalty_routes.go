// handlers/loyalty_routes.go
package handlers

import (
	"strconv"

	"bean-loyalty/middleware"
	"bean-loyalty/models"
	"bean-loyalty/services"

	"github.com/gofiber/fiber/v2"
)

type billScanRequest struct {
	QRCodeID string `json:"qrCodeId"`
}

func customerProfile(c *models.Customer) fiber.Map {
	profile := fiber.Map{
		"id":                  c.ID,
		"email":               c.Email,
		"referral_code":       c.ReferralCode,
		"referred_by":         c.ReferredBy,
		"points_balance":      c.PointsBalance,
		"total_points_earned": c.TotalPointsEarned,
		"tier":                c.Tier,
		"tier_discount":       services.TierDiscount(c.Tier),
		"referral_count":      c.ReferralCount,
		"cups_redeemed":       c.CupsRedeemed,
		"created_at":          c.CreatedAt,
	}
	if next, togo, ok := services.NextTier(c.TotalPointsEarned); ok {
		profile["next_tier"] = next
		profile["points_to_next_tier"] = togo
	}
	return profile
}

func SetupLoyaltyRoutes(app *fiber.App, svc Services, sseAuth fiber.Handler) {
	// 🔓 Catalog, gateway auth only
	app.Get("/tiers", func(c *fiber.Ctx) error {
		return c.JSON(services.TierTable)
	})
	app.Get("/rewards", func(c *fiber.Ctx) error {
		rewards, err := svc.Rewards.ListRewards(c.UserContext(), nil)
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(rewards)
	})
	app.Get("/flash-drops", func(c *fiber.Ctx) error {
		drops, err := svc.FlashDrops.ListActive(c.UserContext())
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(drops)
	})

	// The scan endpoint reports a missing user itself, in its own envelope.
	app.Post("/processBillScan", func(c *fiber.Ctx) error {
		actor := middleware.ActorFrom(c)
		if !actor.Authenticated() {
			return respondError(c, services.ErrUnauthorized)
		}
		var req billScanRequest
		if err := c.BodyParser(&req); err != nil {
			return badRequest(c, "invalid JSON body")
		}
		result, err := svc.Sales.ProcessBillScan(c.UserContext(), actor, req.QRCodeID)
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(fiber.Map{
			"success":        true,
			"points_awarded": result.PointsAwarded,
			"new_balance":    result.NewBalance,
			"tier":           result.Tier,
			"bill_number":    result.BillNumber,
		})
	})

	if sseAuth != nil {
		app.Get("/me/activity/stream", sseAuth, svc.Activity.StreamActivitySSE)
	}

	// 🔐 Customer routes
	me := app.Group("/me", middleware.RequireUser())

	me.Get("/", func(c *fiber.Ctx) error {
		customer, created, err := svc.Customers.EnsureCustomer(c.UserContext(), middleware.ActorFrom(c), c.Query("ref"))
		if err != nil {
			return respondError(c, err)
		}
		status := fiber.StatusOK
		if created {
			status = fiber.StatusCreated
		}
		return c.Status(status).JSON(customerProfile(customer))
	})

	me.Get("/activity", func(c *fiber.Ctx) error {
		limit, _ := strconv.Atoi(c.Query("limit", "20"))
		items, err := svc.Activity.ListForUser(c.UserContext(), middleware.ActorFrom(c).UserID, limit)
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(items)
	})

	me.Get("/redemptions", func(c *fiber.Ctx) error {
		items, err := svc.Rewards.ListRedemptions(c.UserContext(), middleware.ActorFrom(c))
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(items)
	})

	app.Post("/rewards/:id/redeem", middleware.RequireUser(), func(c *fiber.Ctx) error {
		redemption, customer, err := svc.Rewards.RedeemReward(c.UserContext(), middleware.ActorFrom(c), c.Params("id"))
		if err != nil {
			return respondError(c, err)
		}
		return c.Status(fiber.StatusCreated).JSON(fiber.Map{
			"success":     true,
			"redemption":  redemption,
			"new_balance": customer.PointsBalance,
		})
	})

	app.Post("/flash-drops/:id/claim", middleware.RequireUser(), func(c *fiber.Ctx) error {
		claim, customer, err := svc.FlashDrops.ClaimFlashDrop(c.UserContext(), middleware.ActorFrom(c), c.Params("id"))
		if err != nil {
			return respondError(c, err)
		}
		return c.Status(fiber.StatusCreated).JSON(fiber.Map{
			"success":     true,
			"claim":       claim,
			"new_balance": customer.PointsBalance,
		})
	})
}
