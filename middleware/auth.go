// middleware/auth.go
package middleware

import (
	"strings"

	"bean-loyalty/services"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

const (
	localUserID    = "user_id"
	localUserEmail = "user_email"
	localUserRoles = "user_roles"
)

// UserContextMiddleware extracts user identity and roles set by Gateway.
// Anonymous requests pass through; RequireUser and RequireStaff gate routes.
func UserContextMiddleware(log *zap.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID := strings.TrimSpace(c.Get("X-User-ID"))
		email := strings.ToLower(strings.TrimSpace(c.Get("X-User-Email")))

		var roles []string
		for _, r := range strings.Split(c.Get("X-User-Roles"), ",") {
			r = strings.TrimSpace(r)
			if r != "" {
				roles = append(roles, r)
			}
		}

		setActor(c, services.Actor{UserID: userID, Email: email, Roles: roles})

		if userID != "" {
			log.Debug("👤 [USER_CTX]",
				zap.String("user_id", userID), zap.Strings("roles", roles), zap.String("path", c.Path()))
		}
		return c.Next()
	}
}

// RequireUser rejects requests without an authenticated user.
func RequireUser() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if !ActorFrom(c).Authenticated() {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"success": false,
				"error":   "authentication required",
			})
		}
		return c.Next()
	}
}

// RequireStaff allows only admin or staff roles.
func RequireStaff() fiber.Handler {
	return func(c *fiber.Ctx) error {
		actor := ActorFrom(c)
		if !actor.Authenticated() {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"success": false,
				"error":   "authentication required",
			})
		}
		if !actor.IsStaff() {
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
				"success": false,
				"error":   "staff access required",
			})
		}
		return c.Next()
	}
}

// ActorFrom reads the caller attached by the auth middlewares.
func ActorFrom(c *fiber.Ctx) services.Actor {
	userID, _ := c.Locals(localUserID).(string)
	email, _ := c.Locals(localUserEmail).(string)
	roles, _ := c.Locals(localUserRoles).([]string)
	return services.Actor{UserID: userID, Email: email, Roles: roles}
}

func setActor(c *fiber.Ctx, a services.Actor) {
	c.Locals(localUserID, a.UserID)
	c.Locals(localUserEmail, a.Email)
	c.Locals(localUserRoles, a.Roles)
}
