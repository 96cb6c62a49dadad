// middleware/sse_auth.go
package middleware

import (
	"context"
	"strings"

	"bean-loyalty/services"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// TokenValidator resolves a session token to the acting user.
type TokenValidator interface {
	ValidateToken(ctx context.Context, accessToken, deviceID string) (*services.Actor, error)
}

// SSEAuthMiddleware validates `token` and `device_id` from query params,
// since EventSource cannot send identity headers.
//
// Usage:
//
//	app.Get("/me/activity/stream", middleware.SSEAuthMiddleware(authClient, log), activityService.StreamActivitySSE)
func SSEAuthMiddleware(validator TokenValidator, log *zap.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		accessToken := strings.TrimSpace(c.Query("token"))
		deviceID := strings.TrimSpace(c.Query("device_id"))

		if accessToken == "" || deviceID == "" {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"success": false,
				"error":   "missing token or device_id in query",
			})
		}

		actor, err := validator.ValidateToken(c.UserContext(), accessToken, deviceID)
		if err != nil {
			log.Warn("[SSEAuth] ❌ validation failed", zap.String("device_id", deviceID), zap.Error(err))
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"success": false,
				"error":   "unauthorized",
			})
		}

		setActor(c, *actor)
		log.Debug("[SSEAuth] ✅ authenticated", zap.String("user_id", actor.UserID), zap.String("device_id", deviceID))
		return c.Next()
	}
}
