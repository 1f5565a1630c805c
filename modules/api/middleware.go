package api

import (
	"errors"
	"slices"
	"strings"

	"github.com/example/incident-desk/domain/casework"
	"github.com/example/incident-desk/modules/account"
	"github.com/gofiber/fiber/v2"
)

const (
	// ActorContextKey is the key used to store the caller's claims in the Fiber context.
	ActorContextKey = "actor"
)

// AuthMiddleware creates a middleware that validates bearer access tokens.
func AuthMiddleware(accounts account.AccountPort) fiber.Handler {
	return func(c *fiber.Ctx) error {
		authHeader := c.Get(fiber.HeaderAuthorization)
		if authHeader == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(ErrorResponse{
				Error:   "unauthorized",
				Message: "Authorization header is required",
			})
		}

		if !strings.HasPrefix(authHeader, "Bearer ") {
			return c.Status(fiber.StatusUnauthorized).JSON(ErrorResponse{
				Error:   "unauthorized",
				Message: "Invalid authorization header format. Use: Bearer <token>",
			})
		}

		token := strings.TrimPrefix(authHeader, "Bearer ")
		if token == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(ErrorResponse{
				Error:   "unauthorized",
				Message: "Token is required",
			})
		}

		claims, err := accounts.ValidateToken(c.UserContext(), token)
		if err != nil {
			kind := "unauthorized"
			message := "Invalid or expired token"
			if errors.Is(err, account.ErrExpiredToken) {
				kind = string(account.KindExpiredToken)
				message = "Token has expired"
			}
			if casework.IsTransient(err) {
				return c.Status(fiber.StatusServiceUnavailable).JSON(ErrorResponse{
					Error:   string(casework.KindOf(err)),
					Message: "Token validation is temporarily unavailable",
				})
			}
			return c.Status(fiber.StatusUnauthorized).JSON(ErrorResponse{
				Error:   kind,
				Message: message,
			})
		}

		c.Locals(ActorContextKey, claims)
		return c.Next()
	}
}

// RequireRole rejects callers whose role is not in roles. It must run after
// AuthMiddleware.
func RequireRole(roles ...casework.Role) fiber.Handler {
	return func(c *fiber.Ctx) error {
		claims, ok := actorFrom(c)
		if !ok {
			return c.Status(fiber.StatusUnauthorized).JSON(ErrorResponse{
				Error:   "unauthorized",
				Message: "Actor not authenticated",
			})
		}
		if !slices.Contains(roles, claims.Role) {
			return c.Status(fiber.StatusForbidden).JSON(ErrorResponse{
				Error:   string(casework.KindForbiddenRole),
				Message: "Your role cannot perform this operation",
			})
		}
		return c.Next()
	}
}

func actorFrom(c *fiber.Ctx) (*account.Claims, bool) {
	claims, ok := c.Locals(ActorContextKey).(*account.Claims)
	return claims, ok && claims != nil
}

// actorKey keys per-actor rate limits.
func actorKey(c *fiber.Ctx) string {
	if claims, ok := actorFrom(c); ok {
		return claims.ActorID
	}
	return ""
}
