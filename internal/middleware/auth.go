package middleware

import (
	"github.com/TMB2003/Mini-Freelance-Marketplace/internal/auth"
	"github.com/gofiber/fiber/v2"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

const LocalsUserID = "user_id"

type TokenVerifier interface {
	Verify(token string) (string, error)
}

// RequireAuth accepts "Authorization: Bearer <jwt>" and stores the caller's
// ObjectID in Locals.
func RequireAuth(tokens TokenVerifier) fiber.Handler {
	return func(c *fiber.Ctx) error {
		token, err := auth.ParseBearerToken(c.Get(fiber.HeaderAuthorization))
		if err != nil {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"message": "Not authenticated"})
		}
		uid, err := tokens.Verify(token)
		if err != nil {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"message": "Invalid token"})
		}
		oid, err := primitive.ObjectIDFromHex(uid)
		if err != nil {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"message": "Invalid token"})
		}
		c.Locals(LocalsUserID, oid)
		return c.Next()
	}
}

// UserID returns the id stored by RequireAuth.
func UserID(c *fiber.Ctx) primitive.ObjectID {
	oid, _ := c.Locals(LocalsUserID).(primitive.ObjectID)
	return oid
}
