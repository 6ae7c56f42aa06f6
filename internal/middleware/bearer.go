package middleware

import (
	"context"

	"github.com/gofiber/fiber/v2"

	"github.com/aumarche/aumarche/internal/auth"
	"github.com/aumarche/aumarche/internal/identity"
)

// Authenticator resolves bearer tokens to users.
type Authenticator interface {
	CurrentUser(ctx context.Context, token string) (identity.User, error)
	IsAdmin(ctx context.Context, token string) bool
}

// BearerAuth rejects requests without a valid bearer token and stores the
// caller's id and token in Locals.
func BearerAuth(authn Authenticator) fiber.Handler {
	return func(c *fiber.Ctx) error {
		token := auth.BearerToken(c.Get(fiber.HeaderAuthorization))
		if token == "" {
			return auth.ErrInvalidToken
		}
		user, err := authn.CurrentUser(c.UserContext(), token)
		if err != nil {
			return err
		}
		c.Locals(auth.LocalsUserID, user.ID)
		c.Locals(auth.LocalsToken, token)
		return c.Next()
	}
}

// RequireAdmin lets only admins through. It must run after BearerAuth.
func RequireAdmin(authn Authenticator) fiber.Handler {
	return func(c *fiber.Ctx) error {
		token, _ := c.Locals(auth.LocalsToken).(string)
		if !authn.IsAdmin(c.UserContext(), token) {
			return errForbidden
		}
		return c.Next()
	}
}
