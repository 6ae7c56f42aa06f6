package middleware

import (
	"context"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"

	"github.com/aumarche/aumarche/internal/apperr"
	"github.com/aumarche/aumarche/internal/auth"
	"github.com/aumarche/aumarche/internal/identity"
	"github.com/aumarche/aumarche/internal/logging"
)

type fakeAuthenticator map[string]identity.User

func (f fakeAuthenticator) CurrentUser(_ context.Context, token string) (identity.User, error) {
	user, ok := f[token]
	if !ok {
		return identity.User{}, auth.ErrInvalidToken
	}
	return user, nil
}

func (f fakeAuthenticator) IsAdmin(ctx context.Context, token string) bool {
	user, err := f.CurrentUser(ctx, token)
	return err == nil && user.Role == identity.RoleAdmin
}

func TestBearerAuthAndRequireAdmin(t *testing.T) {
	authn := fakeAuthenticator{
		"client-token": {ID: "u-1", Role: identity.RoleClient},
		"admin-token":  {ID: "u-2", Role: identity.RoleAdmin},
	}
	app := fiber.New(fiber.Config{ErrorHandler: apperr.FiberErrorHandler(logging.Discard())})
	app.Get("/me", BearerAuth(authn), func(c *fiber.Ctx) error {
		return c.SendString(c.Locals(auth.LocalsUserID).(string))
	})
	app.Get("/admin", BearerAuth(authn), RequireAdmin(authn), func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusOK)
	})

	cases := []struct {
		path, header string
		want         int
	}{
		{"/me", "", fiber.StatusUnauthorized},
		{"/me", "Bearer nope", fiber.StatusUnauthorized},
		{"/me", "Bearer client-token", fiber.StatusOK},
		{"/admin", "Bearer client-token", fiber.StatusForbidden},
		{"/admin", "Bearer admin-token", fiber.StatusOK},
	}
	for _, tc := range cases {
		req := httptest.NewRequest(fiber.MethodGet, tc.path, nil)
		if tc.header != "" {
			req.Header.Set(fiber.HeaderAuthorization, tc.header)
		}
		resp, err := app.Test(req)
		if err != nil {
			t.Fatalf("app.Test: %v", err)
		}
		if resp.StatusCode != tc.want {
			t.Fatalf("%s %q: expected %d got %d", tc.path, tc.header, tc.want, resp.StatusCode)
		}
	}
}
