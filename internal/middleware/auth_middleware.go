package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/gofiber/fiber/v2"

	"go-pms-api/internal/service"
	"go-pms-api/pkg/jwt"
)

const principalKey = "principal"

// Authenticator resolves an access token into the calling principal.
type Authenticator interface {
	Authenticate(ctx context.Context, accessToken string) (service.Principal, error)
}

func deny(c *fiber.Ctx, code int, message string) error {
	return c.Status(code).JSON(service.Failed[struct{}](code, message))
}

// RequireAuth validates the bearer access token and stores the principal in the request locals.
func RequireAuth(auth Authenticator) fiber.Handler {
	return func(c *fiber.Ctx) error {
		authHeader := c.Get(fiber.HeaderAuthorization)
		if authHeader == "" {
			return deny(c, http.StatusUnauthorized, "Missing authorization token")
		}

		parts := strings.Fields(authHeader)
		if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
			return deny(c, http.StatusUnauthorized, "Invalid authorization format. Use: Bearer <token>")
		}

		principal, err := auth.Authenticate(c.UserContext(), parts[1])
		switch {
		case err == nil:
		case errors.Is(err, jwt.ErrTokenExpired):
			return deny(c, http.StatusUnauthorized, "Token expired")
		case errors.Is(err, jwt.ErrTokenInvalid), errors.Is(err, jwt.ErrMissingToken), errors.Is(err, service.ErrUserNotFound):
			return deny(c, http.StatusUnauthorized, "Invalid token")
		default:
			return deny(c, http.StatusInternalServerError, err.Error())
		}

		c.Locals(principalKey, principal)
		return c.Next()
	}
}

// PrincipalFrom returns the principal stored by RequireAuth.
func PrincipalFrom(c *fiber.Ctx) (service.Principal, bool) {
	p, ok := c.Locals(principalKey).(service.Principal)
	return p, ok
}

// RequirePermission checks if the authenticated user holds the permission.
func RequirePermission(permission string) fiber.Handler {
	return RequireAnyPermission(permission)
}

// RequireAnyPermission checks if the user holds at least one of the permissions.
func RequireAnyPermission(permissions ...string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		principal, ok := PrincipalFrom(c)
		if !ok {
			return deny(c, http.StatusForbidden, "No permissions found")
		}
		for _, p := range permissions {
			if principal.Has(p) {
				return c.Next()
			}
		}
		return deny(c, http.StatusForbidden, "Forbidden: requires one of "+strings.Join(permissions, ", "))
	}
}
