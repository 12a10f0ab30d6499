package middleware

import (
	"context"
	"strings"

	"github.com/gofiber/fiber/v2"

	"enrollapi/internal/auth"
)

const (
	// ClaimsLocalKey is the key used to store verified JWT claims in Fiber's context locals.
	ClaimsLocalKey = "auth_claims"
)

// TokenVerifier validates a bearer token and returns its claims.
type TokenVerifier interface {
	Verify(ctx context.Context, tokenStr string) (*auth.Claims, error)
}

// bearerToken extracts the token from an Authorization header.
func bearerToken(c *fiber.Ctx) string {
	h := c.Get(fiber.HeaderAuthorization)
	if h == "" {
		return ""
	}
	parts := strings.SplitN(h, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}

// RequireAuth rejects requests without a valid, unrevoked bearer token and
// stores the claims in context locals under ClaimsLocalKey.
func RequireAuth(verifier TokenVerifier) fiber.Handler {
	return func(c *fiber.Ctx) error {
		token := bearerToken(c)
		if token == "" {
			return fiber.NewError(fiber.StatusUnauthorized, "missing bearer token")
		}
		claims, err := verifier.Verify(c.UserContext(), token)
		if err != nil {
			return fiber.NewError(fiber.StatusUnauthorized, "invalid token")
		}
		c.Locals(ClaimsLocalKey, claims)
		return c.Next()
	}
}

// RequireRole allows only authenticated users with the given role. It must
// run after RequireAuth.
func RequireRole(role string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		claims := ClaimsFromCtx(c)
		if claims == nil {
			return fiber.NewError(fiber.StatusUnauthorized, "missing bearer token")
		}
		if claims.Role != role {
			return fiber.NewError(fiber.StatusForbidden, "insufficient role")
		}
		return c.Next()
	}
}

// ClaimsFromCtx returns the claims stored by RequireAuth, or nil.
func ClaimsFromCtx(c *fiber.Ctx) *auth.Claims {
	if v := c.Locals(ClaimsLocalKey); v != nil {
		if claims, ok := v.(*auth.Claims); ok {
			return claims
		}
	}
	return nil
}
