package server

import (
	"strings"

	"github.com/gofiber/fiber/v2"
)

const (
	authScheme      = "Bearer"
	LocalsClaimsKey = "claims"
)

// tokenFromHeader extracts the token from "Authorization: Bearer <token>"
func tokenFromHeader(c *fiber.Ctx) (string, error) {
	a := c.Get(fiber.HeaderAuthorization)
	l := len(authScheme)
	if len(a) > l+1 && strings.EqualFold(a[:l], authScheme) {
		if token := strings.TrimSpace(a[l:]); token != "" {
			return token, nil
		}
	}
	return "", ErrMissingToken
}

// RequireToken rejects requests without a valid bearer token with 401
func RequireToken(tokens *TokenService, logger Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		raw, err := tokenFromHeader(c)
		if err != nil {
			return unauthorized(c, err)
		}

		claims, err := tokens.Validate(raw)
		if err != nil {
			logger.Info("rejected bearer token", "path", c.OriginalURL(), "error", err)
			return unauthorized(c, err)
		}

		c.Locals(LocalsClaimsKey, claims)
		return c.Next()
	}
}
