package auth

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
)

const sessionLocalsKey = "session"

// SessionMiddleware validates bearer tokens and stores the live session in
// locals for handlers downstream.
func SessionMiddleware(secret string, sessions *SessionManager) fiber.Handler {
	secretBytes := []byte(secret)
	return func(c *fiber.Ctx) error {
		token := bearerFromHeader(c.Get("Authorization"))
		if token == "" {
			return fiber.NewError(fiber.StatusUnauthorized, "missing bearer token")
		}

		parsed, err := parseMiddlewareClaimsFn(token, &Claims{}, func(_ *jwt.Token) (interface{}, error) {
			return secretBytes, nil
		})
		if err != nil {
			return fiber.NewError(fiber.StatusUnauthorized, err.Error())
		}

		claims, ok := parsed.Claims.(*Claims)
		if !ok || !parsed.Valid {
			return fiber.NewError(fiber.StatusUnauthorized, "token invalid")
		}

		sess, ok := sessions.Get(claims.SessionID)
		if !ok {
			return fiber.NewError(fiber.StatusUnauthorized, "session expired, log in again")
		}

		c.Locals(sessionLocalsKey, sess)
		return c.Next()
	}
}

var parseMiddlewareClaimsFn = jwt.ParseWithClaims

// SessionFromCtx returns the session stored by SessionMiddleware, or nil when
// the request never passed through it.
func SessionFromCtx(c *fiber.Ctx) *Session {
	sess, _ := c.Locals(sessionLocalsKey).(*Session)
	return sess
}

func bearerFromHeader(header string) string {
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return parts[1]
}
