package auth

import (
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/fum1er/KOM-Hunters/internal/shared/httpx"
	"github.com/fum1er/KOM-Hunters/internal/strava"
)

// RegisterRoutes wires the login flow. The callback route must match the
// redirect URI registered with the Strava application.
func RegisterRoutes(r fiber.Router, svc *Service, authMiddleware fiber.Handler) {
	r.Get("/strava/login", func(c *fiber.Ctx) error {
		return c.Redirect(svc.LoginURL(), fiber.StatusFound)
	})

	r.Get("/strava/callback", func(c *fiber.Ctx) error {
		if denied := c.Query("error"); denied != "" {
			return fiber.NewError(fiber.StatusUnauthorized, "authorization denied: "+denied)
		}
		code := c.Query("code")
		if code == "" {
			return fiber.NewError(fiber.StatusBadRequest, "code required")
		}

		token, sess, err := svc.HandleCallback(c.Context(), c.Query("state"), code)
		if err != nil {
			return mapCallbackError(err)
		}

		return c.JSON(fiber.Map{
			"token":        token,
			"athlete_id":   sess.AthleteID,
			"athlete_name": strings.TrimSpace(sess.Athlete.FirstName + " " + sess.Athlete.LastName),
			"expires_at":   sess.ExpiresAt,
		})
	})

	r.Get("/session", authMiddleware, func(c *fiber.Ctx) error {
		sess := SessionFromCtx(c)
		if sess == nil {
			return fiber.NewError(fiber.StatusUnauthorized, "session required")
		}
		return c.JSON(fiber.Map{
			"athlete":     sess.Athlete,
			"token_state": sess.Tokens.State().String(),
			"expires_at":  sess.ExpiresAt,
		})
	})

	r.Post("/logout", authMiddleware, func(c *fiber.Ctx) error {
		if sess := SessionFromCtx(c); sess != nil {
			svc.Logout(sess.ID)
		}
		return c.SendStatus(fiber.StatusNoContent)
	})
}

func mapCallbackError(err error) error {
	switch {
	case errors.Is(err, ErrInvalidState):
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	case errors.Is(err, strava.ErrInvalidGrant):
		return fiber.NewError(fiber.StatusUnauthorized, "authorization code rejected")
	case errors.Is(err, httpx.ErrUpstreamUnavailable),
		errors.Is(err, httpx.ErrServerError),
		errors.Is(err, httpx.ErrRateLimited),
		errors.Is(err, httpx.ErrCircuitOpen):
		return fiber.NewError(fiber.StatusBadGateway, err.Error())
	default:
		return err
	}
}
