package activity

import (
	"errors"
	"strconv"

	"github.com/gofiber/fiber/v2"

	"github.com/fum1er/KOM-Hunters/internal/auth"
	"github.com/fum1er/KOM-Hunters/internal/shared/httpx"
	"github.com/fum1er/KOM-Hunters/internal/strava"
)

// RegisterRoutes wires the activity view. Every route needs a session.
func RegisterRoutes(r fiber.Router, svc *Service, authMiddleware fiber.Handler) {
	r.Get("/activities", authMiddleware, func(c *fiber.Ctx) error {
		sess := auth.SessionFromCtx(c)
		if sess == nil {
			return fiber.NewError(fiber.StatusUnauthorized, "session required")
		}

		page := c.QueryInt("page", 1)
		perPage := c.QueryInt("per_page", ActivitiesPerPage)

		rides, err := svc.Recent(c.Context(), sess.Tokens, page, perPage)
		if err != nil {
			return mapError(err)
		}
		return c.JSON(rides)
	})

	r.Get("/activities/:id/analysis", authMiddleware, func(c *fiber.Ctx) error {
		sess := auth.SessionFromCtx(c)
		if sess == nil {
			return fiber.NewError(fiber.StatusUnauthorized, "session required")
		}

		id, err := strconv.ParseInt(c.Params("id"), 10, 64)
		if err != nil || id <= 0 {
			return fiber.NewError(fiber.StatusBadRequest, "invalid activity id")
		}

		analysis, err := svc.Analyze(c.Context(), sess.Tokens, id)
		if err != nil {
			return mapError(err)
		}
		return c.JSON(analysis)
	})

	r.Get("/athlete", authMiddleware, func(c *fiber.Ctx) error {
		sess := auth.SessionFromCtx(c)
		if sess == nil {
			return fiber.NewError(fiber.StatusUnauthorized, "session required")
		}

		profile, err := svc.Athlete(c.Context(), sess.Tokens)
		if err != nil {
			return mapError(err)
		}
		return c.JSON(profile)
	})
}

func mapError(err error) error {
	switch {
	case errors.Is(err, strava.ErrAuthenticationRequired):
		return fiber.NewError(fiber.StatusUnauthorized, "strava authorization expired, log in again")
	case errors.Is(err, strava.ErrNotFound):
		return fiber.NewError(fiber.StatusNotFound, err.Error())
	case errors.Is(err, httpx.ErrUpstreamUnavailable),
		errors.Is(err, httpx.ErrServerError),
		errors.Is(err, httpx.ErrRateLimited),
		errors.Is(err, httpx.ErrCircuitOpen):
		return fiber.NewError(fiber.StatusBadGateway, err.Error())
	default:
		return err
	}
}
