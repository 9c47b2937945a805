package search

import (
	"errors"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/fum1er/KOM-Hunters/internal/auth"
	"github.com/fum1er/KOM-Hunters/internal/favorability"
	"github.com/fum1er/KOM-Hunters/internal/geocode"
	"github.com/fum1er/KOM-Hunters/internal/shared/geo"
	"github.com/fum1er/KOM-Hunters/internal/shared/httpx"
	"github.com/fum1er/KOM-Hunters/internal/strava"
)

var validate = validator.New()

// RegisterRoutes wires the search endpoint under r. authMiddleware must have
// stored the caller's session in locals before the handler runs.
func RegisterRoutes(r fiber.Router, svc *Service, authMiddleware fiber.Handler) {
	r.Post("/segments/search", authMiddleware, func(c *fiber.Ctx) error {
		var req Request
		if err := c.BodyParser(&req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
		}
		if err := validate.Struct(req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		sess := auth.SessionFromCtx(c)
		if sess == nil {
			return fiber.NewError(fiber.StatusUnauthorized, "session required")
		}

		res, err := svc.Search(c.Context(), sess.Tokens, req)
		if err != nil {
			return mapError(err)
		}
		return c.JSON(res)
	})
}

func mapError(err error) error {
	switch {
	case errors.Is(err, favorability.ErrInvalidArgument),
		errors.Is(err, geo.ErrInvalidCoordinate):
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	case errors.Is(err, geocode.ErrLocationNotFound):
		return fiber.NewError(fiber.StatusNotFound, err.Error())
	case errors.Is(err, strava.ErrAuthenticationRequired):
		return fiber.NewError(fiber.StatusUnauthorized, "strava authorization expired, log in again")
	case errors.Is(err, httpx.ErrUpstreamUnavailable),
		errors.Is(err, httpx.ErrCircuitOpen):
		return fiber.NewError(fiber.StatusBadGateway, err.Error())
	default:
		return err
	}
}
