package wind

import (
	"errors"
	"strconv"

	"github.com/gofiber/fiber/v2"

	"github.com/fum1er/KOM-Hunters/internal/shared/geo"
	"github.com/fum1er/KOM-Hunters/internal/shared/httpx"
)

// RegisterRoutes wires the point wind endpoint.
func RegisterRoutes(r fiber.Router, svc *Service) {
	r.Get("/wind", func(c *fiber.Ctx) error {
		lat, latErr := strconv.ParseFloat(c.Query("lat"), 64)
		lng, lngErr := strconv.ParseFloat(c.Query("lng"), 64)
		if latErr != nil || lngErr != nil {
			return fiber.NewError(fiber.StatusBadRequest, "lat and lng required")
		}

		reading, err := svc.Current(c.Context(), geo.Coordinate{Lat: lat, Lng: lng})
		if err != nil {
			switch {
			case errors.Is(err, geo.ErrInvalidCoordinate):
				return fiber.NewError(fiber.StatusBadRequest, err.Error())
			case errors.Is(err, ErrNoWindData):
				return fiber.NewError(fiber.StatusNotFound, err.Error())
			case errors.Is(err, httpx.ErrUpstreamUnavailable),
				errors.Is(err, httpx.ErrCircuitOpen):
				return fiber.NewError(fiber.StatusBadGateway, err.Error())
			default:
				return err
			}
		}
		return c.JSON(reading)
	})
}
