package geocode

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/fum1er/KOM-Hunters/internal/shared/httpx"
)

// RegisterRoutes wires the address suggestion endpoint. It is public: the
// search form autocompletes before the athlete logs in.
func RegisterRoutes(r fiber.Router, svc *Service) {
	r.Get("/geocode", func(c *fiber.Ctx) error {
		q := c.Query("q")
		if q == "" {
			return fiber.NewError(fiber.StatusBadRequest, "q required")
		}

		results, err := svc.Suggest(c.Context(), q, c.QueryInt("limit", DefaultSuggestionLimit))
		if err != nil {
			if errors.Is(err, httpx.ErrUpstreamUnavailable) || errors.Is(err, httpx.ErrCircuitOpen) {
				return fiber.NewError(fiber.StatusBadGateway, err.Error())
			}
			return err
		}
		return c.JSON(results)
	})
}
