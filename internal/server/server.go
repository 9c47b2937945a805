package server

import (
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/fum1er/KOM-Hunters/internal/activity"
	"github.com/fum1er/KOM-Hunters/internal/auth"
	"github.com/fum1er/KOM-Hunters/internal/config"
	"github.com/fum1er/KOM-Hunters/internal/geocode"
	"github.com/fum1er/KOM-Hunters/internal/search"
	"github.com/fum1er/KOM-Hunters/internal/segments"
	"github.com/fum1er/KOM-Hunters/internal/strava"
	"github.com/fum1er/KOM-Hunters/internal/stream"
	"github.com/fum1er/KOM-Hunters/internal/wind"
)

type Server struct {
	App      *fiber.App
	Cfg      config.Config
	Sessions *auth.SessionManager
	Stream   *stream.Hub

	httpClient *http.Client
	oauth      *strava.OAuthClient
}

func NewServer(cfg config.Config) *Server {
	app := fiber.New()
	app.Use(recover.New())
	app.Use(logger.New())

	// One client for every upstream; retry policy and circuit breakers live
	// per service in httpx.
	httpClient := &http.Client{Timeout: 30 * time.Second}

	oauth := strava.NewOAuthClient(httpClient, strava.OAuthConfig{
		ClientID:     cfg.StravaClientID,
		ClientSecret: cfg.StravaClientSecret,
		RedirectURI:  cfg.StravaRedirectURI,
	})

	s := &Server{
		App:        app,
		Cfg:        cfg,
		Sessions:   auth.NewSessionManager(oauth, time.Duration(cfg.SessionTTLHours)*time.Hour),
		Stream:     stream.NewHub(),
		httpClient: httpClient,
		oauth:      oauth,
	}

	registerRoutes(s)
	return s
}

func registerRoutes(s *Server) {
	s.App.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})

	sessionMiddleware := auth.SessionMiddleware(s.Cfg.JWTSecret, s.Sessions)

	// The Strava client is bound to each session's tokens at request time;
	// the zero-token base client only carries the shared HTTP policy.
	stravaClient := strava.NewClient(s.httpClient, nil)
	segmentSource := func(tokens strava.TokenSource) search.SegmentSource {
		return segments.NewService(stravaClient.WithTokens(tokens), s.Cfg.SearchZoneRadiusKm)
	}
	activityAPI := func(tokens strava.TokenSource) activity.API {
		return stravaClient.WithTokens(tokens)
	}

	geocodeService := geocode.NewService(s.httpClient, geocode.Options{
		Provider:         s.Cfg.GeocoderProvider,
		NominatimBaseURL: s.Cfg.NominatimBaseURL,
		GoogleAPIKey:     s.Cfg.GoogleGeocodingKey,
	})
	windService := wind.NewService(s.httpClient, s.Cfg.WeatherAPIKey)
	searchService := search.NewService(geocodeService, segmentSource, windService, s.Stream)
	activityService := activity.NewService(activityAPI, activity.Defaults{
		MaxHR:    s.Cfg.DefaultMaxHR,
		FTP:      s.Cfg.DefaultFTP,
		WeightKg: s.Cfg.DefaultWeightKg,
	})

	api := s.App.Group("/api/v1")
	auth.RegisterRoutes(api.Group("/auth"), auth.NewService(s.Cfg.JWTSecret, s.oauth, s.Sessions), sessionMiddleware)
	search.RegisterRoutes(api, searchService, sessionMiddleware)
	geocode.RegisterRoutes(api, geocodeService)
	wind.RegisterRoutes(api, windService)
	activity.RegisterRoutes(api, activityService, sessionMiddleware)
	stream.RegisterRoutes(s.App, s.Stream)
}
