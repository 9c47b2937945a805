package wind

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/sony/gobreaker"

	"github.com/fum1er/KOM-Hunters/internal/shared/geo"
	"github.com/fum1er/KOM-Hunters/internal/shared/httpx"
)

const defaultBaseURL = "https://api.openweathermap.org/data/2.5/weather"

// ErrNoWindData means the weather provider answered but without usable wind
// fields.
var ErrNoWindData = errors.New("no wind data in weather response")

// Reading is the wind at one place and time. DirectionDeg is the meteorological
// direction: the bearing the wind blows FROM, in degrees clockwise from north.
type Reading struct {
	SpeedMps     float64   `json:"speed_mps"`
	DirectionDeg float64   `json:"direction_deg"`
	GustMps      float64   `json:"gust_mps,omitempty"`
	At           time.Time `json:"at"`
}

// Service fetches current wind conditions from OpenWeatherMap.
type Service struct {
	apiKey  string
	baseURL string
	httpCfg httpx.ClientConfig
	circuit *gobreaker.CircuitBreaker
}

func NewService(client *http.Client, apiKey string) *Service {
	return &Service{
		apiKey:  apiKey,
		baseURL: defaultBaseURL,
		httpCfg: httpx.DefaultConfig(client),
		circuit: httpx.NewBreaker("openweathermap"),
	}
}

// Current returns the wind at the given point right now.
func (s *Service) Current(ctx context.Context, at geo.Coordinate) (Reading, error) {
	if s.apiKey == "" {
		return Reading{}, fmt.Errorf("openweathermap api key is not configured")
	}
	if !at.Valid() {
		return Reading{}, geo.ErrInvalidCoordinate
	}

	build := func() (*http.Request, error) {
		v := url.Values{}
		v.Set("lat", fmt.Sprintf("%f", at.Lat))
		v.Set("lon", fmt.Sprintf("%f", at.Lng))
		v.Set("appid", s.apiKey)
		v.Set("units", "metric")
		return http.NewRequest(http.MethodGet, s.baseURL+"?"+v.Encode(), nil)
	}

	resp, err := httpx.Do(ctx, s.httpCfg, s.circuit, build)
	if err != nil {
		return Reading{}, fmt.Errorf("%w: weather: %v", httpx.ErrUpstreamUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return Reading{}, fmt.Errorf("%w: weather returned %d: %s",
			httpx.ErrUpstreamUnavailable, resp.StatusCode, bytes.TrimSpace(body))
	}

	var payload struct {
		Dt   int64 `json:"dt"`
		Wind *struct {
			Speed float64  `json:"speed"`
			Deg   *float64 `json:"deg"`
			Gust  float64  `json:"gust"`
		} `json:"wind"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return Reading{}, fmt.Errorf("decode weather response: %w", err)
	}
	if payload.Wind == nil || payload.Wind.Deg == nil {
		return Reading{}, ErrNoWindData
	}

	at2 := time.Unix(payload.Dt, 0).UTC()
	if payload.Dt == 0 {
		at2 = time.Now().UTC()
	}

	return Reading{
		SpeedMps:     payload.Wind.Speed,
		DirectionDeg: *payload.Wind.Deg,
		GustMps:      payload.Wind.Gust,
		At:           at2,
	}, nil
}
