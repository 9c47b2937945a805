package geocode

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"

	"github.com/kelvins/geocoder"
	"github.com/sony/gobreaker"

	"github.com/fum1er/KOM-Hunters/internal/shared/httpx"
)

const (
	ProviderNominatim = "nominatim"
	ProviderGoogle    = "google"

	// Nominatim blocks clients without an identifying User-Agent.
	userAgent = "kom-hunters/1.0 (github.com/fum1er/KOM-Hunters)"

	DefaultSuggestionLimit = 5
	MaxSuggestionLimit     = 10
	minQueryLength         = 2
)

// ErrLocationNotFound means the query geocoded to nothing.
var ErrLocationNotFound = errors.New("location not found")

// googleGeocodeFn is swapped in tests; kelvins/geocoder has no context or
// client injection.
var googleGeocodeFn = geocoder.Geocoding

// Result is one geocoded place.
type Result struct {
	Label string  `json:"label"`
	Lat   float64 `json:"lat"`
	Lng   float64 `json:"lng"`
}

// Options selects the resolver backend. Suggestions always come from
// Nominatim since the Google backend returns a single match.
type Options struct {
	Provider         string
	NominatimBaseURL string
	GoogleAPIKey     string
}

// Service turns free-form addresses into coordinates.
type Service struct {
	provider string
	baseURL  string
	httpCfg  httpx.ClientConfig
	circuit  *gobreaker.CircuitBreaker
}

func NewService(client *http.Client, opts Options) *Service {
	if opts.Provider == "" {
		opts.Provider = ProviderNominatim
	}
	if opts.NominatimBaseURL == "" {
		opts.NominatimBaseURL = "https://nominatim.openstreetmap.org"
	}
	if opts.Provider == ProviderGoogle {
		geocoder.ApiKey = opts.GoogleAPIKey
	}
	return &Service{
		provider: opts.Provider,
		baseURL:  opts.NominatimBaseURL,
		httpCfg:  httpx.DefaultConfig(client),
		circuit:  httpx.NewBreaker("nominatim"),
	}
}

// Suggest returns up to limit matches for a partial address. Queries shorter
// than two characters return nothing.
func (s *Service) Suggest(ctx context.Context, query string, limit int) ([]Result, error) {
	if len(query) < minQueryLength {
		return []Result{}, nil
	}
	if limit <= 0 {
		limit = DefaultSuggestionLimit
	}
	if limit > MaxSuggestionLimit {
		limit = MaxSuggestionLimit
	}
	return s.searchNominatim(ctx, query, limit)
}

// Resolve geocodes a full address to a single place.
func (s *Service) Resolve(ctx context.Context, address string) (Result, error) {
	if address == "" {
		return Result{}, fmt.Errorf("%w: empty address", ErrLocationNotFound)
	}

	if s.provider == ProviderGoogle {
		loc, err := googleGeocodeFn(geocoder.Address{Street: address})
		if err != nil {
			return Result{}, fmt.Errorf("%w: %q", ErrLocationNotFound, address)
		}
		return Result{Label: address, Lat: loc.Latitude, Lng: loc.Longitude}, nil
	}

	results, err := s.searchNominatim(ctx, address, 1)
	if err != nil {
		return Result{}, err
	}
	if len(results) == 0 {
		return Result{}, fmt.Errorf("%w: %q", ErrLocationNotFound, address)
	}
	return results[0], nil
}

func (s *Service) searchNominatim(ctx context.Context, query string, limit int) ([]Result, error) {
	build := func() (*http.Request, error) {
		v := url.Values{}
		v.Set("q", query)
		v.Set("format", "json")
		v.Set("limit", strconv.Itoa(limit))
		req, err := http.NewRequest(http.MethodGet, s.baseURL+"/search?"+v.Encode(), nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("User-Agent", userAgent)
		return req, nil
	}

	resp, err := httpx.Do(ctx, s.httpCfg, s.circuit, build)
	if err != nil {
		return nil, fmt.Errorf("%w: geocoding: %v", httpx.ErrUpstreamUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return nil, fmt.Errorf("%w: geocoding returned %d: %s",
			httpx.ErrUpstreamUnavailable, resp.StatusCode, bytes.TrimSpace(body))
	}

	// Nominatim serializes coordinates as strings.
	var places []struct {
		DisplayName string `json:"display_name"`
		Lat         string `json:"lat"`
		Lon         string `json:"lon"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&places); err != nil {
		return nil, fmt.Errorf("decode geocoding response: %w", err)
	}

	results := make([]Result, 0, len(places))
	for _, p := range places {
		lat, err := strconv.ParseFloat(p.Lat, 64)
		if err != nil {
			continue
		}
		lng, err := strconv.ParseFloat(p.Lon, 64)
		if err != nil {
			continue
		}
		results = append(results, Result{Label: p.DisplayName, Lat: lat, Lng: lng})
	}
	return results, nil
}
