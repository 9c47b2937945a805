package geocode

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
)

func TestGeocodeEndpoint(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("limit"); got != "3" {
			t.Errorf("limit = %q, want 3", got)
		}
		w.Write([]byte(`[{"display_name":"Paris, France","lat":"48.8566","lon":"2.3522"}]`))
	}))
	defer upstream.Close()

	svc := NewService(upstream.Client(), Options{NominatimBaseURL: upstream.URL})
	app := fiber.New()
	RegisterRoutes(app.Group("/api/v1"), svc)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/geocode?q=Paris&limit=3", nil)
	resp, err := app.Test(req)
	if err != nil || resp.StatusCode != http.StatusOK {
		t.Fatalf("status: %v %d", err, resp.StatusCode)
	}

	var results []Result
	if err := json.NewDecoder(resp.Body).Decode(&results); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(results) != 1 || results[0].Label != "Paris, France" || results[0].Lat != 48.8566 {
		t.Fatalf("results = %+v", results)
	}
}

func TestGeocodeEndpointRequiresQuery(t *testing.T) {
	svc := NewService(nil, Options{})
	app := fiber.New()
	RegisterRoutes(app.Group("/api/v1"), svc)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/geocode", nil)
	resp, err := app.Test(req)
	if err != nil || resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected bad request")
	}
}

func TestGeocodeEndpointUpstreamDown(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer upstream.Close()

	svc := NewService(upstream.Client(), Options{NominatimBaseURL: upstream.URL})
	svc.httpCfg.Backoff.MaxRetries = 0
	svc.httpCfg.Backoff.InitialInterval = 1

	app := fiber.New()
	RegisterRoutes(app.Group("/api/v1"), svc)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/geocode?q=Paris", nil)
	resp, err := app.Test(req)
	if err != nil || resp.StatusCode != http.StatusBadGateway {
		t.Fatalf("expected bad gateway")
	}
}
