package search

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"

	"github.com/fum1er/KOM-Hunters/internal/auth"
	"github.com/fum1er/KOM-Hunters/internal/geocode"
	"github.com/fum1er/KOM-Hunters/internal/segments"
	"github.com/fum1er/KOM-Hunters/internal/shared/httpx"
	"github.com/fum1er/KOM-Hunters/internal/strava"
)

type refreshStub struct{}

func (refreshStub) Refresh(context.Context, string) (strava.Credential, error) {
	return strava.Credential{}, errors.New("unexpected refresh")
}

// newSearchApp wires the handler behind the real session middleware and
// returns a bearer token for a live session.
func newSearchApp(t *testing.T, svc *Service) (*fiber.App, string) {
	t.Helper()

	sessions := auth.NewSessionManager(refreshStub{}, time.Hour)
	sess := sessions.Create(strava.Athlete{ID: 42, Username: "jo"}, strava.Credential{
		AccessToken:  "acc",
		RefreshToken: "ref",
		ExpiresAt:    time.Now().Add(6 * time.Hour),
	})

	claims := auth.Claims{
		SessionID: sess.ID,
		AthleteID: sess.AthleteID,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("test-secret"))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}

	app := fiber.New()
	RegisterRoutes(app.Group("/api/v1"), svc, auth.SessionMiddleware("test-secret", sessions))
	return app, token
}

func postSearch(t *testing.T, app *fiber.App, token string, body string) *http.Response {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/segments/search", bytes.NewReader([]byte(body)))
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := app.Test(req, 5000)
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	return resp
}

func TestSearchEndpoint(t *testing.T) {
	src := &fakeSource{segs: parisSegments()}
	svc := newTestSearch(parisGeocoder(), src, eastWind(6))
	app, token := newSearchApp(t, svc)

	resp := postSearch(t, app, token, `{"address":"Paris, France","radius_m":5000,"top_n":3}`)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}

	var res Result
	if err := json.NewDecoder(resp.Body).Decode(&res); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(res.Segments) != 3 {
		t.Fatalf("got %d segments, want 3", len(res.Segments))
	}
	if res.Segments[0].ID != 203 || res.Segments[0].Score == nil {
		t.Fatalf("unexpected top segment %+v", res.Segments[0])
	}
}

func TestSearchEndpointRequiresAuth(t *testing.T) {
	svc := newTestSearch(parisGeocoder(), &fakeSource{segs: parisSegments()}, eastWind(6))
	app, _ := newSearchApp(t, svc)

	resp := postSearch(t, app, "", `{"address":"Paris","radius_m":5000,"top_n":3}`)
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", resp.StatusCode)
	}
}

func TestSearchEndpointBadBody(t *testing.T) {
	svc := newTestSearch(parisGeocoder(), &fakeSource{segs: parisSegments()}, eastWind(6))
	app, token := newSearchApp(t, svc)

	resp := postSearch(t, app, token, `{bad`)
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", resp.StatusCode)
	}
}

func TestSearchEndpointValidation(t *testing.T) {
	svc := newTestSearch(parisGeocoder(), &fakeSource{segs: parisSegments()}, eastWind(6))
	app, token := newSearchApp(t, svc)

	bodies := []string{
		`{"radius_m":5000,"top_n":3}`,                          // no address and no coordinates
		`{"address":"Paris","top_n":3}`,                        // no radius
		`{"address":"Paris","radius_m":5000}`,                  // no top_n
		`{"address":"Paris","radius_m":-5,"top_n":3}`,          // negative radius
		`{"lat":48.85,"radius_m":5000,"top_n":3}`,              // lat without lng
		`{"lat":95,"lng":2.35,"radius_m":5000,"top_n":3}`,      // latitude out of range
		`{"address":"Paris","radius_m":5000,"top_n":-2}`,       // negative top_n
	}
	for _, body := range bodies {
		resp := postSearch(t, app, token, body)
		if resp.StatusCode != http.StatusBadRequest {
			t.Fatalf("body %s: status = %d, want 400", body, resp.StatusCode)
		}
	}
}

func TestSearchEndpointLocationNotFound(t *testing.T) {
	gc := &fakeGeocoder{err: fmt.Errorf("%w: %q", geocode.ErrLocationNotFound, "Atlantis")}
	svc := newTestSearch(gc, &fakeSource{}, eastWind(6))
	app, token := newSearchApp(t, svc)

	resp := postSearch(t, app, token, `{"address":"Atlantis","radius_m":5000,"top_n":3}`)
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", resp.StatusCode)
	}
}

func TestSearchEndpointUpstreamDown(t *testing.T) {
	src := &fakeSource{err: fmt.Errorf("%w: all zones failed", httpx.ErrUpstreamUnavailable)}
	svc := newTestSearch(parisGeocoder(), src, eastWind(6))
	app, token := newSearchApp(t, svc)

	resp := postSearch(t, app, token, `{"address":"Paris","radius_m":5000,"top_n":3}`)
	if resp.StatusCode != http.StatusBadGateway {
		t.Fatalf("status = %d, want 502", resp.StatusCode)
	}
}

func TestSearchEndpointStravaAuthExpired(t *testing.T) {
	src := &fakeSource{err: strava.ErrAuthenticationRequired}
	svc := newTestSearch(parisGeocoder(), src, eastWind(6))
	app, token := newSearchApp(t, svc)

	resp := postSearch(t, app, token, `{"address":"Paris","radius_m":5000,"top_n":3}`)
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", resp.StatusCode)
	}
}

func TestSearchEndpointEmptyArea(t *testing.T) {
	src := &fakeSource{err: segments.ErrNoSegmentsFound}
	svc := newTestSearch(parisGeocoder(), src, eastWind(6))
	app, token := newSearchApp(t, svc)

	resp := postSearch(t, app, token, `{"address":"Paris","radius_m":5000,"top_n":3}`)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200 for an empty area", resp.StatusCode)
	}
	var res Result
	if err := json.NewDecoder(resp.Body).Decode(&res); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !res.Empty || len(res.Segments) != 0 {
		t.Fatalf("unexpected result %+v", res)
	}
}
