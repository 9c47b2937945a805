package strava

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/fum1er/KOM-Hunters/internal/shared/geo"
)

type tokenFunc func(ctx context.Context) (string, error)

func (f tokenFunc) Current(ctx context.Context) (string, error) { return f(ctx) }

func staticToken(token string) TokenSource {
	return tokenFunc(func(ctx context.Context) (string, error) { return token, nil })
}

func newTestClient(srv *httptest.Server, tokens TokenSource) *Client {
	c := NewClient(srv.Client(), tokens)
	c.baseURL = srv.URL
	return c
}

func TestExploreSegments(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/segments/explore" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer tok-1" {
			t.Errorf("unexpected authorization header %q", got)
		}
		q := r.URL.Query()
		if q.Get("activity_type") != "riding" {
			t.Errorf("unexpected activity_type %q", q.Get("activity_type"))
		}
		if q.Get("bounds") == "" {
			t.Error("missing bounds")
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"segments":[
			{"id": 1001, "name": "Côte de la Jonchère", "climb_category": 3,
			 "start_latlng": [48.86, 2.35], "end_latlng": [48.87, 2.36],
			 "avg_grade": 5.2, "distance": 1840.5, "points": "_p~iF~ps|U_ulLnnqC"}
		]}`))
	}))
	defer srv.Close()

	segs, err := newTestClient(srv, staticToken("tok-1")).ExploreSegments(context.Background(), geo.Bounds{
		SWLat: 48.8, SWLng: 2.3, NELat: 48.9, NELng: 2.4,
	})
	if err != nil {
		t.Fatalf("explore: %v", err)
	}
	if len(segs) != 1 {
		t.Fatalf("expected 1 segment, got %d", len(segs))
	}
	s := segs[0]
	if s.ID != 1001 || s.Name != "Côte de la Jonchère" {
		t.Fatalf("unexpected segment: %+v", s)
	}
	if len(s.StartLatLng) != 2 || s.StartLatLng[0] != 48.86 {
		t.Fatalf("unexpected start: %+v", s.StartLatLng)
	}
	if s.Points == "" {
		t.Fatal("missing polyline")
	}
}

func TestListActivities(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/athlete/activities" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		q := r.URL.Query()
		if q.Get("page") != "2" || q.Get("per_page") != "10" {
			t.Errorf("unexpected paging %s", r.URL.RawQuery)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`[
			{"id": 7, "name": "Morning Ride", "type": "Ride", "distance": 42000.0, "moving_time": 5400},
			{"id": 8, "name": "Lunch Run", "type": "Run", "distance": 8000.0, "moving_time": 2400}
		]`))
	}))
	defer srv.Close()

	acts, err := newTestClient(srv, staticToken("tok-1")).ListActivities(context.Background(), 2, 10)
	if err != nil {
		t.Fatalf("list activities: %v", err)
	}
	if len(acts) != 2 {
		t.Fatalf("expected 2 activities, got %d", len(acts))
	}
	if acts[0].ID != 7 || acts[0].Type != "Ride" {
		t.Fatalf("unexpected activity: %+v", acts[0])
	}
}

func TestActivityStreams(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/activities/7/streams" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		q := r.URL.Query()
		if q.Get("key_by_type") != "true" {
			t.Errorf("missing key_by_type: %s", r.URL.RawQuery)
		}
		if q.Get("keys") != "time,heartrate,watts,cadence,velocity_smooth" {
			t.Errorf("unexpected keys %q", q.Get("keys"))
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"time": {"data": [0, 1, 2], "series_type": "time", "original_size": 3},
			"heartrate": {"data": [120, 130, 140], "series_type": "time", "original_size": 3},
			"watts": {"data": [200, 210, 220], "series_type": "time", "original_size": 3, "device_watts": false}
		}`))
	}))
	defer srv.Close()

	streams, err := newTestClient(srv, staticToken("tok-1")).ActivityStreams(context.Background(), 7, nil)
	if err != nil {
		t.Fatalf("streams: %v", err)
	}
	if len(streams["time"].Data) != 3 {
		t.Fatalf("unexpected time stream: %+v", streams["time"])
	}
	watts := streams["watts"]
	if watts.DeviceWatts == nil || *watts.DeviceWatts {
		t.Fatalf("expected device_watts false, got %+v", watts.DeviceWatts)
	}
	if streams["heartrate"].Data[2] != 140 {
		t.Fatalf("unexpected heartrate stream: %+v", streams["heartrate"])
	}
}

func TestGetAthlete(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/athlete" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"id": 42, "firstname": "Jo", "weight": 71.5, "ftp": 265}`))
	}))
	defer srv.Close()

	athlete, err := newTestClient(srv, staticToken("tok-1")).GetAthlete(context.Background())
	if err != nil {
		t.Fatalf("athlete: %v", err)
	}
	if athlete.ID != 42 || athlete.WeightKg != 71.5 || athlete.FTP != 265 {
		t.Fatalf("unexpected athlete: %+v", athlete)
	}
}

func TestClientNotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"message":"Record Not Found"}`))
	}))
	defer srv.Close()

	_, err := newTestClient(srv, staticToken("tok-1")).GetActivity(context.Background(), 999)
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestWithTokensRebindsSource(t *testing.T) {
	var gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		w.Write([]byte(`{"id": 42}`))
	}))
	defer srv.Close()

	base := newTestClient(srv, nil)
	if _, err := base.GetAthlete(context.Background()); !errors.Is(err, ErrAuthenticationRequired) {
		t.Fatalf("expected authentication required without tokens, got %v", err)
	}

	bound := base.WithTokens(staticToken("tok-session"))
	if _, err := bound.GetAthlete(context.Background()); err != nil {
		t.Fatalf("bound client: %v", err)
	}
	if gotAuth != "Bearer tok-session" {
		t.Fatalf("unexpected authorization header %q", gotAuth)
	}
	if base.circuit != bound.circuit {
		t.Fatal("expected the clone to share the circuit breaker")
	}
}

func TestClientUnauthorized(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"message":"Authorization Error"}`))
	}))
	defer srv.Close()

	_, err := newTestClient(srv, staticToken("tok-revoked")).GetAthlete(context.Background())
	if !errors.Is(err, ErrAuthenticationRequired) {
		t.Fatalf("expected authentication required, got %v", err)
	}
}

func TestClientPropagatesTokenError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("request must not reach the API without a token")
	}))
	defer srv.Close()

	noToken := tokenFunc(func(ctx context.Context) (string, error) {
		return "", ErrAuthenticationRequired
	})
	_, err := newTestClient(srv, noToken).GetAthlete(context.Background())
	if !errors.Is(err, ErrAuthenticationRequired) {
		t.Fatalf("expected authentication required, got %v", err)
	}
}
