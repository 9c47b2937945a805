package strava

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
	"strings"

	"github.com/sony/gobreaker"

	"github.com/fum1er/KOM-Hunters/internal/shared/geo"
	"github.com/fum1er/KOM-Hunters/internal/shared/httpx"
)

// The explore endpoint never returns more than ten segments per call
// regardless of paging parameters.
const MaxSegmentsPerExplore = 10

// ErrNotFound reports a 404 from the API: the resource does not exist or
// belongs to another athlete.
var ErrNotFound = errors.New("strava resource not found")

// DefaultStreamKeys are the sample series requested for activity analysis.
var DefaultStreamKeys = []string{"time", "heartrate", "watts", "cadence", "velocity_smooth"}

// TokenSource supplies a currently valid access token, refreshing it first if
// necessary.
type TokenSource interface {
	Current(ctx context.Context) (string, error)
}

// Client calls the Strava v3 API on behalf of one athlete.
type Client struct {
	tokens  TokenSource
	httpCfg httpx.ClientConfig
	circuit *gobreaker.CircuitBreaker
	baseURL string
}

func NewClient(httpClient *http.Client, tokens TokenSource) *Client {
	return &Client{
		tokens:  tokens,
		httpCfg: httpx.DefaultConfig(httpClient),
		circuit: httpx.NewBreaker("strava-api"),
		baseURL: apiBaseURL,
	}
}

// WithTokens returns a copy of the client bound to a different token source.
// The HTTP policy and circuit breaker are shared: Strava's rate limit is per
// application, not per athlete, so every session must trip the same breaker.
func (c *Client) WithTokens(tokens TokenSource) *Client {
	clone := *c
	clone.tokens = tokens
	return &clone
}

// ExploreSegments returns the most popular riding segments inside bounds,
// capped at MaxSegmentsPerExplore by the API.
func (c *Client) ExploreSegments(ctx context.Context, b geo.Bounds) ([]ExploreSegment, error) {
	q := url.Values{}
	q.Set("bounds", b.String())
	q.Set("activity_type", "riding")

	var out exploreResponse
	if err := c.get(ctx, "/segments/explore", q, &out); err != nil {
		return nil, err
	}
	return out.Segments, nil
}

// ListActivities returns one page of the athlete's activities, newest first.
func (c *Client) ListActivities(ctx context.Context, page, perPage int) ([]Activity, error) {
	q := url.Values{}
	q.Set("page", strconv.Itoa(page))
	q.Set("per_page", strconv.Itoa(perPage))

	var out []Activity
	if err := c.get(ctx, "/athlete/activities", q, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// GetActivity returns the detailed representation of one activity.
func (c *Client) GetActivity(ctx context.Context, id int64) (*Activity, error) {
	var out Activity
	if err := c.get(ctx, "/activities/"+strconv.FormatInt(id, 10), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ActivityStreams returns the requested sample series of an activity, keyed
// by type. Keys defaults to DefaultStreamKeys when empty.
func (c *Client) ActivityStreams(ctx context.Context, id int64, keys []string) (StreamSet, error) {
	if len(keys) == 0 {
		keys = DefaultStreamKeys
	}
	q := url.Values{}
	q.Set("keys", strings.Join(keys, ","))
	q.Set("key_by_type", "true")

	var out StreamSet
	if err := c.get(ctx, "/activities/"+strconv.FormatInt(id, 10)+"/streams", q, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// GetAthlete returns the authenticated athlete's detailed profile.
func (c *Client) GetAthlete(ctx context.Context) (*Athlete, error) {
	var out Athlete
	if err := c.get(ctx, "/athlete", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) get(ctx context.Context, path string, query url.Values, out interface{}) error {
	if c.tokens == nil {
		return ErrAuthenticationRequired
	}
	token, err := c.tokens.Current(ctx)
	if err != nil {
		return err
	}

	build := func() (*http.Request, error) {
		u := c.baseURL + path
		if len(query) > 0 {
			u += "?" + query.Encode()
		}
		req, err := http.NewRequest(http.MethodGet, u, nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("Authorization", "Bearer "+token)
		return req, nil
	}

	resp, err := httpx.Do(ctx, c.httpCfg, c.circuit, build)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		io.Copy(io.Discard, resp.Body)
		return ErrAuthenticationRequired
	case resp.StatusCode == http.StatusNotFound:
		io.Copy(io.Discard, resp.Body)
		return fmt.Errorf("%w: %s", ErrNotFound, path)
	case resp.StatusCode != http.StatusOK:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return fmt.Errorf("strava returned %d for %s: %s", resp.StatusCode, path, bytes.TrimSpace(body))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s response: %w", path, err)
	}
	return nil
}
