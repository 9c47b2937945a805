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
	"strings"
	"time"

	"github.com/sony/gobreaker"

	"github.com/fum1er/KOM-Hunters/internal/shared/httpx"
)

const (
	apiBaseURL        = "https://www.strava.com/api/v3"
	oauthTokenURL     = "https://www.strava.com/oauth/token"
	oauthAuthorizeURL = "https://www.strava.com/oauth/authorize"

	// DefaultScope grants profile reads plus all activities, which segment
	// exploration and activity analysis both need.
	DefaultScope = "read,activity:read_all"
)

// ErrInvalidGrant reports that Strava rejected the authorization code or
// refresh token itself. Retrying cannot succeed; the athlete has to log in
// again.
var ErrInvalidGrant = errors.New("authorization grant rejected")

// OAuthConfig identifies this application to Strava.
type OAuthConfig struct {
	ClientID     string
	ClientSecret string
	RedirectURI  string
	Scope        string
}

// OAuthClient drives the authorization-code and refresh-token grants against
// the Strava token endpoint.
type OAuthClient struct {
	cfg          OAuthConfig
	httpCfg      httpx.ClientConfig
	circuit      *gobreaker.CircuitBreaker
	tokenURL     string
	authorizeURL string
}

func NewOAuthClient(client *http.Client, cfg OAuthConfig) *OAuthClient {
	if cfg.Scope == "" {
		cfg.Scope = DefaultScope
	}
	return &OAuthClient{
		cfg:          cfg,
		httpCfg:      httpx.DefaultConfig(client),
		circuit:      httpx.NewBreaker("strava-oauth"),
		tokenURL:     oauthTokenURL,
		authorizeURL: oauthAuthorizeURL,
	}
}

// AuthorizeURL builds the Strava consent page URL. The state parameter is
// echoed back on the callback and must be validated there.
func (c *OAuthClient) AuthorizeURL(state string) string {
	v := url.Values{}
	v.Set("client_id", c.cfg.ClientID)
	v.Set("redirect_uri", c.cfg.RedirectURI)
	v.Set("response_type", "code")
	v.Set("approval_prompt", "auto")
	v.Set("scope", c.cfg.Scope)
	v.Set("state", state)
	return c.authorizeURL + "?" + v.Encode()
}

// Exchange trades an authorization code for a credential. Strava includes the
// athlete profile in this response, saving a follow-up call.
func (c *OAuthClient) Exchange(ctx context.Context, code string) (Credential, *Athlete, error) {
	form := url.Values{}
	form.Set("client_id", c.cfg.ClientID)
	form.Set("client_secret", c.cfg.ClientSecret)
	form.Set("code", code)
	form.Set("grant_type", "authorization_code")
	return c.requestToken(ctx, form)
}

// Refresh trades a refresh token for a new credential. Strava rotates the
// refresh token, so the returned credential must replace the stored one.
func (c *OAuthClient) Refresh(ctx context.Context, refreshToken string) (Credential, error) {
	form := url.Values{}
	form.Set("client_id", c.cfg.ClientID)
	form.Set("client_secret", c.cfg.ClientSecret)
	form.Set("refresh_token", refreshToken)
	form.Set("grant_type", "refresh_token")
	cred, _, err := c.requestToken(ctx, form)
	return cred, err
}

func (c *OAuthClient) requestToken(ctx context.Context, form url.Values) (Credential, *Athlete, error) {
	build := func() (*http.Request, error) {
		req, err := http.NewRequest(http.MethodPost, c.tokenURL, strings.NewReader(form.Encode()))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		return req, nil
	}

	resp, err := httpx.Do(ctx, c.httpCfg, c.circuit, build)
	if err != nil {
		return Credential{}, nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Credential{}, nil, decodeTokenError(resp)
	}

	var tr tokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&tr); err != nil {
		return Credential{}, nil, fmt.Errorf("decode token response: %w", err)
	}
	if tr.AccessToken == "" {
		return Credential{}, nil, errors.New("token response missing access token")
	}

	cred := Credential{
		AccessToken:  tr.AccessToken,
		RefreshToken: tr.RefreshToken,
		ExpiresAt:    time.Unix(tr.ExpiresAt, 0).UTC(),
	}
	return cred, tr.Athlete, nil
}

// decodeTokenError distinguishes a rejected grant from everything else.
// Strava answers the standard {"error":"invalid_grant"} for some flows and
// {"message":"Bad Request","errors":[{"field":"refresh_token","code":"invalid"}]}
// for others, so both shapes are checked.
func decodeTokenError(resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))

	var payload struct {
		Error   string `json:"error"`
		Message string `json:"message"`
		Errors  []struct {
			Resource string `json:"resource"`
			Field    string `json:"field"`
			Code     string `json:"code"`
		} `json:"errors"`
	}
	if err := json.Unmarshal(body, &payload); err == nil {
		if payload.Error == "invalid_grant" {
			return ErrInvalidGrant
		}
		for _, e := range payload.Errors {
			if e.Code == "invalid" && (e.Field == "refresh_token" || e.Field == "code") {
				return ErrInvalidGrant
			}
		}
	}

	return fmt.Errorf("token endpoint returned %d: %s", resp.StatusCode, bytes.TrimSpace(body))
}
