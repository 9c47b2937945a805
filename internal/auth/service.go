package auth

import (
	"context"
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/fum1er/KOM-Hunters/internal/logger"
	"github.com/fum1er/KOM-Hunters/internal/strava"
)

// ErrInvalidState rejects a callback whose state was never issued, was
// already used, or expired.
var ErrInvalidState = errors.New("authorization state invalid")

// OAuthFlow is the part of the Strava OAuth client the login flow needs.
type OAuthFlow interface {
	AuthorizeURL(state string) string
	Exchange(ctx context.Context, code string) (strava.Credential, *strava.Athlete, error)
}

// Service runs the Strava login flow and issues the signed bearer tokens that
// tie API requests back to a session. There is no local user store; Strava is
// the identity provider.
type Service struct {
	secret   []byte
	oauth    OAuthFlow
	sessions *SessionManager
}

type Claims struct {
	SessionID string `json:"session_id"`
	AthleteID int64  `json:"athlete_id"`
	jwt.RegisteredClaims
}

func NewService(secret string, oauth OAuthFlow, sessions *SessionManager) *Service {
	return &Service{
		secret:   []byte(secret),
		oauth:    oauth,
		sessions: sessions,
	}
}

// LoginURL returns the Strava consent page URL for a fresh login attempt.
func (s *Service) LoginURL() string {
	return s.oauth.AuthorizeURL(s.sessions.IssueState())
}

// HandleCallback redeems the authorization code Strava sent to the redirect
// URI. On success the athlete has a live session and a bearer token for it.
func (s *Service) HandleCallback(ctx context.Context, state, code string) (string, *Session, error) {
	if !s.sessions.ConsumeState(state) {
		return "", nil, ErrInvalidState
	}

	cred, athlete, err := s.oauth.Exchange(ctx, code)
	if err != nil {
		return "", nil, err
	}
	if athlete == nil {
		athlete = &strava.Athlete{}
	}

	sess := s.sessions.Create(*athlete, cred)
	token, err := s.signToken(sess)
	if err != nil {
		return "", nil, err
	}

	logger.WithFields(map[string]interface{}{
		"athlete": sess.AthleteID,
		"session": sess.ID,
	}).Info("athlete logged in")
	return token, sess, nil
}

// Logout ends the session behind a bearer token's claims.
func (s *Service) Logout(sessionID string) {
	s.sessions.Delete(sessionID)
}

// SessionFromToken resolves a bearer token to its live session.
func (s *Service) SessionFromToken(token string) (*Session, error) {
	claims, err := s.parseToken(token)
	if err != nil {
		return nil, err
	}
	sess, ok := s.sessions.Get(claims.SessionID)
	if !ok {
		return nil, errors.New("session expired")
	}
	return sess, nil
}

func (s *Service) signToken(sess *Session) (string, error) {
	claims := Claims{
		SessionID: sess.ID,
		AthleteID: sess.AthleteID,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(sess.ExpiresAt),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.secret)
}

func (s *Service) parseToken(token string) (*Claims, error) {
	parsed, err := parseWithClaimsFn(token, &Claims{}, func(_ *jwt.Token) (interface{}, error) {
		return s.secret, nil
	})
	if err != nil {
		return nil, err
	}
	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return nil, errors.New("token invalid")
	}
	return claims, nil
}

var parseWithClaimsFn = jwt.ParseWithClaims
