package strava

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/fum1er/KOM-Hunters/internal/logger"
	"github.com/fum1er/KOM-Hunters/internal/shared/httpx"
)

// State tracks where a credential sits in its lifecycle.
type State int

const (
	StateUnauthenticated State = iota
	StateAuthenticated
	StateExpiring
	StateRefreshing
	StateRefreshFailed
)

func (s State) String() string {
	switch s {
	case StateUnauthenticated:
		return "unauthenticated"
	case StateAuthenticated:
		return "authenticated"
	case StateExpiring:
		return "expiring"
	case StateRefreshing:
		return "refreshing"
	case StateRefreshFailed:
		return "refresh_failed"
	default:
		return "unknown"
	}
}

// ErrAuthenticationRequired means no usable credential exists and the athlete
// must go through the login flow (again).
var ErrAuthenticationRequired = errors.New("authentication required")

const (
	// A token within this margin of expiry is treated as expired so it never
	// dies mid-request.
	refreshSafetyMargin = 120 * time.Second

	refreshTimeout = 30 * time.Second
)

// Refresher exchanges a refresh token for a new credential.
type Refresher interface {
	Refresh(ctx context.Context, refreshToken string) (Credential, error)
}

// TokenStore holds one athlete's credential and keeps it fresh. Any number of
// goroutines may call Current concurrently; at most one refresh is in flight
// at a time and every caller blocks on that shared attempt instead of firing
// its own.
type TokenStore struct {
	mu        sync.Mutex
	state     State
	cred      Credential
	lastErr   error
	refresher Refresher

	// refreshDone identifies the in-flight refresh. It is closed when that
	// refresh settles and replaced wholesale when a newer credential or
	// attempt supersedes it.
	refreshDone chan struct{}

	now func() time.Time
}

func NewTokenStore(r Refresher) *TokenStore {
	return &TokenStore{
		state:     StateUnauthenticated,
		refresher: r,
		now:       time.Now,
	}
}

// State reports the current lifecycle state.
func (s *TokenStore) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Credential returns a copy of the stored credential.
func (s *TokenStore) Credential() Credential {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cred
}

// OnAuthenticated installs a credential obtained from a completed login flow.
// A login always wins: if a refresh is in flight its result is discarded when
// it lands.
func (s *TokenStore) OnAuthenticated(cred Credential) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cred = cred
	s.state = StateAuthenticated
	s.lastErr = nil
	s.refreshDone = nil
}

// Current returns an access token valid for at least the safety margin. It
// refreshes the credential first when needed, blocking until the shared
// refresh settles or ctx is done. Cancelling ctx abandons the wait only; the
// refresh itself runs on a detached context and still updates the store.
func (s *TokenStore) Current(ctx context.Context) (string, error) {
	s.mu.Lock()
	for {
		switch s.state {
		case StateUnauthenticated, StateRefreshFailed:
			s.mu.Unlock()
			return "", ErrAuthenticationRequired

		case StateAuthenticated:
			if s.cred.ExpiresAt.After(s.now().Add(refreshSafetyMargin)) {
				token := s.cred.AccessToken
				s.mu.Unlock()
				return token, nil
			}
			s.state = StateExpiring

		case StateExpiring:
			s.startRefreshLocked()

		case StateRefreshing:
			done := s.refreshDone
			s.mu.Unlock()
			select {
			case <-ctx.Done():
				return "", ctx.Err()
			case <-done:
			}
			s.mu.Lock()
			// A transient failure leaves the credential expiring; report it
			// rather than retrying in a loop. The next Current call starts a
			// fresh attempt.
			if s.state == StateExpiring && s.lastErr != nil {
				err := s.lastErr
				s.mu.Unlock()
				return "", err
			}
		}
	}
}

// startRefreshLocked transitions to Refreshing and launches the single
// refresh goroutine. Callers must hold s.mu.
func (s *TokenStore) startRefreshLocked() {
	done := make(chan struct{})
	s.refreshDone = done
	s.state = StateRefreshing
	s.lastErr = nil
	go s.runRefresh(s.cred.RefreshToken, done)
}

func (s *TokenStore) runRefresh(refreshToken string, done chan struct{}) {
	ctx, cancel := context.WithTimeout(context.Background(), refreshTimeout)
	defer cancel()

	cred, err := s.refresher.Refresh(ctx, refreshToken)

	s.mu.Lock()
	defer s.mu.Unlock()
	defer close(done)

	// A login landed while this refresh was in flight; its credential wins.
	if s.refreshDone != done {
		return
	}
	s.refreshDone = nil

	switch {
	case err == nil:
		s.cred = cred
		s.state = StateAuthenticated
		logger.Info("strava token refreshed")
	case errors.Is(err, ErrInvalidGrant):
		s.state = StateRefreshFailed
		s.lastErr = ErrAuthenticationRequired
		logger.Error(fmt.Errorf("strava refresh token rejected: %v", err))
	default:
		s.state = StateExpiring
		s.lastErr = fmt.Errorf("%w: token refresh: %v", httpx.ErrUpstreamUnavailable, err)
		logger.Error(fmt.Errorf("strava token refresh failed: %v", err))
	}
}
