package scheduler

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/fum1er/KOM-Hunters/internal/auth"
	"github.com/fum1er/KOM-Hunters/internal/strava"
)

type refreshFunc func(ctx context.Context, refreshToken string) (strava.Credential, error)

func (f refreshFunc) Refresh(ctx context.Context, refreshToken string) (strava.Credential, error) {
	return f(ctx, refreshToken)
}

func TestRunOnceRefreshesExpiringTokens(t *testing.T) {
	var calls int32
	refresher := refreshFunc(func(ctx context.Context, rt string) (strava.Credential, error) {
		atomic.AddInt32(&calls, 1)
		if rt != "ref-1" {
			t.Errorf("unexpected refresh token: %s", rt)
		}
		return strava.Credential{
			AccessToken:  "acc-2",
			RefreshToken: "ref-2",
			ExpiresAt:    time.Now().Add(6 * time.Hour),
		}, nil
	})

	sessions := auth.NewSessionManager(refresher, time.Hour)
	sess := sessions.Create(strava.Athlete{ID: 42}, strava.Credential{
		AccessToken:  "acc-1",
		RefreshToken: "ref-1",
		ExpiresAt:    time.Now().Add(30 * time.Second),
	})

	New(sessions, time.Minute).RunOnce()

	if got := atomic.LoadInt32(&calls); got != 1 {
		t.Fatalf("expected one refresh, got %d", got)
	}
	if got := sess.Tokens.State(); got != strava.StateAuthenticated {
		t.Fatalf("unexpected token state: %v", got)
	}
	if got := sess.Tokens.Credential().AccessToken; got != "acc-2" {
		t.Fatalf("unexpected access token: %s", got)
	}
}

func TestRunOnceLeavesFreshTokensAlone(t *testing.T) {
	var calls int32
	refresher := refreshFunc(func(ctx context.Context, rt string) (strava.Credential, error) {
		atomic.AddInt32(&calls, 1)
		return strava.Credential{}, nil
	})

	sessions := auth.NewSessionManager(refresher, time.Hour)
	sessions.Create(strava.Athlete{ID: 42}, strava.Credential{
		AccessToken:  "acc-1",
		RefreshToken: "ref-1",
		ExpiresAt:    time.Now().Add(6 * time.Hour),
	})

	New(sessions, time.Minute).RunOnce()

	if got := atomic.LoadInt32(&calls); got != 0 {
		t.Fatalf("expected no refresh for a fresh token, got %d", got)
	}
}

func TestRunOnceSkipsDeadCredentials(t *testing.T) {
	var calls int32
	refresher := refreshFunc(func(ctx context.Context, rt string) (strava.Credential, error) {
		atomic.AddInt32(&calls, 1)
		return strava.Credential{}, strava.ErrInvalidGrant
	})

	sessions := auth.NewSessionManager(refresher, time.Hour)
	sessions.Create(strava.Athlete{ID: 42}, strava.Credential{
		AccessToken:  "acc-1",
		RefreshToken: "ref-1",
		ExpiresAt:    time.Now().Add(30 * time.Second),
	})

	sched := New(sessions, time.Minute)

	// First pass attempts the refresh and the grant is rejected for good.
	sched.RunOnce()
	if got := atomic.LoadInt32(&calls); got != 1 {
		t.Fatalf("expected one attempt, got %d", got)
	}

	// Later passes must not keep hammering a dead credential.
	sched.RunOnce()
	if got := atomic.LoadInt32(&calls); got != 1 {
		t.Fatalf("expected no further attempts, got %d", got)
	}
}

func TestRunOnceSweepsExpiredSessions(t *testing.T) {
	refresher := refreshFunc(func(ctx context.Context, rt string) (strava.Credential, error) {
		t.Error("no refresh expected for an expired session")
		return strava.Credential{}, nil
	})

	sessions := auth.NewSessionManager(refresher, time.Nanosecond)
	sess := sessions.Create(strava.Athlete{ID: 42}, strava.Credential{
		AccessToken:  "acc-1",
		RefreshToken: "ref-1",
		ExpiresAt:    time.Now().Add(30 * time.Second),
	})
	time.Sleep(time.Millisecond)

	New(sessions, time.Minute).RunOnce()

	if _, ok := sessions.Get(sess.ID); ok {
		t.Fatal("expected the expired session to be swept")
	}
	if got := len(sessions.Sessions()); got != 0 {
		t.Fatalf("expected no live sessions, got %d", got)
	}
}
