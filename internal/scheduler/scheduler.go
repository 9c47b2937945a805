package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/go-co-op/gocron"

	"github.com/fum1er/KOM-Hunters/internal/auth"
	"github.com/fum1er/KOM-Hunters/internal/logger"
	"github.com/fum1er/KOM-Hunters/internal/strava"
)

const refreshTimeout = 30 * time.Second

// Scheduler runs session maintenance in the background. Each pass drops
// expired sessions and stale OAuth states, then refreshes Strava credentials
// that sit inside the expiry safety margin so interactive requests rarely pay
// the refresh round trip themselves.
type Scheduler struct {
	scheduler *gocron.Scheduler
	sessions  *auth.SessionManager
	interval  time.Duration
}

// New creates a Scheduler sweeping at the given interval.
func New(sessions *auth.SessionManager, interval time.Duration) *Scheduler {
	return &Scheduler{
		scheduler: gocron.NewScheduler(time.UTC),
		sessions:  sessions,
		interval:  interval,
	}
}

// Start schedules the maintenance job and starts the underlying scheduler.
func (s *Scheduler) Start() error {
	seconds := int(s.interval.Seconds())
	if seconds <= 0 {
		seconds = 60
	}

	if _, err := s.scheduler.Every(seconds).Seconds().Do(s.RunOnce); err != nil {
		return err
	}

	s.scheduler.StartAsync()
	return nil
}

// RunOnce executes a single maintenance pass. It is the job body and is also
// callable directly.
func (s *Scheduler) RunOnce() {
	expired, states := s.sessions.Sweep()
	if expired > 0 || states > 0 {
		logger.WithFields(map[string]interface{}{
			"sessions": expired,
			"states":   states,
		}).Info("swept expired sessions")
	}

	var wg sync.WaitGroup
	for _, sess := range s.sessions.Sessions() {
		switch sess.Tokens.State() {
		case strava.StateUnauthenticated, strava.StateRefreshFailed:
			// Refreshing cannot revive these; the athlete has to log in again.
			continue
		}

		sess := sess
		wg.Add(1)
		go func() {
			defer wg.Done()

			ctx, cancel := context.WithTimeout(context.Background(), refreshTimeout)
			defer cancel()

			// Current only hits Strava when the credential is inside the
			// safety margin, so walking every session is cheap.
			if _, err := sess.Tokens.Current(ctx); err != nil {
				logger.Error(fmt.Errorf("background refresh for athlete %d: %v", sess.AthleteID, err))
			}
		}()
	}
	wg.Wait()
}

// Stop stops the scheduler and cancels any future jobs.
func (s *Scheduler) Stop() {
	if s.scheduler != nil {
		s.scheduler.Stop()
	}
}
