package auth

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/fum1er/KOM-Hunters/internal/strava"
)

const (
	// DefaultSessionTTL bounds how long a login stays usable before the
	// athlete has to run the authorization flow again.
	DefaultSessionTTL = 30 * 24 * time.Hour

	// An issued OAuth state is only redeemable this long.
	stateTTL = 10 * time.Minute
)

// Session is one athlete's login. Tokens keeps the Strava credential fresh
// for the session's lifetime; everything acting on the athlete's behalf draws
// access tokens from it.
type Session struct {
	ID        string
	AthleteID int64
	Athlete   strava.Athlete
	Tokens    *strava.TokenStore
	CreatedAt time.Time
	ExpiresAt time.Time
}

// SessionManager holds live sessions and pending OAuth states in memory.
// Sessions do not survive a restart; athletes just log in again.
type SessionManager struct {
	mu       sync.RWMutex
	sessions map[string]*Session
	states   map[string]time.Time

	ttl       time.Duration
	refresher strava.Refresher
	now       func() time.Time
}

func NewSessionManager(refresher strava.Refresher, ttl time.Duration) *SessionManager {
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}
	return &SessionManager{
		sessions:  make(map[string]*Session),
		states:    make(map[string]time.Time),
		ttl:       ttl,
		refresher: refresher,
		now:       time.Now,
	}
}

// IssueState mints a single-use state for the authorization redirect. The
// callback must present it back within the state TTL.
func (m *SessionManager) IssueState() string {
	state := uuid.NewString()
	m.mu.Lock()
	m.states[state] = m.now().Add(stateTTL)
	m.mu.Unlock()
	return state
}

// ConsumeState redeems an issued state. Each state is valid exactly once.
func (m *SessionManager) ConsumeState(state string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	deadline, ok := m.states[state]
	if !ok {
		return false
	}
	delete(m.states, state)
	return m.now().Before(deadline)
}

// Create opens a session for an athlete who completed the authorization flow.
func (m *SessionManager) Create(athlete strava.Athlete, cred strava.Credential) *Session {
	tokens := strava.NewTokenStore(m.refresher)
	tokens.OnAuthenticated(cred)

	now := m.now()
	sess := &Session{
		ID:        uuid.NewString(),
		AthleteID: athlete.ID,
		Athlete:   athlete,
		Tokens:    tokens,
		CreatedAt: now,
		ExpiresAt: now.Add(m.ttl),
	}

	m.mu.Lock()
	m.sessions[sess.ID] = sess
	m.mu.Unlock()
	return sess
}

// Get returns the session with this ID, or false when it is unknown or past
// its expiry.
func (m *SessionManager) Get(id string) (*Session, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	sess, ok := m.sessions[id]
	if !ok || m.now().After(sess.ExpiresAt) {
		return nil, false
	}
	return sess, true
}

// Delete ends a session immediately.
func (m *SessionManager) Delete(id string) {
	m.mu.Lock()
	delete(m.sessions, id)
	m.mu.Unlock()
}

// Sessions snapshots the live sessions for background maintenance.
func (m *SessionManager) Sessions() []*Session {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*Session, 0, len(m.sessions))
	for _, sess := range m.sessions {
		out = append(out, sess)
	}
	return out
}

// Sweep drops expired sessions and stale states, returning how many of each
// were removed.
func (m *SessionManager) Sweep() (sessions, states int) {
	now := m.now()
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, sess := range m.sessions {
		if now.After(sess.ExpiresAt) {
			delete(m.sessions, id)
			sessions++
		}
	}
	for state, deadline := range m.states {
		if now.After(deadline) {
			delete(m.states, state)
			states++
		}
	}
	return sessions, states
}
