package portfolio

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// DefaultSessionIdleTimeout is how long an untouched session is kept.
const DefaultSessionIdleTimeout = 12 * time.Hour

// SessionStore holds live sessions keyed by a random id.
type SessionStore struct {
	mu          sync.RWMutex
	sessions    map[string]*SessionState
	idleTimeout time.Duration
	now         func() time.Time
}

// NewSessionStore creates an empty store. A non-positive idleTimeout uses
// DefaultSessionIdleTimeout.
func NewSessionStore(idleTimeout time.Duration) *SessionStore {
	return &SessionStore{
		sessions:    make(map[string]*SessionState),
		idleTimeout: defaultDuration(idleTimeout, DefaultSessionIdleTimeout),
		now:         time.Now,
	}
}

// Create starts a new session.
func (s *SessionStore) Create() *SessionState {
	session := newSessionState(uuid.NewString(), s.now())
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[session.ID] = session
	return session
}

// Get returns a live session and marks it seen. Expired or unknown ids
// return false.
func (s *SessionStore) Get(id string) (*SessionState, bool) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	session, ok := s.sessions[id]
	if !ok {
		return nil, false
	}
	now := s.now()
	if now.Sub(session.LastSeen) > s.idleTimeout {
		delete(s.sessions, id)
		return nil, false
	}
	session.LastSeen = now
	return session, true
}

// GetOrCreate resolves id, starting a fresh session when it is not live.
func (s *SessionStore) GetOrCreate(id string) (*SessionState, bool) {
	if session, ok := s.Get(id); ok {
		return session, false
	}
	return s.Create(), true
}

// Delete removes a session by id.
func (s *SessionStore) Delete(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, id)
}

// Len returns the number of stored sessions.
func (s *SessionStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

// Sweep drops idle sessions and returns how many were removed. A session
// whose lock is held is in use and is never dropped.
func (s *SessionStore) Sweep() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	removed := 0
	for id, session := range s.sessions {
		if now.Sub(session.LastSeen) <= s.idleTimeout {
			continue
		}
		if !session.mu.TryLock() {
			continue
		}
		delete(s.sessions, id)
		session.mu.Unlock()
		removed++
	}
	return removed
}
