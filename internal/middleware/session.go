package middleware

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// SessionCookieName is the cookie carrying the session token.
const SessionCookieName = "session_token"

// SessionUser is the authenticated identity attached to a request.
type SessionUser struct {
	UserID   uint64
	Username string
	IsAdmin  bool
}

type session struct {
	user      SessionUser
	expiresAt time.Time
}

// SessionStore holds active sessions in memory, keyed by opaque token.
// Sessions expire after the configured TTL; expired entries are dropped
// on lookup, and every Create sweeps the whole map so abandoned tokens
// cannot accumulate.
type SessionStore struct {
	mu       sync.RWMutex
	sessions map[string]session
	ttl      time.Duration
}

// NewSessionStore creates a session store with the given lifetime.
func NewSessionStore(ttl time.Duration) *SessionStore {
	return &SessionStore{
		sessions: make(map[string]session),
		ttl:      ttl,
	}
}

// Create registers a session for the user and returns its token.
// Expired sessions are swept out at the same time.
func (s *SessionStore) Create(user SessionUser) string {
	token := uuid.NewString()
	now := time.Now()

	s.mu.Lock()
	defer s.mu.Unlock()
	for t, sess := range s.sessions {
		if now.After(sess.expiresAt) {
			delete(s.sessions, t)
		}
	}
	s.sessions[token] = session{
		user:      user,
		expiresAt: now.Add(s.ttl),
	}
	return token
}

// Get returns the session user for a token, if the session is live.
func (s *SessionStore) Get(token string) (SessionUser, bool) {
	s.mu.RLock()
	sess, ok := s.sessions[token]
	s.mu.RUnlock()

	if !ok {
		return SessionUser{}, false
	}
	if time.Now().After(sess.expiresAt) {
		s.Delete(token)
		return SessionUser{}, false
	}
	return sess.user, true
}

// Delete removes a session.
func (s *SessionStore) Delete(token string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, token)
}
