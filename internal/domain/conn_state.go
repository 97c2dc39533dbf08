package domain

import (
	"sync"
	"time"
)

// ConnState is the per-connection mutable record: identity, membership, and
// the correlation id of the most recent inbound message. It is owned by the
// connection's client and passed explicitly into the protocol engine; no
// other component mutates it.
type ConnState struct {
	ID              string
	claims          *Claims
	classSessionID  string
	lastCorrelation string
	createdAt       time.Time
	mu              sync.RWMutex
}

// NewConnState creates the state for a fresh, unauthenticated connection.
func NewConnState(id string) *ConnState {
	return &ConnState{
		ID:        id,
		createdAt: time.Now(),
	}
}

// Authenticate installs verified claims, replacing any previous ones.
// Membership is unaffected.
func (s *ConnState) Authenticate(claims *Claims) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.claims = claims
}

// Claims returns the verified claims, or nil before a successful auth.
func (s *ConnState) Claims() *Claims {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.claims
}

// IsAuthenticated reports whether auth has succeeded at least once.
func (s *ConnState) IsAuthenticated() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.claims != nil
}

// Join binds the connection to a class session.
func (s *ConnState) Join(classSessionID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.classSessionID = classSessionID
}

// Leave clears the session binding.
func (s *ConnState) Leave() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.classSessionID = ""
}

// JoinedSession returns the bound class session id, empty if not joined.
func (s *ConnState) JoinedSession() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.classSessionID
}

// IsJoined reports whether the connection is bound to a session.
func (s *ConnState) IsJoined() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.classSessionID != ""
}

// SetCorrelation records the correlation id of the latest inbound message.
func (s *ConnState) SetCorrelation(correlationID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastCorrelation = correlationID
}

// Correlation returns the correlation id of the latest inbound message.
func (s *ConnState) Correlation() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastCorrelation
}
