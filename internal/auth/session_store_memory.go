package auth

import (
	"context"
	"sync"
)

// NewInMemorySessionStore returns a SessionStore backed by an in-memory map.
func NewInMemorySessionStore() *InMemorySessionStore {
	return &InMemorySessionStore{sessions: make(map[string]Session)}
}

// InMemorySessionStore implements SessionStore for tests and local development.
type InMemorySessionStore struct {
	mu       sync.Mutex
	sessions map[string]Session
}

// Put stores the session, replacing any previous slot for the user.
func (s *InMemorySessionStore) Put(_ context.Context, session Session) error {
	s.mu.Lock()
	s.sessions[session.UserID] = session
	s.mu.Unlock()
	return nil
}

// Rotate swaps the slot under the store lock.
func (s *InMemorySessionStore) Rotate(_ context.Context, userID, expectedHash string, next Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.sessions[userID]
	if !ok {
		return ErrSessionNotFound
	}
	if current.TokenHash != expectedHash {
		return ErrTokenMismatch
	}
	next.UserID = userID
	s.sessions[userID] = next
	return nil
}

// Clear removes the user's slot.
func (s *InMemorySessionStore) Clear(_ context.Context, userID string) error {
	s.mu.Lock()
	delete(s.sessions, userID)
	s.mu.Unlock()
	return nil
}

// Has reports whether the user holds a slot. Useful for tests.
func (s *InMemorySessionStore) Has(userID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.sessions[userID]
	return ok
}
