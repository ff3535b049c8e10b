package memory

import (
	"context"
	"sync"
	"time"
)

type sessionEntry struct {
	sessionID string
	expiresAt time.Time
}

// SessionStore implements ports.SessionStore with expiring map entries.
type SessionStore struct {
	mu      sync.Mutex
	entries map[int64]sessionEntry
	now     func() time.Time
}

func NewSessionStore() *SessionStore {
	return &SessionStore{
		entries: make(map[int64]sessionEntry),
		now:     time.Now,
	}
}

func (s *SessionStore) Bind(_ context.Context, accountID int64, sessionID string, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[accountID] = sessionEntry{sessionID: sessionID, expiresAt: s.now().Add(ttl)}
	return nil
}

func (s *SessionStore) Active(_ context.Context, accountID int64) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[accountID]
	if !ok {
		return "", nil
	}
	if !s.now().Before(e.expiresAt) {
		delete(s.entries, accountID)
		return "", nil
	}
	return e.sessionID, nil
}

func (s *SessionStore) Release(_ context.Context, accountID int64, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if e, ok := s.entries[accountID]; ok && e.sessionID == sessionID {
		delete(s.entries, accountID)
	}
	return nil
}
