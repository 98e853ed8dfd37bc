package session

import (
	"context"
	"sync"
	"time"
)

// Store keeps the server-side half of a session.
type Store interface {
	Save(ctx context.Context, s Session) error
	Lookup(ctx context.Context, id string) (Session, error)
	Revoke(ctx context.Context, id string) error
}

// MemoryStore is a process-local Store used when no Redis URL is configured.
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[string]Session
	now      func() time.Time
}

// NewMemoryStore creates an empty in-process store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		sessions: make(map[string]Session),
		now:      time.Now,
	}
}

// Save stores s until its ExpiresAt.
func (m *MemoryStore) Save(_ context.Context, s Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[s.ID] = s
	return nil
}

// Lookup returns the session for id, dropping it if it has expired.
func (m *MemoryStore) Lookup(_ context.Context, id string) (Session, error) {
	m.mu.RLock()
	s, ok := m.sessions[id]
	m.mu.RUnlock()
	if !ok {
		return Session{}, ErrNoSession
	}
	if !s.ExpiresAt.IsZero() && !m.now().Before(s.ExpiresAt) {
		m.mu.Lock()
		delete(m.sessions, id)
		m.mu.Unlock()
		return Session{}, ErrNoSession
	}
	return s, nil
}

// Revoke deletes id. Unknown ids are not an error.
func (m *MemoryStore) Revoke(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, id)
	return nil
}
