package store

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/i474232898/weather-bot/internal/conversation"
)

var (
	// ErrNotFound is returned when no session exists for an id.
	ErrNotFound = errors.New("session not found")
)

// MemoryStore is a concurrency-safe in-memory session store.
type MemoryStore struct {
	mu sync.RWMutex

	// key: session id
	data map[string]conversation.Session

	clock clockwork.Clock
}

// NewMemoryStore creates an empty MemoryStore. A nil clock uses wall time.
func NewMemoryStore(clock clockwork.Clock) *MemoryStore {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &MemoryStore{
		data:  make(map[string]conversation.Session),
		clock: clock,
	}
}

// Get returns the session for id or ErrNotFound.
func (s *MemoryStore) Get(_ context.Context, id string) (conversation.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sess, ok := s.data[id]
	if !ok {
		return conversation.Session{}, ErrNotFound
	}
	return sess, nil
}

// Put stores sess and stamps its UpdatedAt with the store clock.
func (s *MemoryStore) Put(_ context.Context, sess conversation.Session) error {
	sess.UpdatedAt = s.clock.Now().UTC()

	s.mu.Lock()
	defer s.mu.Unlock()

	s.data[sess.ID] = sess
	return nil
}

// Delete removes the session; deleting a missing id is not an error.
func (s *MemoryStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.data, id)
	return nil
}

// EvictIdle removes sessions not updated within olderThan and returns how many
// were removed.
func (s *MemoryStore) EvictIdle(_ context.Context, olderThan time.Duration) (int, error) {
	cutoff := s.clock.Now().UTC().Add(-olderThan)

	s.mu.Lock()
	defer s.mu.Unlock()

	n := 0
	for id, sess := range s.data {
		if sess.UpdatedAt.Before(cutoff) {
			delete(s.data, id)
			n++
		}
	}
	return n, nil
}

// Len returns the number of stored sessions.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.data)
}
