package service

import (
	"context"
	"sync"
	"time"
)

// RevocationStore records currently-valid refresh tokens. The token string
// itself is the key; absence of an entry means the token is dead even if its
// signature still verifies. All methods return errors on store
// unavailability so callers can fail closed.
type RevocationStore interface {
	Put(ctx context.Context, token, username string, ttl time.Duration) error
	Get(ctx context.Context, token string) (username string, ok bool, err error)
	// Delete is idempotent: removing an absent key succeeds.
	Delete(ctx context.Context, token string) error
}

type inMemoryEntry struct {
	username  string
	expiresAt time.Time
}

// InMemoryRevocationStore backs tests and single-process dev runs.
type InMemoryRevocationStore struct {
	mu      sync.Mutex
	entries map[string]inMemoryEntry
}

func NewInMemoryRevocationStore() *InMemoryRevocationStore {
	return &InMemoryRevocationStore{entries: make(map[string]inMemoryEntry)}
}

func (s *InMemoryRevocationStore) Put(_ context.Context, token, username string, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[token] = inMemoryEntry{username: username, expiresAt: time.Now().Add(ttl)}
	return nil
}

func (s *InMemoryRevocationStore) Get(_ context.Context, token string) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[token]
	if !ok {
		return "", false, nil
	}
	if time.Now().After(e.expiresAt) {
		delete(s.entries, token)
		return "", false, nil
	}
	return e.username, true, nil
}

func (s *InMemoryRevocationStore) Delete(_ context.Context, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, token)
	return nil
}
