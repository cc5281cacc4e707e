package provider

import (
	"context"
	"sync"
	"time"
)

// SessionStore persists a handle's session so a later eager connection
// can restore it. The key schema is up to the handle.
// TTL of 0 means no expiration.
type SessionStore[S any] interface {
	// Load retrieves a session. Returns (nil, nil) if none exists.
	Load(ctx context.Context, key string) (*S, error)
	// Save persists a session with optional TTL.
	Save(ctx context.Context, key string, val *S, ttl time.Duration) error
	// Delete removes a session.
	Delete(ctx context.Context, key string) error
}

// MemorySessionStore keeps sessions in process memory. Expired entries are
// dropped on Load.
type MemorySessionStore[S any] struct {
	mu    sync.RWMutex
	items map[string]sessionEntry[S]
}

type sessionEntry[S any] struct {
	val       *S
	expiresAt time.Time // zero means no expiration
}

// NewMemorySessionStore creates an empty MemorySessionStore.
func NewMemorySessionStore[S any]() *MemorySessionStore[S] {
	return &MemorySessionStore[S]{
		items: make(map[string]sessionEntry[S]),
	}
}

// Load retrieves a session, or (nil, nil) when missing or expired.
func (s *MemorySessionStore[S]) Load(_ context.Context, key string) (*S, error) {
	s.mu.RLock()
	entry, ok := s.items[key]
	s.mu.RUnlock()

	if !ok {
		return nil, nil
	}
	if !entry.expiresAt.IsZero() && time.Now().After(entry.expiresAt) {
		s.mu.Lock()
		delete(s.items, key)
		s.mu.Unlock()
		return nil, nil
	}
	return entry.val, nil
}

// Save stores val under key.
func (s *MemorySessionStore[S]) Save(_ context.Context, key string, val *S, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry := sessionEntry[S]{val: val}
	if ttl > 0 {
		entry.expiresAt = time.Now().Add(ttl)
	}
	s.items[key] = entry
	return nil
}

// Delete removes key.
func (s *MemorySessionStore[S]) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.items, key)
	return nil
}

// Len returns the number of stored entries, expired ones included.
func (s *MemorySessionStore[S]) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.items)
}

var _ SessionStore[any] = (*MemorySessionStore[any])(nil)
