// Package session tracks per-account idle time and forces re-authentication
// once a configured inactivity threshold passes. The clock and the activity
// store are injected so the policy is testable without waiting on real time
// or running redis.
package session

import (
	"context"
	"errors"
	"sync"
	"time"
)

// ErrExpired is returned by Touch when the gap since the last recorded
// activity exceeds the idle timeout.
var ErrExpired = errors.New("session expired due to inactivity")

// Clock abstracts time for tests.
type Clock interface {
	Now() time.Time
}

// SystemClock is the production Clock.
type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now() }

// Store persists last-activity timestamps keyed by account id.
type Store interface {
	LastActivity(ctx context.Context, id string) (time.Time, bool, error)
	Touch(ctx context.Context, id string, t time.Time, ttl time.Duration) error
	Forget(ctx context.Context, id string) error
}

// Manager applies the idle-timeout policy over a Store.
type Manager struct {
	store   Store
	clock   Clock
	timeout time.Duration
}

// NewManager creates a Manager. A non-positive timeout disables idle
// expiry entirely.
func NewManager(store Store, clock Clock, timeout time.Duration) *Manager {
	return &Manager{store: store, clock: clock, timeout: timeout}
}

// Touch records activity for the account now. If the previous activity is
// older than the idle timeout it forgets the session and returns
// ErrExpired; callers must then treat the request as unauthenticated.
func (m *Manager) Touch(ctx context.Context, id string) error {
	now := m.clock.Now()
	if m.timeout <= 0 {
		return nil
	}

	last, ok, err := m.store.LastActivity(ctx, id)
	if err != nil {
		return err
	}
	if ok && now.Sub(last) > m.timeout {
		if err := m.store.Forget(ctx, id); err != nil {
			return err
		}
		return ErrExpired
	}
	return m.store.Touch(ctx, id, now, m.timeout)
}

// End discards any recorded activity for the account (logout).
func (m *Manager) End(ctx context.Context, id string) error {
	return m.store.Forget(ctx, id)
}

// MemoryStore is the in-process Store used when no redis address is
// configured.
type MemoryStore struct {
	mu   sync.Mutex
	last map[string]time.Time
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{last: make(map[string]time.Time)}
}

func (s *MemoryStore) LastActivity(_ context.Context, id string) (time.Time, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.last[id]
	return t, ok, nil
}

func (s *MemoryStore) Touch(_ context.Context, id string, t time.Time, _ time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.last[id] = t
	return nil
}

func (s *MemoryStore) Forget(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.last, id)
	return nil
}
