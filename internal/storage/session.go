package storage

import (
	"context"
	"fmt"
	"sync"
	"time"

	"ai_receptionist/pkg"
)

// DefaultMaxAge is the default inactivity window before a session expires
const DefaultMaxAge = 24 * time.Hour

// SessionStore owns the lifetime of dialogue states
type SessionStore interface {
	// Create inserts a session that does not exist yet. When the id is
	// already taken it returns pkg.ErrSessionConflict and leaves the stored
	// state alone, so concurrent creators insert at most one state.
	Create(ctx context.Context, state *pkg.DialogueState) error
	// Get returns pkg.ErrSessionNotFound for unknown ids
	Get(ctx context.Context, sessionID string) (*pkg.DialogueState, error)
	// Save commits a state produced by a turn
	Save(ctx context.Context, state *pkg.DialogueState) error
	// ExpireOlderThan removes sessions idle for longer than maxAge and returns their ids
	ExpireOlderThan(ctx context.Context, maxAge time.Duration) ([]string, error)
}

// MemorySessionStore is the in-process session store. Stored states are
// never handed out directly; callers always receive copies.
type MemorySessionStore struct {
	mu       sync.RWMutex
	sessions map[string]*pkg.DialogueState
	now      func() time.Time
}

// NewMemorySessionStore creates an empty in-memory store
func NewMemorySessionStore() *MemorySessionStore {
	return &MemorySessionStore{
		sessions: make(map[string]*pkg.DialogueState),
		now:      time.Now,
	}
}

// WithClock replaces the store clock, used by tests
func (m *MemorySessionStore) WithClock(now func() time.Time) *MemorySessionStore {
	m.now = now
	return m
}

// Create implements insert-if-absent under the store lock
func (m *MemorySessionStore) Create(ctx context.Context, state *pkg.DialogueState) error {
	if state == nil || state.SessionID == "" {
		return fmt.Errorf("session ID cannot be empty")
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.sessions[state.SessionID]; exists {
		return fmt.Errorf("%w: %s", pkg.ErrSessionConflict, state.SessionID)
	}
	m.sessions[state.SessionID] = state.Clone()
	return nil
}

// Get retrieves a session by id
func (m *MemorySessionStore) Get(ctx context.Context, sessionID string) (*pkg.DialogueState, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	state, exists := m.sessions[sessionID]
	if !exists {
		return nil, fmt.Errorf("%w: %s", pkg.ErrSessionNotFound, sessionID)
	}
	return state.Clone(), nil
}

// Save stores a copy of the state
func (m *MemorySessionStore) Save(ctx context.Context, state *pkg.DialogueState) error {
	if state == nil || state.SessionID == "" {
		return fmt.Errorf("session ID cannot be empty")
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.sessions[state.SessionID] = state.Clone()
	return nil
}

// ExpireOlderThan drops sessions whose last activity is before now-maxAge
func (m *MemorySessionStore) ExpireOlderThan(ctx context.Context, maxAge time.Duration) ([]string, error) {
	cutoff := m.now().Add(-maxAge)

	m.mu.Lock()
	defer m.mu.Unlock()

	var expired []string
	for id, state := range m.sessions {
		if state.LastActivity.Before(cutoff) {
			delete(m.sessions, id)
			expired = append(expired, id)
		}
	}
	return expired, nil
}

// Len returns the number of live sessions
func (m *MemorySessionStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}
