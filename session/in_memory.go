package session

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/hupe1980/contextmesh/core"
)

// ErrNotFound is returned when a session id is unknown.
var ErrNotFound = errors.New("session: not found")

// InMemoryStore is a volatile session store keeping raw host sessions in a
// process local map. It is safe for concurrent access. Each returned session
// is cloned to prevent external mutation of internal state.
type InMemoryStore struct {
	mu       sync.RWMutex
	sessions map[string]*core.RawSession
}

// NewInMemoryStore constructs an empty in‑memory session store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{sessions: make(map[string]*core.RawSession)}
}

// Get returns a clone of the session stored under id.
func (s *InMemoryStore) Get(id string) (*core.RawSession, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	raw, ok := s.sessions[id]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrNotFound, id)
	}
	return raw.Clone(), nil
}

// Put stores a clone of raw under id, replacing any previous session.
func (s *InMemoryStore) Put(id string, raw *core.RawSession) {
	if raw == nil {
		raw = &core.RawSession{}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[id] = raw.Clone()
}

// Delete removes the session stored under id.
func (s *InMemoryStore) Delete(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.sessions[id]; !ok {
		return fmt.Errorf("%w: %q", ErrNotFound, id)
	}
	delete(s.sessions, id)
	return nil
}

// IDs returns the stored session ids in sorted order.
func (s *InMemoryStore) IDs() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := make([]string, 0, len(s.sessions))
	for id := range s.sessions {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// AppendMessage adds a chat message to an existing or newly created session.
func (s *InMemoryStore) AppendMessage(id string, msg core.RawMessage) {
	s.mu.Lock()
	defer s.mu.Unlock()
	raw, ok := s.sessions[id]
	if !ok {
		raw = &core.RawSession{}
		s.sessions[id] = raw
	}
	raw.Chat = append(raw.Chat, msg)
}

// Provider returns a SnapshotProvider reading the session stored under id.
func (s *InMemoryStore) Provider(id string) core.SnapshotProvider {
	return core.SnapshotProviderFunc(func(ctx context.Context) (*core.RawSession, error) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		return s.Get(id)
	})
}
