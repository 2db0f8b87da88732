package session

import (
	"context"
	"sync"

	"github.com/tripflow/tripflow/types"
)

// MemoryStore is an in-process store for tests and single-node runs. It
// holds encoded snapshots so loads always return an independent copy.
type MemoryStore struct {
	mu        sync.RWMutex
	snapshots map[string][]byte
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{snapshots: make(map[string][]byte)}
}

// Load implements Store.
func (s *MemoryStore) Load(_ context.Context, sessionID string) (*types.State, error) {
	s.mu.RLock()
	data, ok := s.snapshots[sessionID]
	s.mu.RUnlock()
	if !ok {
		return nil, notFound(sessionID)
	}
	return decode(data)
}

// Save implements Store.
func (s *MemoryStore) Save(_ context.Context, st *types.State) error {
	data, err := encode(st)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.snapshots[st.SessionID] = data
	s.mu.Unlock()
	return nil
}

// Delete implements Store.
func (s *MemoryStore) Delete(_ context.Context, sessionID string) error {
	s.mu.Lock()
	delete(s.snapshots, sessionID)
	s.mu.Unlock()
	return nil
}

// Count implements Store.
func (s *MemoryStore) Count(_ context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.snapshots), nil
}

// Close implements Store.
func (s *MemoryStore) Close() error { return nil }
