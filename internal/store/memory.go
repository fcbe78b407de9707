package store

import (
	"context"
	"sync"
)

// MemoryStore keeps the identity in process memory only. Used by tests and
// by runs that opt out of a durable credential file.
type MemoryStore struct {
	mu       sync.Mutex
	identity Identity
	present  bool
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (m *MemoryStore) Load(ctx context.Context) (Identity, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.present {
		return Identity{}, ErrNoIdentity
	}
	return m.identity, nil
}

func (m *MemoryStore) Save(ctx context.Context, identity Identity) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.identity = identity
	m.present = true
	return nil
}

func (m *MemoryStore) Clear(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.identity = Identity{}
	m.present = false
	return nil
}
