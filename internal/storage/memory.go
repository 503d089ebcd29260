package storage

import (
	"context"
	"sync"
)

// MemoryStore is an in-memory implementation of Store. It keeps the encoded
// documents so that it behaves like the persistent backends.
type MemoryStore struct {
	mu       sync.RWMutex
	mappings []byte
	history  []byte
}

// NewMemoryStore creates an empty in-memory store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

// LoadMappings returns the stored bookmarks
func (m *MemoryStore) LoadMappings(_ context.Context) ([]Mapping, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.mappings == nil {
		return nil, nil
	}
	return decodeMappings(m.mappings, "memory mappings")
}

// SaveMappings replaces the stored bookmarks
func (m *MemoryStore) SaveMappings(_ context.Context, mappings []Mapping) error {
	data, err := encodeMappings(mappings)
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.mappings = data
	return nil
}

// LoadHistory returns the stored history
func (m *MemoryStore) LoadHistory(_ context.Context) (HistoryState, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.history == nil {
		return HistoryState{}, nil
	}
	return decodeHistory(m.history, "memory history")
}

// SaveHistory replaces the stored history
func (m *MemoryStore) SaveHistory(_ context.Context, state HistoryState) error {
	data, err := encodeHistory(state)
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.history = data
	return nil
}

// Close does nothing
func (m *MemoryStore) Close() error {
	return nil
}
