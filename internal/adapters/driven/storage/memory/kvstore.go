package memory

import (
	"context"
	"sync"

	"github.com/custodia-labs/attest/internal/core/domain"
	"github.com/custodia-labs/attest/internal/core/ports/driven"
)

// Ensure KeyValueStore implements the interface.
var _ driven.KeyValueStore = (*KeyValueStore)(nil)

// KeyValueStore is an in-memory implementation of driven.KeyValueStore.
// Values are copied on the way in and out.
type KeyValueStore struct {
	mu     sync.RWMutex
	values map[string][]byte
}

// NewKeyValueStore creates an empty store.
func NewKeyValueStore() *KeyValueStore {
	return &KeyValueStore{values: make(map[string][]byte)}
}

// Get returns the value for key, or domain.ErrNotFound.
func (s *KeyValueStore) Get(_ context.Context, key string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	val, ok := s.values[key]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return append([]byte(nil), val...), nil
}

// Set stores value under key.
func (s *KeyValueStore) Set(_ context.Context, key string, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values[key] = append([]byte(nil), value...)
	return nil
}

// Delete removes key.
func (s *KeyValueStore) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.values, key)
	return nil
}
