package memory

import (
	"context"
	"sync"
)

// KVStore keeps values in process memory. It backs tests and single-process
// deployments without a database.
type KVStore struct {
	mu     sync.RWMutex
	values map[string]string
}

// NewKVStore returns an empty store.
func NewKVStore() *KVStore {
	return &KVStore{values: make(map[string]string)}
}

// Get returns the value stored under key.
func (s *KVStore) Get(_ context.Context, key string) (string, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.values[key]
	return v, ok, nil
}

// SetMany writes all values under one lock.
func (s *KVStore) SetMany(_ context.Context, values map[string]string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for k, v := range values {
		s.values[k] = v
	}
	return nil
}

// Close is a no-op.
func (s *KVStore) Close(context.Context) error {
	return nil
}
