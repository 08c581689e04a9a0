package settings

import (
	"context"
	"fmt"
	"sync"
)

// MemoryStore keeps settings in process memory.
type MemoryStore struct {
	mu     sync.RWMutex
	values map[string]string
}

func NewMemoryStore(values map[string]string) *MemoryStore {
	s := &MemoryStore{values: make(map[string]string, len(values))}
	for k, v := range values {
		s.values[k] = v
	}
	return s
}

func (s *MemoryStore) Get(_ context.Context, keys ...string) (map[string]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make(map[string]string, len(keys))
	for _, key := range keys {
		if v, ok := s.values[key]; ok {
			result[key] = v
		}
	}
	return result, nil
}

func (s *MemoryStore) Set(_ context.Context, values map[string]string) error {
	for key := range values {
		if !IsKnown(key) {
			return fmt.Errorf("unknown settings key %q", key)
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for k, v := range values {
		s.values[k] = v
	}
	return nil
}
