package kvstore

import (
	"context"
	"sync"
)

// memory implements Store using an in-memory map.
type memory struct {
	mu     sync.RWMutex
	values map[string]string
}

// NewMemoryStore creates a Store that lives as long as the process.
func NewMemoryStore() Store {
	return &memory{
		values: make(map[string]string),
	}
}

func (s *memory) Get(_ context.Context, key string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	v, ok := s.values[key]
	if !ok {
		return "", ErrNotFound
	}
	return v, nil
}

func (s *memory) Set(_ context.Context, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.values[key] = value
	return nil
}

func (s *memory) Remove(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.values, key)
	return nil
}

func (s *memory) Close() error {
	return nil
}
