package memory

import (
	"context"
	"sync"

	"financas/internal/kv"
)

// Store keeps values in a map. It is the default backend and the one used
// in tests; nothing survives the process.
type Store struct {
	mu    sync.Mutex
	items map[kv.Key][]byte
}

var _ kv.Store = (*Store)(nil)

func New() *Store {
	return &Store{items: make(map[kv.Key][]byte)}
}

func (s *Store) Get(_ context.Context, key kv.Key) ([]byte, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.items[key]
	if !ok {
		return nil, false, nil
	}
	return append([]byte(nil), v...), true, nil
}

func (s *Store) Set(_ context.Context, key kv.Key, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items[key] = append([]byte(nil), value...)
	return nil
}

func (s *Store) Remove(_ context.Context, key kv.Key) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.items, key)
	return nil
}

// Len returns the number of stored keys.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.items)
}
