package cache

import (
	"context"
	"time"

	"financas/internal/kv"
)

// Store is a read-through, write-through cache in front of a kv.Store.
// Absent keys are not cached.
type Store struct {
	next  kv.Store
	cache *LRUCache[kv.Key, []byte]
}

var _ kv.Store = (*Store)(nil)

func NewStore(next kv.Store, maxSize int, ttl time.Duration) *Store {
	return &Store{next: next, cache: NewLRUCache[kv.Key, []byte](maxSize, ttl)}
}

// Cleaner exposes the underlying cache for registration with a Manager.
func (s *Store) Cleaner() Cleaner {
	return s.cache
}

func (s *Store) Get(ctx context.Context, key kv.Key) ([]byte, bool, error) {
	if v, ok := s.cache.Get(key); ok {
		return append([]byte(nil), v...), true, nil
	}
	v, ok, err := s.next.Get(ctx, key)
	if err != nil || !ok {
		return v, ok, err
	}
	s.cache.Set(key, append([]byte(nil), v...))
	return v, true, nil
}

func (s *Store) Set(ctx context.Context, key kv.Key, value []byte) error {
	if err := s.next.Set(ctx, key, value); err != nil {
		s.cache.Delete(key)
		return err
	}
	s.cache.Set(key, append([]byte(nil), value...))
	return nil
}

func (s *Store) Remove(ctx context.Context, key kv.Key) error {
	s.cache.Delete(key)
	return s.next.Remove(ctx, key)
}
