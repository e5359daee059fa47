package cache

import (
	"container/list"
	"sync"
	"time"
)

// LRUCache evicts the least recently used entry once maxSize is exceeded and
// drops entries older than ttl on access. A zero ttl disables expiry.
type LRUCache[K comparable, V any] struct {
	mu      sync.Mutex
	maxSize int
	ttl     time.Duration
	now     func() time.Time
	items   map[K]*list.Element
	lru     *list.List
}

type entry[K comparable, V any] struct {
	key       K
	value     V
	expiresAt time.Time
}

func NewLRUCache[K comparable, V any](maxSize int, ttl time.Duration) *LRUCache[K, V] {
	if maxSize < 1 {
		maxSize = 1
	}
	return &LRUCache[K, V]{
		maxSize: maxSize,
		ttl:     ttl,
		now:     time.Now,
		items:   make(map[K]*list.Element),
		lru:     list.New(),
	}
}

func (c *LRUCache[K, V]) Get(key K) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var zero V
	elem, ok := c.items[key]
	if !ok {
		return zero, false
	}
	e := elem.Value.(*entry[K, V])
	if c.expired(e) {
		c.removeElement(elem)
		return zero, false
	}
	c.lru.MoveToFront(elem)
	return e.value, true
}

func (c *LRUCache[K, V]) Set(key K, value V) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e := &entry[K, V]{key: key, value: value}
	if c.ttl > 0 {
		e.expiresAt = c.now().Add(c.ttl)
	}

	if elem, ok := c.items[key]; ok {
		elem.Value = e
		c.lru.MoveToFront(elem)
		return
	}

	c.items[key] = c.lru.PushFront(e)
	if c.lru.Len() > c.maxSize {
		if oldest := c.lru.Back(); oldest != nil {
			c.removeElement(oldest)
		}
	}
}

func (c *LRUCache[K, V]) Delete(key K) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if elem, ok := c.items[key]; ok {
		c.removeElement(elem)
	}
}

// CleanExpired removes all expired entries and returns how many were removed.
func (c *LRUCache[K, V]) CleanExpired() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	var stale []*list.Element
	for elem := c.lru.Front(); elem != nil; elem = elem.Next() {
		if c.expired(elem.Value.(*entry[K, V])) {
			stale = append(stale, elem)
		}
	}
	for _, elem := range stale {
		c.removeElement(elem)
	}
	return len(stale)
}

func (c *LRUCache[K, V]) Size() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.items)
}

func (c *LRUCache[K, V]) expired(e *entry[K, V]) bool {
	return c.ttl > 0 && c.now().After(e.expiresAt)
}

func (c *LRUCache[K, V]) removeElement(elem *list.Element) {
	e := elem.Value.(*entry[K, V])
	delete(c.items, e.key)
	c.lru.Remove(elem)
}
