// internal/cache/lru.go
//
// Small LRU cache with per-entry expiry.
//
// Context
// -------
// The ACL layer caches each role's permission codes here so the auth
// middleware does not hit the database on every request.  Entries expire
// after a fixed TTL and are evicted least-recently-used once the capacity
// is reached.  The clock is injectable for tests.
//
// Notes
// -----
//   • Safe for concurrent use; one mutex guards list and map.
//   • A TTL of zero disables expiry.
//   • Oxford commas, two spaces after periods.
package cache

import (
	"container/list"
	"sync"
	"time"
)

// LRU is a least-recently-used cache keyed by K.
type LRU[K comparable, V any] struct {
	mu   sync.Mutex
	cap  int
	ttl  time.Duration
	now  func() time.Time
	ll   *list.List
	dict map[K]*list.Element
}

type entry[K comparable, V any] struct {
	key K
	val V
	exp time.Time
}

// New returns an LRU with the given capacity.  Panics on capacity < 1.
// now may be nil (time.Now).
func New[K comparable, V any](capacity int, ttl time.Duration, now func() time.Time) *LRU[K, V] {
	if capacity < 1 {
		panic("cache: capacity must be >= 1")
	}
	if now == nil {
		now = time.Now
	}
	return &LRU[K, V]{
		cap:  capacity,
		ttl:  ttl,
		now:  now,
		ll:   list.New(),
		dict: make(map[K]*list.Element, capacity),
	}
}

// Get returns the value for key and marks it most recently used.  Expired
// entries are dropped and reported as misses.
func (c *LRU[K, V]) Get(key K) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	var zero V
	ele, hit := c.dict[key]
	if !hit {
		return zero, false
	}
	e := ele.Value.(*entry[K, V])
	if c.ttl > 0 && !c.now().Before(e.exp) {
		c.ll.Remove(ele)
		delete(c.dict, key)
		return zero, false
	}
	c.ll.MoveToFront(ele)
	return e.val, true
}

// Add inserts or replaces key, resetting its expiry.
func (c *LRU[K, V]) Add(key K, val V) {
	c.mu.Lock()
	defer c.mu.Unlock()
	exp := c.now().Add(c.ttl)
	if ele, hit := c.dict[key]; hit {
		ele.Value = &entry[K, V]{key, val, exp}
		c.ll.MoveToFront(ele)
		return
	}
	c.dict[key] = c.ll.PushFront(&entry[K, V]{key, val, exp})
	if c.ll.Len() > c.cap {
		last := c.ll.Back()
		c.ll.Remove(last)
		delete(c.dict, last.Value.(*entry[K, V]).key)
	}
}

// Remove drops key if present.
func (c *LRU[K, V]) Remove(key K) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if ele, hit := c.dict[key]; hit {
		c.ll.Remove(ele)
		delete(c.dict, key)
	}
}

// Purge drops every entry.
func (c *LRU[K, V]) Purge() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ll.Init()
	clear(c.dict)
}

// Len reports current size, expired entries included.
func (c *LRU[K, V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ll.Len()
}
