// Package cache provides the in-process caches used by the pattern store
package cache

import (
	"container/list"
	"fmt"
	"regexp"
	"sync"
	"sync/atomic"
)

// LRU implements a thread-safe LRU cache with generics
type LRU[K comparable, V any] struct {
	mu       sync.RWMutex
	capacity int
	items    map[K]*list.Element
	order    *list.List

	// Stats
	hits   atomic.Int64
	misses atomic.Int64
}

type entry[K comparable, V any] struct {
	key   K
	value V
}

// NewLRU creates a new LRU cache with the specified capacity
func NewLRU[K comparable, V any](capacity int) *LRU[K, V] {
	if capacity < 1 {
		capacity = 1
	}
	return &LRU[K, V]{
		capacity: capacity,
		items:    make(map[K]*list.Element),
		order:    list.New(),
	}
}

// Get retrieves a value from the cache, returning (value, true) if found
func (c *LRU[K, V]) Get(key K) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	elem, ok := c.items[key]
	if !ok {
		c.misses.Add(1)
		var zero V
		return zero, false
	}

	c.hits.Add(1)
	c.order.MoveToFront(elem)
	return elem.Value.(*entry[K, V]).value, true
}

// Put adds or updates a value in the cache
func (c *LRU[K, V]) Put(key K, value V) {
	c.mu.Lock()
	defer c.mu.Unlock()

	// Update existing entry
	if elem, ok := c.items[key]; ok {
		c.order.MoveToFront(elem)
		elem.Value.(*entry[K, V]).value = value
		return
	}

	// Evict oldest if at capacity
	if c.order.Len() >= c.capacity {
		oldest := c.order.Back()
		if oldest != nil {
			delete(c.items, oldest.Value.(*entry[K, V]).key)
			c.order.Remove(oldest)
		}
	}

	// Add new entry
	elem := c.order.PushFront(&entry[K, V]{key: key, value: value})
	c.items[key] = elem
}

// Len returns the current number of items in the cache
func (c *LRU[K, V]) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.items)
}

// Stats returns cache hit/miss statistics
func (c *LRU[K, V]) Stats() (hits, misses int64) {
	return c.hits.Load(), c.misses.Load()
}

// HitRate returns the cache hit rate as a percentage
func (c *LRU[K, V]) HitRate() float64 {
	hits := c.hits.Load()
	misses := c.misses.Load()
	total := hits + misses
	if total == 0 {
		return 0
	}
	return float64(hits) / float64(total) * 100
}

// GetOrCompute returns the cached value for key, computing and storing it on a miss.
// Failed computations are not cached.
func (c *LRU[K, V]) GetOrCompute(key K, compute func() (V, error)) (V, error) {
	if v, ok := c.Get(key); ok {
		return v, nil
	}
	v, err := compute()
	if err != nil {
		var zero V
		return zero, err
	}
	c.Put(key, v)
	return v, nil
}

// PatternCache holds compiled name patterns. Learned patterns are stored as
// source text and compiled on first use; the set is small and read on every
// enhance call.
type PatternCache struct {
	cache *LRU[string, *regexp.Regexp]
}

// NewPatternCache creates a cache for compiled regular expressions
func NewPatternCache(capacity int) *PatternCache {
	return &PatternCache{
		cache: NewLRU[string, *regexp.Regexp](capacity),
	}
}

// Compile returns the compiled form of pattern
func (c *PatternCache) Compile(pattern string) (*regexp.Regexp, error) {
	return c.cache.GetOrCompute(pattern, func() (*regexp.Regexp, error) {
		re, err := regexp.Compile(pattern)
		if err != nil {
			return nil, fmt.Errorf("invalid pattern %q: %w", pattern, err)
		}
		return re, nil
	})
}

// MatchString reports whether s matches pattern. Invalid patterns never match.
func (c *PatternCache) MatchString(pattern, s string) bool {
	re, err := c.Compile(pattern)
	if err != nil {
		return false
	}
	return re.MatchString(s)
}

// Stats returns cache statistics
func (c *PatternCache) Stats() (hits, misses int64, hitRate float64) {
	hits, misses = c.cache.Stats()
	hitRate = c.cache.HitRate()
	return
}
