// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package cache

import "sync"

// Cache is a thread-safe LRU cache with a fixed capacity.
type Cache[K comparable, V any] struct {
	mu       sync.Mutex
	entries  map[K]*lruNode[K, V]
	order    lruList[K, V]
	capacity int
	onEvict  func(K, V)

	hits, misses, evictions uint64
}

// New creates a cache holding at most capacity entries. A capacity of 0
// means unlimited. onEvict may be nil.
func New[K comparable, V any](capacity int, onEvict func(K, V)) *Cache[K, V] {
	return &Cache[K, V]{
		entries:  make(map[K]*lruNode[K, V]),
		capacity: capacity,
		onEvict:  onEvict,
	}
}

// Get returns the value under key and marks it most recently used.
func (c *Cache[K, V]) Get(key K) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	n, ok := c.entries[key]
	if !ok {
		c.misses++
		var zero V
		return zero, false
	}
	c.hits++
	c.order.moveToFront(n)
	return n.value, true
}

// Set stores value under key. A replaced value is passed to the eviction
// callback.
func (c *Cache[K, V]) Set(key K, value V) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if n, ok := c.entries[key]; ok {
		old := n.value
		n.value = value
		c.order.moveToFront(n)
		c.evicted(key, old)
		return
	}
	c.insert(key, value)
}

// GetOrCreate returns the value under key, calling create on a miss.
// create runs under the cache lock, so concurrent callers never create the
// same key twice. A create error is returned and nothing is stored.
func (c *Cache[K, V]) GetOrCreate(key K, create func() (V, error)) (V, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if n, ok := c.entries[key]; ok {
		c.hits++
		c.order.moveToFront(n)
		return n.value, nil
	}
	c.misses++
	v, err := create()
	if err != nil {
		return v, err
	}
	c.insert(key, v)
	return v, nil
}

// Delete removes key, running the eviction callback. It reports whether
// the key was present.
func (c *Cache[K, V]) Delete(key K) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	n, ok := c.entries[key]
	if !ok {
		return false
	}
	c.order.unlink(n)
	delete(c.entries, key)
	c.evicted(n.key, n.value)
	return true
}

// Clear evicts every entry.
func (c *Cache[K, V]) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	for n := c.order.removeOldest(); n != nil; n = c.order.removeOldest() {
		delete(c.entries, n.key)
		c.evicted(n.key, n.value)
	}
}

// Len returns the number of entries.
func (c *Cache[K, V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Stats returns a snapshot of the cache counters.
func (c *Cache[K, V]) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	s := Stats{
		Len:       len(c.entries),
		Capacity:  c.capacity,
		Hits:      c.hits,
		Misses:    c.misses,
		Evictions: c.evictions,
	}
	if total := c.hits + c.misses; total > 0 {
		s.HitRate = float64(c.hits) / float64(total)
	}
	return s
}

// insert adds a new entry and trims the cache to capacity.
// Caller must hold c.mu.
func (c *Cache[K, V]) insert(key K, value V) {
	c.entries[key] = c.order.pushFront(key, value)
	for c.capacity > 0 && len(c.entries) > c.capacity {
		n := c.order.removeOldest()
		delete(c.entries, n.key)
		c.evicted(n.key, n.value)
	}
}

// Caller must hold c.mu.
func (c *Cache[K, V]) evicted(key K, value V) {
	c.evictions++
	if c.onEvict != nil {
		c.onEvict(key, value)
	}
}

// Stats contains cache statistics.
type Stats struct {
	Len       int
	Capacity  int
	Hits      uint64
	Misses    uint64
	Evictions uint64
	HitRate   float64
}
