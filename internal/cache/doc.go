// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package cache provides a generic LRU cache for GPU objects.
//
//	c := cache.New[string, *pipeline](32, func(k string, p *pipeline) { p.destroy() })
//	p, err := c.GetOrCreate("main", build)
//
// Entries beyond the capacity are evicted least recently used first, and
// the eviction callback runs for every entry that leaves the cache,
// including on Clear. Callbacks run with the cache lock held and must not
// call back into the cache.
//
// Cache is safe for concurrent use and must not be copied after creation.
package cache
