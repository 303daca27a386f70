// Package cache provides small in-process caches with per-entry expiry.
package cache

import (
	"fmt"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
)

// Cache stores values for a limited time
type Cache[V any] interface {
	Get(key string) (V, bool)
	Set(key string, value V, ttl time.Duration)
}

type entry[V any] struct {
	value   V
	expires time.Time
}

// TTL is a size-bounded LRU whose entries also expire.
type TTL[V any] struct {
	mu  sync.Mutex
	lru *lru.Cache[string, entry[V]]
	now func() time.Time
}

// NewTTL creates a cache holding at most size entries.
func NewTTL[V any](size int) (*TTL[V], error) {
	l, err := lru.New[string, entry[V]](size)
	if err != nil {
		return nil, fmt.Errorf("create lru: %w", err)
	}
	return &TTL[V]{lru: l, now: time.Now}, nil
}

// WithClock replaces the time source, for tests.
func (c *TTL[V]) WithClock(now func() time.Time) *TTL[V] {
	c.mu.Lock()
	c.now = now
	c.mu.Unlock()
	return c
}

// Get returns a live entry. Expired entries are dropped on access.
func (c *TTL[V]) Get(key string) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var zero V
	e, ok := c.lru.Get(key)
	if !ok {
		return zero, false
	}
	if !c.now().Before(e.expires) {
		c.lru.Remove(key)
		return zero, false
	}
	return e.value, true
}

// Set stores value under key for ttl. A non-positive ttl removes the key.
func (c *TTL[V]) Set(key string, value V, ttl time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if ttl <= 0 {
		c.lru.Remove(key)
		return
	}
	c.lru.Add(key, entry[V]{value: value, expires: c.now().Add(ttl)})
}

// Purge empties the cache.
func (c *TTL[V]) Purge() {
	c.lru.Purge()
}

// Len reports the number of stored entries, expired ones included.
func (c *TTL[V]) Len() int {
	return c.lru.Len()
}
