// Package lru provides a bounded LRU set used to suppress repeated lines.
package lru

import (
	"container/list"
	"sync"
)

// Cache is a fixed-capacity set of recently seen keys. Seeing a key again
// refreshes it; when full, the least recently seen key is evicted.
// It is safe for concurrent use.
type Cache[K comparable] struct {
	mu       sync.Mutex
	capacity int
	items    map[K]*list.Element
	order    *list.List // front = newest, back = oldest
}

// New creates a new LRU cache with the given capacity.
func New[K comparable](capacity int) *Cache[K] {
	return &Cache[K]{
		capacity: capacity,
		items:    make(map[K]*list.Element),
		order:    list.New(),
	}
}

// Contains checks if a key exists in the cache without refreshing it.
func (c *Cache[K]) Contains(key K) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, exists := c.items[key]
	return exists
}

// Add records key and reports whether it was newly added. A key that is
// already present is moved to the front and Add returns false.
func (c *Cache[K]) Add(key K) bool {
	if c.capacity <= 0 {
		return true // nothing is remembered, so everything is new
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if elem, exists := c.items[key]; exists {
		c.order.MoveToFront(elem)
		return false
	}

	if c.order.Len() >= c.capacity {
		oldest := c.order.Back()
		if oldest != nil {
			delete(c.items, oldest.Value.(K))
			c.order.Remove(oldest)
		}
	}

	c.items[key] = c.order.PushFront(key)
	return true
}

// Len returns the current number of items in the cache.
func (c *Cache[K]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.items)
}
