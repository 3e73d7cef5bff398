package texture

import (
	"image"
	"sync"
)

// Cache is a concurrency-safe decoded-image cache keyed by resolved
// location. Failed loads are cached as nil so a missing file is probed
// once, not once per material slot.
type Cache struct {
	mu    sync.RWMutex
	items map[string]*cacheEntry
}

type cacheEntry struct {
	img    *image.NRGBA
	loaded bool // a load was attempted; img may still be nil
}

// NewCache creates an empty cache.
func NewCache() *Cache {
	return &Cache{items: make(map[string]*cacheEntry)}
}

// Get loads and caches the image at location. Returns nil when the file
// is missing or undecodable.
func (c *Cache) Get(location string) *image.NRGBA {
	// Fast path: read lock
	c.mu.RLock()
	if entry, exists := c.items[location]; exists {
		c.mu.RUnlock()
		return entry.img
	}
	c.mu.RUnlock()

	// Slow path: load from disk
	img, _ := LoadFile(location)

	// Write lock with double-check
	c.mu.Lock()
	if entry, exists := c.items[location]; exists {
		c.mu.Unlock()
		return entry.img
	}
	c.items[location] = &cacheEntry{img: img, loaded: true}
	c.mu.Unlock()

	return img
}

// Len returns the number of cached entries.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.items)
}
