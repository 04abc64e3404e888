// Package cache provides a process-local memoization cache keyed by string.
package cache

import "sync"

// Cache memoizes values for the lifetime of the instance that owns it.
// Entries are never evicted and never expire.
type Cache struct {
	entries map[string]any
	mu      sync.RWMutex
}

// New returns an empty cache.
func New() *Cache {
	return &Cache{entries: make(map[string]any)}
}

// Value retrieves a previously stored value.
func (c *Cache) Value(key string) (any, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	v, ok := c.entries[key]
	return v, ok
}

// Set stores a value under key, replacing any previous entry.
func (c *Cache) Set(key string, value any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = value
}

// Len reports the number of cached entries.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// GetOrCompute returns the cached value for key if present; otherwise it runs
// producer, stores the result on success and returns it. Producer errors are
// returned to the caller and nothing is cached. The lock guards the map, not
// the producer: concurrent callers racing on the same key may each run the
// producer, and the last result stored wins.
func GetOrCompute[T any](c *Cache, key string, producer func() (T, error)) (T, error) {
	if v, ok := c.Value(key); ok {
		if typed, ok := v.(T); ok {
			return typed, nil
		}
	}

	result, err := producer()
	if err != nil {
		var zero T
		return zero, err
	}
	c.Set(key, result)
	return result, nil
}
