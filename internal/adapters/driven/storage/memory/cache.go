// Package memory provides in-memory storage adapters, used in tests and
// for cache-less runs.
package memory

import (
	"context"
	"sync"

	"github.com/qualex-labs/qualex/internal/core/ports/driven"
)

// Ensure Cache implements the interface.
var _ driven.EmbeddingCache = (*Cache)(nil)

// cacheKey identifies one cached vector.
type cacheKey struct {
	model string
	hash  string
}

// Cache is an in-memory implementation of driven.EmbeddingCache.
type Cache struct {
	mu      sync.RWMutex
	entries map[cacheKey][]float32
}

// NewCache creates a new in-memory embedding cache.
func NewCache() *Cache {
	return &Cache{
		entries: make(map[cacheKey][]float32),
	}
}

// Get returns the cached vector for (model, hash).
func (c *Cache) Get(_ context.Context, model, hash string) ([]float32, bool, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	vec, ok := c.entries[cacheKey{model, hash}]
	if !ok {
		return nil, false, nil
	}
	out := make([]float32, len(vec))
	copy(out, vec)
	return out, true, nil
}

// Put stores a vector under (model, hash). Existing keys are left untouched.
func (c *Cache) Put(_ context.Context, model, hash string, vec []float32) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	key := cacheKey{model, hash}
	if _, exists := c.entries[key]; exists {
		return nil
	}
	stored := make([]float32, len(vec))
	copy(stored, vec)
	c.entries[key] = stored
	return nil
}

// Len returns the number of cached entries.
func (c *Cache) Len(_ context.Context) (int, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries), nil
}

// Clear removes every cache entry.
func (c *Cache) Clear(_ context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[cacheKey][]float32)
	return nil
}

// Close releases resources.
func (c *Cache) Close() error {
	return nil
}
