package service

import (
	"crypto/sha256"
	"encoding/hex"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

const (
	defaultEmbeddingCacheSize = 10000
	defaultEmbeddingCacheTTL  = 24 * time.Hour
)

// EmbeddingCache memoizes vectors by content hash. It is bounded; the least
// recently used entry is evicted first and entries expire after the TTL.
type EmbeddingCache struct {
	lru *expirable.LRU[string, []float32]
}

// NewEmbeddingCache creates a cache. size <= 0 uses the default size; ttl <= 0
// disables expiry.
func NewEmbeddingCache(size int, ttl time.Duration) *EmbeddingCache {
	if size <= 0 {
		size = defaultEmbeddingCacheSize
	}
	return &EmbeddingCache{lru: expirable.NewLRU[string, []float32](size, nil, ttl)}
}

// ContentHash is the cache key for a text: hex SHA-256 of its UTF-8 bytes.
func ContentHash(text string) string {
	sum := sha256.Sum256([]byte(text))
	return hex.EncodeToString(sum[:])
}

// Get returns a copy of the cached vector for key.
func (c *EmbeddingCache) Get(key string) ([]float32, bool) {
	v, ok := c.lru.Get(key)
	if !ok {
		return nil, false
	}
	return cloneVector(v), true
}

// Put stores a copy of vec under key. Concurrent writers of the same key are
// last-write-wins.
func (c *EmbeddingCache) Put(key string, vec []float32) {
	c.lru.Add(key, cloneVector(vec))
}

// Len returns the number of live entries.
func (c *EmbeddingCache) Len() int {
	return c.lru.Len()
}

// Clear drops every entry.
func (c *EmbeddingCache) Clear() {
	c.lru.Purge()
}

func cloneVector(v []float32) []float32 {
	out := make([]float32, len(v))
	copy(out, v)
	return out
}
