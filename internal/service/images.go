package service

import (
	"container/list"
	"sync"

	"github.com/avlowe/cratedig/internal/domain"
)

// ImageCache is a bounded least-recently-used cache of cover-art payloads.
// Any Get or Set moves the entry to the most-recent position; when the
// cache grows past maxSize the least-recently-used entry is evicted.
// Cached blobs belong to one catalog session and must be cleared on
// reconnect.
type ImageCache struct {
	mu      sync.Mutex
	maxSize int
	ll      *list.List // front = most recently used
	entries map[string]*list.Element

	hits      int64
	misses    int64
	evictions int64
}

type imageEntry struct {
	key     string
	payload *domain.ImagePayload
}

// NewImageCache creates an empty cache holding at most maxSize entries.
// A size below 1 is treated as 1.
func NewImageCache(maxSize int) *ImageCache {
	if maxSize < 1 {
		maxSize = 1
	}
	return &ImageCache{
		maxSize: maxSize,
		ll:      list.New(),
		entries: make(map[string]*list.Element),
	}
}

// Get returns the cached payload for key, or nil on a miss
func (c *ImageCache) Get(key string) *domain.ImagePayload {
	c.mu.Lock()
	defer c.mu.Unlock()

	el, ok := c.entries[key]
	if !ok {
		c.misses++
		return nil
	}

	c.hits++
	c.ll.MoveToFront(el)
	return el.Value.(*imageEntry).payload
}

// Set stores a payload under key. An existing key is refreshed to the
// most-recent position even when the payload is identical.
func (c *ImageCache) Set(key string, payload *domain.ImagePayload) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if el, ok := c.entries[key]; ok {
		c.ll.Remove(el)
		delete(c.entries, key)
	}

	c.entries[key] = c.ll.PushFront(&imageEntry{key: key, payload: payload})

	if c.ll.Len() > c.maxSize {
		oldest := c.ll.Back()
		if oldest != nil {
			c.ll.Remove(oldest)
			delete(c.entries, oldest.Value.(*imageEntry).key)
			c.evictions++
		}
	}
}

// Clear drops all entries. Counters are preserved.
func (c *ImageCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.ll.Init()
	c.entries = make(map[string]*list.Element)
}

// Stats reports cache size and hit/miss/eviction counters. Purely
// informational; never affects cache behavior.
func (c *ImageCache) Stats() domain.CacheStats {
	c.mu.Lock()
	defer c.mu.Unlock()

	stats := domain.CacheStats{
		Size:      c.ll.Len(),
		Hits:      c.hits,
		Misses:    c.misses,
		Evictions: c.evictions,
	}
	if total := c.hits + c.misses; total > 0 {
		stats.HitRate = float64(c.hits) / float64(total)
	}
	return stats
}
