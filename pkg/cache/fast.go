package cache

import (
	"container/list"
	"sync"
	"time"

	"ai-gateway-be/internal/entity"

	gocache "github.com/patrickmn/go-cache"
)

// FastCache is the in-process tier: go-cache for TTL storage plus an LRU
// recency list enforcing the capacity bound (go-cache alone is unbounded).
// Safe for concurrent use by all sessions.
type FastCache struct {
	mu       sync.Mutex
	store    *gocache.Cache
	recency  *list.List               // front = most recently used
	elements map[string]*list.Element // fingerprint -> recency node
	capacity int
}

func NewFastCache(capacity int, defaultTTL time.Duration) *FastCache {
	if capacity <= 0 {
		capacity = 1024
	}
	// Purge expired items at twice the TTL granularity; reads never return
	// expired entries regardless (go-cache checks on read).
	return &FastCache{
		store:    gocache.New(defaultTTL, defaultTTL/2),
		recency:  list.New(),
		elements: make(map[string]*list.Element),
		capacity: capacity,
	}
}

func (c *FastCache) Get(fingerprint string) (*entity.CacheEntry, bool) {
	x, found := c.store.Get(fingerprint)

	c.mu.Lock()
	defer c.mu.Unlock()

	el, tracked := c.elements[fingerprint]
	if !found {
		// TTL expiry already removed it from the store; drop the stale node.
		if tracked {
			c.recency.Remove(el)
			delete(c.elements, fingerprint)
		}
		return nil, false
	}

	if tracked {
		c.recency.MoveToFront(el)
	}
	return x.(*entity.CacheEntry), true
}

func (c *FastCache) Set(fingerprint string, entry *entity.CacheEntry, ttl time.Duration) {
	if ttl <= 0 {
		ttl = gocache.DefaultExpiration
	}
	c.store.Set(fingerprint, entry, ttl)

	c.mu.Lock()
	defer c.mu.Unlock()

	if el, ok := c.elements[fingerprint]; ok {
		c.recency.MoveToFront(el)
	} else {
		c.elements[fingerprint] = c.recency.PushFront(fingerprint)
	}

	// Evict least-recently-used past capacity. Nodes whose key already
	// expired out of the store just get dropped from the list.
	for c.recency.Len() > c.capacity {
		back := c.recency.Back()
		if back == nil {
			break
		}
		key := back.Value.(string)
		c.recency.Remove(back)
		delete(c.elements, key)
		c.store.Delete(key)
	}
}

func (c *FastCache) Delete(fingerprint string) {
	c.store.Delete(fingerprint)

	c.mu.Lock()
	defer c.mu.Unlock()
	if el, ok := c.elements[fingerprint]; ok {
		c.recency.Remove(el)
		delete(c.elements, fingerprint)
	}
}

func (c *FastCache) Flush() {
	c.store.Flush()

	c.mu.Lock()
	defer c.mu.Unlock()
	c.recency.Init()
	c.elements = make(map[string]*list.Element)
}

func (c *FastCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.recency.Len()
}
