package backend

import lru "github.com/hashicorp/golang-lru/v2"

// DefaultCacheSize is the number of records kept by a read cache.
const DefaultCacheSize = 256

// Cache is a bounded LRU of decoded records. Records are immutable, so a
// cached entry never goes stale.
type Cache struct {
	lru *lru.Cache[string, Record]
}

// NewCache creates a cache holding up to size records. A size of zero or less
// yields a cache that stores nothing.
func NewCache(size int) (*Cache, error) {
	if size <= 0 {
		return &Cache{}, nil
	}
	c, err := lru.New[string, Record](size)
	if err != nil {
		return nil, err
	}
	return &Cache{lru: c}, nil
}

// Get returns a copy of the cached record.
func (c *Cache) Get(key string) (Record, bool) {
	if c.lru == nil {
		return Record{}, false
	}
	rec, ok := c.lru.Get(key)
	if !ok {
		return Record{}, false
	}
	return rec.Clone(), true
}

// Add caches a copy of rec, evicting the least recently used entry when full.
func (c *Cache) Add(key string, rec Record) {
	if c.lru == nil {
		return
	}
	c.lru.Add(key, rec.Clone())
}

// Has reports whether key is cached without updating recency.
func (c *Cache) Has(key string) bool {
	return c.lru != nil && c.lru.Contains(key)
}

// Len returns the number of cached records.
func (c *Cache) Len() int {
	if c.lru == nil {
		return 0
	}
	return c.lru.Len()
}

// Purge removes all cached records.
func (c *Cache) Purge() {
	if c.lru != nil {
		c.lru.Purge()
	}
}
