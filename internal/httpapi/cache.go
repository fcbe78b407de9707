package httpapi

import (
	"net/url"
	"sort"
	"strings"
	"sync"
	"time"
)

const (
	DefaultCacheTTL        = 60 * time.Second
	DefaultCacheMaxEntries = 512
)

// CacheOptions tunes a single cached lookup. A zero TTL means the cache
// default; ForceRefresh bypasses a fresh entry but still stores the result.
type CacheOptions struct {
	TTL          time.Duration
	ForceRefresh bool
}

type cacheEntry struct {
	payload  any
	storedAt time.Time
}

// Cache is an in-memory TTL response cache keyed by request URL plus
// serialized query parameters. It is bounded: inserts beyond the max-entries
// cap evict oldest entries first.
type Cache struct {
	mu         sync.Mutex
	entries    map[string]cacheEntry
	defaultTTL time.Duration
	maxEntries int
	now        func() time.Time
}

func NewCache(defaultTTL time.Duration, maxEntries int) *Cache {
	if defaultTTL <= 0 {
		defaultTTL = DefaultCacheTTL
	}
	if maxEntries <= 0 {
		maxEntries = DefaultCacheMaxEntries
	}
	return &Cache{
		entries:    make(map[string]cacheEntry),
		defaultTTL: defaultTTL,
		maxEntries: maxEntries,
		now:        time.Now,
	}
}

// CacheKey builds the canonical cache key for a path and its parameters.
// url.Values.Encode sorts keys, so equal parameter sets always collide.
func CacheKey(path string, params url.Values) string {
	if len(params) == 0 {
		return path
	}
	return path + "?" + params.Encode()
}

// Lookup returns the cached payload when an entry under key is younger than
// the effective TTL and no refresh was forced; otherwise it invokes fetch,
// stores the result, and returns it. A fetch error stores nothing.
func (c *Cache) Lookup(key string, opts CacheOptions, fetch func() (any, error)) (any, error) {
	ttl := opts.TTL
	if ttl <= 0 {
		ttl = c.defaultTTL
	}

	if !opts.ForceRefresh {
		c.mu.Lock()
		if e, ok := c.entries[key]; ok && c.now().Sub(e.storedAt) < ttl {
			c.mu.Unlock()
			return e.payload, nil
		}
		c.mu.Unlock()
	}

	payload, err := fetch()
	if err != nil {
		return nil, err
	}
	c.Put(key, payload)
	return payload, nil
}

func (c *Cache) Put(key string, payload any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = cacheEntry{payload: payload, storedAt: c.now()}
	c.sweepLocked()
}

// Invalidate removes every entry whose key contains pattern as a substring
// and returns how many were removed. An empty pattern clears everything.
func (c *Cache) Invalidate(pattern string) int {
	if pattern == "" {
		c.InvalidateAll()
		return 0
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	removed := 0
	for key := range c.entries {
		if strings.Contains(key, pattern) {
			delete(c.entries, key)
			removed++
		}
	}
	return removed
}

func (c *Cache) InvalidateAll() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]cacheEntry)
}

func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

func (c *Cache) sweepLocked() {
	if len(c.entries) <= c.maxEntries {
		return
	}
	type aged struct {
		key      string
		storedAt time.Time
	}
	all := make([]aged, 0, len(c.entries))
	for k, e := range c.entries {
		all = append(all, aged{key: k, storedAt: e.storedAt})
	}
	sort.Slice(all, func(i, j int) bool { return all[i].storedAt.Before(all[j].storedAt) })
	for _, a := range all[:len(c.entries)-c.maxEntries] {
		delete(c.entries, a.key)
	}
}
