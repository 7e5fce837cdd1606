package hinsell

import (
	"bytes"
	"context"
	"hash/fnv"
	"io"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"
)

// CacheEntry is a buffered response held by the cache.
type CacheEntry struct {
	Body       []byte
	StatusCode int
	Header     http.Header
	ExpiresAt  time.Time
}

// Cache stores responses for GET requests.
type Cache interface {
	Get(key string) (*CacheEntry, bool)
	Set(key string, entry *CacheEntry, ttl time.Duration)
	Delete(key string)
	Clear()
}

// CacheCondition decides whether a request participates in caching.
type CacheCondition func(req *http.Request) bool

// InMemoryCache is a sharded in-memory cache; sharding keeps lock contention
// low under concurrent bursts.
type InMemoryCache struct {
	shards    []*cacheShard
	numShards int
}

type cacheShard struct {
	mu    sync.RWMutex
	store map[string]*CacheEntry
}

// NewInMemoryCache creates a cache with 16 shards.
func NewInMemoryCache() *InMemoryCache {
	const numShards = 16
	shards := make([]*cacheShard, numShards)
	for i := range shards {
		shards[i] = &cacheShard{store: make(map[string]*CacheEntry)}
	}
	return &InMemoryCache{shards: shards, numShards: numShards}
}

func (c *InMemoryCache) getShard(key string) *cacheShard {
	h := fnv.New32a()
	h.Write([]byte(key))
	return c.shards[h.Sum32()%uint32(c.numShards)]
}

// Get returns the entry for key if present and not expired.
func (c *InMemoryCache) Get(key string) (*CacheEntry, bool) {
	shard := c.getShard(key)
	shard.mu.Lock()
	defer shard.mu.Unlock()

	entry, exists := shard.store[key]
	if !exists {
		return nil, false
	}
	if time.Now().After(entry.ExpiresAt) {
		delete(shard.store, key)
		return nil, false
	}
	return entry, true
}

// Set stores entry under key for ttl.
func (c *InMemoryCache) Set(key string, entry *CacheEntry, ttl time.Duration) {
	shard := c.getShard(key)
	shard.mu.Lock()
	defer shard.mu.Unlock()

	entry.ExpiresAt = time.Now().Add(ttl)
	shard.store[key] = entry
}

// Delete removes the entry for key.
func (c *InMemoryCache) Delete(key string) {
	shard := c.getShard(key)
	shard.mu.Lock()
	defer shard.mu.Unlock()

	delete(shard.store, key)
}

// Clear drops every entry.
func (c *InMemoryCache) Clear() {
	for _, shard := range c.shards {
		shard.mu.Lock()
		shard.store = make(map[string]*CacheEntry)
		shard.mu.Unlock()
	}
}

// Len reports the number of live entries across all shards.
func (c *InMemoryCache) Len() int {
	total := 0
	for _, shard := range c.shards {
		shard.mu.RLock()
		total += len(shard.store)
		shard.mu.RUnlock()
	}
	return total
}

func (c *Client) responseFromCache(entry *CacheEntry) *http.Response {
	return &http.Response{
		StatusCode: entry.StatusCode,
		Header:     entry.Header.Clone(),
		Body:       io.NopCloser(bytes.NewReader(entry.Body)),
	}
}

func (c *Client) cacheEntryFromResponse(resp *http.Response) *CacheEntry {
	const maxCacheBody = 10 * 1024 * 1024
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxCacheBody))
	if err != nil && err != io.EOF {
		return nil
	}
	_ = resp.Body.Close()

	// Restore the body for the caller.
	resp.Body = io.NopCloser(bytes.NewReader(body))

	return &CacheEntry{
		Body:       body,
		StatusCode: resp.StatusCode,
		Header:     resp.Header.Clone(),
	}
}

// DefaultCacheKeyFunc keys entries by method and full URL.
func DefaultCacheKeyFunc(req *http.Request) string {
	if req.URL == nil {
		return req.Method + ":"
	}
	return req.Method + ":" + req.URL.String()
}

// DefaultCacheCondition caches GET requests only.
func DefaultCacheCondition(req *http.Request) bool {
	return req.Method == http.MethodGet
}

func (c *Client) cacheTTLForResponse(req *http.Request, resp *http.Response) time.Duration {
	if cc, ok := req.Context().Value(cacheControlKey).(*CacheControl); ok && cc.TTL > 0 {
		return cc.TTL
	}
	// Server cache headers take precedence over the configured default.
	if ttl, ok := headerDerivedTTL(resp, time.Now()); ok {
		return ttl
	}
	return c.cacheTTL
}

// headerDerivedTTL derives an expiry from Cache-Control max-age or Expires.
// no-store/no-cache force a zero TTL; absent headers leave the default in
// charge.
func headerDerivedTTL(resp *http.Response, receivedAt time.Time) (time.Duration, bool) {
	header := resp.Header.Get("Cache-Control")
	if header != "" {
		for _, part := range strings.Split(header, ",") {
			part = strings.TrimSpace(part)
			if part == "no-store" || part == "no-cache" {
				return 0, true
			}
			if v, found := strings.CutPrefix(part, "max-age="); found {
				if seconds, err := strconv.Atoi(strings.Trim(v, "\"")); err == nil && seconds >= 0 {
					return time.Duration(seconds) * time.Second, true
				}
			}
		}
	}

	if expires := resp.Header.Get("Expires"); expires != "" {
		if t, err := http.ParseTime(expires); err == nil {
			ttl := t.Sub(receivedAt)
			if ttl < 0 {
				ttl = 0
			}
			return ttl, true
		}
	}

	return 0, false
}

func (c *Client) shouldCacheRequest(req *http.Request) bool {
	if c.cache == nil {
		return false
	}
	if cc, ok := req.Context().Value(cacheControlKey).(*CacheControl); ok {
		return cc.Enabled
	}
	return c.cacheCondition(req)
}

// WithContextCacheEnabled forces caching for the request carrying this context.
func WithContextCacheEnabled(ctx context.Context) context.Context {
	return context.WithValue(ctx, cacheControlKey, &CacheControl{Enabled: true})
}

// WithContextCacheDisabled disables caching for the request carrying this context.
func WithContextCacheDisabled(ctx context.Context) context.Context {
	return context.WithValue(ctx, cacheControlKey, &CacheControl{Enabled: false})
}

// WithContextCacheTTL enables caching with a custom TTL for this request.
func WithContextCacheTTL(ctx context.Context, ttl time.Duration) context.Context {
	return context.WithValue(ctx, cacheControlKey, &CacheControl{Enabled: true, TTL: ttl})
}
