package datasource

import (
	"fmt"
	"strings"
	"sync"
	"time"

	cache "github.com/patrickmn/go-cache"
	"github.com/yourusername/gridcast/internal/metrics"
)

// CacheKey identifies one memoised feed response.
type CacheKey struct {
	Feed  string
	Parts []string
}

// String returns string representation of cache key
func (k CacheKey) String() string {
	return fmt.Sprintf("%s:%s", k.Feed, strings.Join(k.Parts, ":"))
}

// FeedCache memoises feed responses so repeated lookups within a run hit the
// upstream once. Failures are never cached.
type FeedCache struct {
	cache     *cache.Cache
	ttl       time.Duration
	maxSize   int
	mu        sync.Mutex
	hitCount  uint64
	missCount uint64
}

// NewFeedCache creates a new feed cache
func NewFeedCache(ttl time.Duration, maxSize int) *FeedCache {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &FeedCache{
		cache:   cache.New(ttl, ttl*2),
		ttl:     ttl,
		maxSize: maxSize,
	}
}

// Get retrieves a cached response
func (fc *FeedCache) Get(key CacheKey) (interface{}, bool) {
	v, found := fc.cache.Get(key.String())

	fc.mu.Lock()
	if found {
		fc.hitCount++
	} else {
		fc.missCount++
	}
	fc.mu.Unlock()

	fc.updateMetrics()
	return v, found
}

// Set stores a response in cache
func (fc *FeedCache) Set(key CacheKey, value interface{}) {
	if fc.maxSize > 0 && fc.cache.ItemCount() >= fc.maxSize {
		// Remove expired items first
		fc.cache.DeleteExpired()
		if fc.cache.ItemCount() >= fc.maxSize {
			return
		}
	}
	fc.cache.Set(key.String(), value, fc.ttl)
}

// Invalidate removes every entry for a feed
func (fc *FeedCache) Invalidate(feed string) {
	prefix := feed + ":"
	for k := range fc.cache.Items() {
		if strings.HasPrefix(k, prefix) {
			fc.cache.Delete(k)
		}
	}
}

// Clear flushes the entire cache
func (fc *FeedCache) Clear() {
	fc.mu.Lock()
	defer fc.mu.Unlock()

	fc.cache.Flush()
	fc.hitCount = 0
	fc.missCount = 0
}

// Stats returns cache statistics
func (fc *FeedCache) Stats() (hits, misses uint64, ratio float64) {
	fc.mu.Lock()
	defer fc.mu.Unlock()

	hits = fc.hitCount
	misses = fc.missCount
	if total := hits + misses; total > 0 {
		ratio = float64(hits) / float64(total)
	}
	return
}

// ItemCount returns the number of items in cache
func (fc *FeedCache) ItemCount() int {
	return fc.cache.ItemCount()
}

func (fc *FeedCache) updateMetrics() {
	_, _, ratio := fc.Stats()
	metrics.UpdateFeedCacheHitRatio(ratio)
}

// cached returns the memoised value for key, loading and storing it on a miss.
// A nil cache always loads.
func cached[T any](fc *FeedCache, key CacheKey, load func() (T, error)) (T, error) {
	if fc != nil {
		if v, ok := fc.Get(key); ok {
			if typed, ok := v.(T); ok {
				return typed, nil
			}
		}
	}
	v, err := load()
	if err != nil {
		return v, err
	}
	if fc != nil {
		fc.Set(key, v)
	}
	return v, nil
}
