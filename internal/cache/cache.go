package cache

// Package cache provides the scoped query-answer cache that sits in
// front of routing and generation.
//
// Responsibilities:
//   - Cache resolved answers keyed by (scope, query signature)
//   - Expire entries by TTL and evict oldest-first at capacity
//   - Invalidate by signature prefix when league state mutates
//   - Monitor hit/miss rates
//
// Key strategy: signatures come from normalize.Signature, so "who has
// Clemson?" and "Who owns Clemson" share one entry. The scope (one
// league server) prefixes every key; invalidation never crosses scopes.
//
// Eviction policy: insertion order, globally across scopes. A Set that
// replaces an existing key keeps the key's original position. TTL expiry
// is lazy: expired entries are dropped on the Get that observes them.
//
// Concurrency: a single mutex guards the map and order list, so Get,
// Set, and Invalidate are linearizable with respect to each other.

import (
	"strings"
	"sync"
	"time"

	"github.com/dynastybot/dynasty-ai/internal/normalize"
)

const (
	DefaultCapacity = 500
	DefaultTTL      = time.Hour

	// Responses shorter than this are assumed truncated and not cached.
	minCacheableLen = 10
)

// entry holds one cached answer.
type entry struct {
	value     string
	createdAt time.Time
	expiresAt time.Time
}

// Stats reports cache effectiveness counters.
type Stats struct {
	Hits           int     `json:"hits"`
	Misses         int     `json:"misses"`
	Size           int     `json:"size"`
	Capacity       int     `json:"capacity"`
	HitRatePercent float64 `json:"hit_rate_percent"`
}

// QueryCache is a TTL- and capacity-bounded answer cache partitioned by
// scope. Instances are constructed explicitly and injected; there is no
// package-level cache.
type QueryCache struct {
	mu       sync.Mutex
	entries  map[string]entry
	order    []string // insertion order, oldest first
	capacity int
	ttl      time.Duration
	hits     int
	misses   int

	// now is swappable for TTL tests.
	now func() time.Time
}

// New creates a cache with the given capacity and TTL. Non-positive
// arguments fall back to defaults.
func New(capacity int, ttl time.Duration) *QueryCache {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &QueryCache{
		entries:  make(map[string]entry),
		capacity: capacity,
		ttl:      ttl,
		now:      time.Now,
	}
}

func key(scope, signature string) string {
	return scope + ":" + signature
}

// Get returns the cached answer for a query within a scope. Expired
// entries are treated as absent and removed.
func (c *QueryCache) Get(scope, rawQuery string) (string, bool) {
	k := key(scope, normalize.Signature(rawQuery))

	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[k]
	if !ok {
		c.misses++
		return "", false
	}
	if c.now().After(e.expiresAt) {
		c.removeLocked(k)
		c.misses++
		return "", false
	}
	c.hits++
	return e.value, true
}

// Set stores an answer with a fresh TTL, evicting the single oldest
// entry if the cache is at capacity.
func (c *QueryCache) Set(scope, rawQuery, value string) {
	k := key(scope, normalize.Signature(rawQuery))
	now := c.now()

	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.entries[k]; !exists {
		if len(c.entries) >= c.capacity && len(c.order) > 0 {
			c.removeLocked(c.order[0])
		}
		c.order = append(c.order, k)
	}
	c.entries[k] = entry{
		value:     value,
		createdAt: now,
		expiresAt: now.Add(c.ttl),
	}
}

// Invalidate removes every entry in scope whose signature starts with
// prefix and returns the number removed. Entries in other scopes are
// untouched. An empty prefix clears the whole scope.
func (c *QueryCache) Invalidate(prefix, scope string) int {
	scoped := key(scope, prefix)

	c.mu.Lock()
	defer c.mu.Unlock()

	var removed []string
	for k := range c.entries {
		if strings.HasPrefix(k, scoped) {
			removed = append(removed, k)
		}
	}
	for _, k := range removed {
		c.removeLocked(k)
	}
	return len(removed)
}

// Clear drops all entries and resets counters.
func (c *QueryCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]entry)
	c.order = nil
	c.hits = 0
	c.misses = 0
}

// Stats returns a snapshot of cache counters.
func (c *QueryCache) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()

	total := c.hits + c.misses
	rate := 0.0
	if total > 0 {
		rate = float64(c.hits) / float64(total) * 100
	}
	return Stats{
		Hits:           c.hits,
		Misses:         c.misses,
		Size:           len(c.entries),
		Capacity:       c.capacity,
		HitRatePercent: rate,
	}
}

// removeLocked deletes a key from the map and the order list. Caller
// holds the lock.
func (c *QueryCache) removeLocked(k string) {
	delete(c.entries, k)
	for i, ord := range c.order {
		if ord == k {
			c.order = append(c.order[:i], c.order[i+1:]...)
			break
		}
	}
}

// ShouldCache reports whether an answer is worth caching. Error-flavored
// or suspiciously short responses stay uncached so a transient failure
// never becomes sticky.
func ShouldCache(answer string) bool {
	if len(answer) < minCacheableLen {
		return false
	}
	lower := strings.ToLower(answer)
	for _, marker := range []string{"error", "failed", "couldn't", "temporarily unavailable"} {
		if strings.Contains(lower, marker) {
			return false
		}
	}
	return true
}
