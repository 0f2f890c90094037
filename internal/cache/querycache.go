// Package cache provides a bounded in-process LRU cache with TTL for
// retrieve results. Identical queries against an unchanged index are
// deterministic, which makes the result set safely cacheable until the next
// ingestion run invalidates it.
package cache

import (
	"container/list"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/finquery-labs/finrag/internal/domain/search/result"
)

// Default cache sizing.
const (
	DefaultMaxEntries = 512
	DefaultTTL        = 5 * time.Minute
)

type entry struct {
	key        string
	set        result.Set
	generation uint64
	expires    time.Time
}

// QueryCache is an LRU+TTL cache keyed by the full request identity.
// Invalidate bumps a generation counter instead of walking the map, so
// post-ingestion invalidation is O(1).
type QueryCache struct {
	mu         sync.Mutex
	maxEntries int
	ttl        time.Duration
	generation uint64
	order      *list.List
	items      map[string]*list.Element
	now        func() time.Time
}

// New creates a query cache. Non-positive maxEntries or ttl fall back to the
// defaults.
func New(maxEntries int, ttl time.Duration) *QueryCache {
	if maxEntries <= 0 {
		maxEntries = DefaultMaxEntries
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &QueryCache{
		maxEntries: maxEntries,
		ttl:        ttl,
		order:      list.New(),
		items:      make(map[string]*list.Element),
		now:        time.Now,
	}
}

// Key builds the cache key from everything that influences the result set.
// Filters are serialized in sorted order so map iteration cannot split
// identical requests across keys.
func Key(query string, filters map[string]string, topK int, strict bool) string {
	keys := make([]string, 0, len(filters))
	for k := range filters {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	b.WriteString(query)
	for _, k := range keys {
		fmt.Fprintf(&b, "|%s=%s", k, filters[k])
	}
	fmt.Fprintf(&b, "|k=%d|s=%t", topK, strict)

	sum := sha256.Sum256([]byte(b.String()))
	return hex.EncodeToString(sum[:])
}

// Get returns the cached set for key, if present, unexpired, and from the
// current generation.
func (c *QueryCache) Get(key string) (result.Set, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	el, ok := c.items[key]
	if !ok {
		return result.Set{}, false
	}
	e := el.Value.(*entry)
	if e.generation != c.generation || c.now().After(e.expires) {
		c.order.Remove(el)
		delete(c.items, key)
		return result.Set{}, false
	}
	c.order.MoveToFront(el)
	return e.set, true
}

// Put stores a result set, evicting the least recently used entry when full.
// Partial sets are not cached: a transient collection failure must not be
// replayed for the TTL window.
func (c *QueryCache) Put(key string, set result.Set) {
	if set.Partial() {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if el, ok := c.items[key]; ok {
		e := el.Value.(*entry)
		e.set = set
		e.generation = c.generation
		e.expires = c.now().Add(c.ttl)
		c.order.MoveToFront(el)
		return
	}

	el := c.order.PushFront(&entry{
		key:        key,
		set:        set,
		generation: c.generation,
		expires:    c.now().Add(c.ttl),
	})
	c.items[key] = el

	if c.order.Len() > c.maxEntries {
		oldest := c.order.Back()
		if oldest != nil {
			c.order.Remove(oldest)
			delete(c.items, oldest.Value.(*entry).key)
		}
	}
}

// Invalidate drops all cached entries. Called after an ingestion run changes
// any collection.
func (c *QueryCache) Invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.generation++
}

// Len reports the number of stored entries, including stale ones not yet
// evicted by lookups.
func (c *QueryCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.order.Len()
}
