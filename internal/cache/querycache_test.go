package cache

import (
	"testing"
	"time"

	"github.com/finquery-labs/finrag/internal/domain/search/result"
)

func testSet(ids ...string) result.Set {
	results := make([]result.Ranked, 0, len(ids))
	for _, id := range ids {
		results = append(results, result.NewRanked(id, "text", 0.5, result.Citation{}))
	}
	return result.NewSet(results, nil)
}

func TestKey_Stable(t *testing.T) {
	a := Key("aapl revenue", map[string]string{"ticker": "AAPL", "form_type": "10-K"}, 10, false)
	b := Key("aapl revenue", map[string]string{"form_type": "10-K", "ticker": "AAPL"}, 10, false)
	if a != b {
		t.Error("key must not depend on filter map iteration order")
	}

	tests := []struct {
		name  string
		other string
	}{
		{name: "query", other: Key("msft revenue", map[string]string{"ticker": "AAPL", "form_type": "10-K"}, 10, false)},
		{name: "filters", other: Key("aapl revenue", map[string]string{"ticker": "MSFT", "form_type": "10-K"}, 10, false)},
		{name: "top-k", other: Key("aapl revenue", map[string]string{"ticker": "AAPL", "form_type": "10-K"}, 20, false)},
		{name: "strict", other: Key("aapl revenue", map[string]string{"ticker": "AAPL", "form_type": "10-K"}, 10, true)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.other == a {
				t.Error("differing request must produce a different key")
			}
		})
	}
}

func TestGetPut(t *testing.T) {
	c := New(4, time.Minute)

	if _, ok := c.Get("k"); ok {
		t.Error("unexpected hit on empty cache")
	}

	c.Put("k", testSet("c1", "c2"))
	set, ok := c.Get("k")
	if !ok || set.Len() != 2 {
		t.Errorf("got %d results, ok=%v", set.Len(), ok)
	}
}

func TestPut_PartialNotCached(t *testing.T) {
	c := New(4, time.Minute)

	c.Put("k", result.NewSet(nil, []string{"news"}))
	if _, ok := c.Get("k"); ok {
		t.Error("partial sets must not be cached")
	}
	if c.Len() != 0 {
		t.Errorf("entries: %d", c.Len())
	}
}

func TestTTLExpiry(t *testing.T) {
	c := New(4, time.Minute)
	clock := time.Unix(1_700_000_000, 0)
	c.now = func() time.Time { return clock }

	c.Put("k", testSet("c1"))
	if _, ok := c.Get("k"); !ok {
		t.Fatal("expected hit before expiry")
	}

	clock = clock.Add(2 * time.Minute)
	if _, ok := c.Get("k"); ok {
		t.Error("expected miss after TTL")
	}
	// Lookup evicts the stale entry.
	if c.Len() != 0 {
		t.Errorf("entries: %d", c.Len())
	}
}

func TestLRUEviction(t *testing.T) {
	c := New(2, time.Minute)

	c.Put("a", testSet("c1"))
	c.Put("b", testSet("c2"))
	// Touch a so b becomes the least recently used.
	if _, ok := c.Get("a"); !ok {
		t.Fatal("expected hit for a")
	}
	c.Put("c", testSet("c3"))

	if _, ok := c.Get("b"); ok {
		t.Error("b should have been evicted")
	}
	if _, ok := c.Get("a"); !ok {
		t.Error("a should survive")
	}
	if _, ok := c.Get("c"); !ok {
		t.Error("c should survive")
	}
}

func TestInvalidate(t *testing.T) {
	c := New(4, time.Minute)

	c.Put("k", testSet("c1"))
	c.Invalidate()
	if _, ok := c.Get("k"); ok {
		t.Error("expected miss after invalidation")
	}

	// The cache keeps working across generations.
	c.Put("k", testSet("c2"))
	set, ok := c.Get("k")
	if !ok || set.Results()[0].ChunkID() != "c2" {
		t.Errorf("post-invalidation entry: ok=%v set=%+v", ok, set)
	}
}

func TestNew_Defaults(t *testing.T) {
	c := New(0, 0)
	if c.maxEntries != DefaultMaxEntries || c.ttl != DefaultTTL {
		t.Errorf("defaults: %d, %v", c.maxEntries, c.ttl)
	}
}
