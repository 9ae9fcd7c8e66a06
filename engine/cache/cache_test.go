package cache

import (
	"testing"
	"time"

	"github.com/partshub/fitment/pkg/metrics"
)

// fakeClock lets tests advance time without sleeping.
type fakeClock struct{ t time.Time }

func (f *fakeClock) now() time.Time          { return f.t }
func (f *fakeClock) advance(d time.Duration) { f.t = f.t.Add(d) }

func newTestCache(ttl time.Duration) (*Cache[string], *fakeClock) {
	clk := &fakeClock{t: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
	c := New[string](ttl)
	c.now = clk.now
	return c, clk
}

func TestCache_RoundTrip(t *testing.T) {
	c, _ := newTestCache(time.Minute)
	if _, ok := c.Get("k"); ok {
		t.Error("unset key should be absent")
	}
	c.Set("k", "v")
	got, ok := c.Get("k")
	if !ok || got != "v" {
		t.Errorf("got (%q, %v), want (v, true)", got, ok)
	}
}

func TestCache_Expiry(t *testing.T) {
	c, clk := newTestCache(time.Minute)
	c.Set("k", "v")

	clk.advance(59 * time.Second)
	if _, ok := c.Get("k"); !ok {
		t.Error("entry within TTL should be present")
	}

	clk.advance(2 * time.Second)
	if _, ok := c.Get("k"); ok {
		t.Error("entry past TTL must be absent without explicit eviction")
	}
	// Lazy eviction removed the entry on that Get.
	if c.Len() != 0 {
		t.Errorf("expired entry not evicted, len=%d", c.Len())
	}
}

func TestCache_SetRefreshesTimestamp(t *testing.T) {
	c, clk := newTestCache(time.Minute)
	c.Set("k", "old")
	clk.advance(50 * time.Second)
	c.Set("k", "new")
	clk.advance(30 * time.Second)
	got, ok := c.Get("k")
	if !ok || got != "new" {
		t.Errorf("overwrite should reset TTL, got (%q, %v)", got, ok)
	}
}

func TestCache_Invalidate(t *testing.T) {
	c, _ := newTestCache(time.Minute)
	c.Set("a", "1")
	c.Set("b", "2")

	c.Invalidate("a")
	if _, ok := c.Get("a"); ok {
		t.Error("invalidated key should be absent")
	}
	if _, ok := c.Get("b"); !ok {
		t.Error("other keys must survive targeted invalidation")
	}

	c.InvalidateAll()
	if _, ok := c.Get("b"); ok {
		t.Error("InvalidateAll should drop everything")
	}
}

func TestCache_Counters(t *testing.T) {
	reg := metrics.New()
	hits := reg.Counter("cache_hits_total", "")
	misses := reg.Counter("cache_misses_total", "")
	clk := &fakeClock{t: time.Now()}
	c := New(time.Minute, WithCounters[string](hits, misses))
	c.now = clk.now

	c.Get("k")
	c.Set("k", "v")
	c.Get("k")
	if hits.Value() != 1 || misses.Value() != 1 {
		t.Errorf("got hits=%d misses=%d, want 1/1", hits.Value(), misses.Value())
	}
}

func TestKeyFor_Stable(t *testing.T) {
	a := KeyFor("groups:list", map[string]any{"category": "parts", "offset": 0, "limit": 20})
	b := KeyFor("groups:list", map[string]any{"limit": 20, "offset": 0, "category": "parts"})
	if a != b {
		t.Errorf("field order must not affect the key: %q vs %q", a, b)
	}
	if a == KeyFor("groups:list", map[string]any{"category": "parts", "offset": 20, "limit": 20}) {
		t.Error("different params must produce different keys")
	}
	if KeyFor("groups:stats", nil) != "groups:stats" {
		t.Error("empty params should yield the bare namespace")
	}
}
