package cache

import (
	"testing"
	"time"
)

func TestTTLCacheSetGet(t *testing.T) {
	c := New[string, string](time.Minute)
	c.Set("k", "v", 0)

	got, ok := c.Get("k")
	if !ok || got != "v" {
		t.Fatalf("expected hit with %q, got %q ok=%v", "v", got, ok)
	}

	if _, ok := c.Get("missing"); ok {
		t.Fatalf("expected miss for absent key")
	}
}

func TestTTLCacheExpiry(t *testing.T) {
	c := New[string, int](time.Minute)
	c.Set("k", 1, 10*time.Millisecond)

	time.Sleep(25 * time.Millisecond)
	if _, ok := c.Get("k"); ok {
		t.Fatalf("expected expired entry to miss")
	}
}

func TestTTLCacheZeroDefaultNeverExpires(t *testing.T) {
	c := New[string, int](0)
	c.Set("k", 1, 0)

	time.Sleep(15 * time.Millisecond)
	if _, ok := c.Get("k"); !ok {
		t.Fatalf("expected entry without TTL to persist")
	}
}

func TestTTLCacheDeleteAndFlush(t *testing.T) {
	c := New[string, int](time.Minute)
	c.Set("a", 1, 0)
	c.Set("b", 2, 0)

	c.Delete("a")
	if _, ok := c.Get("a"); ok {
		t.Fatalf("expected deleted entry to miss")
	}

	c.Flush()
	if _, ok := c.Get("b"); ok {
		t.Fatalf("expected flushed cache to miss")
	}
}

func TestTTLCacheNilSafe(t *testing.T) {
	var c *TTLCache[string, int]
	c.Set("k", 1, 0)
	c.Delete("k")
	c.Flush()
	if _, ok := c.Get("k"); ok {
		t.Fatalf("nil cache must always miss")
	}
}
