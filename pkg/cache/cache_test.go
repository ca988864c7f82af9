package cache

import (
	"path/filepath"
	"testing"
	"time"
)

func newTestCache(t *testing.T, ttl time.Duration) *Cache {
	t.Helper()
	c, err := New(filepath.Join(t.TempDir(), "cache_test.db"), ttl)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { c.Close() })
	return c
}

func TestPutGet(t *testing.T) {
	c := newTestCache(t, time.Hour)

	key := Key("model-a", "system", "user", 500)
	if err := c.Put(key, "model-a", "the response"); err != nil {
		t.Fatal(err)
	}

	got, ok := c.Get(key, "model-a")
	if !ok {
		t.Fatal("expected cache hit")
	}
	if got != "the response" {
		t.Errorf("got %q, want %q", got, "the response")
	}
}

func TestGetMiss(t *testing.T) {
	c := newTestCache(t, time.Hour)

	if _, ok := c.Get(Key("model-a", "s", "u", 1), "model-a"); ok {
		t.Error("expected miss on empty cache")
	}
}

func TestKeyVariesWithInputs(t *testing.T) {
	base := Key("model-a", "system", "user", 500)
	if Key("model-b", "system", "user", 500) == base {
		t.Error("key ignores model")
	}
	if Key("model-a", "system", "other", 500) == base {
		t.Error("key ignores user prompt")
	}
	if Key("model-a", "system", "user", 501) == base {
		t.Error("key ignores max tokens")
	}
}

func TestExpiredEntryMisses(t *testing.T) {
	// A zero TTL expires entries immediately.
	c := newTestCache(t, 0)

	key := Key("model-a", "system", "user", 500)
	if err := c.Put(key, "model-a", "stale"); err != nil {
		t.Fatal(err)
	}
	if _, ok := c.Get(key, "model-a"); ok {
		t.Error("expired entry served")
	}
}

func TestStats(t *testing.T) {
	c := newTestCache(t, time.Hour)

	key := Key("model-a", "system", "user", 500)
	if err := c.Put(key, "model-a", "resp"); err != nil {
		t.Fatal(err)
	}
	c.Get(key, "model-a")
	c.Get(Key("model-a", "x", "y", 1), "model-a")

	stats, err := c.Stats()
	if err != nil {
		t.Fatal(err)
	}
	if stats.Entries != 1 {
		t.Errorf("entries = %d, want 1", stats.Entries)
	}
	if stats.Hits != 1 || stats.Misses != 1 {
		t.Errorf("hits/misses = %d/%d, want 1/1", stats.Hits, stats.Misses)
	}
}

func TestClear(t *testing.T) {
	c := newTestCache(t, time.Hour)

	if err := c.Put(Key("m", "s", "u", 1), "m", "resp"); err != nil {
		t.Fatal(err)
	}
	if err := c.Clear(false); err != nil {
		t.Fatal(err)
	}

	stats, err := c.Stats()
	if err != nil {
		t.Fatal(err)
	}
	if stats.Entries != 0 {
		t.Errorf("entries after clear = %d, want 0", stats.Entries)
	}
}
