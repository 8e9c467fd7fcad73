package cache

import (
	"fmt"
	"testing"
	"time"

	"ai-gateway-be/internal/entity"
)

func entryFor(fingerprint string) *entity.CacheEntry {
	return &entity.CacheEntry{
		Fingerprint: fingerprint,
		Response:    "response for " + fingerprint,
		ExpiresAt:   time.Now().Add(time.Hour),
	}
}

func TestFastCacheGetSet(t *testing.T) {
	c := NewFastCache(8, time.Minute)

	c.Set("fp1", entryFor("fp1"), time.Minute)

	got, found := c.Get("fp1")
	if !found {
		t.Fatal("expected hit for fp1")
	}
	if got.Response != "response for fp1" {
		t.Errorf("Response = %q", got.Response)
	}

	if _, found := c.Get("missing"); found {
		t.Error("expected miss for unknown fingerprint")
	}
}

func TestFastCacheCapacityEviction(t *testing.T) {
	c := NewFastCache(3, time.Minute)

	for i := 0; i < 4; i++ {
		fp := fmt.Sprintf("fp%d", i)
		c.Set(fp, entryFor(fp), time.Minute)
	}

	if _, found := c.Get("fp0"); found {
		t.Error("oldest entry should have been evicted at capacity 3")
	}
	for _, fp := range []string{"fp1", "fp2", "fp3"} {
		if _, found := c.Get(fp); !found {
			t.Errorf("expected %s to survive eviction", fp)
		}
	}
	if c.Len() != 3 {
		t.Errorf("Len = %d, want 3", c.Len())
	}
}

func TestFastCacheGetRefreshesRecency(t *testing.T) {
	c := NewFastCache(2, time.Minute)

	c.Set("old", entryFor("old"), time.Minute)
	c.Set("mid", entryFor("mid"), time.Minute)

	// Touch "old" so "mid" becomes the eviction candidate.
	if _, found := c.Get("old"); !found {
		t.Fatal("expected hit for old")
	}

	c.Set("new", entryFor("new"), time.Minute)

	if _, found := c.Get("old"); !found {
		t.Error("recently used entry should not be evicted")
	}
	if _, found := c.Get("mid"); found {
		t.Error("least recently used entry should be evicted")
	}
}

func TestFastCacheTTLExpiry(t *testing.T) {
	c := NewFastCache(8, time.Minute)

	c.Set("shortlived", entryFor("shortlived"), 20*time.Millisecond)
	time.Sleep(50 * time.Millisecond)

	if _, found := c.Get("shortlived"); found {
		t.Error("expired entry must not be served")
	}
	if c.Len() != 0 {
		t.Errorf("stale recency node should be cleaned on read, Len = %d", c.Len())
	}
}

func TestFastCacheDeleteAndFlush(t *testing.T) {
	c := NewFastCache(8, time.Minute)

	c.Set("fp1", entryFor("fp1"), time.Minute)
	c.Set("fp2", entryFor("fp2"), time.Minute)

	c.Delete("fp1")
	if _, found := c.Get("fp1"); found {
		t.Error("deleted entry must not be served")
	}

	c.Flush()
	if _, found := c.Get("fp2"); found {
		t.Error("flushed entry must not be served")
	}
	if c.Len() != 0 {
		t.Errorf("Len after flush = %d, want 0", c.Len())
	}
}
