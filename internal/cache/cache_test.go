package cache

import (
	"testing"
	"time"
)

func TestSummaryKey(t *testing.T) {
	a := SummaryKey("openai", "gpt-4o-mini", []byte("report-a"))
	b := SummaryKey("openai", "gpt-4o-mini", []byte("report-b"))
	if a == b {
		t.Error("different fingerprints must give different keys")
	}
	if a != SummaryKey("openai", "gpt-4o-mini", []byte("report-a")) {
		t.Error("key derivation must be deterministic")
	}
	if a == SummaryKey("ollama", "gpt-4o-mini", []byte("report-a")) {
		t.Error("provider must be part of the key")
	}
	// Field boundaries matter: (ab, c) and (a, bc) are different requests.
	if SummaryKey("ab", "c", nil) == SummaryKey("a", "bc", nil) {
		t.Error("provider/model boundary must be preserved")
	}
}

func TestMemoryCache(t *testing.T) {
	c := NewMemoryCache(time.Minute, 0)

	if _, found := c.Get("missing"); found {
		t.Error("empty cache should miss")
	}
	if err := c.Set("k", []byte("v"), time.Minute); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if val, found := c.Get("k"); !found || string(val) != "v" {
		t.Errorf("Get = %q, %v", val, found)
	}
	if err := c.Delete("k"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, found := c.Get("k"); found {
		t.Error("deleted key should miss")
	}

	_ = c.Set("a", []byte("1"), time.Minute)
	_ = c.Set("b", []byte("2"), time.Minute)
	if err := c.Clear(); err != nil {
		t.Fatalf("Clear: %v", err)
	}
	if _, found := c.Get("a"); found {
		t.Error("cleared cache should miss")
	}
}

func TestMemoryCache_Expiry(t *testing.T) {
	c := NewMemoryCache(time.Minute, 0)
	_ = c.Set("k", []byte("v"), time.Millisecond)
	time.Sleep(10 * time.Millisecond)
	if _, found := c.Get("k"); found {
		t.Error("expired entry should miss")
	}
}

func TestDiskCache(t *testing.T) {
	dir := t.TempDir()
	c := NewDiskCache(dir, time.Minute)

	if err := c.Set("k", []byte("persisted"), 0); err != nil {
		t.Fatalf("Set: %v", err)
	}

	// A new handle over the same directory sees the entry.
	c2 := NewDiskCache(dir, time.Minute)
	if val, found := c2.Get("k"); !found || string(val) != "persisted" {
		t.Errorf("Get = %q, %v", val, found)
	}

	if err := c.Delete("k"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, found := c.Get("k"); found {
		t.Error("deleted key should miss")
	}
}

func TestDiskCache_Expiry(t *testing.T) {
	c := NewDiskCache(t.TempDir(), time.Minute)
	_ = c.Set("k", []byte("v"), time.Millisecond)
	time.Sleep(10 * time.Millisecond)
	if _, found := c.Get("k"); found {
		t.Error("expired entry should miss")
	}
	// Expired entries are removed on read.
	if _, found := c.Get("k"); found {
		t.Error("entry should stay gone")
	}
}

func TestLayeredCache_PromotesDiskHits(t *testing.T) {
	dir := t.TempDir()

	// Seed only the disk layer, as a previous run would have.
	if err := NewDiskCache(dir, time.Minute).Set("k", []byte("old"), time.Minute); err != nil {
		t.Fatalf("seed disk: %v", err)
	}

	c := NewLayeredCache(time.Minute, dir, time.Minute)
	if val, found := c.Get("k"); !found || string(val) != "old" {
		t.Fatalf("Get = %q, %v", val, found)
	}

	// After promotion the memory layer serves the key even if the disk
	// entry disappears.
	_ = NewDiskCache(dir, time.Minute).Delete("k")
	if val, found := c.Get("k"); !found || string(val) != "old" {
		t.Errorf("promoted entry lost: %q, %v", val, found)
	}
}

func TestLayeredCache_SetAndClear(t *testing.T) {
	dir := t.TempDir()
	c := NewLayeredCache(time.Minute, dir, time.Minute)

	if err := c.Set("k", []byte("v"), time.Minute); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if val, found := NewDiskCache(dir, time.Minute).Get("k"); !found || string(val) != "v" {
		t.Errorf("disk layer = %q, %v", val, found)
	}

	if err := c.Clear(); err != nil {
		t.Fatalf("Clear: %v", err)
	}
	if _, found := c.Get("k"); found {
		t.Error("cleared cache should miss")
	}
}
