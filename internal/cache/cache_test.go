package cache

import (
	"strings"
	"testing"
	"time"
)

func TestKey(t *testing.T) {
	a := Key("embedding", "text-embedding-3-small", "hello")
	b := Key("embedding", "text-embedding-3-small", "hello")
	if a != b {
		t.Fatalf("key not stable: %s vs %s", a, b)
	}
	if !strings.HasPrefix(a, "penrose-v1-embedding-") {
		t.Fatalf("unexpected prefix: %s", a)
	}

	// Part boundaries matter
	if Key("embedding", "ab", "c") == Key("embedding", "a", "bc") {
		t.Fatal("keys collide across part boundaries")
	}
	if Key("embedding", "x") == Key("other", "x") {
		t.Fatal("namespaces should separate keys")
	}
}

func TestMemoryCache(t *testing.T) {
	c := NewMemoryCache(time.Minute, time.Minute)

	if _, ok := c.Get("k"); ok {
		t.Fatal("expected miss")
	}
	if err := c.Set("k", []byte("v"), 0); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if v, ok := c.Get("k"); !ok || string(v) != "v" {
		t.Fatalf("Get = %q %v", v, ok)
	}
	if c.Len() != 1 {
		t.Fatalf("Len = %d", c.Len())
	}

	_ = c.Delete("k")
	if _, ok := c.Get("k"); ok {
		t.Fatal("expected miss after delete")
	}

	_ = c.Set("a", []byte("1"), 0)
	_ = c.Set("b", []byte("2"), 0)
	_ = c.Clear()
	if c.Len() != 0 {
		t.Fatalf("Len after clear = %d", c.Len())
	}
}

func TestMemoryCache_Expiry(t *testing.T) {
	c := NewMemoryCache(time.Minute, time.Minute)
	_ = c.Set("k", []byte("v"), time.Millisecond)
	time.Sleep(5 * time.Millisecond)
	if _, ok := c.Get("k"); ok {
		t.Fatal("expected expired entry to miss")
	}
}

func TestDiskCache(t *testing.T) {
	dir := t.TempDir()
	c := NewDiskCache(dir, time.Hour)
	key := Key("embedding", "m", "hello")

	if _, ok := c.Get(key); ok {
		t.Fatal("expected miss")
	}
	if err := c.Set(key, []byte("vec"), 0); err != nil {
		t.Fatalf("Set: %v", err)
	}

	// A second instance reads the same directory
	other := NewDiskCache(dir, time.Hour)
	if v, ok := other.Get(key); !ok || string(v) != "vec" {
		t.Fatalf("Get = %q %v", v, ok)
	}

	if err := c.Delete(key); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if err := c.Delete(key); err != nil {
		t.Fatalf("Delete missing: %v", err)
	}
}

func TestDiskCache_Expiry(t *testing.T) {
	c := NewDiskCache(t.TempDir(), time.Hour)
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return now }

	_ = c.Set("k", []byte("v"), time.Minute)
	now = now.Add(2 * time.Minute)
	if _, ok := c.Get("k"); ok {
		t.Fatal("expected expired entry to miss")
	}
}

func TestLayeredCache_PromotesDiskHits(t *testing.T) {
	dir := t.TempDir()
	disk := NewDiskCache(dir, time.Hour)
	_ = disk.Set("k", []byte("v"), 0)

	mem := NewMemoryCache(time.Minute, time.Minute)
	c := &LayeredCache{memory: mem, disk: disk}

	if v, ok := c.Get("k"); !ok || string(v) != "v" {
		t.Fatalf("Get = %q %v", v, ok)
	}
	if _, ok := mem.Get("k"); !ok {
		t.Fatal("disk hit should be promoted to memory")
	}
}

func TestNew(t *testing.T) {
	if _, ok := New(time.Minute, "", time.Hour).(*MemoryCache); !ok {
		t.Fatal("expected memory cache without disk dir")
	}
	if _, ok := New(time.Minute, t.TempDir(), time.Hour).(*LayeredCache); !ok {
		t.Fatal("expected layered cache with disk dir")
	}
}
