package cache_test

import (
	"testing"
	"time"

	"github.com/WAIRAGU04/tellerpos-africa-spark-63-sub001/internal/infra/cache"
)

func TestCache_SetAndGet(t *testing.T) {
	c := cache.New[string](5 * time.Minute)
	defer c.Close()

	c.Set("sale-001", "receipt")
	val, ok := c.Get("sale-001")
	if !ok {
		t.Fatal("expected key to exist")
	}
	if val != "receipt" {
		t.Errorf("expected 'receipt', got '%s'", val)
	}
}

func TestCache_GetMiss(t *testing.T) {
	c := cache.New[string](5 * time.Minute)
	defer c.Close()

	if _, ok := c.Get("nonexistent"); ok {
		t.Fatal("expected cache miss for nonexistent key")
	}
}

func TestCache_Expiration(t *testing.T) {
	c := cache.New[string](50 * time.Millisecond)
	defer c.Close()

	c.Set("key1", "value1")
	time.Sleep(100 * time.Millisecond)

	if _, ok := c.Get("key1"); ok {
		t.Fatal("expected cache entry to be expired")
	}
}

func TestCache_Delete(t *testing.T) {
	c := cache.New[string](5 * time.Minute)
	defer c.Close()

	c.Set("key1", "value1")
	c.Delete("key1")

	if _, ok := c.Get("key1"); ok {
		t.Fatal("expected key to be deleted")
	}
}

func TestCache_SetIfAbsent(t *testing.T) {
	c := cache.New[bool](5 * time.Minute)
	defer c.Close()

	if !c.SetIfAbsent("REF-1", true) {
		t.Fatal("first SetIfAbsent should store")
	}
	if c.SetIfAbsent("REF-1", true) {
		t.Fatal("second SetIfAbsent should be rejected")
	}
	c.Delete("REF-1")
	if !c.SetIfAbsent("REF-1", true) {
		t.Fatal("SetIfAbsent after delete should store")
	}
}

func TestCache_SetIfAbsentAfterExpiry(t *testing.T) {
	c := cache.New[int](30 * time.Millisecond)
	defer c.Close()

	c.Set("k", 1)
	time.Sleep(60 * time.Millisecond)

	if !c.SetIfAbsent("k", 2) {
		t.Fatal("expired entry should be replaceable")
	}
	if v, _ := c.Get("k"); v != 2 {
		t.Errorf("expected 2, got %d", v)
	}
}

func TestCache_CloseIsIdempotent(t *testing.T) {
	c := cache.New[int](time.Minute)
	c.Close()
	c.Close()
}
