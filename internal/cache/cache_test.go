package cache_test

import (
	"testing"
	"time"

	"github.com/bsebcampus/campus-api/internal/cache"
)

func TestCacheSetGet(t *testing.T) {
	c := cache.New(time.Minute)

	c.Set("k", 42)

	v, ok := c.Get("k")
	if !ok {
		t.Fatal("value missing right after Set")
	}

	if v.(int) != 42 {
		t.Fatalf("got %v, want 42", v)
	}

	if _, ok := c.Get("missing"); ok {
		t.Fatal("unknown key returned a value")
	}
}

func TestCacheExpiry(t *testing.T) {
	c := cache.New(20 * time.Millisecond)

	c.Set("k", "v")

	time.Sleep(30 * time.Millisecond)

	if _, ok := c.Get("k"); ok {
		t.Fatal("value survived past its ttl")
	}
}

func TestCacheClear(t *testing.T) {
	c := cache.New(time.Minute)

	c.Set("a", 1)
	c.Set("b", 2)

	c.Clear()

	if _, ok := c.Get("a"); ok {
		t.Fatal("value survived Clear")
	}
}

func TestCacheDelete(t *testing.T) {
	c := cache.New(time.Minute)

	c.Set("a", 1)
	c.Delete("a")

	if _, ok := c.Get("a"); ok {
		t.Fatal("value survived Delete")
	}
}
