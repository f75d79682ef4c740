package router

import (
	"context"
	"testing"
)

func TestLookupCacheHitAvoidsNetwork(t *testing.T) {
	c := New("127.0.0.1:1", WithLookupCache(8))
	c.cache.Add("example.i2p", "AAAA")

	dest, ferr := c.LookupName(nil, "example.i2p") //nolint:staticcheck // nil ctx fine: cache hit never uses it
	if ferr != nil {
		t.Fatalf("expected cache hit to avoid any network call, got error: %v", ferr)
	}
	if dest != "AAAA" {
		t.Fatalf("expected AAAA, got %q", dest)
	}
}

func TestLookupCacheNeverCachesSelf(t *testing.T) {
	c := New("127.0.0.1:1", WithLookupCache(8))
	c.cache.Add("ME", "should-never-be-read")

	// The special name "ME" always bypasses the cache in LookupName, so a
	// populated cache entry for it must never be returned.
	if v, ok := c.cache.Get("ME"); !ok || v != "should-never-be-read" {
		t.Fatalf("test setup invariant broken")
	}
	if dest, _ := c.LookupName(context.Background(), "ME"); dest == "should-never-be-read" {
		t.Fatalf("LookupName returned the cached entry for ME")
	}
}
