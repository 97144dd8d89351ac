package cache

import (
	"testing"
	"time"
)

func TestGetMissing(t *testing.T) {
	c := New[string]()
	if _, ok := c.Get("absent"); ok {
		t.Error("expected miss for absent key")
	}
}

func TestSetAndGet(t *testing.T) {
	c := New[int]()
	c.Set("k", 42, time.Minute)
	v, ok := c.Get("k")
	if !ok || v != 42 {
		t.Errorf("Get: got (%d, %v), want (42, true)", v, ok)
	}
}

func TestExpiryWithInjectedClock(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	c := NewWithClock[string](func() time.Time { return now })

	c.Set("k", "v", 30*time.Second)

	now = now.Add(29 * time.Second)
	if _, ok := c.Get("k"); !ok {
		t.Error("expected hit before expiry")
	}

	now = now.Add(2 * time.Second)
	if _, ok := c.Get("k"); ok {
		t.Error("expected miss after expiry")
	}

	// Expired entry is gone, a fresh Set works again.
	c.Set("k", "v2", time.Minute)
	if v, ok := c.Get("k"); !ok || v != "v2" {
		t.Errorf("Get after re-set: got (%q, %v), want (v2, true)", v, ok)
	}
}

func TestNonPositiveTTLStoresNothing(t *testing.T) {
	c := New[string]()
	c.Set("k", "v", 0)
	if _, ok := c.Get("k"); ok {
		t.Error("expected zero TTL to store nothing")
	}
}
