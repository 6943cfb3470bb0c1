package cache

import (
	"testing"
	"time"
)

func TestLRUEvictsLeastRecentlyUsed(t *testing.T) {
	c := NewLRUCache[int](2, time.Minute)
	c.Set("a", 1)
	c.Set("b", 2)
	if _, ok := c.Get("a"); !ok {
		t.Fatal("a missing")
	}
	c.Set("c", 3)

	if _, ok := c.Get("b"); ok {
		t.Fatal("b should have been evicted")
	}
	if v, ok := c.Get("a"); !ok || v != 1 {
		t.Fatalf("a = %v, %v", v, ok)
	}
	if c.Size() != 2 {
		t.Fatalf("size = %d", c.Size())
	}
}

func TestLRUExpiry(t *testing.T) {
	now := time.Date(2024, 5, 15, 0, 0, 0, 0, time.UTC)
	c := NewLRUCache[string](10, time.Minute)
	c.now = func() time.Time { return now }

	c.Set("k", "v")
	c.Set("other", "v")
	now = now.Add(30 * time.Second)
	if _, ok := c.Get("k"); !ok {
		t.Fatal("entry expired early")
	}
	now = now.Add(31 * time.Second)
	if _, ok := c.Get("k"); ok {
		t.Fatal("entry should have expired")
	}
	if n := c.CleanExpired(); n != 1 {
		t.Fatalf("CleanExpired = %d, want 1", n)
	}

	st := c.Stats()
	if st.Hits != 1 || st.Misses != 1 || st.Size != 0 {
		t.Fatalf("stats = %+v", st)
	}
}

func TestDeletePrefix(t *testing.T) {
	c := NewLRUCache[int](10, time.Minute)
	c.Set("cashflow:u1", 1)
	c.Set("cashflow:u2", 2)
	c.Set("smart-spend:u1", 3)

	if n := c.DeletePrefix("cashflow:"); n != 2 {
		t.Fatalf("DeletePrefix = %d", n)
	}
	if _, ok := c.Get("smart-spend:u1"); !ok {
		t.Fatal("unrelated key removed")
	}
}

func TestManagerCleanNowAndStop(t *testing.T) {
	c := NewLRUCache[int](10, -time.Second)
	c.Set("gone", 1)

	m := NewManager(nil)
	m.Register(c)
	if n := m.CleanNow(); n != 1 {
		t.Fatalf("CleanNow = %d", n)
	}
	m.StartCleanup(time.Hour)
	m.Stop()
	m.Stop()
}
