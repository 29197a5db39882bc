package cache

import (
	"context"
	"testing"
	"time"

	"farmprofit/internal/log"
)

type fakeClock struct{ t time.Time }

func (f *fakeClock) now() time.Time { return f.t }

func newTestCache(size int, ttl time.Duration) (*LRUCache[string], *fakeClock) {
	clk := &fakeClock{t: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
	c := NewLRUCache[string](size, ttl)
	c.now = clk.now
	return c, clk
}

func TestLRUEvictsLeastRecentlyUsed(t *testing.T) {
	c, _ := newTestCache(2, time.Minute)
	c.Set("en", "English")
	c.Set("id", "Indonesian")
	if _, ok := c.Get("en"); !ok {
		t.Fatal("en should be cached")
	}
	c.Set("it", "Italian")

	if _, ok := c.Get("id"); ok {
		t.Error("id should have been evicted")
	}
	if v, ok := c.Get("en"); !ok || v != "English" {
		t.Errorf("en = %q, %v", v, ok)
	}
	if c.Size() != 2 {
		t.Errorf("Size = %d, want 2", c.Size())
	}
}

func TestLRUExpiry(t *testing.T) {
	c, clk := newTestCache(10, time.Minute)
	c.Set("a", "1")
	c.Set("b", "2")

	clk.t = clk.t.Add(30 * time.Second)
	c.Set("b", "3")

	clk.t = clk.t.Add(45 * time.Second)
	if _, ok := c.Get("a"); ok {
		t.Error("a should have expired")
	}
	if n := c.CleanExpired(); n != 0 {
		t.Errorf("CleanExpired = %d, want 0 (a already dropped, b refreshed)", n)
	}
	if v, ok := c.Get("b"); !ok || v != "3" {
		t.Errorf("b = %q, %v", v, ok)
	}

	clk.t = clk.t.Add(time.Hour)
	if n := c.CleanExpired(); n != 1 {
		t.Errorf("CleanExpired = %d, want 1", n)
	}
}

func TestLRUWithoutTTLNeverExpires(t *testing.T) {
	c, clk := newTestCache(1, 0)
	c.Set("k", "v")
	clk.t = clk.t.Add(24 * 365 * time.Hour)
	if _, ok := c.Get("k"); !ok {
		t.Fatal("entry without ttl expired")
	}
}

func TestDeleteAndPurge(t *testing.T) {
	c, _ := newTestCache(5, time.Minute)
	c.Set("a", "1")
	c.Set("b", "2")
	c.Delete("a")
	if _, ok := c.Get("a"); ok {
		t.Error("a still present after Delete")
	}
	c.Purge()
	if c.Size() != 0 {
		t.Errorf("Size after Purge = %d", c.Size())
	}
}

func TestManagerSweepAndRun(t *testing.T) {
	c, clk := newTestCache(5, time.Second)
	c.Set("a", "1")
	m := NewManager(log.Discard())
	m.Register(c)

	clk.t = clk.t.Add(2 * time.Second)
	if n := m.Sweep(); n != 1 {
		t.Fatalf("Sweep = %d, want 1", n)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- m.Run(ctx, time.Millisecond) }()
	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Run: %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Run did not stop after cancel")
	}
}
