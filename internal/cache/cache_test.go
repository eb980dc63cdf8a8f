package cache

import (
	"context"
	"sync"
	"testing"
	"time"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (f *fakeClock) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

func (f *fakeClock) Advance(d time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.now = f.now.Add(d)
}

func newClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 4, 4, 10, 0, 0, 0, time.UTC)}
}

func TestLRUCache_GetSet(t *testing.T) {
	c := NewLRUCache[[]string](2, time.Minute)

	if _, ok := c.Get("a@billed.test"); ok {
		t.Fatal("empty cache returned a value")
	}

	c.Set("a@billed.test", []string{"1"})
	got, ok := c.Get("a@billed.test")
	if !ok || len(got) != 1 || got[0] != "1" {
		t.Fatalf("Get() = %v, %v", got, ok)
	}

	c.Set("a@billed.test", []string{"1", "2"})
	got, _ = c.Get("a@billed.test")
	if len(got) != 2 {
		t.Fatalf("overwrite not visible: %v", got)
	}
	if c.Size() != 1 {
		t.Fatalf("Size() = %d, want 1", c.Size())
	}
}

func TestLRUCache_EvictsLeastRecentlyUsed(t *testing.T) {
	c := NewLRUCache[int](2, 0)
	c.Set("a", 1)
	c.Set("b", 2)
	c.Get("a")
	c.Set("c", 3)

	if _, ok := c.Get("b"); ok {
		t.Fatal("b should have been evicted")
	}
	for _, k := range []string{"a", "c"} {
		if _, ok := c.Get(k); !ok {
			t.Fatalf("%s should still be cached", k)
		}
	}
}

func TestLRUCache_TTL(t *testing.T) {
	clock := newClock()
	c := NewLRUCache[int](10, 30*time.Second).WithClock(clock.Now)

	c.Set("a", 1)
	clock.Advance(10 * time.Second)
	c.Set("b", 2)

	clock.Advance(25 * time.Second)
	if _, ok := c.Get("a"); ok {
		t.Fatal("a should have expired")
	}
	if _, ok := c.Get("b"); !ok {
		t.Fatal("b should still be fresh")
	}

	clock.Advance(10 * time.Second)
	if n := c.CleanExpired(); n != 1 {
		t.Fatalf("CleanExpired() = %d, want 1", n)
	}
	if c.Size() != 0 {
		t.Fatalf("Size() = %d, want 0", c.Size())
	}
}

func TestLRUCache_ZeroTTLNeverExpires(t *testing.T) {
	clock := newClock()
	c := NewLRUCache[int](10, 0).WithClock(clock.Now)
	c.Set("a", 1)
	clock.Advance(24 * time.Hour)

	if _, ok := c.Get("a"); !ok {
		t.Fatal("entry expired with zero ttl")
	}
	if n := c.CleanExpired(); n != 0 {
		t.Fatalf("CleanExpired() = %d, want 0", n)
	}
}

func TestLRUCache_DeleteAndPurge(t *testing.T) {
	c := NewLRUCache[int](10, time.Minute)
	c.Set("a", 1)
	c.Set("b", 2)
	c.Set("c", 3)

	c.Delete("b")
	c.Delete("missing")
	if c.Size() != 2 {
		t.Fatalf("Size() = %d, want 2", c.Size())
	}

	c.Purge()
	if c.Size() != 0 {
		t.Fatalf("Size() after Purge = %d", c.Size())
	}
	c.Set("d", 4)
	if v, ok := c.Get("d"); !ok || v != 4 {
		t.Fatalf("cache unusable after Purge: %v %v", v, ok)
	}
}

func TestManager_CleanOnce(t *testing.T) {
	clock := newClock()
	a := NewLRUCache[int](10, time.Second).WithClock(clock.Now)
	b := NewLRUCache[string](10, time.Second).WithClock(clock.Now)
	a.Set("x", 1)
	a.Set("y", 2)
	b.Set("z", "z")

	m := NewManager(nil)
	m.Register(a)
	m.Register(b)

	if n := m.CleanOnce(); n != 0 {
		t.Fatalf("fresh entries cleaned: %d", n)
	}
	clock.Advance(2 * time.Second)
	if n := m.CleanOnce(); n != 3 {
		t.Fatalf("CleanOnce() = %d, want 3", n)
	}
}

func TestManager_StartStop(t *testing.T) {
	m := NewManager(nil)
	m.Register(NewLRUCache[int](1, time.Millisecond))

	m.Start(context.Background(), time.Millisecond)
	m.Start(context.Background(), time.Millisecond)
	time.Sleep(5 * time.Millisecond)
	m.Stop()
	m.Stop()
}

func TestManager_StopWithoutStart(t *testing.T) {
	NewManager(nil).Stop()
}
