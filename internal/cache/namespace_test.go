// Minbar - Mosque Display Content Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/minbar

package cache

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 10, 17, 9, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type display struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

func TestNamespace_SetGet(t *testing.T) {
	clock := newFakeClock()
	ns := NewNamespace[display](NamespaceConfig{Name: "displays", TTL: time.Minute, MaxEntries: 10}, WithClock(clock.Now))

	ns.Set("display:d1", display{ID: "d1", Name: "Main Hall"})

	got, ok := ns.Get("display:d1")
	if !ok {
		t.Fatal("expected entry to be present")
	}
	if got.Name != "Main Hall" {
		t.Errorf("Name = %q, want %q", got.Name, "Main Hall")
	}
	if _, ok := ns.Get("display:missing"); ok {
		t.Error("expected missing key to be absent")
	}
	if !ns.Has("display:d1") {
		t.Error("Has() = false, want true")
	}

	ns.Set("display:d1", display{ID: "d1", Name: "Renamed"})
	if got, _ := ns.Get("display:d1"); got.Name != "Renamed" {
		t.Errorf("overwrite not applied, Name = %q", got.Name)
	}
	if ns.Len() != 1 {
		t.Errorf("Len() = %d, want 1", ns.Len())
	}
}

func TestNamespace_Expiry(t *testing.T) {
	clock := newFakeClock()
	ns := NewNamespace[string](NamespaceConfig{Name: "content", TTL: 2 * time.Minute, MaxEntries: 5}, WithClock(clock.Now))

	ns.Set("k", "v")
	clock.Advance(2*time.Minute - time.Millisecond)
	if _, ok := ns.Get("k"); !ok {
		t.Fatal("entry should be valid just before its expiry instant")
	}

	clock.Advance(time.Millisecond)
	if _, ok := ns.Get("k"); ok {
		t.Fatal("entry must be absent exactly at its expiry instant")
	}
	if ns.Len() != 0 {
		t.Errorf("expired entry should be deleted on access, Len() = %d", ns.Len())
	}
	if ns.Has("k") {
		t.Error("Has() should be false for an expired key")
	}
}

func TestNamespace_ExpiryBoundary(t *testing.T) {
	tests := []struct {
		name  string
		check func(t *testing.T, ns *Namespace[string])
	}{
		{"get", func(t *testing.T, ns *Namespace[string]) {
			if v, ok := ns.Get("k"); ok {
				t.Errorf("Get() = %q, want absent at expiry", v)
			}
		}},
		{"has", func(t *testing.T, ns *Namespace[string]) {
			if ns.Has("k") {
				t.Error("Has() = true at expiry")
			}
		}},
		{"purge", func(t *testing.T, ns *Namespace[string]) {
			if n := ns.PurgeExpired(); n != 1 {
				t.Errorf("PurgeExpired() = %d, want 1", n)
			}
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clock := newFakeClock()
			ns := NewNamespace[string](NamespaceConfig{Name: "boundary", TTL: time.Second, MaxEntries: 5}, WithClock(clock.Now))
			ns.Set("k", "v")
			clock.Advance(time.Second)
			tt.check(t, ns)
		})
	}

	t.Run("reload", func(t *testing.T) {
		clock := newFakeClock()
		store := NewMemoryPersister()
		cfg := NamespaceConfig{Name: "boundary", TTL: time.Second, MaxEntries: 5, Persistent: true}
		ns := NewNamespace[string](cfg, WithPersister(store), WithClock(clock.Now))
		ns.Set("k", "v")

		clock.Advance(time.Second)
		reloaded := NewNamespace[string](cfg, WithPersister(store), WithClock(clock.Now))
		if reloaded.Len() != 0 {
			t.Errorf("Len() after reload at expiry = %d, want 0", reloaded.Len())
		}
	})
}

func TestNamespace_LRUEviction(t *testing.T) {
	t.Run("oldest insert evicted", func(t *testing.T) {
		ns := NewNamespace[string](NamespaceConfig{Name: "lru", TTL: time.Hour, MaxEntries: 2})
		ns.Set("A", "a")
		ns.Set("B", "b")
		ns.Set("C", "c")

		if ns.Has("A") {
			t.Error("A should have been evicted")
		}
		if !ns.Has("B") || !ns.Has("C") {
			t.Error("B and C should be present")
		}
	})

	t.Run("access refreshes order", func(t *testing.T) {
		ns := NewNamespace[string](NamespaceConfig{Name: "lru", TTL: time.Hour, MaxEntries: 2})
		ns.Set("A", "a")
		ns.Set("B", "b")
		ns.Get("A")
		ns.Set("C", "c")

		if ns.Has("B") {
			t.Error("B was least recently accessed and should have been evicted")
		}
		if !ns.Has("A") || !ns.Has("C") {
			t.Error("A and C should be present")
		}
	})

	t.Run("overwrite at ceiling does not evict", func(t *testing.T) {
		ns := NewNamespace[string](NamespaceConfig{Name: "lru", TTL: time.Hour, MaxEntries: 2})
		ns.Set("A", "a")
		ns.Set("B", "b")
		ns.Set("A", "a2")

		if ns.Len() != 2 || !ns.Has("A") || !ns.Has("B") {
			t.Errorf("overwrite should keep both entries, Len() = %d", ns.Len())
		}
	})

	t.Run("size never exceeds ceiling", func(t *testing.T) {
		ns := NewNamespace[int](NamespaceConfig{Name: "lru", TTL: time.Hour, MaxEntries: 3})
		for i := 0; i < 50; i++ {
			ns.Set(fmt.Sprintf("k%d", i), i)
			if ns.Len() > 3 {
				t.Fatalf("Len() = %d exceeds ceiling after insert %d", ns.Len(), i)
			}
		}
	})
}

func TestNamespace_DeleteAndClear(t *testing.T) {
	ns := NewNamespace[string](NamespaceConfig{Name: "content", TTL: time.Hour, MaxEntries: 10})
	ns.Set("content:d1:0:50", "p0")
	ns.Set("content:d1:1:50", "p1")
	ns.Set("content:d2:0:50", "other")

	if !ns.Delete("content:d2:0:50") {
		t.Error("Delete() = false for existing key")
	}
	if ns.Delete("content:d2:0:50") {
		t.Error("Delete() = true for missing key")
	}

	removed := ns.DeleteFunc(func(k string) bool { return strings.HasPrefix(k, "content:d1:") })
	if removed != 2 {
		t.Errorf("DeleteFunc removed %d, want 2", removed)
	}

	ns.Set("x", "y")
	ns.Clear()
	if ns.Len() != 0 {
		t.Errorf("Len() after Clear = %d, want 0", ns.Len())
	}
}

func TestNamespace_PurgeExpired(t *testing.T) {
	clock := newFakeClock()
	ns := NewNamespace[string](NamespaceConfig{Name: "content", TTL: time.Minute, MaxEntries: 10}, WithClock(clock.Now))

	ns.Set("old1", "a")
	ns.Set("old2", "b")
	clock.Advance(45 * time.Second)
	ns.Set("fresh", "c")
	clock.Advance(30 * time.Second)

	if n := ns.PurgeExpired(); n != 2 {
		t.Errorf("PurgeExpired() = %d, want 2", n)
	}
	if !ns.Has("fresh") {
		t.Error("unexpired entry should survive purge")
	}
}

func TestNamespace_Stats(t *testing.T) {
	clock := newFakeClock()
	ns := NewNamespace[string](NamespaceConfig{Name: "displays", TTL: time.Hour, MaxEntries: 10}, WithClock(clock.Now))

	empty := ns.Stats()
	if empty.Size != 0 || !empty.OldestEntry.IsZero() || !empty.NewestEntry.IsZero() {
		t.Errorf("empty stats = %+v", empty)
	}

	first := clock.Now()
	ns.Set("a", "1")
	clock.Advance(time.Minute)
	ns.Set("b", "2")
	last := clock.Now()

	s := ns.Stats()
	if s.Size != 2 {
		t.Errorf("Size = %d, want 2", s.Size)
	}
	if !s.OldestEntry.Equal(first) {
		t.Errorf("OldestEntry = %v, want %v", s.OldestEntry, first)
	}
	if !s.NewestEntry.Equal(last) {
		t.Errorf("NewestEntry = %v, want %v", s.NewestEntry, last)
	}
	if s.HitRate != 0 {
		t.Errorf("HitRate = %v, want 0", s.HitRate)
	}
}

func TestNamespace_Persistence(t *testing.T) {
	clock := newFakeClock()
	store := NewMemoryPersister()
	cfg := NamespaceConfig{Name: "displays", TTL: 5 * time.Minute, MaxEntries: 10, Persistent: true}

	ns := NewNamespace[display](cfg, WithPersister(store), WithClock(clock.Now))
	ns.Set("display:d1", display{ID: "d1", Name: "Lobby"})
	clock.Advance(4 * time.Minute)
	ns.Set("display:d2", display{ID: "d2", Name: "Hall"})

	restored := NewNamespace[display](cfg, WithPersister(store), WithClock(clock.Now))
	if got, ok := restored.Get("display:d1"); !ok || got.Name != "Lobby" {
		t.Errorf("restored d1 = %+v, %v", got, ok)
	}

	clock.Advance(2 * time.Minute)
	reloaded := NewNamespace[display](cfg, WithPersister(store), WithClock(clock.Now))
	if reloaded.Has("display:d1") {
		t.Error("entry expired before reload must not be restored")
	}
	if !reloaded.Has("display:d2") {
		t.Error("unexpired entry should be restored")
	}

	reloaded.Clear()
	payload, _ := store.Load(cfg.Name)
	if payload != nil {
		t.Error("Clear() should erase the persisted copy")
	}
}

func TestNamespace_PersistenceDisabled(t *testing.T) {
	store := NewMemoryPersister()
	cfg := NamespaceConfig{Name: "scratch", TTL: time.Minute, MaxEntries: 2, Persistent: false}

	ns := NewNamespace[string](cfg, WithPersister(store))
	ns.Set("k", "v")

	if payload, _ := store.Load("scratch"); payload != nil {
		t.Error("non-persistent namespace must not write to the persister")
	}
}

type failingPersister struct{}

func (failingPersister) Save(string, []byte) error   { return errors.New("disk full") }
func (failingPersister) Load(string) ([]byte, error) { return nil, errors.New("disk gone") }
func (failingPersister) Remove(string) error         { return errors.New("disk gone") }

func TestNamespace_PersistenceFailuresAreSwallowed(t *testing.T) {
	ns := NewNamespace[string](
		NamespaceConfig{Name: "content", TTL: time.Minute, MaxEntries: 2, Persistent: true},
		WithPersister(failingPersister{}),
	)
	ns.Set("k", "v")
	if v, ok := ns.Get("k"); !ok || v != "v" {
		t.Errorf("in-memory cache should keep working, got %q, %v", v, ok)
	}
	ns.Clear()
}

func TestNamespace_CorruptPayload(t *testing.T) {
	store := NewMemoryPersister()
	_ = store.Save("content", []byte("{not json"))

	ns := NewNamespace[string](
		NamespaceConfig{Name: "content", TTL: time.Minute, MaxEntries: 2, Persistent: true},
		WithPersister(store),
	)
	if ns.Len() != 0 {
		t.Errorf("corrupt payload should be ignored, Len() = %d", ns.Len())
	}
}

func TestNamespace_Concurrent(t *testing.T) {
	ns := NewNamespace[int](NamespaceConfig{Name: "concurrent", TTL: time.Minute, MaxEntries: 16})

	var wg sync.WaitGroup
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			for i := 0; i < 200; i++ {
				key := fmt.Sprintf("k%d", (g*200+i)%40)
				ns.Set(key, i)
				ns.Get(key)
				if i%50 == 0 {
					ns.PurgeExpired()
				}
			}
		}(g)
	}
	wg.Wait()

	if ns.Len() > 16 {
		t.Errorf("Len() = %d exceeds ceiling", ns.Len())
	}
}
