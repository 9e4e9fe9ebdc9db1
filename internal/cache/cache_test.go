package cache

import (
	"fmt"
	"sync"
	"testing"
	"time"
)

func TestGetMissThenHit(t *testing.T) {
	c := New(10, time.Minute)

	if _, ok := c.Get("league-1", "who has Clemson?"); ok {
		t.Fatal("expected miss on empty cache")
	}

	c.Set("league-1", "who has Clemson?", "Clemson is assigned to @userX.")

	got, ok := c.Get("league-1", "who owns Clemson")
	if !ok {
		t.Fatal("expected hit for signature-equivalent query")
	}
	if got != "Clemson is assigned to @userX." {
		t.Errorf("unexpected value %q", got)
	}
}

func TestScopeIsolation(t *testing.T) {
	c := New(10, time.Minute)
	c.Set("league-1", "who has Clemson", "answer-1")
	c.Set("league-2", "who has Clemson", "answer-2")

	if got, _ := c.Get("league-1", "who has Clemson"); got != "answer-1" {
		t.Errorf("league-1 got %q", got)
	}
	if got, _ := c.Get("league-2", "who has Clemson"); got != "answer-2" {
		t.Errorf("league-2 got %q", got)
	}
}

func TestTTLExpiry(t *testing.T) {
	c := New(10, time.Minute)
	current := time.Unix(1000, 0)
	c.now = func() time.Time { return current }

	c.Set("league-1", "who has Clemson", "answer")

	if _, ok := c.Get("league-1", "who has Clemson"); !ok {
		t.Fatal("expected hit before expiry")
	}

	current = current.Add(time.Minute + time.Second)
	if _, ok := c.Get("league-1", "who has Clemson"); ok {
		t.Fatal("expected miss after TTL elapsed")
	}

	// The expired entry must be physically removed as well.
	if size := c.Stats().Size; size != 0 {
		t.Errorf("expected size 0 after lazy expiry, got %d", size)
	}
}

func TestCapacityEvictsOldestFirst(t *testing.T) {
	c := New(3, time.Minute)
	c.Set("s", "who has Alabama", "a")
	c.Set("s", "who has Georgia", "b")
	c.Set("s", "who has Clemson", "c")
	c.Set("s", "who has Oregon", "d") // evicts Alabama

	if _, ok := c.Get("s", "who has Alabama"); ok {
		t.Error("oldest entry should have been evicted")
	}
	if _, ok := c.Get("s", "who has Oregon"); !ok {
		t.Error("newest entry missing")
	}
	if size := c.Stats().Size; size != 3 {
		t.Errorf("expected size 3, got %d", size)
	}
}

func TestReplaceDoesNotGrow(t *testing.T) {
	c := New(3, time.Minute)
	c.Set("s", "who has Clemson", "old")
	c.Set("s", "who owns Clemson?", "new") // same signature

	if size := c.Stats().Size; size != 1 {
		t.Fatalf("expected single entry, got %d", size)
	}
	if got, _ := c.Get("s", "who has Clemson"); got != "new" {
		t.Errorf("expected replaced value, got %q", got)
	}
}

func TestInvalidatePrefixScoped(t *testing.T) {
	c := New(10, time.Minute)
	c.Set("league-1", "who has Clemson", "a")
	c.Set("league-1", "who has Oregon", "b")
	c.Set("league-1", "how do i spend points", "c")
	c.Set("league-2", "who has Clemson", "d")

	n := c.Invalidate("who_has", "league-1")
	if n != 2 {
		t.Fatalf("expected 2 invalidated, got %d", n)
	}
	if _, ok := c.Get("league-1", "who has Clemson"); ok {
		t.Error("invalidated entry still readable")
	}
	if _, ok := c.Get("league-1", "how do i spend points"); !ok {
		t.Error("non-matching entry was removed")
	}
	if _, ok := c.Get("league-2", "who has Clemson"); !ok {
		t.Error("other scope was affected")
	}
}

func TestStatsHitRate(t *testing.T) {
	c := New(10, time.Minute)
	c.Set("s", "who has Clemson", "a")

	c.Get("s", "who has Clemson") // hit
	c.Get("s", "who has Oregon")  // miss
	c.Get("s", "who has Clemson") // hit
	c.Get("s", "who has Oregon")  // miss

	st := c.Stats()
	if st.Hits != 2 || st.Misses != 2 {
		t.Fatalf("hits=%d misses=%d", st.Hits, st.Misses)
	}
	if st.HitRatePercent != 50.0 {
		t.Errorf("hit rate = %.2f, want 50.00", st.HitRatePercent)
	}
}

func TestConcurrentAccess(t *testing.T) {
	c := New(100, time.Minute)
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			for j := 0; j < 200; j++ {
				q := fmt.Sprintf("who has team %d", j%20)
				c.Set("league-1", q, "answer")
				c.Get("league-1", q)
				if j%50 == 0 {
					c.Invalidate("who_has_team_1", "league-1")
				}
			}
		}(i)
	}
	wg.Wait()

	// Sanity check: no panic, counters consistent.
	st := c.Stats()
	if st.Size > 100 {
		t.Errorf("cache exceeded capacity: %d", st.Size)
	}
}

func TestShouldCache(t *testing.T) {
	tests := []struct {
		answer string
		want   bool
	}{
		{"Clemson is assigned to @userX.", true},
		{"ok", false},
		{"Something failed while looking that up.", false},
		{"I'm temporarily unavailable, try again shortly.", false},
	}
	for _, tt := range tests {
		if got := ShouldCache(tt.answer); got != tt.want {
			t.Errorf("ShouldCache(%q) = %v, want %v", tt.answer, got, tt.want)
		}
	}
}
