package coalesce

import (
	"testing"
	"time"

	"github.com/spyrun/spyrun/event"
)

func TestPassThroughWhenBothZero(t *testing.T) {
	c := New(0, 0)
	ev := event.New("spy", event.Create, "/w/a.txt")
	c.Submit("k", ev)

	select {
	case got := <-c.Out:
		if got != ev {
			t.Errorf("got a different event back")
		}
	case <-time.After(time.Second):
		t.Fatal("expected immediate pass-through emission")
	}
}

func TestDebounceCollapsesBurstToLastEvent(t *testing.T) {
	c := New(50*time.Millisecond, 0)

	e1 := event.New("spy", event.Create, "/w/a.txt")
	e2 := event.New("spy", event.Modify, "/w/a.txt")
	e3 := event.New("spy", event.Modify, "/w/a.txt")

	start := time.Now()
	c.Submit("k", e1)
	time.Sleep(20 * time.Millisecond)
	c.Submit("k", e2)
	time.Sleep(20 * time.Millisecond)
	c.Submit("k", e3)

	select {
	case got := <-c.Out:
		if got != e3 {
			t.Errorf("expected the last event in the burst, got kind=%v path=%v", got.Kind, got.Path)
		}
		if time.Since(start) < 40*time.Millisecond {
			t.Errorf("emitted too early: %s since start", time.Since(start))
		}
	case <-time.After(2 * time.Second):
		t.Fatal("expected exactly one emission after quiescence")
	}

	select {
	case got := <-c.Out:
		t.Fatalf("expected no second emission, got %+v", got)
	case <-time.After(100 * time.Millisecond):
	}
}

func TestThrottleLimitsEmissionRate(t *testing.T) {
	c := New(0, 100*time.Millisecond)

	count := 0
	deadline := time.Now().Add(350 * time.Millisecond)
	tick := time.NewTicker(20 * time.Millisecond)
	defer tick.Stop()

	done := make(chan struct{})
	go func() {
		for time.Now().Before(deadline) {
			c.Submit("k", event.New("spy", event.Modify, "/w/a.txt"))
			<-tick.C
		}
		close(done)
	}()

	timeout := time.After(2 * time.Second)
loop:
	for {
		select {
		case <-c.Out:
			count++
		case <-done:
			// drain any stragglers briefly
			for {
				select {
				case <-c.Out:
					count++
				case <-time.After(150 * time.Millisecond):
					break loop
				}
			}
		case <-timeout:
			t.Fatal("test timed out")
		}
	}

	// duration/T rounded up, plus slack for scheduling.
	if count > 5 {
		t.Errorf("throttle allowed %d emissions, expected at most ~4 for a 350ms burst over a 100ms throttle", count)
	}
	if count == 0 {
		t.Errorf("throttle should have allowed at least one emission")
	}
}

func TestDistinctKeysDoNotInterfere(t *testing.T) {
	c := New(30*time.Millisecond, 0)

	c.Submit("a", event.New("spy", event.Create, "/w/a.txt"))
	c.Submit("b", event.New("spy", event.Create, "/w/b.txt"))

	seen := map[string]bool{}
	for i := 0; i < 2; i++ {
		select {
		case got := <-c.Out:
			seen[got.Path] = true
		case <-time.After(time.Second):
			t.Fatal("expected two independent emissions")
		}
	}
	if !seen["/w/a.txt"] || !seen["/w/b.txt"] {
		t.Errorf("expected both distinct keys to emit, got %v", seen)
	}
}

func TestGCRemovesIdleEntries(t *testing.T) {
	c := New(10*time.Millisecond, 0)
	c.Submit("k", event.New("spy", event.Create, "/w/a.txt"))
	<-c.Out // let the debounce fire and clear pending

	c.mu.Lock()
	if _, ok := c.entries["k"]; !ok {
		c.mu.Unlock()
		t.Fatal("expected entry to still exist right after emission")
	}
	c.mu.Unlock()

	c.GC(time.Now().Add(time.Hour))

	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.entries["k"]; ok {
		t.Errorf("expected idle entry to be garbage collected")
	}
}
