package source

import (
	"os"
	"path/filepath"
	"regexp"
	"testing"
	"time"

	"github.com/spyrun/spyrun/event"
)

func TestPollerDetectsCreateModifyRemove(t *testing.T) {
	dir := t.TempDir()

	p := NewPoller("spy", dir, false, 20*time.Millisecond)
	stop := make(chan struct{})
	out := make(chan *event.Event, 16)

	done := make(chan error, 1)
	go func() { done <- p.Run(stop, out) }()

	time.Sleep(50 * time.Millisecond) // let the baseline tick land

	path := filepath.Join(dir, "a.txt")
	if err := os.WriteFile(path, []byte("one"), 0o644); err != nil {
		t.Fatal(err)
	}

	var gotCreate bool
	deadline := time.After(2 * time.Second)
waitCreate:
	for {
		select {
		case e := <-out:
			if e.Kind == event.Create && e.Path == path {
				gotCreate = true
				break waitCreate
			}
		case <-deadline:
			break waitCreate
		}
	}
	if !gotCreate {
		t.Fatalf("expected a Create event for %s", path)
	}

	time.Sleep(10 * time.Millisecond)
	if err := os.WriteFile(path, []byte("two-longer"), 0o644); err != nil {
		t.Fatal(err)
	}

	var gotModify bool
	deadline = time.After(2 * time.Second)
waitModify:
	for {
		select {
		case e := <-out:
			if e.Kind == event.Modify && e.Path == path {
				gotModify = true
				break waitModify
			}
		case <-deadline:
			break waitModify
		}
	}
	if !gotModify {
		t.Fatalf("expected a Modify event for %s", path)
	}

	close(stop)
	<-done
}

func TestWalkerEmitsOncePerMatch(t *testing.T) {
	dir := t.TempDir()
	if err := os.MkdirAll(filepath.Join(dir, "sub"), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "a.go"), []byte(""), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "sub", "b.go"), []byte(""), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "c.txt"), []byte(""), 0o644); err != nil {
		t.Fatal(err)
	}

	pattern := regexp.MustCompile(`\.go$`)
	w := NewWalker("spy", dir, 0, -1, false, pattern, 0)

	stop := make(chan struct{})
	out := make(chan *event.Event, 16)
	if err := w.Run(stop, out); err != nil {
		t.Fatalf("Run: %v", err)
	}
	close(out)

	seen := map[string]int{}
	for e := range out {
		if e.Kind != event.Walk {
			t.Errorf("unexpected kind %v for %s", e.Kind, e.Path)
		}
		seen[e.Path]++
	}

	if seen[filepath.Join(dir, "a.go")] != 1 {
		t.Errorf("a.go should be seen exactly once, got %d", seen[filepath.Join(dir, "a.go")])
	}
	if seen[filepath.Join(dir, "sub", "b.go")] != 1 {
		t.Errorf("sub/b.go should be seen exactly once, got %d", seen[filepath.Join(dir, "sub", "b.go")])
	}
	if _, ok := seen[filepath.Join(dir, "c.txt")]; ok {
		t.Errorf("c.txt should not match the .go$ pattern")
	}
}

func TestWalkerRespectsMaxDepth(t *testing.T) {
	dir := t.TempDir()
	deep := filepath.Join(dir, "a", "b")
	if err := os.MkdirAll(deep, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(deep, "x.go"), []byte(""), 0o644); err != nil {
		t.Fatal(err)
	}

	pattern := regexp.MustCompile(`\.go$`)
	w := NewWalker("spy", dir, 0, 1, false, pattern, 0)

	out := make(chan *event.Event, 16)
	if err := w.Run(nil, out); err != nil {
		t.Fatalf("Run: %v", err)
	}
	close(out)

	for e := range out {
		t.Fatalf("expected no matches within max_depth=1, got %s", e.Path)
	}
}
