package pool

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spyrun/spyrun/event"
)

func testSpec(t *testing.T, cmd string, args []string) *event.CommandSpec {
	t.Helper()
	return &event.CommandSpec{
		SpyName:    "spy",
		Cmd:        cmd,
		Args:       args,
		Cwd:        t.TempDir(),
		OutputFile: filepath.Join(t.TempDir(), "out"),
		Event:      event.New("spy", event.Create, "/w/a.txt"),
	}
}

func TestSubmitRunsCommandAndWritesOutput(t *testing.T) {
	p := New(2)
	defer p.Stop()

	spec := testSpec(t, "echo", []string{"hello"})
	p.Submit(spec, 0)

	deadline := time.Now().Add(2 * time.Second)
	var entries []os.DirEntry
	for time.Now().Before(deadline) {
		entries, _ = os.ReadDir(spec.OutputFile)
		if len(entries) > 0 {
			break
		}
		time.Sleep(10 * time.Millisecond)
	}
	if len(entries) == 0 {
		t.Fatalf("expected a log file under %s", spec.OutputFile)
	}

	data, err := os.ReadFile(filepath.Join(spec.OutputFile, entries[0].Name()))
	if err != nil {
		t.Fatalf("reading log file: %v", err)
	}
	if string(data) != "hello\n" {
		t.Errorf("output = %q, want %q", data, "hello\n")
	}
}

func TestPoolParallelismBoundedByMaxThreads(t *testing.T) {
	const maxThreads = 2
	const n = 6
	const taskDuration = 150 * time.Millisecond

	p := New(maxThreads)
	defer p.Stop()

	outDirs := make([]string, n)
	start := time.Now()
	for i := 0; i < n; i++ {
		spec := testSpec(t, "sleep", []string{"0.15"})
		outDirs[i] = spec.OutputFile
		p.Submit(spec, 0)
	}

	// n tasks over a pool of size maxThreads run in ceil(n/maxThreads)
	// serialized batches. A task's log file is created when the task starts,
	// so the last batch's files appear only after every earlier batch has
	// run to completion: at least minBatches-1 task durations, proving the
	// pool never runs more than maxThreads at once.
	minBatches := (n + maxThreads - 1) / maxThreads
	minElapsed := time.Duration(minBatches-1) * taskDuration

	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		allDone := true
		for _, dir := range outDirs {
			entries, _ := os.ReadDir(dir)
			if len(entries) == 0 {
				allDone = false
				break
			}
		}
		if allDone {
			break
		}
		time.Sleep(10 * time.Millisecond)
	}

	elapsed := time.Since(start)
	if elapsed < minElapsed-30*time.Millisecond {
		t.Errorf("pool finished %d tasks in %s, faster than the %s a pool of size %d bounding them to %d batches should allow",
			n, elapsed, minElapsed, maxThreads, minBatches)
	}
}

func TestSubmitAppliesDelay(t *testing.T) {
	p := New(1)
	defer p.Stop()

	spec := testSpec(t, "true", nil)
	start := time.Now()
	p.Submit(spec, 150*time.Millisecond)

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		entries, _ := os.ReadDir(spec.OutputFile)
		if len(entries) > 0 {
			break
		}
		time.Sleep(10 * time.Millisecond)
	}
	if time.Since(start) < 150*time.Millisecond {
		t.Errorf("expected dispatch to wait for the delay, completed in %s", time.Since(start))
	}
}
