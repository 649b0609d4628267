package source

import (
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/spyrun/spyrun/event"
)

// Poller enumerates a directory on a fixed interval and diffs successive
// snapshots into Create/Modify/Remove events. The scan taken when Run
// starts only establishes the baseline and never emits; every tick after
// that emits the diff against the previous scan.
type Poller struct {
	spyName   string
	input     string
	recursive bool
	interval  time.Duration
}

func NewPoller(spyName, input string, recursive bool, interval time.Duration) *Poller {
	return &Poller{spyName: spyName, input: input, recursive: recursive, interval: interval}
}

// snapshot maps a path to its mod time, used to detect modification between
// ticks without re-reading file contents.
type snapshot map[string]time.Time

func (p *Poller) scan() snapshot {
	snap := make(snapshot)

	walkFn := func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return nil
		}
		if path == p.input {
			return nil
		}
		if info.IsDir() {
			if !p.recursive {
				return filepath.SkipDir
			}
			return nil
		}
		snap[path] = info.ModTime()
		return nil
	}

	if err := filepath.Walk(p.input, walkFn); err != nil {
		log.Printf("[DEBUG] (source) %s: poll scan of %q failed: %s", p.spyName, p.input, err)
	}

	return snap
}

// Run blocks, emitting diffed events on out every tick until stop is
// closed.
func (p *Poller) Run(stop <-chan struct{}, out chan<- *event.Event) error {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	prev := p.scan()

	for {
		select {
		case <-stop:
			return nil
		case <-ticker.C:
			cur := p.scan()
			p.diff(prev, cur, out)
			prev = cur
		}
	}
}

func (p *Poller) diff(prev, cur snapshot, out chan<- *event.Event) {
	for path, mtime := range cur {
		if prevMtime, ok := prev[path]; !ok {
			out <- event.New(p.spyName, event.Create, path)
		} else if !prevMtime.Equal(mtime) {
			out <- event.New(p.spyName, event.Modify, path)
		}
	}
	for path := range prev {
		if _, ok := cur[path]; !ok {
			out <- event.New(p.spyName, event.Remove, path)
		}
	}
}
