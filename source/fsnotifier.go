// Package source implements the three Event Source producers that feed a
// spy's event channel: the fsnotify-backed FsNotifier, the interval
// Poller, and the one-shot Walker.
package source

import (
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/spyrun/spyrun/event"
)

// FsNotifier watches a directory for native filesystem change events and
// normalizes them onto a spy's event channel. If the input path does not
// exist at startup it retries every second until it does, since spies may
// watch a directory created later by another spy's own commands.
type FsNotifier struct {
	spyName   string
	input     string
	recursive bool

	mu      sync.Mutex
	watcher *fsnotify.Watcher
	watched map[string]struct{}
}

func NewFsNotifier(spyName, input string, recursive bool) *FsNotifier {
	return &FsNotifier{
		spyName:   spyName,
		input:     input,
		recursive: recursive,
		watched:   make(map[string]struct{}),
	}
}

// Run waits (checking every second) for the input path to exist, then
// blocks, emitting normalized events on out until stop is closed or the
// watcher's channels close; it returns nil in those cases. It returns an
// error only when the watcher cannot be created or the input cannot be
// added to it.
func (n *FsNotifier) Run(stop <-chan struct{}, out chan<- *event.Event) error {
	for {
		if _, err := os.Stat(n.input); err != nil {
			log.Printf("[DEBUG] (source) %s: input %q not yet present: %s", n.spyName, n.input, err)
			select {
			case <-stop:
				return nil
			case <-time.After(time.Second):
				continue
			}
		}
		break
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	n.watcher = watcher
	defer watcher.Close()

	if err := n.addPath(n.input); err != nil {
		return err
	}

	for {
		select {
		case <-stop:
			return nil

		case fsEvent, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			n.handle(fsEvent, out)

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			log.Printf("[WARN] (source) %s: watcher error: %s", n.spyName, err)
		}
	}
}

func (n *FsNotifier) addPath(root string) error {
	n.mu.Lock()
	defer n.mu.Unlock()

	if _, ok := n.watched[root]; ok {
		return nil
	}
	if err := n.watcher.Add(root); err != nil {
		return err
	}
	n.watched[root] = struct{}{}

	if !n.recursive {
		return nil
	}

	return filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil || path == root {
			return nil
		}
		if info.IsDir() {
			if _, ok := n.watched[path]; !ok {
				if werr := n.watcher.Add(path); werr == nil {
					n.watched[path] = struct{}{}
				}
			}
		}
		return nil
	})
}

func (n *FsNotifier) handle(fsEvent fsnotify.Event, out chan<- *event.Event) {
	kind, ok := kindFromOp(fsEvent.Op)
	if !ok {
		return
	}

	if n.recursive && kind == event.Create {
		if info, err := os.Stat(fsEvent.Name); err == nil && info.IsDir() {
			if err := n.addPath(fsEvent.Name); err != nil {
				log.Printf("[WARN] (source) %s: failed to watch new directory %q: %s", n.spyName, fsEvent.Name, err)
			}
		}
	}

	out <- event.New(n.spyName, kind, fsEvent.Name)
}

func kindFromOp(op fsnotify.Op) (event.Kind, bool) {
	switch {
	case op&fsnotify.Create == fsnotify.Create:
		return event.Create, true
	case op&fsnotify.Write == fsnotify.Write:
		return event.Modify, true
	case op&fsnotify.Remove == fsnotify.Remove:
		return event.Remove, true
	case op&fsnotify.Rename == fsnotify.Rename:
		return event.Remove, true
	case op&fsnotify.Chmod == fsnotify.Chmod:
		return event.Access, true
	default:
		return 0, false
	}
}
