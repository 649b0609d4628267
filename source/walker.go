package source

import (
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/spyrun/spyrun/event"
)

// Walker performs the optional one-shot initial enumeration of a spy's
// input directory, emitting a synthetic Walk event for every path between
// min_depth and max_depth that matches the walk pattern. It fires once,
// after a per-spy startup delay, then exits.
type Walker struct {
	spyName        string
	input          string
	minDepth       int
	maxDepth       int
	followSymlinks bool
	pattern        *regexp.Regexp
	delay          time.Duration
}

func NewWalker(spyName, input string, minDepth, maxDepth int, followSymlinks bool, pattern *regexp.Regexp, delay time.Duration) *Walker {
	return &Walker{
		spyName:        spyName,
		input:          input,
		minDepth:       minDepth,
		maxDepth:       maxDepth,
		followSymlinks: followSymlinks,
		pattern:        pattern,
		delay:          delay,
	}
}

// Run sleeps for the configured startup delay, then walks once and exits.
// It honors stop during the delay so shutdown isn't held up waiting on a
// walker that hasn't started yet.
func (w *Walker) Run(stop <-chan struct{}, out chan<- *event.Event) error {
	select {
	case <-stop:
		return nil
	case <-time.After(w.delay):
	}

	// visited guards against symlink cycles: a path is only descended once,
	// keyed by its resolved (symlink-followed) form.
	visited := make(map[string]struct{})
	return w.walk(w.input, 0, visited, stop, out)
}

func (w *Walker) walk(dir string, depth int, visited map[string]struct{}, stop <-chan struct{}, out chan<- *event.Event) error {
	if real, err := filepath.EvalSymlinks(dir); err == nil {
		if _, seen := visited[real]; seen {
			return nil
		}
		visited[real] = struct{}{}
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil
	}

	for _, entry := range entries {
		select {
		case <-stop:
			return nil
		default:
		}

		path := filepath.Join(dir, entry.Name())
		info, err := entry.Info()
		if err != nil {
			continue
		}

		isDir := info.IsDir()
		if info.Mode()&os.ModeSymlink != 0 {
			if !w.followSymlinks {
				continue
			}
			target, err := os.Stat(path)
			if err != nil {
				continue
			}
			isDir = target.IsDir()
		}

		childDepth := depth + 1

		if w.withinDepth(childDepth) && w.pattern.MatchString(w.relativize(path)) {
			out <- event.New(w.spyName, event.Walk, path)
		}

		if isDir && w.canDescend(childDepth) {
			if err := w.walk(path, childDepth, visited, stop, out); err != nil {
				return err
			}
		}
	}

	return nil
}

func (w *Walker) withinDepth(depth int) bool {
	if depth < w.minDepth {
		return false
	}
	if w.maxDepth >= 0 && depth > w.maxDepth {
		return false
	}
	return true
}

func (w *Walker) canDescend(nextDepth int) bool {
	return w.maxDepth < 0 || nextDepth <= w.maxDepth
}

func (w *Walker) relativize(path string) string {
	rel, err := filepath.Rel(w.input, path)
	if err != nil {
		return path
	}
	return strings.ReplaceAll(rel, string(filepath.Separator), "/")
}
