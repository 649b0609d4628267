// Package shutdown implements the Shutdown Controller: two flag-file
// fsnotify watches plus the host OS interrupt signal, with force-wins race
// resolution between graceful and forced termination. Structured as its
// own component around a single select over {stop, force, signal}.
package shutdown

import (
	"log"
	"os"
	"os/signal"
	"path/filepath"

	"github.com/fsnotify/fsnotify"

	"github.com/spyrun/spyrun/signals"
)

// Mode distinguishes the two termination disciplines.
type Mode int

const (
	// Graceful lets in-flight child processes finish before exit.
	Graceful Mode = iota
	// Force abandons in-flight children immediately; the OS reclaims them.
	Force
)

// Controller watches the two flag files plus the host interrupt signal and
// broadcasts exactly one termination on Done, in the mode it was first
// triggered under. A force trigger arriving mid-graceful-shutdown is a
// no-op.
type Controller struct {
	stopFlg      string
	stopForceFlg string

	Done chan Mode

	watcher  *fsnotify.Watcher
	signalCh chan os.Signal
	fired    chan struct{}
}

// New creates a Controller watching stopFlg and stopForceFlg. Watching
// starts only once Run is called.
func New(stopFlg, stopForceFlg string) (*Controller, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	return &Controller{
		stopFlg:      stopFlg,
		stopForceFlg: stopForceFlg,
		Done:         make(chan Mode, 1),
		watcher:      watcher,
		signalCh:     make(chan os.Signal, 1),
		fired:        make(chan struct{}),
	}, nil
}

// Run watches both flag paths' parent directories (the files need not
// exist yet) and the host interrupt signal, exactly once broadcasting on
// Done when any trigger fires. It keeps running after that and returns
// only once stop is closed or the watcher's channels close.
func (c *Controller) Run(stop <-chan struct{}) error {
	defer c.watcher.Close()

	for _, dir := range uniqueDirs(c.stopFlg, c.stopForceFlg) {
		if err := c.watcher.Add(dir); err != nil {
			return err
		}
	}

	signal.Notify(c.signalCh, signals.SignalLookup["SIGINT"], signals.SignalLookup["SIGTERM"])
	defer signal.Stop(c.signalCh)

	// Both flags may already exist at startup (a truly concurrent touch
	// that raced this process's launch); force wins that tie. Once the
	// loop below latches a mode, a later touch of the other flag is a
	// no-op, which first-trigger-wins in the select below already gives
	// us.
	if fileExists(c.stopForceFlg) {
		c.fire(Force)
	} else if fileExists(c.stopFlg) {
		c.fire(Graceful)
	}

	for {
		select {
		case <-stop:
			return nil

		case sig := <-c.signalCh:
			log.Printf("[INFO] (shutdown) received signal %s, initiating graceful shutdown", sig)
			c.fire(Graceful)

		case ev, ok := <-c.watcher.Events:
			if !ok {
				return nil
			}
			if !(ev.Op&(fsnotify.Create|fsnotify.Write) != 0) {
				continue
			}
			switch ev.Name {
			case c.stopForceFlg:
				log.Printf("[INFO] (shutdown) %s touched, forcing shutdown", ev.Name)
				c.fire(Force)
			case c.stopFlg:
				log.Printf("[INFO] (shutdown) %s touched, initiating graceful shutdown", ev.Name)
				c.fire(Graceful)
			}

		case err, ok := <-c.watcher.Errors:
			if !ok {
				return nil
			}
			log.Printf("[WARN] (shutdown) watcher error: %s", err)
		}
	}
}

// fire broadcasts mode exactly once. A Force arriving after a Graceful has
// already fired never overrides it — the first trigger picks the mode, so
// a stop_force_flg created mid-shutdown is a no-op: the Supervisor reads
// Done once and commits to that mode for the rest of shutdown, with no
// separate watch to escalate a Drain already in progress into a Stop.
func (c *Controller) fire(mode Mode) {
	select {
	case <-c.fired:
		return
	default:
	}
	close(c.fired)
	c.Done <- mode
}

func uniqueDirs(paths ...string) []string {
	seen := make(map[string]struct{})
	var dirs []string
	for _, p := range paths {
		dir := filepath.Dir(p)
		if _, ok := seen[dir]; ok {
			continue
		}
		seen[dir] = struct{}{}
		dirs = append(dirs, dir)
	}
	return dirs
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
