// Package supervisor owns the top-level process lifecycle: it loads the
// config, runs init.cmd once, constructs every spy's source/coalescer/
// router pipeline, and owns the single Worker Pool and Shutdown Controller.
// Modeled on a Runner's init()/Start()/Stop() shape, repurposed from
// "sync one Consul KV prefix" to "supervise N filesystem spies".
package supervisor

import (
	"log"
	"os/exec"
	"path/filepath"
	"sync"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/pkg/errors"

	"github.com/spyrun/spyrun/coalesce"
	"github.com/spyrun/spyrun/config"
	"github.com/spyrun/spyrun/event"
	"github.com/spyrun/spyrun/lock"
	"github.com/spyrun/spyrun/pool"
	"github.com/spyrun/spyrun/router"
	"github.com/spyrun/spyrun/shutdown"
	"github.com/spyrun/spyrun/source"
	"github.com/spyrun/spyrun/template"
)

// Supervisor is the process's single top-level owner: one Config, one
// Lock, one Pool, one Shutdown Controller, and one pipeline per spy.
type Supervisor struct {
	cfg  *config.Config
	lock *lock.Lock
	pool *pool.Pool
	ctrl *shutdown.Controller

	spies []*spyPipeline

	stop chan struct{}
	wg   sync.WaitGroup

	ErrCh  chan error
	DoneCh chan struct{}
}

// spyPipeline is one spy's wired-up source(s) → coalescer → router, plus
// the goroutines feeding it.
type spyPipeline struct {
	cfg       *config.SpyConfig
	coalescer *coalesce.Coalescer
	router    *router.Router
	events    chan *event.Event
}

// New loads and finalizes the config at path, then builds a Supervisor for
// it via NewWithConfig.
func New(path string) (*Supervisor, error) {
	cfg, err := config.FromFile(path)
	if err != nil {
		return nil, err
	}
	if err := cfg.Finalize(); err != nil {
		return nil, err
	}
	return NewWithConfig(cfg)
}

// NewWithConfig acquires the single-instance lock and builds a Supervisor
// around an already-finalized config. Split out from New so a caller (the
// CLI) can finalize the config first, set up logging (including syslog)
// from cfg.Log, and only then construct the Supervisor — otherwise nothing
// would be able to configure logging before the config itself is parsed. It
// does not yet start anything; call Start for that.
func NewWithConfig(cfg *config.Config) (*Supervisor, error) {
	l, err := lock.Acquire(cfg.Path)
	if err != nil {
		return nil, err
	}

	ctrl, err := shutdown.New(config.StringVal(cfg.Cfg.StopFlg), config.StringVal(cfg.Cfg.StopForceFlg))
	if err != nil {
		l.Release()
		return nil, err
	}

	return &Supervisor{
		cfg:    cfg,
		lock:   l,
		ctrl:   ctrl,
		stop:   make(chan struct{}),
		ErrCh:  make(chan error),
		DoneCh: make(chan struct{}),
	}, nil
}

// Start runs init.cmd synchronously (a non-zero exit is logged, not fatal),
// constructs every spy's pipeline, and launches the shutdown watch, the
// pool, and every spy's sources. It returns once everything is running;
// callers drive the process lifetime via ErrCh/DoneCh.
func (s *Supervisor) Start() error {
	s.runInit()
	s.reapOldLogs()

	s.pool = pool.New(s.cfg.MaxThreads())

	for _, sc := range s.cfg.Spys {
		p, err := s.buildPipeline(sc)
		if err != nil {
			return errors.Wrapf(err, "spy %s", config.StringVal(sc.Name))
		}
		s.spies = append(s.spies, p)
	}

	go s.watchShutdown()

	for _, p := range s.spies {
		s.startSpy(p)
	}

	return nil
}

// runInit executes the configured init command once, blocking until it
// exits. A non-zero exit or spawn failure is logged at warn/error but never
// aborts startup.
func (s *Supervisor) runInit() {
	cmdStr := config.StringVal(s.cfg.Init.Cmd)
	if cmdStr == "" {
		return
	}

	cmd := exec.Command(cmdStr, s.cfg.Init.Arg...)
	if err := cmd.Run(); err != nil {
		if exitErr, ok := err.(*exec.ExitError); ok {
			log.Printf("[WARN] (supervisor) init command %q exited %d", cmdStr, exitErr.ExitCode())
			return
		}
		log.Printf("[ERROR] (supervisor) init command %q failed to run: %s", cmdStr, err)
		return
	}
	log.Printf("[INFO] (supervisor) init command %q exited 0", cmdStr)
}

// reapOldLogs best-effort prunes each spy's dispatch logs per the log
// stanza's max_age_days/max_backups, once at startup, before any spy is
// running. A reap failure is logged by pool.ReapOldLogs itself and never
// aborts startup.
func (s *Supervisor) reapOldLogs() {
	maxAge := config.IntVal(s.cfg.Log.MaxAgeDays)
	maxBackups := config.IntVal(s.cfg.Log.MaxBackups)
	if maxAge <= 0 && maxBackups <= 0 {
		return
	}
	for _, sc := range s.cfg.Spys {
		root := filepath.Join(config.StringVal(sc.Output), config.StringVal(sc.Name))
		pool.ReapOldLogs(root, maxAge, maxBackups)
	}
}

func (s *Supervisor) buildPipeline(sc *config.SpyConfig) (*spyPipeline, error) {
	debounce := time.Duration(config.IntVal(sc.DebounceMs)) * time.Millisecond
	throttle := time.Duration(config.IntVal(sc.ThrottleMs)) * time.Millisecond

	return &spyPipeline{
		cfg:       sc,
		coalescer: coalesce.New(debounce, throttle),
		router:    router.New(config.StringVal(sc.Name), config.StringVal(sc.Output), template.Context(s.cfg.ResolvedVars), sc.Patterns),
		events:    make(chan *event.Event, 256),
	}, nil
}

// startSpy wires and launches one spy's event sources, its event-filter +
// limitkey feed into the coalescer, and the coalescer's drain into the
// router + pool.
func (s *Supervisor) startSpy(p *spyPipeline) {
	name := config.StringVal(p.cfg.Name)
	input := config.StringVal(p.cfg.Input)
	recursive := config.BoolVal(p.cfg.Recursive)

	fsn := source.NewFsNotifier(name, input, recursive)
	go func() {
		if err := fsn.Run(s.stop, p.events); err != nil {
			s.reportErr(errors.Wrapf(err, "spy %s: fsnotifier", name))
		}
	}()

	if p.cfg.Poll != nil {
		interval := time.Duration(config.IntVal(p.cfg.Poll.IntervalMs)) * time.Millisecond
		if interval > 0 {
			poller := source.NewPoller(name, input, recursive, interval)
			go func() {
				if err := poller.Run(s.stop, p.events); err != nil {
					s.reportErr(errors.Wrapf(err, "spy %s: poller", name))
				}
			}()
		}
	}

	if p.cfg.Walk != nil {
		w := p.cfg.Walk
		walker := source.NewWalker(name, input,
			config.IntVal(w.MinDepth), config.IntVal(w.MaxDepth),
			config.BoolVal(w.FollowSymlinks), w.Regexp.Compiled,
			config.SampleDelay(w.Delay))
		go func() {
			if err := walker.Run(s.stop, p.events); err != nil {
				s.reportErr(errors.Wrapf(err, "spy %s: walker", name))
			}
		}()
	}

	s.wg.Add(2)
	go func() {
		defer s.wg.Done()
		s.filterAndCoalesce(p)
	}()
	go func() {
		defer s.wg.Done()
		s.routeAndDispatch(p)
	}()
}

// filterAndCoalesce is the consumer side of the spy's event channel: it
// drops events whose kind isn't in the spy's events set (a synthetic Walk
// event always passes), computes the limitkey, and submits to the
// coalescer. Once a second it also garbage-collects the coalescer's idle
// keys.
func (s *Supervisor) filterAndCoalesce(p *spyPipeline) {
	name := config.StringVal(p.cfg.Name)
	engine := template.New()

	gcTick := time.NewTicker(time.Second)
	defer gcTick.Stop()

	for {
		select {
		case <-s.stop:
			return
		case now := <-gcTick.C:
			p.coalescer.GC(now)
		case ev, ok := <-p.events:
			if !ok {
				return
			}
			if ev.Kind != event.Walk && !p.cfg.EventSet.Has(ev.Kind) {
				continue
			}

			// limitkey is expanded against the event's own context, since
			// the coalescer runs ahead of the pattern router in the data
			// flow and so has no CommandSpec yet to key on. A default
			// keyed on "the resolved CommandSpec's display form" reduces
			// in practice to "per-dispatched-command ≈ per-event-path" for
			// any template that embeds the event path, so the default key
			// here is simply the event's path.
			key := config.StringVal(p.cfg.Limitkey)
			if key == "" {
				key = ev.Path
			} else {
				ctx := template.Context{}
				for k, v := range s.cfg.ResolvedVars {
					ctx[k] = v
				}
				for k, v := range ev.Context() {
					ctx[k] = v
				}
				expanded, err := engine.Expand(key, ctx, name+".limitkey")
				if err != nil {
					log.Printf("[ERROR] (supervisor) %s: limitkey expansion failed: %s", name, err)
					continue
				}
				key = expanded
			}

			p.coalescer.Submit(key, ev)
		}
	}
}

// routeAndDispatch drains the coalescer's output, routes each surviving
// event through the spy's patterns, and submits every resulting
// CommandSpec to the pool with its sampled delay.
func (s *Supervisor) routeAndDispatch(p *spyPipeline) {
	name := config.StringVal(p.cfg.Name)

	for {
		select {
		case <-s.stop:
			return
		case ev, ok := <-p.coalescer.Out:
			if !ok {
				return
			}

			specs, errs := p.router.Route(ev)
			for _, err := range errs {
				log.Printf("[ERROR] (supervisor) %s: routing failed: %s", name, err)
			}

			for _, spec := range specs {
				s.pool.Submit(spec, config.SampleDelay(p.cfg.Delay))
			}
		}
	}
}

func (s *Supervisor) watchShutdown() {
	go func() {
		if err := s.ctrl.Run(s.stop); err != nil {
			s.reportErr(errors.Wrap(err, "shutdown controller"))
		}
	}()

	mode := <-s.ctrl.Done
	s.shutdown(mode)
}

func (s *Supervisor) shutdown(mode shutdown.Mode) {
	for _, p := range s.spies {
		p.coalescer.Close()
	}
	close(s.stop)

	// Wait for every producer goroutine (source readers, the coalescer
	// feed, the router/dispatch feed) to actually return before touching
	// the pool: routeAndDispatch is the only caller of pool.Submit, and
	// Drain closes p.submit, which would panic if a Submit raced it.
	s.wg.Wait()

	switch mode {
	case shutdown.Force:
		s.pool.Stop()
	default:
		s.pool.Drain()
	}

	if err := s.lock.Release(); err != nil {
		log.Printf("[WARN] (supervisor) releasing lock: %s", err)
	}

	close(s.DoneCh)
}

func (s *Supervisor) reportErr(err error) {
	select {
	case s.ErrCh <- err:
	case <-s.stop:
	}
}

// Err aggregates any errors the pool recorded across its lifetime, for a
// final summary log line at exit.
func (s *Supervisor) Err() error {
	var result *multierror.Error
	if s.pool != nil {
		if err := s.pool.Err(); err != nil {
			result = multierror.Append(result, err)
		}
	}
	return result.ErrorOrNil()
}
