// Package pool implements the Worker Pool: a fixed-size parallel executor
// that applies the per-dispatch randomized delay, spawns the resolved
// command, tees its output to a per-dispatch log file, and records its
// exit status. Skips the shell-string parse step since spyrun's cmd/args
// are already split at config load instead of carried as one shell
// string.
package pool

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/exec"
	"path/filepath"
	"sync"
	"time"

	"github.com/hashicorp/go-multierror"
	"golang.org/x/sync/semaphore"

	"github.com/spyrun/spyrun/event"
)

// Pool is a fixed-size parallel executor drawing from a submission queue
// buffered to 4096 entries. Size is cfg.max_threads; submissions in excess
// of capacity wait in that buffer, and once it is full Submit blocks until
// the dispatcher takes one.
type Pool struct {
	sem *semaphore.Weighted

	submit chan *submission
	done   chan struct{}
	wg     sync.WaitGroup

	errsMu sync.Mutex
	errs   *multierror.Error
}

type submission struct {
	spec  *event.CommandSpec
	delay time.Duration
}

func New(maxThreads int) *Pool {
	p := &Pool{
		sem:    semaphore.NewWeighted(int64(maxThreads)),
		submit: make(chan *submission, 4096),
		done:   make(chan struct{}),
	}
	p.wg.Add(1)
	go p.dispatchLoop()
	return p
}

// Submit enqueues spec for execution after sleeping delay. It blocks only
// while the 4096-entry submission buffer is full. Callers must not call
// Submit concurrently with or after Drain/Stop — the Supervisor enforces
// this by waiting for every spy's dispatch goroutine to return before
// draining or stopping the pool.
func (p *Pool) Submit(spec *event.CommandSpec, delay time.Duration) {
	select {
	case p.submit <- &submission{spec: spec, delay: delay}:
	case <-p.done:
	}
}

// dispatchLoop pulls submissions and acquires a pool slot for each,
// blocking only the dispatch of new work, never the submission queue
// itself, once a slot is free.
func (p *Pool) dispatchLoop() {
	defer p.wg.Done()

	ctx := context.Background()
	for {
		select {
		case <-p.done:
			return
		case sub, ok := <-p.submit:
			if !ok {
				return
			}
			if err := p.sem.Acquire(ctx, 1); err != nil {
				return
			}
			p.wg.Add(1)
			go func(sub *submission) {
				defer p.wg.Done()
				defer p.sem.Release(1)
				p.run(sub)
			}(sub)
		}
	}
}

// run is a single task: sleep the effective delay (interruptible by
// shutdown), spawn the child, tee its output, and log its exit status.
func (p *Pool) run(sub *submission) {
	select {
	case <-time.After(sub.delay):
	case <-p.done:
		return
	}

	spec := sub.spec

	out, err := openOutputFile(spec.OutputFile)
	if err != nil {
		p.recordErr(fmt.Errorf("%s: opening output file %q: %w", spec.SpyName, spec.OutputFile, err))
		log.Printf("[ERROR] (pool) %s: could not open output file %q: %s", spec.SpyName, spec.OutputFile, err)
		return
	}
	defer out.Close()

	cmd := exec.Command(spec.Cmd, spec.Args...)
	cmd.Dir = spec.Cwd
	cmd.Stdout = out
	cmd.Stderr = out

	if err := cmd.Start(); err != nil {
		p.recordErr(fmt.Errorf("%s: spawning %q: %w", spec.SpyName, spec.Display(), err))
		log.Printf("[ERROR] (pool) %s: failed to spawn %q: %s", spec.SpyName, spec.Display(), err)
		return
	}

	waitErr := make(chan error, 1)
	go func() { waitErr <- cmd.Wait() }()

	select {
	case <-p.done:
		// Force shutdown: the OS reclaims the orphaned child; we don't wait.
		return
	case err := <-waitErr:
		p.logExit(spec, err)
	}
}

func (p *Pool) logExit(spec *event.CommandSpec, waitErr error) {
	if waitErr == nil {
		log.Printf("[INFO] (pool) %s: %q exited 0", spec.SpyName, spec.Display())
		return
	}
	if exitErr, ok := waitErr.(*exec.ExitError); ok {
		log.Printf("[WARN] (pool) %s: %q exited %d", spec.SpyName, spec.Display(), exitErr.ExitCode())
		return
	}
	log.Printf("[ERROR] (pool) %s: %q failed: %s", spec.SpyName, spec.Display(), waitErr)
}

// openOutputFile creates dir/file.log lazily, auto-making parents, keyed by
// a timestamp so repeated dispatches for the same stem never collide
// (layout: <output>/<spy>/<event_stem>/<ts>.log).
func openOutputFile(dir string) (*os.File, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	name := fmt.Sprintf("%d.log", time.Now().UnixNano())
	return os.Create(filepath.Join(dir, name))
}

// Stop signals all in-flight tasks to abandon their wait (force shutdown)
// and blocks until every goroutine the pool spawned has returned.
func (p *Pool) Stop() {
	close(p.done)
	p.wg.Wait()
}

// Drain closes the submission queue, then blocks until every queued
// submission has been dispatched and every running task has finished, for
// graceful shutdown. A Submit during or after Drain panics on the closed
// queue, so callers must stop submitting before calling Drain.
func (p *Pool) Drain() {
	close(p.submit)
	p.wg.Wait()
}

func (p *Pool) recordErr(err error) {
	p.errsMu.Lock()
	defer p.errsMu.Unlock()
	p.errs = multierror.Append(p.errs, err)
}

// Err aggregates any errors recorded across the pool's lifetime. A failing
// task never poisons the pool — Err is purely informational, never
// consulted to decide whether to keep running.
func (p *Pool) Err() error {
	p.errsMu.Lock()
	defer p.errsMu.Unlock()
	return p.errs.ErrorOrNil()
}
