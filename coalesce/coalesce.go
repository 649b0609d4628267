// Package coalesce implements the per-spy debounce/throttle gate: a
// single min/max-wait "quiescence" timer generalized into a two-stage
// debounce-then-throttle pipeline.
package coalesce

import (
	"sync"
	"time"

	"github.com/spyrun/spyrun/event"
)

// Coalescer is the single consumer of a spy's event channel. Every incoming
// event is assigned a key (computed by the caller, typically an expanded
// limitkey); the Coalescer holds, delays, or drops it per the debounce and
// throttle durations and emits surviving events on Out.
type Coalescer struct {
	debounce time.Duration
	throttle time.Duration

	Out chan *event.Event

	mu      sync.Mutex
	entries map[string]*entry
	stopped bool
}

// entry tracks one key's debounce/throttle state: a pending event, its
// debounce timer, and the last-emit deadline used by the throttle gate.
type entry struct {
	pending  *event.Event
	timer    *time.Timer
	lastEmit time.Time
	idleAt   time.Time
}

func New(debounce, throttle time.Duration) *Coalescer {
	return &Coalescer{
		debounce: debounce,
		throttle: throttle,
		Out:      make(chan *event.Event, 64),
		entries:  make(map[string]*entry),
	}
}

// Submit admits ev under key. Keys with debounce=throttle=0 pass through
// immediately; otherwise debounce is applied first (hold-and-reset), its
// output passed through the throttle gate (suppress-after-emit, drop on
// loss — never queued).
func (c *Coalescer) Submit(key string, ev *event.Event) {
	emit, stopped := c.admit(key, ev)
	if stopped || emit == nil {
		return
	}
	c.Out <- emit
}

// admit runs the debounce/throttle state machine under lock and returns the
// event to emit, if any. The actual channel send happens after the lock is
// released so a full Out buffer never blocks other keys.
func (c *Coalescer) admit(key string, ev *event.Event) (emit *event.Event, stopped bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.stopped {
		return nil, true
	}

	if c.debounce == 0 && c.throttle == 0 {
		return ev, false
	}

	e, ok := c.entries[key]
	if !ok {
		e = &entry{}
		c.entries[key] = e
	}
	e.idleAt = time.Now()

	if c.debounce == 0 {
		return c.throttleGateLocked(e, ev), false
	}

	e.pending = ev
	if e.timer == nil {
		e.timer = time.AfterFunc(c.debounce, func() { c.fireDebounce(key) })
	} else {
		e.timer.Reset(c.debounce)
	}
	return nil, false
}

func (c *Coalescer) fireDebounce(key string) {
	c.mu.Lock()
	e, ok := c.entries[key]
	var emit *event.Event
	stopped := c.stopped
	if ok && e.pending != nil && !stopped {
		ev := e.pending
		e.pending = nil
		e.timer = nil
		emit = c.throttleGateLocked(e, ev)
	}
	c.mu.Unlock()

	if emit != nil && !stopped {
		c.Out <- emit
	}
}

// throttleGateLocked applies the throttle gate to an event that has already
// cleared debounce (or needed none), under c.mu. Events that arrive inside
// the throttle window are dropped, not queued.
func (c *Coalescer) throttleGateLocked(e *entry, ev *event.Event) *event.Event {
	if c.throttle > 0 && !e.lastEmit.IsZero() && time.Since(e.lastEmit) < c.throttle {
		return nil
	}
	e.lastEmit = time.Now()
	return ev
}

// GC removes idle entries whose last activity predates the quiet period
// (max(debounce, throttle) * 4). Callers run this on a periodic tick; it
// is not invoked internally so tests can call it deterministically.
func (c *Coalescer) GC(now time.Time) {
	quiet := c.debounce
	if c.throttle > quiet {
		quiet = c.throttle
	}
	if quiet == 0 {
		return
	}
	cutoff := quiet * 4

	c.mu.Lock()
	defer c.mu.Unlock()
	for key, e := range c.entries {
		if e.pending == nil && now.Sub(e.idleAt) > cutoff {
			if e.timer != nil {
				e.timer.Stop()
			}
			delete(c.entries, key)
		}
	}
}

// Close stops admitting new events. Any in-flight debounce timers are
// stopped; their pending events are dropped — this is the "stop admitting
// new work" half of graceful shutdown. Out is left open — callers that own
// the consuming goroutine select on their own shutdown signal alongside
// Out rather than relying on channel closure, so a send racing a
// shutting-down Coalescer never panics.
func (c *Coalescer) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.stopped {
		return
	}
	c.stopped = true
	for _, e := range c.entries {
		if e.timer != nil {
			e.timer.Stop()
		}
	}
}
