package config

import (
	"fmt"

	"github.com/pkg/errors"

	"github.com/spyrun/spyrun/event"
)

// SpyConfig is a single watch definition. Immutable after
// Finalize — spyrun restarts the process to pick up changes rather than
// reloading a running spy.
type SpyConfig struct {
	Name      *string  `mapstructure:"name"`
	Input     *string  `mapstructure:"input"`
	Output    *string  `mapstructure:"output"`
	Events    []string `mapstructure:"events"`
	Recursive *bool    `mapstructure:"recursive"`

	DebounceMs *int  `mapstructure:"debounce_ms"`
	ThrottleMs *int  `mapstructure:"throttle_ms"`
	Delay      []int `mapstructure:"delay"`

	Limitkey *string `mapstructure:"limitkey"`

	Patterns []*PatternConfig `mapstructure:"patterns"`

	Poll *PollConfig `mapstructure:"poll"`
	Walk *WalkConfig `mapstructure:"walk"`

	// EventSet is the parsed, validated form of Events, populated by
	// Finalize.
	EventSet event.KindSet `mapstructure:"-"`
}

// Finalize fills in defaults, compiles patterns, and validates this spy's
// invariants. site is the spy's name, used in error messages.
func (c *SpyConfig) Finalize() error {
	site := StringVal(c.Name)

	if c.Input == nil || StringVal(c.Input) == "" {
		return errors.Errorf("%s: input is required", site)
	}
	if c.Output == nil {
		c.Output = String("")
	}
	if c.Recursive == nil {
		c.Recursive = Bool(false)
	}
	if c.DebounceMs == nil {
		c.DebounceMs = Int(0)
	}
	if c.ThrottleMs == nil {
		c.ThrottleMs = Int(0)
	}
	if IntVal(c.DebounceMs) < 0 {
		return errors.Errorf("%s: debounce_ms must be non-negative", site)
	}
	if IntVal(c.ThrottleMs) < 0 {
		return errors.Errorf("%s: throttle_ms must be non-negative", site)
	}
	if c.Delay == nil {
		c.Delay = []int{0}
	}
	if err := ValidateDelay(c.Delay, site+".delay"); err != nil {
		return err
	}
	if c.Limitkey == nil {
		c.Limitkey = String("")
	}

	if len(c.Events) == 0 {
		c.Events = []string{"create", "modify"}
	}
	set := make(event.KindSet, len(c.Events))
	for _, raw := range c.Events {
		k, ok := event.ParseKind(raw)
		if !ok {
			return errors.Errorf("%s: invalid event kind %q", site, raw)
		}
		set[k] = struct{}{}
	}
	c.EventSet = set

	for i, p := range c.Patterns {
		if err := p.Finalize(fmt.Sprintf("%s.patterns[%d]", site, i)); err != nil {
			return err
		}
	}

	if c.Walk != nil {
		if err := c.Walk.Finalize(site); err != nil {
			return err
		}
	}

	return nil
}

func (c *SpyConfig) GoString() string {
	if c == nil {
		return "(*SpyConfig)(nil)"
	}
	return fmt.Sprintf("&SpyConfig{Name:%s, Input:%s, Output:%s}",
		StringGoString(c.Name), StringGoString(c.Input), StringGoString(c.Output))
}
