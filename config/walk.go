package config

import (
	"fmt"

	"github.com/spyrun/spyrun/spyerr"
)

// WalkConfig enables the optional initial directory Walker producer.
type WalkConfig struct {
	MinDepth       *int    `mapstructure:"min_depth"`
	MaxDepth       *int    `mapstructure:"max_depth"`
	FollowSymlinks *bool   `mapstructure:"follow_symlinks"`
	Pattern        *string `mapstructure:"pattern"`
	Delay          []int   `mapstructure:"delay"`

	Regexp *Regexp `mapstructure:"-"`
}

func (c *WalkConfig) Finalize(site string) error {
	if c.MinDepth == nil {
		c.MinDepth = Int(0)
	}
	if c.MaxDepth == nil {
		c.MaxDepth = Int(-1)
	}
	if c.FollowSymlinks == nil {
		c.FollowSymlinks = Bool(false)
	}
	if c.Pattern == nil {
		c.Pattern = String(".*")
	}

	if err := ValidateDelay(c.Delay, site+".walk.delay"); err != nil {
		return err
	}

	re, err := CompileRegexp(StringVal(c.Pattern))
	if err != nil {
		return spyerr.New(spyerr.RegexCompile, site+".walk.pattern", err)
	}
	c.Regexp = re

	return nil
}

func (c *WalkConfig) GoString() string {
	if c == nil {
		return "(*WalkConfig)(nil)"
	}
	return fmt.Sprintf("&WalkConfig{MinDepth:%s, MaxDepth:%s, Pattern:%s}",
		IntGoString(c.MinDepth), IntGoString(c.MaxDepth), StringGoString(c.Pattern))
}
