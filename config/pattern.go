package config

import (
	"fmt"

	"github.com/spyrun/spyrun/spyerr"
)

// PatternConfig maps a regex match against an event path onto a templated
// command.
type PatternConfig struct {
	Pattern *string  `mapstructure:"pattern"`
	Cmd     *string  `mapstructure:"cmd"`
	Arg     []string `mapstructure:"arg"`

	Regexp *Regexp `mapstructure:"-"`
}

func (c *PatternConfig) Finalize(site string) error {
	if c.Pattern == nil || StringVal(c.Pattern) == "" {
		return fmt.Errorf("%s: pattern is required", site)
	}
	if c.Cmd == nil || StringVal(c.Cmd) == "" {
		return fmt.Errorf("%s: cmd is required", site)
	}

	re, err := CompileRegexp(StringVal(c.Pattern))
	if err != nil {
		return spyerr.New(spyerr.RegexCompile, site, err)
	}
	c.Regexp = re
	return nil
}

func (c *PatternConfig) GoString() string {
	if c == nil {
		return "(*PatternConfig)(nil)"
	}
	return fmt.Sprintf("&PatternConfig{Pattern:%s, Cmd:%s, Arg:%v}",
		StringGoString(c.Pattern), StringGoString(c.Cmd), c.Arg)
}
