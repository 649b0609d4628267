package config

import "fmt"

const (
	DefaultSyslogFacility = "LOCAL0"
)

type SyslogConfig struct {
	Enabled  *bool   `mapstructure:"enabled"`
	Facility *string `mapstructure:"facility"`
}

func DefaultSyslogConfig() *SyslogConfig {
	return &SyslogConfig{}
}

func (c *SyslogConfig) Finalize() {
	if c.Enabled == nil {
		c.Enabled = Bool(StringPresent(c.Facility))
	}

	if c.Facility == nil {
		c.Facility = String(DefaultSyslogFacility)
	}
}

func (c *SyslogConfig) GoString() string {
	if c == nil {
		return "(*SyslogConfig)(nil)"
	}

	return fmt.Sprintf("&SyslogConfig{"+
		"Enabled:%s, "+
		"Facility:%s"+
		"}",
		BoolGoString(c.Enabled),
		StringGoString(c.Facility),
	)
}
