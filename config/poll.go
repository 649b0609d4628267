package config

import "fmt"

// PollConfig enables the optional periodic-stat Poller producer.
type PollConfig struct {
	IntervalMs *int `mapstructure:"interval_ms"`
}

func (c *PollConfig) GoString() string {
	if c == nil {
		return "(*PollConfig)(nil)"
	}
	return fmt.Sprintf("&PollConfig{IntervalMs:%s}", IntGoString(c.IntervalMs))
}
