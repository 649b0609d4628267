package config

import "fmt"

// InitConfig is the `init` stanza: a command run once, synchronously, at
// Supervisor startup.
type InitConfig struct {
	Cmd *string  `mapstructure:"cmd"`
	Arg []string `mapstructure:"arg"`
}

func DefaultInitConfig() *InitConfig {
	return &InitConfig{}
}

func (c *InitConfig) GoString() string {
	if c == nil {
		return "(*InitConfig)(nil)"
	}
	return fmt.Sprintf("&InitConfig{Cmd:%s, Arg:%v}", StringGoString(c.Cmd), c.Arg)
}
