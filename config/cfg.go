package config

import "fmt"

// CfgConfig is the `cfg` stanza: shutdown flag paths and pool sizing.
type CfgConfig struct {
	StopFlg      *string `mapstructure:"stop_flg"`
	StopForceFlg *string `mapstructure:"stop_force_flg"`
	MaxThreads   *int    `mapstructure:"max_threads"`
}

func DefaultCfgConfig() *CfgConfig {
	return &CfgConfig{}
}

func (c *CfgConfig) Finalize() {
	if c.StopFlg == nil {
		c.StopFlg = String("")
	}
	if c.StopForceFlg == nil {
		c.StopForceFlg = String("")
	}
	if c.MaxThreads == nil {
		c.MaxThreads = Int(0)
	}
}

func (c *CfgConfig) GoString() string {
	if c == nil {
		return "(*CfgConfig)(nil)"
	}
	return fmt.Sprintf("&CfgConfig{StopFlg:%s, StopForceFlg:%s, MaxThreads:%s}",
		StringGoString(c.StopFlg), StringGoString(c.StopForceFlg), IntGoString(c.MaxThreads))
}
