package config

import "fmt"

// DefaultLogLevel is the level applied when `log.level` is unset.
const DefaultLogLevel = "warn"

// LogConfig is the `log` stanza: log sink path, level, syslog options, and
// the optional dispatch-log reaper's retention knobs, wired into
// logging.Setup at startup.
type LogConfig struct {
	Path   *string       `mapstructure:"path"`
	Level  *string       `mapstructure:"level"`
	Syslog *SyslogConfig `mapstructure:"syslog"`

	// MaxAgeDays and MaxBackups bound the per-dispatch output logs under
	// each spy's output root. Zero disables that bound; both default to
	// disabled, so the reaper is off unless a config explicitly opts in.
	MaxAgeDays *int `mapstructure:"max_age_days"`
	MaxBackups *int `mapstructure:"max_backups"`
}

func DefaultLogConfig() *LogConfig {
	return &LogConfig{Syslog: DefaultSyslogConfig()}
}

func (c *LogConfig) Finalize() {
	if c.Path == nil {
		c.Path = String("")
	}
	if c.Level == nil {
		c.Level = String(DefaultLogLevel)
	}
	if c.Syslog == nil {
		c.Syslog = DefaultSyslogConfig()
	}
	c.Syslog.Finalize()
	if c.MaxAgeDays == nil {
		c.MaxAgeDays = Int(0)
	}
	if c.MaxBackups == nil {
		c.MaxBackups = Int(0)
	}
}

func (c *LogConfig) GoString() string {
	if c == nil {
		return "(*LogConfig)(nil)"
	}
	return fmt.Sprintf("&LogConfig{Path:%s, Level:%s, Syslog:%s, MaxAgeDays:%s, MaxBackups:%s}",
		StringGoString(c.Path), StringGoString(c.Level), c.Syslog.GoString(),
		IntGoString(c.MaxAgeDays), IntGoString(c.MaxBackups))
}
