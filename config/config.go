// Package config implements spyrun's root Config document: TOML decode into
// a typed tree, vars fixed-point expansion, and the Finalize step that
// fills in defaults and validates invariants before any spy is started.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"github.com/pkg/errors"

	"github.com/spyrun/spyrun/spyerr"
	"github.com/spyrun/spyrun/template"
)

// Config is spyrun's root configuration document.
type Config struct {
	// Vars is the raw (unexpanded) vars mapping as decoded from TOML.
	Vars map[string]string `mapstructure:"vars"`

	Cfg  *CfgConfig   `mapstructure:"cfg"`
	Log  *LogConfig   `mapstructure:"log"`
	Init *InitConfig  `mapstructure:"init"`
	Spys []*SpyConfig `mapstructure:"spys"`

	// ResolvedVars holds the fixed-point-expanded vars, including built-ins,
	// populated by Finalize. Not part of the decoded document.
	ResolvedVars map[string]string `mapstructure:"-"`

	// Path is the absolute path of the config file this Config was loaded
	// from, used to derive the cfg_* built-ins and the single-instance
	// lock name.
	Path string `mapstructure:"-"`
}

// GoString renders the finalized document's stanzas, spy names, and
// resolved var keys, used for the one-time TRACE-level startup dump in
// cli.go — never for anything parsed back in.
func (c *Config) GoString() string {
	if c == nil {
		return "(*Config)(nil)"
	}

	spyNames := make([]string, len(c.Spys))
	for i, s := range c.Spys {
		spyNames[i] = StringGoString(s.Name)
	}

	varKeys := make([]string, 0, len(c.ResolvedVars))
	for k := range c.ResolvedVars {
		varKeys = append(varKeys, k)
	}
	sort.Strings(varKeys)

	return fmt.Sprintf("&Config{Path:%s, Cfg:%s, Log:%s, Init:%s, Spys:%v, ResolvedVars:%v}",
		StringGoString(&c.Path), c.Cfg.GoString(), c.Log.GoString(), c.Init.GoString(), spyNames, varKeys)
}

// DefaultConfig returns a Config with every stanza defaulted; Finalize is
// still required to compile patterns, expand vars, and validate.
func DefaultConfig() *Config {
	return &Config{
		Vars: map[string]string{},
		Cfg:  DefaultCfgConfig(),
		Log:  DefaultLogConfig(),
		Init: DefaultInitConfig(),
		Spys: nil,
	}
}

// Parse decodes a TOML document into a Config. This is a two-stage
// "decode into a shadow map, then mapstructure into the typed tree" idiom:
// go-toml/v2 only needs to produce a generic map, and mapstructure's
// decode hooks take it from there.
func Parse(s string) (*Config, error) {
	var shadow map[string]interface{}
	if err := toml.Unmarshal([]byte(s), &shadow); err != nil {
		return nil, spyerr.New(spyerr.ConfigParse, "toml decode", err)
	}

	c := DefaultConfig()
	if err := decode(shadow, c); err != nil {
		return nil, spyerr.New(spyerr.ConfigParse, "mapstructure decode", err)
	}

	return c, nil
}

// FromFile reads and parses the config document at path. spyrun's config
// is always exactly one TOML document, so no directory-merge of multiple
// files is attempted (see DESIGN.md).
func FromFile(path string) (*Config, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, spyerr.New(spyerr.ConfigParse, path, err)
	}

	raw, err := os.ReadFile(abs)
	if err != nil {
		return nil, spyerr.New(spyerr.ConfigParse, abs, errors.Wrap(err, "reading config file"))
	}

	c, err := Parse(string(raw))
	if err != nil {
		return nil, err
	}
	c.Path = abs
	return c, nil
}

// Finalize fills in every default, compiles every pattern, expands vars to
// a fixed point, and validates every structural invariant. It must be
// called exactly once, after load, before any spy is started — spyrun's
// configuration is frozen thereafter (reloads require a process restart).
func (c *Config) Finalize() error {
	if c.Cfg == nil {
		c.Cfg = DefaultCfgConfig()
	}
	c.Cfg.Finalize()

	if c.Log == nil {
		c.Log = DefaultLogConfig()
	}
	c.Log.Finalize()

	if c.Init == nil {
		c.Init = DefaultInitConfig()
	}

	if StringVal(c.Cfg.StopFlg) == "" {
		return spyerr.New(spyerr.ConfigParse, "cfg.stop_flg", errors.New("required"))
	}
	if StringVal(c.Cfg.StopForceFlg) == "" {
		return spyerr.New(spyerr.ConfigParse, "cfg.stop_force_flg", errors.New("required"))
	}

	names := make(map[string]struct{}, len(c.Spys))
	for _, s := range c.Spys {
		if s.Name == nil || StringVal(s.Name) == "" {
			return spyerr.New(spyerr.ConfigParse, "spys[].name", errors.New("required"))
		}
		name := StringVal(s.Name)
		if _, dup := names[name]; dup {
			return spyerr.New(spyerr.ConfigParse, name, errors.New("duplicate spy name"))
		}
		names[name] = struct{}{}

		if err := s.Finalize(); err != nil {
			return spyerr.New(spyerr.ConfigParse, name, err)
		}
	}

	builtins, err := c.builtins()
	if err != nil {
		return spyerr.New(spyerr.ConfigParse, "builtins", err)
	}

	resolved, err := expandVars(c.Vars, builtins)
	if err != nil {
		return err
	}
	c.ResolvedVars = resolved

	return nil
}

// builtins computes the fixed process/config built-in context keys
// available to every vars expansion.
func (c *Config) builtins() (template.Context, error) {
	ctx := template.Context{}

	wd, err := os.Getwd()
	if err != nil {
		return nil, err
	}
	ctx["cwd"] = wd

	exe, err := os.Executable()
	if err != nil {
		return nil, err
	}
	ctx["cmd_path"] = exe
	ctx["cmd_dir"] = filepath.Dir(exe)
	ctx["cmd_name"] = filepath.Base(exe)
	ctx["cmd_stem"] = strings.TrimSuffix(ctx["cmd_name"], filepath.Ext(ctx["cmd_name"]))

	cfgPath := c.Path
	if cfgPath == "" {
		cfgPath = filepath.Join(wd, "spyrun.toml")
	}
	ctx["cfg_path"] = cfgPath
	ctx["cfg_dir"] = filepath.Dir(cfgPath)
	cfgName := filepath.Base(cfgPath)
	ctx["cfg_name"] = cfgName
	ctx["cfg_stem"] = strings.TrimSuffix(cfgName, filepath.Ext(cfgName))

	ctx["log_dir"] = filepath.Dir(StringVal(c.Log.Path))
	ctx["stop_path"] = StringVal(c.Cfg.StopFlg)

	return ctx, nil
}

// expandVars expands c.Vars in ascending key order, each value able to
// reference built-ins plus every previously-defined var — an explicit,
// user-visible ordering contract. Because a var can only see keys that
// sort before it, a mutual cycle (A→B, B→A) always fails at the earlier
// key with an "undefined placeholder" error, which is how cyclic var
// references are rejected at load.
func expandVars(vars map[string]string, builtins template.Context) (map[string]string, error) {
	engine := template.New()

	ctx := template.Context{}
	for k, v := range builtins {
		ctx[k] = v
	}

	keys := make([]string, 0, len(vars))
	for k := range vars {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	resolved := make(map[string]string, len(vars)+len(builtins))
	for k, v := range builtins {
		resolved[k] = v
	}

	for _, k := range keys {
		expanded, err := engine.Expand(vars[k], ctx, fmt.Sprintf("vars.%s", k))
		if err != nil {
			return nil, spyerr.New(spyerr.TemplateResolve, fmt.Sprintf("vars.%s", k), err)
		}
		ctx[k] = expanded
		resolved[k] = expanded
	}

	return resolved, nil
}

// MaxThreads returns the effective worker pool size: cfg.max_threads, or
// the logical CPU count when unset/zero.
func (c *Config) MaxThreads() int {
	n := IntVal(c.Cfg.MaxThreads)
	if n <= 0 {
		return runtime.NumCPU()
	}
	return n
}
