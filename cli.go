package main

import (
	"flag"
	"fmt"
	"io"
	"io/ioutil"
	"log"
	"os"
	"path/filepath"
	"sync"

	"github.com/hashicorp/logutils"

	"github.com/spyrun/spyrun/config"
	"github.com/spyrun/spyrun/logging"
	"github.com/spyrun/spyrun/spyerr"
	"github.com/spyrun/spyrun/supervisor"
	"github.com/spyrun/spyrun/version"
)

const (
	ExitCodeOK int = 0

	ExitCodeError = 10 + iota
	ExitCodeInterrupt
	ExitCodeParseFlagsError
	ExitCodeSupervisorError
	ExitCodeConfigError
)

// defaultConfigName is the config file spyrun looks for beside itself when
// -config is not given.
const defaultConfigName = "spyrun.toml"

type Cli struct {
	sync.Mutex

	outStream, errStream io.Writer

	stopCh  chan struct{}
	stopped bool
}

func NewCli(out, err io.Writer) *Cli {
	return &Cli{
		outStream: out,
		errStream: err,
		stopCh:    make(chan struct{}),
	}
}

// Run accepts a slice of arguments and returns an int representing the exit
// status from the command.
func (cli *Cli) Run(args []string) int {
	configPath, debugCount, isVersion, err := cli.ParseFlags(args[1:])
	if err != nil {
		if err == flag.ErrHelp {
			fmt.Fprintf(cli.errStream, usage, version.Name)
			return ExitCodeOK
		}
		fmt.Fprintln(cli.errStream, err.Error())
		return ExitCodeParseFlagsError
	}

	if isVersion {
		fmt.Fprintf(cli.outStream, "%s\n", version.HumanVersion)
		return ExitCodeOK
	}

	cfg, err := config.FromFile(configPath)
	if err != nil {
		return cli.logError(err, exitStatusFor(err, ExitCodeConfigError))
	}
	if err := cfg.Finalize(); err != nil {
		return cli.logError(err, exitStatusFor(err, ExitCodeConfigError))
	}

	level := levelForDebugCount(debugCount)
	if debugCount == 0 && config.StringVal(cfg.Log.Level) != "" {
		level = config.StringVal(cfg.Log.Level)
	}
	if err := logging.Setup(&logging.Config{
		Name:           version.Name,
		Level:          level,
		Syslog:         config.BoolVal(cfg.Log.Syslog.Enabled),
		SyslogFacility: config.StringVal(cfg.Log.Syslog.Facility),
		Writer:         cli.errStream,
	}); err != nil {
		return cli.logError(err, ExitCodeConfigError)
	}

	log.Printf("[INFO] %s", version.HumanVersion)
	log.Printf("[TRACE] (cli) loaded config: %#v", cfg)

	sup, err := supervisor.NewWithConfig(cfg)
	if err != nil {
		return cli.logError(err, exitStatusFor(err, ExitCodeConfigError))
	}

	if err := sup.Start(); err != nil {
		return cli.logError(err, exitStatusFor(err, ExitCodeSupervisorError))
	}

	for {
		select {
		case err := <-sup.ErrCh:
			log.Printf("[WARN] (cli) %s", err)
		case <-sup.DoneCh:
			if err := sup.Err(); err != nil {
				log.Printf("[WARN] (cli) errors recorded during run: %s", err)
			}
			return ExitCodeOK
		case <-cli.stopCh:
			return ExitCodeInterrupt
		}
	}
}

// stop is used internally to shut down a running CLI early (tests only; the
// binary itself relies on the Shutdown Controller's own signal handling).
func (cli *Cli) stop() {
	cli.Lock()
	defer cli.Unlock()

	if cli.stopped {
		return
	}
	close(cli.stopCh)
	cli.stopped = true
}

// ParseFlags parses spyrun's small CLI surface: a config path and a
// repeatable debug flag. Everything else about a run lives in the config
// file.
func (cli *Cli) ParseFlags(args []string) (string, int, bool, error) {
	var configPath string
	var debug countVar
	var isVersion bool

	flags := flag.NewFlagSet(version.Name, flag.ContinueOnError)
	flags.SetOutput(ioutil.Discard)
	flags.Usage = func() {}

	flags.Var((funcVar)(func(s string) error {
		configPath = s
		return nil
	}), "config", "")
	flags.Var((funcVar)(func(s string) error {
		configPath = s
		return nil
	}), "c", "")

	flags.Var(&debug, "debug", "")
	flags.Var(&debug, "d", "")

	flags.BoolVar(&isVersion, "v", false, "")
	flags.BoolVar(&isVersion, "version", false, "")

	if err := flags.Parse(args); err != nil {
		return "", 0, false, err
	}

	if rest := flags.Args(); len(rest) > 0 {
		return "", 0, false, fmt.Errorf("cli: extra args: %q", rest)
	}

	if configPath == "" {
		exe, err := os.Executable()
		if err != nil {
			return "", 0, false, err
		}
		configPath = filepath.Join(filepath.Dir(exe), defaultConfigName)
	}

	return configPath, int(debug), isVersion, nil
}

// levelForDebugCount maps a repeated -d/-debug count onto logutils' level
// names: 1 is error, then warn, info, debug and trace, clamped at trace.
// logutils has no "off" level, so a count of 0 also yields error (Run uses
// the config's log.level instead when no -d is given).
func levelForDebugCount(n int) string {
	levels := []logutils.LogLevel{"ERR", "WARN", "INFO", "DEBUG", "TRACE"}
	if n <= 0 {
		return string(levels[0])
	}
	if n > len(levels) {
		return string(levels[len(levels)-1])
	}
	return string(levels[n-1])
}

// exitStatusFor returns the caller-specified exit code for an ErrExitable,
// falling back to fallback otherwise.
func exitStatusFor(err error, fallback int) int {
	if typed, ok := err.(spyerr.ErrExitable); ok {
		return typed.ExitStatus()
	}
	return fallback
}

func (cli *Cli) logError(err error, status int) int {
	log.Printf("[ERR] (cli) %s", err)
	return status
}

const usage = `Usage: %s [options]

  Watches a set of directories on the file system and spawns external
  commands when matching filesystem events occur. Runs until a stop flag
  file is touched, the host interrupt signal is received, or the process is
  killed.

Options:

  -config=<path>, -c=<path>
      Path to the spyrun TOML config file. Defaults to spyrun.toml next to
      the executable.

  -debug, -d
      Raise logging verbosity by one level (error -> warn -> info -> debug
      -> trace). Repeatable.

  -v, -version
      Print the version of this daemon
`
