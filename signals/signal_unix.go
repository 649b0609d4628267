//go:build !windows

package signals

import (
	"os"
	"syscall"
)

// SignalLookup maps signal names to their os.Signal values. The Shutdown
// Controller looks up SIGINT and SIGTERM here to arm its interrupt watch;
// spyrun has no reload signal, so a configuration change always requires a
// process restart.
var SignalLookup = map[string]os.Signal{
	"SIGHUP":  syscall.SIGHUP,
	"SIGINT":  syscall.SIGINT,
	"SIGTERM": syscall.SIGTERM,
	"SIGQUIT": syscall.SIGQUIT,
	"SIGKILL": syscall.SIGKILL,
	"SIGUSR1": syscall.SIGUSR1,
	"SIGUSR2": syscall.SIGUSR2,
	"SIGCHLD": syscall.SIGCHLD,
}
