//go:build windows

package signals

import "os"

// SignalLookup on Windows only exposes the signals os.Signal portably
// supports; there is no SIGHUP/SIGUSR1/SIGCHLD equivalent.
var SignalLookup = map[string]os.Signal{
	"SIGINT":  os.Interrupt,
	"SIGKILL": os.Kill,
}
