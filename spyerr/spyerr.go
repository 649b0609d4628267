// Package spyerr defines the error kinds shared across spyrun's components,
// matching the propagation rules in the design: fatal-at-startup kinds abort
// the process before any watcher starts, recoverable kinds log and continue.
package spyerr

import "fmt"

// ErrExitable is implemented by errors that should set a specific process
// exit status instead of the generic runner-error code.
type ErrExitable interface {
	error
	ExitStatus() int
}

// Kind identifies which of the fixed error categories an error belongs to.
type Kind int

const (
	// ConfigParse is a fatal, startup-only error: the config document could
	// not be decoded or failed structural validation.
	ConfigParse Kind = iota

	// TemplateResolve is fatal at load for vars, but recoverable at dispatch
	// (the triggering event is dropped and the error is logged).
	TemplateResolve

	// FsWatchSetup is recoverable; the source retries.
	FsWatchSetup

	// RegexCompile is a fatal, startup-only error (a pattern failed to
	// compile).
	RegexCompile

	// SpawnFailure is recoverable; the worker pool logs and continues.
	SpawnFailure

	// ChildNonZero is not an error per se; it is reported at warn level.
	ChildNonZero

	// PathMissing is recoverable; the source retries until the path exists.
	PathMissing
)

func (k Kind) String() string {
	switch k {
	case ConfigParse:
		return "ConfigParse"
	case TemplateResolve:
		return "TemplateResolve"
	case FsWatchSetup:
		return "FsWatchSetup"
	case RegexCompile:
		return "RegexCompile"
	case SpawnFailure:
		return "SpawnFailure"
	case ChildNonZero:
		return "ChildNonZero"
	case PathMissing:
		return "PathMissing"
	default:
		return "Unknown"
	}
}

// Error wraps an underlying cause with a Kind and the site at which it
// occurred (a spy name, a config key, a template site — whatever helps a
// log reader find the source without re-reading the whole line).
type Error struct {
	Kind Kind
	Site string
	Err  error
}

func New(kind Kind, site string, err error) *Error {
	return &Error{Kind: kind, Site: site, Err: err}
}

func (e *Error) Error() string {
	if e.Site == "" {
		return fmt.Sprintf("%s: %s", e.Kind, e.Err)
	}
	return fmt.Sprintf("%s (%s): %s", e.Kind, e.Site, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Fatal reports whether this kind aborts the process at startup.
func (e *Error) Fatal() bool {
	switch e.Kind {
	case ConfigParse, RegexCompile:
		return true
	default:
		return false
	}
}

// ExitStatus implements ErrExitable for fatal kinds raised during startup.
func (e *Error) ExitStatus() int {
	switch e.Kind {
	case ConfigParse:
		return 12
	case RegexCompile:
		return 13
	default:
		return 10
	}
}
