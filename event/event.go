// Package event defines the normalized Event and CommandSpec types that
// flow through every stage of spyrun's pipeline: source → coalescer →
// router → pool.
package event

import (
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Kind is a normalized filesystem change notification. Walk is synthetic,
// emitted only by the initial directory walker.
type Kind int

const (
	Access Kind = iota
	Create
	Modify
	Remove
	Walk
)

func (k Kind) String() string {
	switch k {
	case Access:
		return "Access"
	case Create:
		return "Create"
	case Modify:
		return "Modify"
	case Remove:
		return "Remove"
	case Walk:
		return "Walk"
	default:
		return "Unknown"
	}
}

// ParseKind parses the config-file spelling of an event kind
// ("access"|"create"|"modify"|"remove", case-insensitive). Walk is never
// user-configurable — it is synthetic.
func ParseKind(s string) (Kind, bool) {
	switch strings.ToLower(s) {
	case "access":
		return Access, true
	case "create":
		return Create, true
	case "modify":
		return Modify, true
	case "remove":
		return Remove, true
	default:
		return 0, false
	}
}

// KindSet is the set of kinds a spy is interested in.
type KindSet map[Kind]struct{}

func NewKindSet(kinds ...Kind) KindSet {
	s := make(KindSet, len(kinds))
	for _, k := range kinds {
		s[k] = struct{}{}
	}
	return s
}

func (s KindSet) Has(k Kind) bool {
	_, ok := s[k]
	return ok
}

// Event is a single normalized filesystem notification (or synthetic Walk
// match) attributed to one spy.
type Event struct {
	// ID is a short random id stamped when the event is created. The
	// pipeline's log lines do not print it.
	ID string

	SpyName   string
	Kind      Kind
	Path      string
	Timestamp time.Time
}

// New builds an Event for path, stamping an ID and Timestamp. Name, Dir,
// Stem and Parent are derived from Path by the methods below.
func New(spyName string, kind Kind, path string) *Event {
	return &Event{
		ID:        uuid.NewString()[:8],
		SpyName:   spyName,
		Kind:      kind,
		Path:      path,
		Timestamp: time.Now(),
	}
}

// Name returns the base name of the event's path.
func (e *Event) Name() string { return filepath.Base(e.Path) }

// Dir returns the directory containing the event's path.
func (e *Event) Dir() string { return filepath.Dir(e.Path) }

// Stem returns the base name without its final extension.
func (e *Event) Stem() string {
	name := e.Name()
	if ext := filepath.Ext(name); ext != "" {
		return strings.TrimSuffix(name, ext)
	}
	return name
}

// Parent returns the base name of the directory containing the event's
// path.
func (e *Event) Parent() string { return filepath.Base(e.Dir()) }

// Context projects the event's fields into the template engine's context
// keys, the set exposed to templates at dispatch time.
func (e *Event) Context() map[string]string {
	return map[string]string{
		"spy_name":   e.SpyName,
		"event_path": e.Path,
		"event_name": e.Name(),
		"event_dir":  e.Dir(),
		"event_stem": e.Stem(),
		"event_kind": e.Kind.String(),
	}
}

// CommandSpec is a fully-expanded command invocation ready to execute,
// derived from a (Spy, Pattern, Event) triple.
type CommandSpec struct {
	SpyName    string
	Cmd        string
	Args       []string
	Cwd        string
	OutputFile string

	// Event is the triggering event, kept for logging/correlation.
	Event *Event
}

// Display renders the command's display form, the resolved CommandSpec's
// cmd plus its args, used in the pool's log lines. It is not the
// coalescer's key: when limitkey is unset, the default key is the event
// path (see supervisor.filterAndCoalesce).
func (c *CommandSpec) Display() string {
	if len(c.Args) == 0 {
		return c.Cmd
	}
	return c.Cmd + " " + strings.Join(c.Args, " ")
}
