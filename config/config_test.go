package config

import (
	"testing"

	"github.com/spyrun/spyrun/event"
)

const minimalDoc = `
[cfg]
stop_flg = "/tmp/spyrun.stop"
stop_force_flg = "/tmp/spyrun.stop.force"

[log]
path = "/tmp/spyrun.log"
level = "info"

[[spys]]
name = "build"
input = "/tmp/src"

[[spys.patterns]]
pattern = "\\.go$"
cmd = "go"
arg = ["build", "./..."]
`

func TestParseAndFinalizeMinimal(t *testing.T) {
	c, err := Parse(minimalDoc)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}

	if err := c.Finalize(); err != nil {
		t.Fatalf("Finalize: %v", err)
	}

	if len(c.Spys) != 1 {
		t.Fatalf("expected 1 spy, got %d", len(c.Spys))
	}

	s := c.Spys[0]
	if StringVal(s.Name) != "build" {
		t.Errorf("name = %q, want build", StringVal(s.Name))
	}
	if !s.EventSet.Has(event.Create) || !s.EventSet.Has(event.Modify) {
		t.Errorf("default events should include Create and Modify, got %v", s.EventSet)
	}
	if s.EventSet.Has(event.Remove) {
		t.Errorf("default events should not include Remove")
	}
	if len(s.Patterns) != 1 || s.Patterns[0].Regexp == nil {
		t.Fatalf("pattern not compiled: %+v", s.Patterns)
	}
	if BoolVal(s.Recursive) {
		t.Errorf("recursive should default to false")
	}
	if len(s.Delay) != 1 || s.Delay[0] != 0 {
		t.Errorf("delay should default to [0], got %v", s.Delay)
	}
}

func TestFinalizeRequiresStopFlags(t *testing.T) {
	doc := `
[[spys]]
name = "x"
input = "/tmp/x"
[[spys.patterns]]
pattern = ".*"
cmd = "echo"
`
	c, err := Parse(doc)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if err := c.Finalize(); err == nil {
		t.Fatalf("expected Finalize to fail without cfg.stop_flg")
	}
}

func TestFinalizeRejectsDuplicateSpyNames(t *testing.T) {
	doc := `
[cfg]
stop_flg = "/tmp/a"
stop_force_flg = "/tmp/b"

[[spys]]
name = "dup"
input = "/tmp/x"
[[spys.patterns]]
pattern = ".*"
cmd = "echo"

[[spys]]
name = "dup"
input = "/tmp/y"
[[spys.patterns]]
pattern = ".*"
cmd = "echo"
`
	c, err := Parse(doc)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if err := c.Finalize(); err == nil {
		t.Fatalf("expected Finalize to reject duplicate spy names")
	}
}

func TestFinalizeRejectsMissingInput(t *testing.T) {
	doc := `
[cfg]
stop_flg = "/tmp/a"
stop_force_flg = "/tmp/b"

[[spys]]
name = "noinput"
`
	c, err := Parse(doc)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if err := c.Finalize(); err == nil {
		t.Fatalf("expected Finalize to reject a spy with no input")
	}
}

func TestExpandVarsOrderingAndBuiltins(t *testing.T) {
	doc := `
[cfg]
stop_flg = "/tmp/a"
stop_force_flg = "/tmp/b"

[vars]
base = "/srv/app"
derived = "{{ base }}/bin"
`
	c, err := Parse(doc)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if err := c.Finalize(); err != nil {
		t.Fatalf("Finalize: %v", err)
	}

	if c.ResolvedVars["base"] != "/srv/app" {
		t.Errorf("base = %q", c.ResolvedVars["base"])
	}
	if c.ResolvedVars["derived"] != "/srv/app/bin" {
		t.Errorf("derived = %q, want /srv/app/bin", c.ResolvedVars["derived"])
	}
	if _, ok := c.ResolvedVars["cwd"]; !ok {
		t.Errorf("expected cwd builtin to be present in ResolvedVars")
	}
}

func TestExpandVarsRejectsForwardReference(t *testing.T) {
	// "earlier" sorts before "later", so a forward reference from
	// "earlier" to "later" fails: "later" is not yet in context when
	// "earlier" is expanded. This is how a mutual A<->B cycle is always
	// rejected, regardless of which name comes first in the document.
	doc := `
[cfg]
stop_flg = "/tmp/a"
stop_force_flg = "/tmp/b"

[vars]
earlier = "{{ later }}"
later = "value"
`
	c, err := Parse(doc)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if err := c.Finalize(); err == nil {
		t.Fatalf("expected Finalize to reject a forward-referencing var")
	}
}

func TestMaxThreadsDefaultsToNumCPU(t *testing.T) {
	c := DefaultConfig()
	c.Cfg.MaxThreads = Int(0)
	if c.MaxThreads() <= 0 {
		t.Errorf("MaxThreads() = %d, want > 0", c.MaxThreads())
	}

	c.Cfg.MaxThreads = Int(4)
	if c.MaxThreads() != 4 {
		t.Errorf("MaxThreads() = %d, want 4", c.MaxThreads())
	}
}

func TestSpyRejectsInvalidDelay(t *testing.T) {
	doc := `
[cfg]
stop_flg = "/tmp/a"
stop_force_flg = "/tmp/b"

[[spys]]
name = "bad"
input = "/tmp/x"
delay = [3, 1]
[[spys.patterns]]
pattern = ".*"
cmd = "echo"
`
	c, err := Parse(doc)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if err := c.Finalize(); err == nil {
		t.Fatalf("expected Finalize to reject delay=[3,1] (lo > hi)")
	}
}

func TestWalkConfigDefaults(t *testing.T) {
	doc := `
[cfg]
stop_flg = "/tmp/a"
stop_force_flg = "/tmp/b"

[[spys]]
name = "walked"
input = "/tmp/x"
[[spys.patterns]]
pattern = ".*"
cmd = "echo"
[spys.walk]
`
	c, err := Parse(doc)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if err := c.Finalize(); err != nil {
		t.Fatalf("Finalize: %v", err)
	}

	w := c.Spys[0].Walk
	if w == nil {
		t.Fatalf("expected walk config to be present")
	}
	if IntVal(w.MinDepth) != 0 || IntVal(w.MaxDepth) != -1 {
		t.Errorf("min/max depth defaults = %d/%d, want 0/-1", IntVal(w.MinDepth), IntVal(w.MaxDepth))
	}
	if w.Regexp == nil || w.Regexp.Source != ".*" {
		t.Errorf("walk pattern should default to \".*\", got %+v", w.Regexp)
	}
}
